package model

import "time"

// Sale records the purchase of a single seat.  A sale is written
// when payment for a booking group is confirmed; every PENDING
// reservation in the group produces one sale row and its seat
// moves to SOLD in the same transaction.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation that was confirmed.
//  SessionID     – session the seat belongs to.
//  SeatID        – seat that was sold.
//  RequesterID   – client the seat was sold to.
//  PriceCents    – price paid for this seat in cents.
//  CreatedAt     – when payment was confirmed.
type Sale struct {
	ID            uint64    // sales.id
	ReservationID uint64    // sales.reservation_id
	SessionID     uint64    // sales.session_id
	SeatID        uint64    // sales.seat_id
	RequesterID   string    // sales.requester_id
	PriceCents    uint32    // sales.price_cents
	CreatedAt     time.Time // sales.created_at
}
