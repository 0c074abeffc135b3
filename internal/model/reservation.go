package model

import "time"

// Reservation status values.  PENDING holds expire into EXPIRED,
// are confirmed into CONFIRMED by payment, or cancelled into
// CANCELLED by the requester.  CONFIRMED, EXPIRED and CANCELLED
// are terminal.
const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationExpired   = "EXPIRED"
	ReservationCancelled = "CANCELLED"
)

// Reservation is a time-limited hold on one seat of a session.
// Reservations created by the same request share a GroupID so the
// group can later be confirmed or inspected as a unit; each row
// is still processed independently by the sweeper.
//
// Fields:
//  ID          – primary key identifier.
//  GroupID     – UUID shared by every reservation of one booking request.
//  SessionID   – session the seat belongs to.
//  SeatID      – seat being held.
//  RequesterID – opaque identifier of the client that asked for the hold.
//  Status      – PENDING, CONFIRMED, EXPIRED or CANCELLED.
//  ExpiresAt   – instant after which a PENDING hold is reclaimable.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Reservation struct {
	ID          uint64    // reservations.id
	GroupID     string    // reservations.group_id
	SessionID   uint64    // reservations.session_id
	SeatID      uint64    // reservations.seat_id
	RequesterID string    // reservations.requester_id
	Status      string    // reservations.status
	ExpiresAt   time.Time // reservations.expires_at
	CreatedAt   time.Time // reservations.created_at
	UpdatedAt   time.Time // reservations.updated_at
}

// IsPending reports whether the reservation is still a live hold.
func (r *Reservation) IsPending() bool { return r.Status == ReservationPending }

// IsExpired reports whether a PENDING hold has passed its deadline.
// Terminal reservations are never considered expired.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationPending && !r.ExpiresAt.After(now)
}
