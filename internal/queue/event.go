// Package queue defines message payloads exchanged over the message broker
// and the envelope every message is wrapped in.
package queue

import "encoding/json"

// Queue names.  Routing uses the default exchange, so the routing key
// is always the queue name itself.
const (
	QueueReservationCreated = "reservation.created"
	QueueReservationExpired = "reservation.expired"
	QueuePaymentConfirmed   = "payment.confirmed"
)

// Envelope wraps every published message.  EventType duplicates the
// queue-level routing so consumers can dispatch without inspecting
// broker metadata; Timestamp is RFC3339 UTC.
type Envelope struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// ReservationCreatedEvent is published once per create call that
// produced at least one hold.  It carries the whole booking group so
// downstream consumers never need to join rows themselves.
type ReservationCreatedEvent struct {
	ReservationIDs []uint64 `json:"reservation_ids"`
	GroupID        string   `json:"group_id"`
	SessionID      uint64   `json:"session_id"`
	RequesterID    string   `json:"requester_id"`
	SeatIDs        []uint64 `json:"seat_ids"`
	ExpiresAt      string   `json:"expires_at"`
	CreatedAt      string   `json:"created_at"`
}

// ReservationExpiredEvent is published once per reservation the
// sweeper reclaims.  Delivery is at-least-once; consumers deduplicate
// by reservation_id.
type ReservationExpiredEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	GroupID       string `json:"group_id"`
	SessionID     uint64 `json:"session_id"`
	SeatID        uint64 `json:"seat_id"`
	RequesterID   string `json:"requester_id"`
	ExpiresAt     string `json:"expires_at"`
}

// PaymentConfirmedEvent is published when payment for a booking group
// is confirmed and its seats are sold.
type PaymentConfirmedEvent struct {
	SaleIDs        []uint64 `json:"sale_ids"`
	ReservationIDs []uint64 `json:"reservation_ids"`
	GroupID        string   `json:"group_id"`
	SessionID      uint64   `json:"session_id"`
	RequesterID    string   `json:"requester_id"`
	TotalCents     uint64   `json:"total_cents"`
	ConfirmedAt    string   `json:"confirmed_at"`
}
