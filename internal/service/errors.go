// Package service implements the reservation and sale workflows on
// top of the store, the seat lock coordinator and the event
// publisher.
package service

import "errors"

// Error taxonomy surfaced to callers.  Handlers translate these to
// HTTP status codes; everything else propagates as an internal error.
var (
	// ErrNotFound – unknown session, seat or reservation.
	ErrNotFound = errors.New("not found")
	// ErrConflict – every requested seat was unavailable or its lock
	// unobtainable.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState – operation attempted on a reservation not in
	// the required state, or by the wrong owner.
	ErrInvalidState = errors.New("invalid state")
	// ErrExpired – operation attempted past the hold's expiry.
	ErrExpired = errors.New("expired")
)
