// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// services to distinguish between different failure scenarios without
// string-matching SQL errors.
package repository

import "errors"

// ErrNotFound is returned when a session, seat or reservation row does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrSeatUnavailable is returned when a hold is attempted on a seat
// that is not in status AVAILABLE.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrDuplicateHold is returned when the same requester already has an
// unexpired PENDING reservation for the seat.  It distinguishes a
// duplicate submission from genuine contention by another client.
var ErrDuplicateHold = errors.New("duplicate hold")

// ErrNotPending is returned when a guarded status transition matched
// no rows because the reservation had already left PENDING.  Racing
// writers (cancel vs sweep, confirm vs sweep) surface this instead of
// silently double-transitioning.
var ErrNotPending = errors.New("reservation not pending")
