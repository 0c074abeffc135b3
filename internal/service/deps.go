package service

import (
	"context"
	"time"

	"github.com/iliyamo/session-booking/internal/model"
)

// Locker is the advisory seat lock.  It serializes conflicting seat
// mutations only; the store transaction remains the source of truth,
// so every method here may be treated as best-effort.  Kept separate
// from Store so tests can fake lock behavior independently of store
// state.
type Locker interface {
	// Acquire returns (false, nil) when the key stayed held for the
	// whole retry budget.  It never blocks indefinitely.
	Acquire(ctx context.Context, key string) (bool, error)
	// Release is idempotent and succeeds if the key is already gone.
	Release(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Store is the transactional source of truth for sessions, seats,
// reservations and sales.  Multi-row mutations commit or abort as a
// unit.  Implemented by repository.Store; tests use an in-memory
// fake.
type Store interface {
	GetSession(ctx context.Context, id uint64) (*model.Session, error)
	GetSeat(ctx context.Context, id uint64) (*model.Seat, error)
	SeatsBySession(ctx context.Context, sessionID uint64) ([]model.Seat, error)

	// HoldSeat verifies and takes a hold in one transaction.  Fails
	// with repository.ErrDuplicateHold or repository.ErrSeatUnavailable.
	HoldSeat(ctx context.Context, res *model.Reservation) error

	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	ReservationsByRequester(ctx context.Context, requesterID string) ([]model.Reservation, error)
	ReservationsByGroup(ctx context.Context, groupID string) ([]model.Reservation, error)
	ListExpiredReservations(ctx context.Context) ([]model.Reservation, error)

	// CancelReservation and ExpireReservation are guarded on status
	// PENDING so racing writers converge instead of double-applying.
	CancelReservation(ctx context.Context, id, seatID uint64) error
	ExpireReservation(ctx context.Context, id, seatID uint64) (bool, error)

	// ConfirmGroup sells every live hold of a booking group owned by
	// requesterID, pricing seats at the session price.
	ConfirmGroup(ctx context.Context, groupID, requesterID string, now time.Time) ([]model.Sale, error)
}

// EventPublisher delivers domain events at-least-once.  Publish
// failures are logged by callers and never abort the transaction they
// follow; consumers deduplicate.
type EventPublisher interface {
	Publish(ctx context.Context, queue, eventType string, payload any) error
}
