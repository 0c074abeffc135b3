package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/session-booking/internal/lock"
	"github.com/iliyamo/session-booking/internal/logger"
	"github.com/iliyamo/session-booking/internal/metrics"
	"github.com/iliyamo/session-booking/internal/model"
	"github.com/iliyamo/session-booking/internal/queue"
	"github.com/iliyamo/session-booking/internal/repository"
)

// ReservationService drives the hold-then-expire lifecycle: per-seat
// lock acquisition, availability verification and the atomic state
// transition, with partial successes aggregated into one result.
type ReservationService struct {
	store   Store
	locks   Locker
	events  EventPublisher
	holdTTL time.Duration
}

// NewReservationService wires the service.  holdTTL is how long a new
// hold stays PENDING before the sweeper may reclaim it.
func NewReservationService(store Store, locks Locker, events EventPublisher, holdTTL time.Duration) *ReservationService {
	return &ReservationService{store: store, locks: locks, events: events, holdTTL: holdTTL}
}

// CreateResult aggregates the outcome of a create or add-seats call.
// Created and Rejected partition the requested seat set.
type CreateResult struct {
	Created  []model.Reservation
	Rejected []uint64
}

// GroupID returns the booking group of the created reservations, or
// "" when nothing was created.
func (r *CreateResult) GroupID() string {
	if len(r.Created) == 0 {
		return ""
	}
	return r.Created[0].GroupID
}

// Create attempts to hold each of seatIDs for requesterID.  Seats are
// processed independently and sequentially; one contended seat never
// fails the others.  The call fails with ErrConflict only when zero
// seats succeed.  On any success one reservation.created event is
// published for the whole group.
func (s *ReservationService) Create(ctx context.Context, sessionID uint64, seatIDs []uint64, requesterID string) (*CreateResult, error) {
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%w: empty seat list", ErrInvalidState)
	}

	// Up-front validation, before any lock is attempted.
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, mapStoreErr(err)
	}
	seats, err := s.store.SeatsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	known := make(map[uint64]bool, len(seats))
	for _, seat := range seats {
		known[seat.ID] = true
	}
	unique := dedupe(seatIDs)
	for _, id := range unique {
		if !known[id] {
			return nil, fmt.Errorf("%w: seat %d not in session %d", ErrNotFound, id, sessionID)
		}
	}

	groupID := uuid.New().String()
	expiresAt := time.Now().UTC().Add(s.holdTTL)
	result := s.holdSeats(ctx, sessionID, unique, requesterID, groupID, expiresAt)

	if len(result.Created) == 0 {
		if m := metrics.Get(); m != nil {
			m.ReservationsTotal.WithLabelValues("conflict").Inc()
		}
		return nil, fmt.Errorf("%w: no requested seat could be reserved", ErrConflict)
	}
	s.publishCreated(ctx, result)
	return result, nil
}

// AddSeats appends seats to an existing booking group.  The target
// reservation must belong to requesterID, still be PENDING and
// unexpired.  New seats inherit the group's existing expiry instead
// of a fresh hold window, so the whole group expires together.
func (s *ReservationService) AddSeats(ctx context.Context, reservationID uint64, requesterID string, seatIDs []uint64) (*CreateResult, error) {
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%w: empty seat list", ErrInvalidState)
	}
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if res.RequesterID != requesterID {
		return nil, fmt.Errorf("%w: reservation %d not owned by requester", ErrInvalidState, reservationID)
	}
	if !res.IsPending() {
		return nil, fmt.Errorf("%w: reservation %d is %s", ErrInvalidState, reservationID, res.Status)
	}
	if res.IsExpired(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: reservation %d", ErrExpired, reservationID)
	}

	seats, err := s.store.SeatsBySession(ctx, res.SessionID)
	if err != nil {
		return nil, err
	}
	known := make(map[uint64]bool, len(seats))
	for _, seat := range seats {
		known[seat.ID] = true
	}
	unique := dedupe(seatIDs)
	for _, id := range unique {
		if !known[id] {
			return nil, fmt.Errorf("%w: seat %d not in session %d", ErrNotFound, id, res.SessionID)
		}
	}

	result := s.holdSeats(ctx, res.SessionID, unique, requesterID, res.GroupID, res.ExpiresAt)
	if len(result.Created) == 0 {
		if m := metrics.Get(); m != nil {
			m.ReservationsTotal.WithLabelValues("conflict").Inc()
		}
		return nil, fmt.Errorf("%w: no requested seat could be reserved", ErrConflict)
	}
	s.publishCreated(ctx, result)
	return result, nil
}

// holdSeats runs the per-seat algorithm: acquire the seat lock with
// bounded retries, verify and commit the hold in one store
// transaction, release the lock unconditionally, continue to the next
// seat.  Failures reject the seat, never the batch.
func (s *ReservationService) holdSeats(ctx context.Context, sessionID uint64, seatIDs []uint64, requesterID, groupID string, expiresAt time.Time) *CreateResult {
	result := &CreateResult{}
	for _, seatID := range seatIDs {
		res, ok := s.holdOne(ctx, sessionID, seatID, requesterID, groupID, expiresAt)
		if !ok {
			result.Rejected = append(result.Rejected, seatID)
			continue
		}
		result.Created = append(result.Created, *res)
		if m := metrics.Get(); m != nil {
			m.ReservationsTotal.WithLabelValues("reserved").Inc()
			m.PendingReservations.Inc()
		}
	}
	return result
}

// holdOne processes a single seat under its lock.  The deferred
// release keeps lock hygiene even when the store step fails.
func (s *ReservationService) holdOne(ctx context.Context, sessionID, seatID uint64, requesterID, groupID string, expiresAt time.Time) (*model.Reservation, bool) {
	key := lock.Key(sessionID, seatID)

	start := time.Now()
	acquired, err := s.locks.Acquire(ctx, key)
	observeLock("acquire", start, err == nil && acquired)
	if err != nil || !acquired {
		if err != nil {
			logger.Warn("seat lock acquire failed", zap.String("key", key), zap.Error(err))
		}
		if m := metrics.Get(); m != nil {
			m.ReservationsTotal.WithLabelValues("lock_failed").Inc()
		}
		return nil, false
	}
	defer func() {
		start := time.Now()
		relErr := s.locks.Release(ctx, key)
		observeLock("release", start, relErr == nil)
		if relErr != nil {
			// A stranded lock self-heals via TTL; log, never raise.
			logger.Warn("seat lock release failed", zap.String("key", key), zap.Error(relErr))
		}
	}()

	res := &model.Reservation{
		GroupID:     groupID,
		SessionID:   sessionID,
		SeatID:      seatID,
		RequesterID: requesterID,
		ExpiresAt:   expiresAt,
	}
	if err := s.store.HoldSeat(ctx, res); err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatUnavailable), errors.Is(err, repository.ErrDuplicateHold):
			logger.Debug("seat rejected", zap.String("key", key), zap.Error(err))
		default:
			logger.Error("hold transaction failed", zap.String("key", key), zap.Error(err))
			if m := metrics.Get(); m != nil {
				m.ReservationsTotal.WithLabelValues("error").Inc()
			}
		}
		return nil, false
	}
	return res, true
}

// Cancel transitions a PENDING reservation owned by requesterID to
// CANCELLED and frees its seat.  No lock is taken: the only competing
// writer is the sweeper, and the status guard in the store makes the
// race converge on one terminal state.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uint64, requesterID string) error {
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return mapStoreErr(err)
	}
	if res.RequesterID != requesterID {
		return fmt.Errorf("%w: reservation %d not owned by requester", ErrInvalidState, reservationID)
	}
	if !res.IsPending() {
		return fmt.Errorf("%w: reservation %d is %s", ErrInvalidState, reservationID, res.Status)
	}
	if err := s.store.CancelReservation(ctx, reservationID, res.SeatID); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			// Lost the race to the sweeper; the seat is free either way.
			return fmt.Errorf("%w: reservation %d already finalized", ErrInvalidState, reservationID)
		}
		return err
	}
	if m := metrics.Get(); m != nil {
		m.PendingReservations.Dec()
	}
	logger.Info("reservation cancelled",
		zap.Uint64("reservation_id", reservationID),
		zap.String("requester_id", requesterID))
	return nil
}

// Get returns a reservation by ID.
func (s *ReservationService) Get(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return res, nil
}

// ListByRequester returns all reservations made by a requester.
func (s *ReservationService) ListByRequester(ctx context.Context, requesterID string) ([]model.Reservation, error) {
	return s.store.ReservationsByRequester(ctx, requesterID)
}

// Group returns every sibling reservation of a booking group.
func (s *ReservationService) Group(ctx context.Context, groupID string) ([]model.Reservation, error) {
	out, err := s.store.ReservationsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}
	return out, nil
}

func (s *ReservationService) publishCreated(ctx context.Context, result *CreateResult) {
	first := result.Created[0]
	ev := queue.ReservationCreatedEvent{
		GroupID:     first.GroupID,
		SessionID:   first.SessionID,
		RequesterID: first.RequesterID,
		ExpiresAt:   first.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:   first.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, res := range result.Created {
		ev.ReservationIDs = append(ev.ReservationIDs, res.ID)
		ev.SeatIDs = append(ev.SeatIDs, res.SeatID)
	}
	if err := s.events.Publish(ctx, queue.QueueReservationCreated, "reservation.created", ev); err != nil {
		// At-least-once, consumer-idempotent: a publish failure is
		// logged, never unwinds the committed holds.
		logger.Error("publish reservation.created failed", zap.String("group_id", first.GroupID), zap.Error(err))
	}
}

// mapStoreErr lifts repository sentinels into the service taxonomy.
func mapStoreErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	return err
}

func observeLock(op string, start time.Time, ok bool) {
	m := metrics.Get()
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failed"
	}
	m.SeatLockDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
