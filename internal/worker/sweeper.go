// Package worker contains background processes that run alongside the
// HTTP server.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/session-booking/internal/lock"
	"github.com/iliyamo/session-booking/internal/logger"
	"github.com/iliyamo/session-booking/internal/metrics"
	"github.com/iliyamo/session-booking/internal/model"
	"github.com/iliyamo/session-booking/internal/queue"
	"github.com/iliyamo/session-booking/internal/service"
)

// Sweeper reclaims timed-out holds on a fixed interval: each expired
// PENDING reservation is moved to EXPIRED with its seat freed in one
// transaction, any orphaned seat lock is cleared, and one
// reservation.expired event is published.  Ticks never overlap; a
// tick that finds the previous one still running is skipped.
type Sweeper struct {
	store    service.Store
	locks    service.Locker
	events   service.EventPublisher
	interval time.Duration

	// running guards against overlapping sweeps.  CAS, not a plain
	// bool: the ticker goroutine and Sweep callers may race.
	running atomic.Bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSweeper builds a Sweeper that ticks every interval.
func NewSweeper(store service.Store, locks service.Locker, events service.EventPublisher, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		locks:    locks,
		events:   events,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
// Run it on its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	logger.Info("expiration sweeper started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("expiration sweeper stopped (context cancelled)")
			return
		case <-s.stopCh:
			logger.Info("expiration sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Stop halts the loop and waits for the current tick to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// Sweep runs one expiration pass.  Returns the number of reservations
// reclaimed, or -1 if the pass was skipped because another is still
// in flight.  Sweeps are allowed to be late, never overlapping.
func (s *Sweeper) Sweep(ctx context.Context) int {
	if !s.running.CompareAndSwap(false, true) {
		logger.Debug("sweep skipped, previous still running")
		return -1
	}
	defer s.running.Store(false)

	expired, err := s.store.ListExpiredReservations(ctx)
	if err != nil {
		logger.Error("sweep query failed", zap.Error(err))
		return 0
	}
	if len(expired) == 0 {
		logger.Debug("no expired reservations")
		return 0
	}

	reclaimed := 0
	for _, res := range expired {
		// Per-item isolation: one bad row must not block the rest.
		if err := s.expireOne(ctx, res); err != nil {
			logger.Error("sweep item failed",
				zap.Uint64("reservation_id", res.ID),
				zap.Uint64("seat_id", res.SeatID),
				zap.Error(err))
			continue
		}
		reclaimed++
	}
	if reclaimed > 0 {
		logger.Info("expired reservations reclaimed", zap.Int("count", reclaimed))
	}
	return reclaimed
}

func (s *Sweeper) expireOne(ctx context.Context, res model.Reservation) error {
	done, err := s.store.ExpireReservation(ctx, res.ID, res.SeatID)
	if err != nil {
		return fmt.Errorf("expire reservation: %w", err)
	}
	if !done {
		// Already finalized by cancel, confirm or an earlier sweep.
		return nil
	}

	if m := metrics.Get(); m != nil {
		m.ExpiredReservationsTotal.Inc()
		m.PendingReservations.Dec()
	}

	// Best-effort cleanup of a lock a crashed writer may have left
	// behind.  Absence is the normal case, not an error.
	key := lock.Key(res.SessionID, res.SeatID)
	if err := s.locks.Release(ctx, key); err != nil {
		logger.Warn("orphaned lock release failed", zap.String("key", key), zap.Error(err))
	}

	ev := queue.ReservationExpiredEvent{
		ReservationID: res.ID,
		GroupID:       res.GroupID,
		SessionID:     res.SessionID,
		SeatID:        res.SeatID,
		RequesterID:   res.RequesterID,
		ExpiresAt:     res.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, queue.QueueReservationExpired, "reservation.expired", ev); err != nil {
		logger.Error("publish reservation.expired failed", zap.Uint64("reservation_id", res.ID), zap.Error(err))
	}
	return nil
}
