package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/session-booking/internal/lock"
	"github.com/iliyamo/session-booking/internal/model"
	"github.com/iliyamo/session-booking/internal/repository"
)

// sweepStore is a minimal service.Store for sweeper tests.  Only the
// methods the sweeper touches do real work; the rest are stubs.
type sweepStore struct {
	mu           sync.Mutex
	seats        map[uint64]*model.Seat
	reservations map[uint64]*model.Reservation

	// listGate, when set, blocks ListExpiredReservations until closed.
	// Used to hold a sweep in flight for the overlap test.
	listGate chan struct{}

	// afterList runs once after ListExpiredReservations returns its
	// snapshot, letting tests race a writer against the sweep.
	afterList func()

	// expireErr fails ExpireReservation for specific reservation IDs.
	expireErr map[uint64]error
}

func newSweepStore() *sweepStore {
	return &sweepStore{
		seats:        make(map[uint64]*model.Seat),
		reservations: make(map[uint64]*model.Reservation),
	}
}

// addHold seeds a RESERVED seat with a PENDING reservation expiring at
// the given time.
func (s *sweepStore) addHold(id, sessionID, seatID uint64, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats[seatID] = &model.Seat{ID: seatID, SessionID: sessionID, Status: model.SeatReserved}
	s.reservations[id] = &model.Reservation{
		ID:          id,
		GroupID:     "group-1",
		SessionID:   sessionID,
		SeatID:      seatID,
		RequesterID: "alice",
		Status:      model.ReservationPending,
		ExpiresAt:   expiresAt,
	}
}

func (s *sweepStore) status(id uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[id].Status
}

func (s *sweepStore) seatStatus(id uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seats[id].Status
}

func (s *sweepStore) ListExpiredReservations(_ context.Context) ([]model.Reservation, error) {
	s.mu.Lock()
	gate := s.listGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.Status == model.ReservationPending && r.ExpiresAt.Before(now) {
			out = append(out, *r)
		}
	}
	if s.afterList != nil {
		hook := s.afterList
		s.afterList = nil
		s.mu.Unlock()
		hook()
		s.mu.Lock()
	}
	return out, nil
}

func (s *sweepStore) ExpireReservation(_ context.Context, id, seatID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.expireErr[id]; ok {
		return false, err
	}
	r, ok := s.reservations[id]
	if !ok || r.Status != model.ReservationPending {
		return false, nil
	}
	r.Status = model.ReservationExpired
	if seat, ok := s.seats[seatID]; ok && seat.Status == model.SeatReserved {
		seat.Status = model.SeatAvailable
	}
	return true, nil
}

func (s *sweepStore) GetSession(context.Context, uint64) (*model.Session, error) {
	return nil, repository.ErrNotFound
}

func (s *sweepStore) GetSeat(context.Context, uint64) (*model.Seat, error) {
	return nil, repository.ErrNotFound
}

func (s *sweepStore) SeatsBySession(context.Context, uint64) ([]model.Seat, error) {
	return nil, nil
}

func (s *sweepStore) HoldSeat(context.Context, *model.Reservation) error {
	return errors.New("not implemented")
}

func (s *sweepStore) GetReservation(context.Context, uint64) (*model.Reservation, error) {
	return nil, repository.ErrNotFound
}

func (s *sweepStore) ReservationsByRequester(context.Context, string) ([]model.Reservation, error) {
	return nil, nil
}

func (s *sweepStore) ReservationsByGroup(context.Context, string) ([]model.Reservation, error) {
	return nil, nil
}

func (s *sweepStore) CancelReservation(context.Context, uint64, uint64) error {
	return repository.ErrNotPending
}

func (s *sweepStore) ConfirmGroup(context.Context, string, string, time.Time) ([]model.Sale, error) {
	return nil, repository.ErrNotPending
}

type sweepLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
}

func newSweepLocker() *sweepLocker {
	return &sweepLocker{held: make(map[string]bool)}
}

func (l *sweepLocker) Acquire(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *sweepLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

func (l *sweepLocker) Exists(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key], nil
}

type sweepPublisher struct {
	mu     sync.Mutex
	events []string // queue names, in order
}

func (p *sweepPublisher) Publish(_ context.Context, queue, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, queue)
	return nil
}

func (p *sweepPublisher) count(queue string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, q := range p.events {
		if q == queue {
			n++
		}
	}
	return n
}

func TestSweep_ReclaimsExpired(t *testing.T) {
	store := newSweepStore()
	locks := newSweepLocker()
	pub := &sweepPublisher{}
	sweeper := NewSweeper(store, locks, pub, time.Minute)

	store.addHold(1, 10, 100, time.Now().UTC().Add(-time.Second))

	n := sweeper.Sweep(context.Background())
	assert.Equal(t, 1, n)
	assert.Equal(t, model.ReservationExpired, store.status(1))
	assert.Equal(t, model.SeatAvailable, store.seatStatus(100))
	assert.Equal(t, 1, pub.count("reservation.expired"))
}

func TestSweep_Idempotent(t *testing.T) {
	store := newSweepStore()
	pub := &sweepPublisher{}
	sweeper := NewSweeper(store, newSweepLocker(), pub, time.Minute)

	store.addHold(1, 10, 100, time.Now().UTC().Add(-time.Second))

	assert.Equal(t, 1, sweeper.Sweep(context.Background()))
	// Nothing left to reclaim; no second event.
	assert.Equal(t, 0, sweeper.Sweep(context.Background()))
	assert.Equal(t, model.ReservationExpired, store.status(1))
	assert.Equal(t, 1, pub.count("reservation.expired"))
}

func TestSweep_LeavesLiveHolds(t *testing.T) {
	store := newSweepStore()
	pub := &sweepPublisher{}
	sweeper := NewSweeper(store, newSweepLocker(), pub, time.Minute)

	store.addHold(1, 10, 100, time.Now().UTC().Add(time.Hour))

	assert.Equal(t, 0, sweeper.Sweep(context.Background()))
	assert.Equal(t, model.ReservationPending, store.status(1))
	assert.Equal(t, model.SeatReserved, store.seatStatus(100))
	assert.Equal(t, 0, pub.count("reservation.expired"))
}

func TestSweep_PerItemIsolation(t *testing.T) {
	store := newSweepStore()
	pub := &sweepPublisher{}
	sweeper := NewSweeper(store, newSweepLocker(), pub, time.Minute)

	past := time.Now().UTC().Add(-time.Second)
	store.addHold(1, 10, 100, past)
	store.addHold(2, 10, 101, past)
	store.expireErr = map[uint64]error{1: errors.New("lock wait timeout")}

	// The failing row is skipped, the healthy one still reclaimed.
	assert.Equal(t, 1, sweeper.Sweep(context.Background()))
	assert.Equal(t, model.ReservationPending, store.status(1))
	assert.Equal(t, model.ReservationExpired, store.status(2))
	assert.Equal(t, 1, pub.count("reservation.expired"))
}

func TestSweep_SkipsWhileRunning(t *testing.T) {
	store := newSweepStore()
	sweeper := NewSweeper(store, newSweepLocker(), &sweepPublisher{}, time.Minute)

	gate := make(chan struct{})
	store.mu.Lock()
	store.listGate = gate
	store.mu.Unlock()

	firstDone := make(chan int)
	go func() {
		firstDone <- sweeper.Sweep(context.Background())
	}()

	// Wait until the first sweep is parked inside the store query.
	require.Eventually(t, func() bool {
		return sweeper.running.Load()
	}, time.Second, time.Millisecond)

	assert.Equal(t, -1, sweeper.Sweep(context.Background()))

	close(gate)
	assert.Equal(t, 0, <-firstDone)

	// Once the first pass finishes, sweeping works again.
	store.mu.Lock()
	store.listGate = nil
	store.mu.Unlock()
	assert.Equal(t, 0, sweeper.Sweep(context.Background()))
}

func TestSweep_ReleasesOrphanedLock(t *testing.T) {
	store := newSweepStore()
	locks := newSweepLocker()
	sweeper := NewSweeper(store, locks, &sweepPublisher{}, time.Minute)

	store.addHold(1, 10, 100, time.Now().UTC().Add(-time.Second))
	// A crashed writer left its lock behind.
	ok, err := locks.Acquire(context.Background(), lock.Key(10, 100))
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, 1, sweeper.Sweep(context.Background()))
	held, err := locks.Exists(context.Background(), lock.Key(10, 100))
	require.NoError(t, err)
	assert.False(t, held)
}

func TestSweep_LostRaceNotCounted(t *testing.T) {
	store := newSweepStore()
	pub := &sweepPublisher{}
	sweeper := NewSweeper(store, newSweepLocker(), pub, time.Minute)

	store.addHold(1, 10, 100, time.Now().UTC().Add(-time.Second))
	// A cancel lands between the sweep query and the expire write.
	store.afterList = func() {
		store.mu.Lock()
		store.reservations[1].Status = model.ReservationCancelled
		store.seats[100].Status = model.SeatAvailable
		store.mu.Unlock()
	}

	// ExpireReservation sees the terminal status and reports not-done;
	// no count, no event, and the cancel is never overwritten.
	assert.Equal(t, 0, sweeper.Sweep(context.Background()))
	assert.Equal(t, model.ReservationCancelled, store.status(1))
	assert.Equal(t, 0, pub.count("reservation.expired"))
}

func TestStartStop(t *testing.T) {
	store := newSweepStore()
	pub := &sweepPublisher{}
	sweeper := NewSweeper(store, newSweepLocker(), pub, 10*time.Millisecond)

	store.addHold(1, 10, 100, time.Now().UTC().Add(-time.Second))

	go sweeper.Start(context.Background())

	require.Eventually(t, func() bool {
		return store.status(1) == model.ReservationExpired
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	assert.Equal(t, 1, pub.count("reservation.expired"))
}
