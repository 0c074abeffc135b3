package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/session-booking/internal/model"
)

// Store composes the row-level repositories into the semantic,
// transactional operations the services consume.  Every multi-row
// mutation here is one commit-or-abort unit: seat status and
// reservation status never move independently.
type Store struct {
	db           *sql.DB
	sessions     *SessionRepo
	seats        *SeatRepo
	reservations *ReservationRepo
	sales        *SaleRepo
}

// NewStore builds a Store and its repositories over one DB handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		sessions:     NewSessionRepo(db),
		seats:        NewSeatRepo(db),
		reservations: NewReservationRepo(db),
		sales:        NewSaleRepo(db),
	}
}

// Sessions exposes the session repository for the catalog handlers.
func (s *Store) Sessions() *SessionRepo { return s.sessions }

// Seats exposes the seat repository for the catalog handlers.
func (s *Store) Seats() *SeatRepo { return s.seats }

// Sales exposes the sale repository for history queries.
func (s *Store) Sales() *SaleRepo { return s.sales }

func (s *Store) GetSession(ctx context.Context, id uint64) (*model.Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Store) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	return s.seats.GetByID(ctx, id)
}

func (s *Store) SeatsBySession(ctx context.Context, sessionID uint64) ([]model.Seat, error) {
	return s.seats.BySession(ctx, sessionID)
}

func (s *Store) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

func (s *Store) ReservationsByRequester(ctx context.Context, requesterID string) ([]model.Reservation, error) {
	return s.reservations.ByRequester(ctx, requesterID)
}

func (s *Store) ReservationsByGroup(ctx context.Context, groupID string) ([]model.Reservation, error) {
	return s.reservations.ByGroup(ctx, groupID)
}

func (s *Store) ListExpiredReservations(ctx context.Context) ([]model.Reservation, error) {
	return s.reservations.ListExpired(ctx)
}

// HoldSeat atomically verifies and takes a hold: the requester must
// not already hold the seat, the seat must still be AVAILABLE, and the
// new PENDING row is inserted, all in one transaction.  The caller
// fills GroupID, SessionID, SeatID, RequesterID and ExpiresAt on res;
// ID, Status and timestamps are populated on success.  Returns
// ErrDuplicateHold or ErrSeatUnavailable when verification fails.
func (s *Store) HoldSeat(ctx context.Context, res *model.Reservation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	dup, err := s.reservations.HasActiveHoldTx(ctx, tx, res.SeatID, res.RequesterID)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateHold
	}

	ok, err := s.seats.SetStatusTx(ctx, tx, res.SeatID, model.SeatAvailable, model.SeatReserved)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSeatUnavailable
	}

	if err := s.reservations.InsertTx(ctx, tx, res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CancelReservation moves a PENDING reservation to CANCELLED and its
// seat back to AVAILABLE in one transaction.  The PENDING guard means
// a race with the sweeper is lost cleanly: ErrNotPending, no state
// touched.
func (s *Store) CancelReservation(ctx context.Context, id, seatID uint64) error {
	return s.reclaim(ctx, id, seatID, model.ReservationCancelled)
}

// ExpireReservation moves a PENDING reservation to EXPIRED and its
// seat back to AVAILABLE in one transaction.  Returns (false, nil)
// when the reservation had already left PENDING, which makes repeat
// sweeps and cancel races no-ops.
func (s *Store) ExpireReservation(ctx context.Context, id, seatID uint64) (bool, error) {
	err := s.reclaim(ctx, id, seatID, model.ReservationExpired)
	if errors.Is(err, ErrNotPending) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) reclaim(ctx context.Context, id, seatID uint64, to string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.reservations.SetStatusTx(ctx, tx, id, to); err != nil {
		return err
	}
	// The seat is RESERVED whenever its reservation was still PENDING,
	// so a CAS miss here means an inconsistency we must not widen.
	ok, err := s.seats.SetStatusTx(ctx, tx, seatID, model.SeatReserved, model.SeatAvailable)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotPending
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ConfirmGroup converts every live PENDING hold of a booking group
// into a sale: reservation → CONFIRMED, seat → SOLD, one sale row per
// seat at the session price, all in one transaction.  Rows that
// expired before now are left alone for the sweeper.  Returns
// ErrNotPending when the group has no live holds for the requester.
func (s *Store) ConfirmGroup(ctx context.Context, groupID, requesterID string, now time.Time) ([]model.Sale, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	pending, err := s.reservations.PendingByGroupTx(ctx, tx, groupID, now)
	if err != nil {
		return nil, err
	}
	live := pending[:0]
	for _, res := range pending {
		if res.RequesterID == requesterID {
			live = append(live, res)
		}
	}
	if len(live) == 0 {
		return nil, ErrNotPending
	}

	var price uint32
	if err := tx.QueryRowContext(ctx,
		`SELECT price_cents FROM sessions WHERE id = ?`, live[0].SessionID,
	).Scan(&price); err != nil {
		return nil, err
	}

	sales := make([]model.Sale, 0, len(live))
	for _, res := range live {
		if err := s.reservations.SetStatusTx(ctx, tx, res.ID, model.ReservationConfirmed); err != nil {
			return nil, err
		}
		ok, err := s.seats.SetStatusTx(ctx, tx, res.SeatID, model.SeatReserved, model.SeatSold)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotPending
		}
		sale := model.Sale{
			ReservationID: res.ID,
			SessionID:     res.SessionID,
			SeatID:        res.SeatID,
			RequesterID:   res.RequesterID,
			PriceCents:    price,
		}
		if err := s.sales.InsertTx(ctx, tx, &sale); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return sales, nil
}
