package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/session-booking/internal/model"
)

// ReservationRepo provides data access to the reservations table.
// Every reservation row targets exactly one seat; a multi-seat booking
// is a group of sibling rows sharing a group_id.  All timestamp fields
// are stored in UTC and compared against UTC_TIMESTAMP() so the
// database clock is the single notion of "now" for expiry checks.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `id, group_id, session_id, seat_id, requester_id, status, expires_at, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID, &res.GroupID, &res.SessionID, &res.SeatID, &res.RequesterID,
		&res.Status, &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// InsertTx inserts a PENDING reservation within the scope of an
// existing transaction and populates the generated ID and timestamps
// on the provided record.  The caller must commit or roll back.
func (r *ReservationRepo) InsertTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (group_id, session_id, seat_id, requester_id, status, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.GroupID, res.SessionID, res.SeatID, res.RequesterID, model.ReservationPending,
		res.ExpiresAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.Status = model.ReservationPending
	// Query back the full row to populate timestamps and defaults.
	got, err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, res.ID))
	if err != nil {
		return err
	}
	*res = *got
	return nil
}

// GetByID fetches a single reservation.  Returns ErrNotFound when no
// row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// ByRequester returns all reservations made by a requester, newest first.
func (r *ReservationRepo) ByRequester(ctx context.Context, requesterID string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE requester_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, requesterID)
}

// ByGroup returns all reservations of a booking group.
func (r *ReservationRepo) ByGroup(ctx context.Context, groupID string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE group_id = ? ORDER BY id`
	return r.list(ctx, q, groupID)
}

// ListExpired returns PENDING reservations whose expires_at lies
// strictly in the past, oldest first, so the sweeper reclaims the
// longest-overdue holds before fresher ones.
func (r *ReservationRepo) ListExpired(ctx context.Context) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	           WHERE status = 'PENDING' AND expires_at < UTC_TIMESTAMP()
	           ORDER BY expires_at ASC`
	return r.list(ctx, q)
}

// HasActiveHoldTx reports whether the requester already has an
// unexpired PENDING reservation for the seat.  Runs inside tx so the
// duplicate check and the insert see the same snapshot.
func (r *ReservationRepo) HasActiveHoldTx(ctx context.Context, tx *sql.Tx, seatID uint64, requesterID string) (bool, error) {
	const q = `SELECT 1 FROM reservations
	           WHERE seat_id = ? AND requester_id = ? AND status = 'PENDING' AND expires_at > UTC_TIMESTAMP()
	           LIMIT 1`
	var one int
	err := tx.QueryRowContext(ctx, q, seatID, requesterID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetStatusTx transitions a PENDING reservation to a terminal status
// inside tx.  The status guard in the WHERE clause makes the update a
// compare-and-set: when cancel, confirm and the sweeper race, exactly
// one of them wins the row.  Returns ErrNotPending on a lost race.
func (r *ReservationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, to string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status = 'PENDING'`,
		to, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// PendingByGroupTx returns the group's PENDING reservations inside tx,
// split by whether they are still unexpired at cutoff.  Sale
// confirmation uses this to confirm live siblings while leaving
// already-expired rows for the sweeper.
func (r *ReservationRepo) PendingByGroupTx(ctx context.Context, tx *sql.Tx, groupID string, cutoff time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	           WHERE group_id = ? AND status = 'PENDING' AND expires_at > ?
	           ORDER BY id`
	rows, err := tx.QueryContext(ctx, q, groupID, cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]model.Reservation, error) {
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
