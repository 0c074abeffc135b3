package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/session-booking/internal/model"
)

// SeatRepo provides data access to the seats table.  Status updates
// that take part in the reservation lifecycle run inside a caller
// supplied transaction so seat and reservation rows always move
// together.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// GetByID fetches a single seat.  Returns ErrNotFound when no row exists.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	const q = `SELECT id, session_id, label, row_label, status, created_at, updated_at
	           FROM seats WHERE id = ?`
	var s model.Seat
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.SessionID, &s.Label, &s.RowLabel, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// BySession returns all seats of a session ordered by row then label.
func (r *SeatRepo) BySession(ctx context.Context, sessionID uint64) ([]model.Seat, error) {
	const q = `SELECT id, session_id, label, row_label, status, created_at, updated_at
	           FROM seats WHERE session_id = ? ORDER BY row_label, label`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Label, &s.RowLabel, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// SetStatusTx moves a seat from one status to another inside tx.  The
// WHERE clause on the old status makes the transition a compare-and-set:
// zero rows affected means a concurrent writer got there first and the
// caller must treat the step as lost.
func (r *SeatRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, seatID uint64, from, to string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE seats SET status = ? WHERE id = ? AND status = ?`,
		to, seatID, from,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
