package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/session-booking/internal/model"
)

// SessionRepo provides data access to the sessions table.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a session together with its seats in one transaction.
// Seats must carry Label and RowLabel; IDs are assigned by the database.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session, seats []model.Seat) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (movie_name, room_number, start_time, price_cents) VALUES (?, ?, ?, ?)`,
		s.MovieName, s.RoomNumber, s.StartTime.UTC().Format("2006-01-02 15:04:05"), s.PriceCents,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(seats) > 0 {
		query := `INSERT INTO seats (session_id, label, row_label, status) VALUES `
		args := make([]interface{}, 0, len(seats)*4)
		for i, seat := range seats {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?)"
			args = append(args, id, seat.Label, seat.RowLabel, model.SeatAvailable)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(id), nil
}

// GetByID fetches a single session.  Returns ErrNotFound when no row
// exists.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT id, movie_name, room_number, start_time, price_cents, created_at, updated_at
	           FROM sessions WHERE id = ?`
	var s model.Session
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.MovieName, &s.RoomNumber, &s.StartTime, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Update rewrites the mutable fields of a session.  Returns
// ErrNotFound when no row exists.
func (r *SessionRepo) Update(ctx context.Context, s *model.Session) error {
	const q = `UPDATE sessions
	           SET movie_name = ?, room_number = ?, start_time = ?, price_cents = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		s.MovieName, s.RoomNumber, s.StartTime.UTC().Format("2006-01-02 15:04:05"), s.PriceCents, s.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// List returns all sessions with per-session seat counts, upcoming
// first.  Availability is computed in SQL so listing stays a single
// round trip.
func (r *SessionRepo) List(ctx context.Context) ([]model.SessionSummary, error) {
	const q = `SELECT s.id, s.movie_name, s.room_number, s.start_time, s.price_cents, s.created_at, s.updated_at,
	                  COUNT(st.id) AS total_seats,
	                  COALESCE(SUM(st.status = 'AVAILABLE'), 0) AS available_seats
	           FROM sessions s
	           LEFT JOIN seats st ON st.session_id = s.id
	           GROUP BY s.id
	           ORDER BY s.start_time ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SessionSummary
	for rows.Next() {
		var sum model.SessionSummary
		if err := rows.Scan(
			&sum.ID, &sum.MovieName, &sum.RoomNumber, &sum.StartTime, &sum.PriceCents,
			&sum.CreatedAt, &sum.UpdatedAt, &sum.TotalSeats, &sum.AvailableSeats,
		); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
