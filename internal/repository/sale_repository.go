package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/session-booking/internal/model"
)

// SaleRepo provides data access to the sales table.  Sales are
// insert-only: a row is written when a booking group is confirmed and
// never mutated afterwards.
type SaleRepo struct {
	db *sql.DB
}

// NewSaleRepo returns a new SaleRepo bound to the provided database.
func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{db: db} }

// InsertTx writes one sale row inside tx and populates the generated
// ID.  The unique key on reservation_id makes re-confirmation a hard
// database error rather than a silent double sale.
func (r *SaleRepo) InsertTx(ctx context.Context, tx *sql.Tx, s *model.Sale) error {
	const q = `INSERT INTO sales (reservation_id, session_id, seat_id, requester_id, price_cents)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.ReservationID, s.SessionID, s.SeatID, s.RequesterID, s.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

const saleCols = `id, reservation_id, session_id, seat_id, requester_id, price_cents, created_at`

// ByRequester returns all sales made to a requester, newest first.
func (r *SaleRepo) ByRequester(ctx context.Context, requesterID string) ([]model.Sale, error) {
	const q = `SELECT ` + saleCols + ` FROM sales WHERE requester_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, requesterID)
}

// List returns every sale, newest first.
func (r *SaleRepo) List(ctx context.Context) ([]model.Sale, error) {
	const q = `SELECT ` + saleCols + ` FROM sales ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q)
}

func (r *SaleRepo) list(ctx context.Context, query string, args ...any) ([]model.Sale, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Sale
	for rows.Next() {
		var s model.Sale
		if err := rows.Scan(&s.ID, &s.ReservationID, &s.SessionID, &s.SeatID, &s.RequesterID, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
