package model

import "time"

// Seat status values.  Transitions are AVAILABLE → RESERVED → SOLD,
// or RESERVED → AVAILABLE when a hold is cancelled or expires.
const (
	SeatAvailable = "AVAILABLE"
	SeatReserved  = "RESERVED"
	SeatSold      = "SOLD"
)

// Seat is a single numbered seat belonging to a session.  The
// status column is the authoritative availability state; the
// distributed lock taken around seat mutations only serializes
// writers and is never a source of truth.
//
// Fields:
//  ID        – primary key identifier.
//  SessionID – session this seat belongs to.
//  Label     – human label such as "A3".
//  RowLabel  – row letter, kept separately for ordering.
//  Status    – AVAILABLE, RESERVED or SOLD.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Seat struct {
	ID        uint64    // seats.id
	SessionID uint64    // seats.session_id
	Label     string    // seats.label
	RowLabel  string    // seats.row_label
	Status    string    // seats.status
	CreatedAt time.Time // seats.created_at
	UpdatedAt time.Time // seats.updated_at
}

// IsAvailable reports whether the seat can currently be held.
func (s *Seat) IsAvailable() bool { return s.Status == SeatAvailable }
