package model

import "time"

// Session is a scheduled screening that sells numbered seats.
// Seats are created together with the session and stay attached
// to it for its whole lifetime.
//
// Fields:
//  ID         – primary key identifier.
//  MovieName  – title shown on tickets and listings.
//  RoomNumber – human label of the room the session plays in.
//  StartTime  – when the session starts (UTC).
//  PriceCents – price per seat in cents; sales snapshot this value.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Session struct {
	ID         uint64    // sessions.id
	MovieName  string    // sessions.movie_name
	RoomNumber string    // sessions.room_number
	StartTime  time.Time // sessions.start_time
	PriceCents uint32    // sessions.price_cents
	CreatedAt  time.Time // sessions.created_at
	UpdatedAt  time.Time // sessions.updated_at
}

// SessionSummary is a Session together with aggregate seat counts,
// used by catalog listings so clients do not need a second query.
type SessionSummary struct {
	Session
	TotalSeats     int // number of seats attached to the session
	AvailableSeats int // number of seats currently AVAILABLE
}
