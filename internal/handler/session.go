package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/session-booking/internal/model"
	"github.com/iliyamo/session-booking/internal/repository"
	"github.com/iliyamo/session-booking/internal/service"
)

// SessionHandler exposes the session catalog: creating a session with
// its seat grid, listing sessions and inspecting seat availability.
type SessionHandler struct {
	sessions *repository.SessionRepo
	seats    *repository.SeatRepo
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions *repository.SessionRepo, seats *repository.SeatRepo) *SessionHandler {
	return &SessionHandler{sessions: sessions, seats: seats}
}

type createSessionRequest struct {
	MovieName   string `json:"movie_name" validate:"required,max=255"`
	RoomNumber  string `json:"room_number" validate:"required,max=32"`
	StartTime   string `json:"start_time" validate:"required"`
	PriceCents  uint32 `json:"price_cents" validate:"required,gt=0"`
	Rows        int    `json:"rows" validate:"required,gte=1,lte=26"`
	SeatsPerRow int    `json:"seats_per_row" validate:"required,gte=1,lte=99"`
}

type seatResponse struct {
	ID       uint64 `json:"id"`
	Label    string `json:"label"`
	RowLabel string `json:"row"`
	Status   string `json:"status"`
}

// Create handles POST /v1/sessions (admin only).  Seats are generated
// as a rows × seats_per_row grid with labels like "A1".."B8".
func (h *SessionHandler) Create(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be RFC3339"})
	}

	seats := make([]model.Seat, 0, req.Rows*req.SeatsPerRow)
	for r := 0; r < req.Rows; r++ {
		row := string(rune('A' + r))
		for n := 1; n <= req.SeatsPerRow; n++ {
			seats = append(seats, model.Seat{
				Label:    fmt.Sprintf("%s%d", row, n),
				RowLabel: row,
			})
		}
	}

	sess := &model.Session{
		MovieName:  req.MovieName,
		RoomNumber: req.RoomNumber,
		StartTime:  startTime.UTC(),
		PriceCents: req.PriceCents,
	}
	id, err := h.sessions.Create(c.Request().Context(), sess, seats)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "seats": len(seats)})
}

type updateSessionRequest struct {
	MovieName  string `json:"movie_name" validate:"omitempty,max=255"`
	RoomNumber string `json:"room_number" validate:"omitempty,max=32"`
	StartTime  string `json:"start_time" validate:"omitempty"`
	PriceCents uint32 `json:"price_cents" validate:"omitempty,gt=0"`
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	sess, err := h.sessions.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, mapRepoErr(err))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":          sess.ID,
		"movie_name":  sess.MovieName,
		"room_number": sess.RoomNumber,
		"start_time":  sess.StartTime.UTC().Format(time.RFC3339),
		"price_cents": sess.PriceCents,
	})
}

// Update handles PATCH /v1/sessions/:id (admin only).  Omitted fields
// keep their current value; a new start time must lie in the future.
func (h *SessionHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req updateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sess, err := h.sessions.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, mapRepoErr(err))
	}
	if req.MovieName != "" {
		sess.MovieName = req.MovieName
	}
	if req.RoomNumber != "" {
		sess.RoomNumber = req.RoomNumber
	}
	if req.PriceCents != 0 {
		sess.PriceCents = req.PriceCents
	}
	if req.StartTime != "" {
		startTime, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be RFC3339"})
		}
		if !startTime.After(time.Now()) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be in the future"})
		}
		sess.StartTime = startTime.UTC()
	}

	if err := h.sessions.Update(c.Request().Context(), sess); err != nil {
		return respondError(c, mapRepoErr(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"id": sess.ID})
}

// List handles GET /v1/sessions with seat availability counts.
func (h *SessionHandler) List(c echo.Context) error {
	sessions, err := h.sessions.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	type sessionResponse struct {
		ID             uint64 `json:"id"`
		MovieName      string `json:"movie_name"`
		RoomNumber     string `json:"room_number"`
		StartTime      string `json:"start_time"`
		PriceCents     uint32 `json:"price_cents"`
		TotalSeats     int    `json:"total_seats"`
		AvailableSeats int    `json:"available_seats"`
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, sessionResponse{
			ID:             s.ID,
			MovieName:      s.MovieName,
			RoomNumber:     s.RoomNumber,
			StartTime:      s.StartTime.UTC().Format(time.RFC3339),
			PriceCents:     s.PriceCents,
			TotalSeats:     s.TotalSeats,
			AvailableSeats: s.AvailableSeats,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// Seats handles GET /v1/sessions/:id/seats, the seat map with current
// statuses.
func (h *SessionHandler) Seats(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	if _, err := h.sessions.GetByID(c.Request().Context(), id); err != nil {
		return respondError(c, mapRepoErr(err))
	}
	seats, err := h.seats.BySession(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]seatResponse, 0, len(seats))
	for _, s := range seats {
		resp = append(resp, seatResponse{ID: s.ID, Label: s.Label, RowLabel: s.RowLabel, Status: s.Status})
	}
	return c.JSON(http.StatusOK, resp)
}

// mapRepoErr lifts repository.ErrNotFound into the service taxonomy
// for handlers that talk to repositories directly.
func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: session", service.ErrNotFound)
	}
	return err
}
