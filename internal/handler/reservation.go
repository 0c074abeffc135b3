package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/session-booking/internal/model"
	"github.com/iliyamo/session-booking/internal/service"
)

// ReservationHandler exposes the reservation workflow over HTTP.  All
// business rules live in the service; handlers only bind, validate
// and translate results.
type ReservationHandler struct {
	svc *service.ReservationService
}

// NewReservationHandler constructs the handler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

type createReservationRequest struct {
	SessionID   uint64   `json:"session_id" validate:"required"`
	SeatIDs     []uint64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
	RequesterID string   `json:"requester_id" validate:"required,max=64"`
}

type addSeatsRequest struct {
	SeatIDs     []uint64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
	RequesterID string   `json:"requester_id" validate:"required,max=64"`
}

type reservationResponse struct {
	ID          uint64 `json:"id"`
	GroupID     string `json:"group_id"`
	SessionID   uint64 `json:"session_id"`
	SeatID      uint64 `json:"seat_id"`
	RequesterID string `json:"requester_id"`
	Status      string `json:"status"`
	ExpiresAt   string `json:"expires_at"`
	CreatedAt   string `json:"created_at"`
}

type createReservationResponse struct {
	GroupID  string                `json:"group_id"`
	Created  []reservationResponse `json:"created"`
	Rejected []uint64              `json:"rejected"`
}

func toReservationResponse(r model.Reservation) reservationResponse {
	return reservationResponse{
		ID:          r.ID,
		GroupID:     r.GroupID,
		SessionID:   r.SessionID,
		SeatID:      r.SeatID,
		RequesterID: r.RequesterID,
		Status:      r.Status,
		ExpiresAt:   r.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCreateResponse(result *service.CreateResult) createReservationResponse {
	resp := createReservationResponse{
		GroupID:  result.GroupID(),
		Rejected: result.Rejected,
	}
	if resp.Rejected == nil {
		resp.Rejected = []uint64{}
	}
	for _, r := range result.Created {
		resp.Created = append(resp.Created, toReservationResponse(r))
	}
	return resp
}

// Create handles POST /v1/reservations.  Partial success is a 201
// with the rejected seats enumerated; only a fully rejected request
// surfaces as 409.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	result, err := h.svc.Create(c.Request().Context(), req.SessionID, req.SeatIDs, req.RequesterID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toCreateResponse(result))
}

// AddSeats handles POST /v1/reservations/:id/seats, appending seats
// to the booking group of the target reservation.
func (h *ReservationHandler) AddSeats(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req addSeatsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	result, err := h.svc.AddSeats(c.Request().Context(), id, req.RequesterID, req.SeatIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toCreateResponse(result))
}

// Cancel handles DELETE /v1/reservations/:id.  The requester proves
// ownership through the requester_id query parameter.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	requesterID := c.QueryParam("requester_id")
	if requesterID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "requester_id is required"})
	}
	if err := h.svc.Cancel(c.Request().Context(), id, requesterID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(*res))
}

// List handles GET /v1/reservations?requester_id=...
func (h *ReservationHandler) List(c echo.Context) error {
	requesterID := c.QueryParam("requester_id")
	if requesterID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "requester_id is required"})
	}
	out, err := h.svc.ListByRequester(c.Request().Context(), requesterID)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]reservationResponse, 0, len(out))
	for _, r := range out {
		resp = append(resp, toReservationResponse(r))
	}
	return c.JSON(http.StatusOK, resp)
}

// Group handles GET /v1/reservations/groups/:group_id, returning all
// sibling reservations of a booking group.
func (h *ReservationHandler) Group(c echo.Context) error {
	groupID := c.Param("group_id")
	out, err := h.svc.Group(c.Request().Context(), groupID)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]reservationResponse, 0, len(out))
	for _, r := range out {
		resp = append(resp, toReservationResponse(r))
	}
	return c.JSON(http.StatusOK, resp)
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
}
