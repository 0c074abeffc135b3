package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/session-booking/internal/model"
	"github.com/iliyamo/session-booking/internal/service"
)

// SaleHandler exposes payment confirmation and sales history.
type SaleHandler struct {
	svc *service.SaleService
}

// NewSaleHandler constructs the handler.
func NewSaleHandler(svc *service.SaleService) *SaleHandler {
	return &SaleHandler{svc: svc}
}

type confirmPaymentRequest struct {
	ReservationID uint64 `json:"reservation_id" validate:"required"`
	RequesterID   string `json:"requester_id" validate:"required,max=64"`
}

type saleResponse struct {
	ID            uint64 `json:"id"`
	ReservationID uint64 `json:"reservation_id"`
	SessionID     uint64 `json:"session_id"`
	SeatID        uint64 `json:"seat_id"`
	RequesterID   string `json:"requester_id"`
	PriceCents    uint32 `json:"price_cents"`
	CreatedAt     string `json:"created_at"`
}

func toSaleResponse(s model.Sale) saleResponse {
	return saleResponse{
		ID:            s.ID,
		ReservationID: s.ReservationID,
		SessionID:     s.SessionID,
		SeatID:        s.SeatID,
		RequesterID:   s.RequesterID,
		PriceCents:    s.PriceCents,
		CreatedAt:     s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Confirm handles POST /v1/sales/confirm.  The reservation identifies
// its booking group; every live hold in the group is sold at once.
func (h *SaleHandler) Confirm(c echo.Context) error {
	var req confirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	sales, err := h.svc.ConfirmPayment(c.Request().Context(), req.ReservationID, req.RequesterID)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]saleResponse, 0, len(sales))
	var total uint64
	for _, s := range sales {
		resp = append(resp, toSaleResponse(s))
		total += uint64(s.PriceCents)
	}
	return c.JSON(http.StatusCreated, echo.Map{"sales": resp, "total_cents": total})
}

// List handles GET /v1/sales?requester_id=..., one requester's history.
func (h *SaleHandler) List(c echo.Context) error {
	requesterID := c.QueryParam("requester_id")
	if requesterID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "requester_id is required"})
	}
	sales, err := h.svc.ListByRequester(c.Request().Context(), requesterID)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]saleResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, toSaleResponse(s))
	}
	return c.JSON(http.StatusOK, resp)
}

// ListAll handles GET /v1/admin/sales.  Protected by the JWT
// middleware; returns the full sales ledger.
func (h *SaleHandler) ListAll(c echo.Context) error {
	sales, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]saleResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, toSaleResponse(s))
	}
	return c.JSON(http.StatusOK, resp)
}
