package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/session-booking/internal/logger"
	"github.com/iliyamo/session-booking/internal/metrics"
	"github.com/iliyamo/session-booking/internal/model"
	"github.com/iliyamo/session-booking/internal/queue"
	"github.com/iliyamo/session-booking/internal/repository"
)

// SaleService converts confirmed payments into sales.  Payment
// settlement itself happens elsewhere; ConfirmPayment receives an
// already-settled signal and finalizes the booking group.
type SaleService struct {
	store  Store
	sales  *repository.SaleRepo
	events EventPublisher
}

// NewSaleService wires the service.  sales is passed separately from
// the Store interface because history queries are plain reads with no
// transactional semantics to fake.
func NewSaleService(store Store, sales *repository.SaleRepo, events EventPublisher) *SaleService {
	return &SaleService{store: store, sales: sales, events: events}
}

// ConfirmPayment finalizes the booking group of reservationID for
// requesterID: every still-live PENDING sibling becomes CONFIRMED,
// its seat SOLD, and one sale row is written per seat, atomically.
// Siblings that already expired are left to the sweeper.  Publishes
// one payment.confirmed event on success.
func (s *SaleService) ConfirmPayment(ctx context.Context, reservationID uint64, requesterID string) ([]model.Sale, error) {
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if res.RequesterID != requesterID {
		return nil, fmt.Errorf("%w: reservation %d not owned by requester", ErrInvalidState, reservationID)
	}

	now := time.Now().UTC()
	sales, err := s.store.ConfirmGroup(ctx, res.GroupID, requesterID, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			if res.IsExpired(now) || res.Status == model.ReservationExpired {
				return nil, fmt.Errorf("%w: reservation %d", ErrExpired, reservationID)
			}
			return nil, fmt.Errorf("%w: group %s has no live holds", ErrInvalidState, res.GroupID)
		}
		return nil, err
	}

	if m := metrics.Get(); m != nil {
		m.PendingReservations.Sub(float64(len(sales)))
	}

	ev := queue.PaymentConfirmedEvent{
		GroupID:     res.GroupID,
		SessionID:   res.SessionID,
		RequesterID: requesterID,
		ConfirmedAt: now.Format(time.RFC3339),
	}
	for _, sale := range sales {
		ev.SaleIDs = append(ev.SaleIDs, sale.ID)
		ev.ReservationIDs = append(ev.ReservationIDs, sale.ReservationID)
		ev.TotalCents += uint64(sale.PriceCents)
	}
	if err := s.events.Publish(ctx, queue.QueuePaymentConfirmed, "payment.confirmed", ev); err != nil {
		logger.Error("publish payment.confirmed failed", zap.String("group_id", res.GroupID), zap.Error(err))
	}

	logger.Info("payment confirmed",
		zap.String("group_id", res.GroupID),
		zap.String("requester_id", requesterID),
		zap.Int("seats", len(sales)))
	return sales, nil
}

// ListByRequester returns the sales history of one requester.
func (s *SaleService) ListByRequester(ctx context.Context, requesterID string) ([]model.Sale, error) {
	return s.sales.ByRequester(ctx, requesterID)
}

// ListAll returns every sale, newest first.
func (s *SaleService) ListAll(ctx context.Context) ([]model.Sale, error) {
	return s.sales.List(ctx)
}
