package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cinetix/internal/apperrors"
	"cinetix/internal/config"
	"cinetix/internal/gateway"
	"cinetix/internal/messaging"
	"cinetix/internal/models"
	"cinetix/internal/storage"
)

var settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cinetix_settlements_total",
	Help: "Payment settlement outcomes by order kind.",
}, []string{"kind", "outcome"})

// PaymentService settles ticket purchases and wallet top-ups against
// the external gateway. Every verification outcome, success or failure,
// is committed; only infrastructure faults roll back.
type PaymentService struct {
	store    storage.Store
	gw       gateway.Client
	events   messaging.Publisher
	bookings *BookingService
	cfg      config.Booking
}

func NewPaymentService(store storage.Store, gw gateway.Client, events messaging.Publisher, bookings *BookingService, cfg config.Booking) *PaymentService {
	return &PaymentService{store: store, gw: gw, events: events, bookings: bookings, cfg: cfg}
}

// CreateTicketOrder mints a gateway order for a PENDING ticket.
// Repeated calls replace the previous order; they do not stack.
func (s *PaymentService) CreateTicketOrder(ctx context.Context, userID, ticketID int64) (*models.PaymentOrder, error) {
	var order *models.PaymentOrder
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		t, err := tx.TicketForUpdate(ticketID)
		if err != nil {
			return err
		}
		if t == nil || t.UserID != userID {
			return apperrors.Newf(apperrors.CodeNotFound, "ticket %d not found", ticketID)
		}
		if t.Status != models.TicketPending {
			return apperrors.Newf(apperrors.CodeNotPayable, "ticket %d is %s", ticketID, t.Status)
		}

		orderRef, err := s.gw.CreateOrder(ctx, t.TotalPrice*s.cfg.MinorUnitFactor, s.cfg.Currency)
		if err != nil {
			return err
		}

		o := &models.PaymentOrder{
			Kind:     models.OrderKindTicket,
			EntityID: ticketID,
			UserID:   userID,
			OrderRef: orderRef,
			Amount:   t.TotalPrice,
			Status:   models.OrderCreated,
		}
		id, err := tx.UpsertOrder(o)
		if err != nil {
			return err
		}
		o.ID = id
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// VerifyTicketPayment settles a ticket order. Replays of a PAID order
// return it unchanged. A mismatched order reference fails the order but
// leaves the ticket PENDING; a bad signature fails the order and
// discards the ticket, returning its seats to the pool. Both failure
// outcomes are committed before the domain error is returned.
func (s *PaymentService) VerifyTicketPayment(ctx context.Context, userID int64, req *models.VerifyPaymentRequest) (*models.PaymentOrder, error) {
	var order *models.PaymentOrder
	var ticket *models.Ticket
	var domainErr error

	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		o, err := tx.OrderForUpdate(models.OrderKindTicket, req.TicketID)
		if err != nil {
			return err
		}
		if o == nil || o.UserID != userID {
			return apperrors.Newf(apperrors.CodeNotFound, "no payment order for ticket %d", req.TicketID)
		}
		order = o

		if o.Status == models.OrderPaid {
			return nil
		}
		if o.Status != models.OrderCreated {
			return apperrors.Newf(apperrors.CodeNotPayable, "payment order %d is %s", o.ID, o.Status)
		}

		if req.OrderRef != o.OrderRef {
			// Stale reference: fail the order, keep the ticket PENDING
			// so a fresh order can still settle it.
			if err := tx.MarkOrderFailed(o.ID); err != nil {
				return err
			}
			o.Status = models.OrderFailed
			domainErr = apperrors.Newf(apperrors.CodeOrderMismatch, "order reference does not match order %d", o.ID)
			return nil
		}

		if !s.gw.VerifySignature(req.OrderRef, req.PaymentRef, req.Signature) {
			if err := tx.MarkOrderFailed(o.ID); err != nil {
				return err
			}
			if err := s.bookings.discardInTx(tx, req.TicketID); err != nil {
				return err
			}
			o.Status = models.OrderFailed
			domainErr = apperrors.New(apperrors.CodeSignatureInvalid, "payment signature verification failed")
			return nil
		}

		t, err := tx.TicketForUpdate(req.TicketID)
		if err != nil {
			return err
		}
		if t == nil {
			return apperrors.Newf(apperrors.CodeNotFound, "ticket %d not found", req.TicketID)
		}
		seatIDs, err := tx.TicketSeatIDs(req.TicketID)
		if err != nil {
			return err
		}
		if err := s.bookings.confirmInTx(tx, t, seatIDs); err != nil {
			return err
		}
		if err := tx.MarkOrderPaid(o.ID, req.PaymentRef, req.Signature); err != nil {
			return err
		}
		o.Status = models.OrderPaid
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if domainErr != nil {
		settlementsTotal.WithLabelValues(string(models.OrderKindTicket), "failed").Inc()
		s.publishFailure(order, domainErr)
		return nil, domainErr
	}
	if ticket != nil {
		settlementsTotal.WithLabelValues(string(models.OrderKindTicket), "paid").Inc()
		s.bookings.afterConfirm(ctx, ticket, "GATEWAY")
	}
	return order, nil
}

// CreateTopUpOrder mints a gateway order crediting the caller's wallet.
func (s *PaymentService) CreateTopUpOrder(ctx context.Context, userID, amount int64) (*models.PaymentOrder, error) {
	if amount < s.cfg.MinTopUp {
		return nil, apperrors.Newf(apperrors.CodeInvalidRequest, "minimum top-up is %d", s.cfg.MinTopUp)
	}

	orderRef, err := s.gw.CreateOrder(ctx, amount*s.cfg.MinorUnitFactor, s.cfg.Currency)
	if err != nil {
		return nil, err
	}

	var order *models.PaymentOrder
	err = s.store.RunInTx(ctx, func(tx storage.Tx) error {
		o := &models.PaymentOrder{
			Kind:     models.OrderKindTopUp,
			EntityID: userID,
			UserID:   userID,
			OrderRef: orderRef,
			Amount:   amount,
			Status:   models.OrderCreated,
		}
		id, err := tx.CreateOrder(o)
		if err != nil {
			return err
		}
		o.ID = id
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// VerifyTopUpPayment settles a top-up order and credits the wallet in
// the same atomic unit.
func (s *PaymentService) VerifyTopUpPayment(ctx context.Context, userID int64, req *models.VerifyTopUpRequest) (*models.PaymentOrder, error) {
	var order *models.PaymentOrder
	var credited *models.Wallet
	var domainErr error

	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		o, err := tx.OrderByIDForUpdate(req.OrderID)
		if err != nil {
			return err
		}
		if o == nil || o.Kind != models.OrderKindTopUp || o.UserID != userID {
			return apperrors.Newf(apperrors.CodeNotFound, "top-up order %d not found", req.OrderID)
		}
		order = o

		if o.Status == models.OrderPaid {
			return nil
		}
		if o.Status != models.OrderCreated {
			return apperrors.Newf(apperrors.CodeNotPayable, "payment order %d is %s", o.ID, o.Status)
		}

		if req.OrderRef != o.OrderRef {
			if err := tx.MarkOrderFailed(o.ID); err != nil {
				return err
			}
			o.Status = models.OrderFailed
			domainErr = apperrors.Newf(apperrors.CodeOrderMismatch, "order reference does not match order %d", o.ID)
			return nil
		}
		if !s.gw.VerifySignature(req.OrderRef, req.PaymentRef, req.Signature) {
			if err := tx.MarkOrderFailed(o.ID); err != nil {
				return err
			}
			o.Status = models.OrderFailed
			domainErr = apperrors.New(apperrors.CodeSignatureInvalid, "payment signature verification failed")
			return nil
		}

		wallet, err := tx.WalletForUpdate(userID)
		if err != nil {
			return err
		}
		if err := tx.SetWalletBalance(userID, wallet.Balance+o.Amount); err != nil {
			return err
		}
		wallet.Balance += o.Amount
		credited = wallet

		if err := tx.MarkOrderPaid(o.ID, req.PaymentRef, req.Signature); err != nil {
			return err
		}
		o.Status = models.OrderPaid
		return nil
	})
	if err != nil {
		return nil, err
	}

	if domainErr != nil {
		settlementsTotal.WithLabelValues(string(models.OrderKindTopUp), "failed").Inc()
		s.publishFailure(order, domainErr)
		return nil, domainErr
	}
	if credited != nil {
		settlementsTotal.WithLabelValues(string(models.OrderKindTopUp), "paid").Inc()
		event := models.WalletCreditedEvent{
			UserID:    userID,
			Amount:    order.Amount,
			Balance:   credited.Balance,
			Timestamp: time.Now(),
		}
		if err := s.events.Publish(models.EventWalletCredited, event); err != nil {
			slog.Error("Failed to publish wallet event", "user_id", userID, "error", err)
		}
	}
	return order, nil
}

func (s *PaymentService) publishFailure(order *models.PaymentOrder, cause error) {
	event := models.PaymentFailedEvent{
		Kind:      order.Kind,
		EntityID:  order.EntityID,
		OrderRef:  order.OrderRef,
		Reason:    cause.Error(),
		Timestamp: time.Now(),
	}
	if err := s.events.Publish(models.EventPaymentFailed, event); err != nil {
		slog.Error("Failed to publish payment failure event", "order_id", order.ID, "error", err)
	}
}
