package service

import (
	"context"
	"log/slog"
	"time"

	"cinetix/internal/apperrors"
	"cinetix/internal/config"
	"cinetix/internal/gateway"
	"cinetix/internal/messaging"
	"cinetix/internal/models"
	"cinetix/internal/storage"
)

// ResaleService runs the peer-to-peer transfer market. A ticket is
// listed at its original price, transfers at most once, and every
// listing dies, sold or not, once the show is within the resale cutoff.
// Lapsed listings are deleted lazily on access; there is no sweeper.
type ResaleService struct {
	store    storage.Store
	gw       gateway.Client
	events   messaging.Publisher
	bookings *BookingService
	cfg      config.Booking
}

func NewResaleService(store storage.Store, gw gateway.Client, events messaging.Publisher, bookings *BookingService, cfg config.Booking) *ResaleService {
	return &ResaleService{store: store, gw: gw, events: events, bookings: bookings, cfg: cfg}
}

// ListForResale puts a confirmed, never-transferred ticket on the
// market at its original total price.
func (s *ResaleService) ListForResale(ctx context.Context, userID, ticketID int64) (*models.ResaleListing, error) {
	var listing *models.ResaleListing
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		t, err := tx.TicketForUpdate(ticketID)
		if err != nil {
			return err
		}
		if t == nil || t.UserID != userID {
			return apperrors.Newf(apperrors.CodeNotFound, "ticket %d not found", ticketID)
		}
		if t.Status != models.TicketBooked {
			return apperrors.New(apperrors.CodeInvalidRequest, "only confirmed tickets can be listed")
		}
		if t.Transferred {
			return apperrors.New(apperrors.CodeAlreadyTransferred, "ticket has already changed hands once")
		}

		existing, err := tx.ListingByTicket(ticketID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.Newf(apperrors.CodeAlreadyListed, "ticket %d is already listed", ticketID)
		}

		show, err := tx.ShowForUpdate(t.ShowID)
		if err != nil {
			return err
		}
		if show == nil || time.Now().After(show.StartTime.Add(-s.cfg.ResaleClose)) {
			return apperrors.New(apperrors.CodeResaleWindowClosed, "resale window for this show has closed")
		}

		l := &models.ResaleListing{
			TicketID: ticketID,
			SellerID: userID,
			Price:    t.TotalPrice,
			ListedAt: time.Now(),
		}
		id, err := tx.CreateListing(l)
		if err != nil {
			return err
		}
		l.ID = id
		listing = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// CancelListing removes the caller's unsold listing; the ticket simply
// returns to their holdings.
func (s *ResaleService) CancelListing(ctx context.Context, userID, listingID int64) error {
	return s.store.RunInTx(ctx, func(tx storage.Tx) error {
		l, err := tx.ListingForUpdate(listingID)
		if err != nil {
			return err
		}
		if l == nil || l.SellerID != userID {
			return apperrors.Newf(apperrors.CodeNotFound, "listing %d not found", listingID)
		}
		if l.Sold {
			return apperrors.New(apperrors.CodeInvalidRequest, "listing is already sold")
		}
		return tx.DeleteListing(listingID)
	})
}

// Market returns the open listings still inside the resale window.
// Listings whose window lapsed since they were created are deleted on
// the way through.
func (s *ResaleService) Market(ctx context.Context) ([]models.ResaleListing, error) {
	listings, err := s.store.ListOpenListings(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	open := make([]models.ResaleListing, 0, len(listings))
	var lapsed []int64
	for _, l := range listings {
		expired, err := s.listingLapsed(ctx, &l, now)
		if err != nil {
			return nil, err
		}
		if expired {
			lapsed = append(lapsed, l.ID)
			continue
		}
		open = append(open, l)
	}

	if len(lapsed) > 0 {
		err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
			for _, id := range lapsed {
				l, err := tx.ListingForUpdate(id)
				if err != nil {
					return err
				}
				if l == nil || l.Sold {
					continue
				}
				if err := tx.DeleteListing(id); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			slog.Error("Failed to purge lapsed listings", "error", err)
		}
	}
	return open, nil
}

func (s *ResaleService) listingLapsed(ctx context.Context, l *models.ResaleListing, now time.Time) (bool, error) {
	t, err := s.store.GetTicket(ctx, l.TicketID)
	if err != nil {
		return false, err
	}
	if t == nil {
		return true, nil
	}
	show, err := s.store.GetShow(ctx, t.ShowID)
	if err != nil {
		return false, err
	}
	if show == nil {
		return true, nil
	}
	return now.After(show.StartTime.Add(-s.cfg.ResaleClose)), nil
}

// CreateBuyOrder mints a gateway order for a listing. Encountering a
// lapsed listing deletes it and reports the window closed; that
// deletion is committed even though the request fails.
func (s *ResaleService) CreateBuyOrder(ctx context.Context, userID, listingID int64) (*models.PaymentOrder, error) {
	var order *models.PaymentOrder
	var domainErr error

	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		l, err := tx.ListingForUpdate(listingID)
		if err != nil {
			return err
		}
		if l == nil {
			return apperrors.Newf(apperrors.CodeNotFound, "listing %d not found", listingID)
		}
		if l.Sold {
			return apperrors.Newf(apperrors.CodeNotPayable, "listing %d is already sold", listingID)
		}
		if l.SellerID == userID {
			return apperrors.New(apperrors.CodeCannotBuyOwn, "cannot buy your own listing")
		}

		t, err := tx.TicketForUpdate(l.TicketID)
		if err != nil {
			return err
		}
		if t == nil {
			return apperrors.Newf(apperrors.CodeNotFound, "ticket %d not found", l.TicketID)
		}
		show, err := tx.ShowForUpdate(t.ShowID)
		if err != nil {
			return err
		}
		if show == nil || time.Now().After(show.StartTime.Add(-s.cfg.ResaleClose)) {
			if err := tx.DeleteListing(listingID); err != nil {
				return err
			}
			domainErr = apperrors.New(apperrors.CodeResaleWindowClosed, "resale window for this show has closed")
			return nil
		}

		orderRef, err := s.gw.CreateOrder(ctx, l.Price*s.cfg.MinorUnitFactor, s.cfg.Currency)
		if err != nil {
			return err
		}

		o := &models.PaymentOrder{
			Kind:     models.OrderKindResale,
			EntityID: listingID,
			UserID:   userID,
			OrderRef: orderRef,
			Amount:   l.Price,
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
	if domainErr != nil {
		return nil, domainErr
	}
	return order, nil
}

// VerifyBuyPayment settles a resale order. Success is one compound
// atomic effect: ticket owner reassigned and marked transferred,
// listing sold, seller wallet credited, order PAID. Replays of a PAID
// order return it unchanged.
func (s *ResaleService) VerifyBuyPayment(ctx context.Context, userID int64, req *models.VerifyResaleRequest) (*models.PaymentOrder, error) {
	var order *models.PaymentOrder
	var sold *models.ResaleSoldEvent
	var ticket *models.Ticket
	var domainErr error

	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		o, err := tx.OrderForUpdate(models.OrderKindResale, req.ListingID)
		if err != nil {
			return err
		}
		if o == nil || o.UserID != userID {
			return apperrors.Newf(apperrors.CodeNotFound, "no payment order for listing %d", req.ListingID)
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

		l, err := tx.ListingForUpdate(req.ListingID)
		if err != nil {
			return err
		}
		if l == nil || l.Sold {
			return apperrors.Newf(apperrors.CodeNotPayable, "listing %d is no longer for sale", req.ListingID)
		}

		if err := tx.TransferTicket(l.TicketID, userID); err != nil {
			return err
		}
		if err := tx.MarkListingSold(l.ID, userID); err != nil {
			return err
		}

		sellerWallet, err := tx.WalletForUpdate(l.SellerID)
		if err != nil {
			return err
		}
		if err := tx.SetWalletBalance(l.SellerID, sellerWallet.Balance+l.Price); err != nil {
			return err
		}

		if err := tx.MarkOrderPaid(o.ID, req.PaymentRef, req.Signature); err != nil {
			return err
		}
		o.Status = models.OrderPaid

		t, err := tx.TicketForUpdate(l.TicketID)
		if err != nil {
			return err
		}
		ticket = t
		sold = &models.ResaleSoldEvent{
			ListingID: l.ID,
			TicketID:  l.TicketID,
			SellerID:  l.SellerID,
			BuyerID:   userID,
			Price:     l.Price,
			Timestamp: time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if domainErr != nil {
		settlementsTotal.WithLabelValues(string(models.OrderKindResale), "failed").Inc()
		return nil, domainErr
	}
	if sold != nil {
		settlementsTotal.WithLabelValues(string(models.OrderKindResale), "paid").Inc()
		if ticket != nil {
			// Reissue the artifact under the new owner.
			s.bookings.renderArtifact(ctx, ticket)
		}
		if err := s.events.Publish(models.EventResaleSold, sold); err != nil {
			slog.Error("Failed to publish resale event", "listing_id", sold.ListingID, "error", err)
		}
	}
	return order, nil
}
