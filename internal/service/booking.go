package service

import (
	"context"
	"log/slog"
	"time"

	"cinetix/internal/apperrors"
	"cinetix/internal/config"
	"cinetix/internal/messaging"
	"cinetix/internal/models"
	"cinetix/internal/storage"
	"cinetix/internal/ticketart"
)

// BookingService owns the ticket lifecycle: PENDING on reserve, BOOKED
// once settled, CANCELLED when settlement fails. Seats become
// permanently consumed only inside confirm.
type BookingService struct {
	store  storage.Store
	events messaging.Publisher
	art    *ticketart.Generator
	cfg    config.Booking
}

func NewBookingService(store storage.Store, events messaging.Publisher, art *ticketart.Generator, cfg config.Booking) *BookingService {
	return &BookingService{store: store, events: events, art: art, cfg: cfg}
}

// Reserve creates a PENDING ticket from seats the caller currently
// holds. Lock validity is rechecked here because time passes between
// locking and reserving.
func (s *BookingService) Reserve(ctx context.Context, userID, showID int64, seatCodes []string) (*models.Ticket, error) {
	codes := dedupe(seatCodes)
	if len(codes) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "no seats requested")
	}

	var ticket *models.Ticket
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		t, _, err := s.reserveInTx(tx, userID, showID, codes)
		if err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// ReserveWithWallet reserves and settles in one atomic unit: wallet
// debit, seat booking and BOOKED status commit or roll back together.
// No PaymentOrder row is involved.
func (s *BookingService) ReserveWithWallet(ctx context.Context, userID, showID int64, seatCodes []string) (*models.Ticket, error) {
	codes := dedupe(seatCodes)
	if len(codes) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "no seats requested")
	}

	var ticket *models.Ticket
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		t, seatIDs, err := s.reserveInTx(tx, userID, showID, codes)
		if err != nil {
			return err
		}

		wallet, err := tx.WalletForUpdate(userID)
		if err != nil {
			return err
		}
		if wallet.Balance < t.TotalPrice {
			return apperrors.Newf(apperrors.CodeInsufficientFunds,
				"wallet balance %d is below ticket price %d", wallet.Balance, t.TotalPrice)
		}
		if err := tx.SetWalletBalance(userID, wallet.Balance-t.TotalPrice); err != nil {
			return err
		}

		if err := s.confirmInTx(tx, t, seatIDs); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterConfirm(ctx, ticket, "WALLET")
	return ticket, nil
}

// reserveInTx validates holds and creates the PENDING ticket. Returns
// the ticket and its seat ids for callers that settle immediately.
func (s *BookingService) reserveInTx(tx storage.Tx, userID, showID int64, codes []string) (*models.Ticket, []int64, error) {
	now := time.Now()

	show, err := tx.ShowForUpdate(showID)
	if err != nil {
		return nil, nil, err
	}
	if show == nil {
		return nil, nil, apperrors.Newf(apperrors.CodeNotFound, "show %d not found", showID)
	}
	if now.After(show.StartTime.Add(-s.cfg.BookingClose)) {
		return nil, nil, apperrors.New(apperrors.CodeBookingClosed, "booking window for this show has closed")
	}

	seats, err := tx.SeatsForUpdate(showID, codes)
	if err != nil {
		return nil, nil, err
	}
	if len(seats) != len(codes) {
		return nil, nil, apperrors.Newf(apperrors.CodeUnknownSeat, "unknown seats in request: got %d of %d", len(seats), len(codes))
	}

	// Purge after reading the requested rows: validation below must
	// still see an expired own hold to report LOCK_EXPIRED rather than
	// LOCK_NOT_HELD.
	if err := tx.PurgeExpiredLocks(showID, now.Add(-s.cfg.HoldDuration)); err != nil {
		return nil, nil, err
	}

	seatIDs := make([]int64, 0, len(seats))
	for i := range seats {
		seat := &seats[i]
		if seat.Booked {
			return nil, nil, apperrors.Newf(apperrors.CodeSeatUnavailable, "seat %s is already booked", seat.Code)
		}
		if seat.LockedBy == nil || *seat.LockedBy != userID {
			return nil, nil, apperrors.Newf(apperrors.CodeLockNotHeld, "seat %s is not held by the caller", seat.Code)
		}
		if seat.LockedAt == nil || seat.LockedAt.Before(now.Add(-s.cfg.HoldDuration)) {
			return nil, nil, apperrors.Newf(apperrors.CodeLockExpired, "hold on seat %s has expired", seat.Code)
		}
		seatIDs = append(seatIDs, seat.ID)
	}

	ticket := &models.Ticket{
		UserID:     userID,
		ShowID:     showID,
		TotalPrice: int64(len(seatIDs)) * show.PricePerSeat,
		Status:     models.TicketPending,
		BookedAt:   now,
	}
	id, err := tx.CreateTicket(ticket, seatIDs)
	if err != nil {
		return nil, nil, err
	}
	ticket.ID = id

	// Refresh the holds so the payment window starts from reservation.
	if err := tx.LockSeats(seatIDs, userID, now); err != nil {
		return nil, nil, err
	}
	return ticket, seatIDs, nil
}

// ConfirmBooking settles a PENDING ticket. Idempotent on BOOKED.
func (s *BookingService) ConfirmBooking(ctx context.Context, userID, ticketID int64) (*models.Ticket, error) {
	var ticket *models.Ticket
	var already bool
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		t, err := tx.TicketForUpdate(ticketID)
		if err != nil {
			return err
		}
		if t == nil || t.UserID != userID {
			return apperrors.Newf(apperrors.CodeNotFound, "ticket %d not found", ticketID)
		}
		if t.Status == models.TicketBooked {
			ticket, already = t, true
			return nil
		}
		if t.Status != models.TicketPending {
			return apperrors.Newf(apperrors.CodeNotPayable, "ticket %d is %s", ticketID, t.Status)
		}

		seatIDs, err := tx.TicketSeatIDs(ticketID)
		if err != nil {
			return err
		}
		if err := s.confirmInTx(tx, t, seatIDs); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !already {
		s.afterConfirm(ctx, ticket, "GATEWAY")
	}
	return ticket, nil
}

// confirmInTx is the single point where inventory is consumed: seats
// flip to booked and the ticket goes BOOKED, atomically with whatever
// settlement the caller staged in the same tx.
func (s *BookingService) confirmInTx(tx storage.Tx, t *models.Ticket, seatIDs []int64) error {
	if !t.Status.CanTransitionTo(models.TicketBooked) {
		return apperrors.Newf(apperrors.CodeNotPayable, "ticket %d is %s", t.ID, t.Status)
	}
	if err := tx.BookSeats(seatIDs); err != nil {
		return err
	}
	if err := tx.UpdateTicketStatus(t.ID, models.TicketBooked); err != nil {
		return err
	}
	t.Status = models.TicketBooked
	return nil
}

// discardInTx tears down a PENDING ticket whose settlement failed:
// seats return to the pool, the ticket row goes away.
func (s *BookingService) discardInTx(tx storage.Tx, ticketID int64) error {
	seatIDs, err := tx.TicketSeatIDs(ticketID)
	if err != nil {
		return err
	}
	if err := tx.UnlockSeats(seatIDs); err != nil {
		return err
	}
	return tx.DeleteTicket(ticketID)
}

// renderArtifact generates and stores the QR blob for a confirmed
// ticket. Best effort; the booking is already durable.
func (s *BookingService) renderArtifact(ctx context.Context, t *models.Ticket) {
	codes, err := s.store.TicketSeatCodes(ctx, t.ID)
	if err != nil {
		slog.Error("Failed to load seat codes for artifact", "ticket_id", t.ID, "error", err)
		return
	}
	png, err := s.art.Generate(t, codes)
	if err != nil {
		slog.Error("Failed to render ticket artifact", "ticket_id", t.ID, "error", err)
		return
	}
	if err := s.store.SaveTicketArtifact(ctx, t.ID, png); err != nil {
		slog.Error("Failed to store ticket artifact", "ticket_id", t.ID, "error", err)
	}
}

// afterConfirm runs the post-commit side effects: artifact render and
// event publish. Both are best effort.
func (s *BookingService) afterConfirm(ctx context.Context, t *models.Ticket, mode string) {
	s.renderArtifact(ctx, t)

	event := models.BookingConfirmedEvent{
		TicketID:    t.ID,
		ShowID:      t.ShowID,
		UserID:      t.UserID,
		TotalPrice:  t.TotalPrice,
		PaymentMode: mode,
		Timestamp:   time.Now(),
	}
	if err := s.events.Publish(models.EventBookingConfirmed, event); err != nil {
		slog.Error("Failed to publish booking event", "ticket_id", t.ID, "error", err)
	}
}

// RateTicket records a 1..5 rating on a BOOKED ticket after the show
// has started.
func (s *BookingService) RateTicket(ctx context.Context, userID, ticketID int64, rating int) (*models.Ticket, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "rating must be between 1 and 5")
	}

	var ticket *models.Ticket
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		t, err := tx.TicketForUpdate(ticketID)
		if err != nil {
			return err
		}
		if t == nil || t.UserID != userID {
			return apperrors.Newf(apperrors.CodeNotFound, "ticket %d not found", ticketID)
		}
		if t.Status != models.TicketBooked {
			return apperrors.Newf(apperrors.CodeInvalidRequest, "only confirmed tickets can be rated")
		}
		show, err := tx.ShowForUpdate(t.ShowID)
		if err != nil {
			return err
		}
		if show == nil || time.Now().Before(show.StartTime) {
			return apperrors.New(apperrors.CodeInvalidRequest, "tickets can be rated only after the show starts")
		}

		now := time.Now()
		if err := tx.SetTicketRating(ticketID, rating, now); err != nil {
			return err
		}
		t.Rating = &rating
		t.RatedAt = &now
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// MyTickets lists the caller's tickets, newest first, PENDING excluded.
func (s *BookingService) MyTickets(ctx context.Context, userID int64) ([]models.Ticket, error) {
	tickets, err := s.store.ListUserTickets(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.Status != models.TicketPending {
			out = append(out, t)
		}
	}
	return out, nil
}
