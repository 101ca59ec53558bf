package service

import (
	"context"
	"time"

	"cinetix/internal/apperrors"
	"cinetix/internal/config"
	"cinetix/internal/storage"
)

// SeatLockService grants and releases short-lived seat holds. A lock
// request is all-or-nothing: one unavailable seat fails the whole set
// and leaves no locks behind.
type SeatLockService struct {
	store storage.Store
	cfg   config.Booking
}

func NewSeatLockService(store storage.Store, cfg config.Booking) *SeatLockService {
	return &SeatLockService{store: store, cfg: cfg}
}

// AcquireLocks locks the requested seats for userID. Re-locking seats
// the user already holds refreshes their expiry.
func (s *SeatLockService) AcquireLocks(ctx context.Context, userID, showID int64, seatCodes []string) ([]string, error) {
	codes := dedupe(seatCodes)
	if len(codes) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "no seats requested")
	}

	var locked []string
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		now := time.Now()

		show, err := tx.ShowForUpdate(showID)
		if err != nil {
			return err
		}
		if show == nil {
			return apperrors.Newf(apperrors.CodeNotFound, "show %d not found", showID)
		}
		if now.After(show.StartTime.Add(-s.cfg.BookingClose)) {
			return apperrors.New(apperrors.CodeBookingClosed, "booking window for this show has closed")
		}

		if err := tx.PurgeExpiredLocks(showID, now.Add(-s.cfg.HoldDuration)); err != nil {
			return err
		}

		seats, err := tx.SeatsForUpdate(showID, codes)
		if err != nil {
			return err
		}
		if len(seats) != len(codes) {
			return apperrors.Newf(apperrors.CodeUnknownSeat, "unknown seats in request: got %d of %d", len(seats), len(codes))
		}

		ids := make([]int64, 0, len(seats))
		for i := range seats {
			seat := &seats[i]
			if seat.Booked {
				return apperrors.Newf(apperrors.CodeSeatUnavailable, "seat %s is already booked", seat.Code)
			}
			if seat.LockedBy != nil && *seat.LockedBy != userID && !seat.Available(now, s.cfg.HoldDuration) {
				return apperrors.Newf(apperrors.CodeSeatLockedByOther, "seat %s is held by another user", seat.Code)
			}
			ids = append(ids, seat.ID)
			locked = append(locked, seat.Code)
		}

		return tx.LockSeats(ids, userID, now)
	})
	if err != nil {
		return nil, err
	}
	return locked, nil
}

// ReleaseLocks clears the caller's locks on the given seats. Seats the
// caller does not hold are skipped, not errors; release must always
// succeed so abandoned selections cost nothing.
func (s *SeatLockService) ReleaseLocks(ctx context.Context, userID, showID int64, seatCodes []string) error {
	codes := dedupe(seatCodes)
	if len(codes) == 0 {
		return apperrors.New(apperrors.CodeInvalidRequest, "no seats requested")
	}

	return s.store.RunInTx(ctx, func(tx storage.Tx) error {
		show, err := tx.ShowForUpdate(showID)
		if err != nil {
			return err
		}
		if show == nil {
			return apperrors.Newf(apperrors.CodeNotFound, "show %d not found", showID)
		}

		seats, err := tx.SeatsForUpdate(showID, codes)
		if err != nil {
			return err
		}

		var ids []int64
		for i := range seats {
			seat := &seats[i]
			if !seat.Booked && seat.LockedBy != nil && *seat.LockedBy == userID {
				ids = append(ids, seat.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.UnlockSeats(ids)
	})
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
