package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinetix/internal/apperrors"
	"cinetix/internal/models"
	"cinetix/internal/storage"
)

func (e *env) lockAndReserve(t *testing.T, userID, showID int64, codes []string) *models.Ticket {
	t.Helper()
	ctx := context.Background()
	_, err := e.services.SeatLocks.AcquireLocks(ctx, userID, showID, codes)
	require.NoError(t, err)
	ticket, err := e.services.Bookings.Reserve(ctx, userID, showID, codes)
	require.NoError(t, err)
	return ticket
}

// bookedTicket fabricates a BOOKED ticket directly, bypassing the
// booking-close rule, for tests that need a show already in the past.
func (e *env) bookedTicket(t *testing.T, userID, showID int64, codes []string) *models.Ticket {
	t.Helper()
	var ticket *models.Ticket
	err := e.store.RunInTx(context.Background(), func(tx storage.Tx) error {
		show, err := tx.ShowForUpdate(showID)
		if err != nil {
			return err
		}
		seats, err := tx.SeatsForUpdate(showID, codes)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(seats))
		for _, s := range seats {
			ids = append(ids, s.ID)
		}
		tk := &models.Ticket{
			UserID:     userID,
			ShowID:     showID,
			TotalPrice: int64(len(ids)) * show.PricePerSeat,
			Status:     models.TicketBooked,
			BookedAt:   time.Now(),
		}
		id, err := tx.CreateTicket(tk, ids)
		if err != nil {
			return err
		}
		tk.ID = id
		if err := tx.BookSeats(ids); err != nil {
			return err
		}
		ticket = tk
		return nil
	})
	require.NoError(t, err)
	return ticket
}

func TestReserve(t *testing.T) {
	e := newEnv(t)
	showID := e.newShow(t, time.Now().Add(24*time.Hour))

	ticket := e.lockAndReserve(t, 1, showID, []string{"A1", "A2"})

	assert.Equal(t, models.TicketPending, ticket.Status)
	assert.Equal(t, int64(200), ticket.TotalPrice)

	seats := e.seatState(t, showID)
	assert.False(t, seats["A1"].Booked)
	require.NotNil(t, seats["A1"].LockedBy)
	assert.Equal(t, int64(1), *seats["A1"].LockedBy)
}

func TestReserve_LockNotHeld(t *testing.T) {
	e := newEnv(t)
	showID := e.newShow(t, time.Now().Add(24*time.Hour))

	_, err := e.services.Bookings.Reserve(context.Background(), 1, showID, []string{"A1"})
	requireCode(t, err, apperrors.CodeLockNotHeld)
}

func TestReserve_SomeoneElsesLock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))

	_, err := e.services.SeatLocks.AcquireLocks(ctx, 2, showID, []string{"A1"})
	require.NoError(t, err)

	_, err = e.services.Bookings.Reserve(ctx, 1, showID, []string{"A1"})
	requireCode(t, err, apperrors.CodeLockNotHeld)
}

func TestReserve_PurgesExpiredLocksOnShow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))

	_, err := e.services.SeatLocks.AcquireLocks(ctx, 1, showID, []string{"A1"})
	require.NoError(t, err)

	_, err = e.services.SeatLocks.AcquireLocks(ctx, 2, showID, []string{"B1"})
	require.NoError(t, err)
	e.backdateLocks(t, showID, []string{"B1"}, 2, time.Now().Add(-6*time.Minute))

	// Reserving A1 sweeps the whole show: user 2's lapsed hold on B1
	// goes too, even though B1 was not requested.
	_, err = e.services.Bookings.Reserve(ctx, 1, showID, []string{"A1"})
	require.NoError(t, err)

	seats := e.seatState(t, showID)
	assert.Nil(t, seats["B1"].LockedBy)
	assert.Nil(t, seats["B1"].LockedAt)
}

func TestReserveWithWallet_ConcurrentNoDoubleSale(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	e.creditWallet(t, 1, 500)

	_, err := e.services.SeatLocks.AcquireLocks(ctx, 1, showID, []string{"A1"})
	require.NoError(t, err)

	// Duplicate client retries race the same settlement; exactly one
	// may consume the seat and the money.
	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.services.Bookings.ReserveWithWallet(ctx, 1, showID, []string{"A1"})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		requireCode(t, err, apperrors.CodeSeatUnavailable)
	}
	assert.Equal(t, 1, winners)

	wallet, err := e.store.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), wallet.Balance)

	tickets, err := e.services.Bookings.MyTickets(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, models.TicketBooked, tickets[0].Status)
}

func TestReserve_LockExpired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))

	_, err := e.services.SeatLocks.AcquireLocks(ctx, 1, showID, []string{"A1"})
	require.NoError(t, err)
	e.backdateLocks(t, showID, []string{"A1"}, 1, time.Now().Add(-6*time.Minute))

	_, err = e.services.Bookings.Reserve(ctx, 1, showID, []string{"A1"})
	requireCode(t, err, apperrors.CodeLockExpired)
}

func TestConfirmBooking(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.lockAndReserve(t, 1, showID, []string{"A1", "A2"})

	confirmed, err := e.services.Bookings.ConfirmBooking(ctx, 1, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketBooked, confirmed.Status)

	seats := e.seatState(t, showID)
	assert.True(t, seats["A1"].Booked)
	assert.True(t, seats["A2"].Booked)
	assert.Nil(t, seats["A1"].LockedBy)

	// Idempotent replay: no second confirmation event.
	again, err := e.services.Bookings.ConfirmBooking(ctx, 1, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketBooked, again.Status)

	published := 0
	for _, subj := range e.events.subjects {
		if subj == models.EventBookingConfirmed {
			published++
		}
	}
	assert.Equal(t, 1, published)
}

func TestConfirmBooking_WrongUser(t *testing.T) {
	e := newEnv(t)
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.lockAndReserve(t, 1, showID, []string{"A1"})

	_, err := e.services.Bookings.ConfirmBooking(context.Background(), 2, ticket.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestReserveWithWallet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	e.creditWallet(t, 1, 500)

	_, err := e.services.SeatLocks.AcquireLocks(ctx, 1, showID, []string{"A1", "A2"})
	require.NoError(t, err)

	ticket, err := e.services.Bookings.ReserveWithWallet(ctx, 1, showID, []string{"A1", "A2"})
	require.NoError(t, err)
	assert.Equal(t, models.TicketBooked, ticket.Status)
	assert.Equal(t, int64(200), ticket.TotalPrice)

	wallet, err := e.services.Wallets.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(300), wallet.Balance)

	seats := e.seatState(t, showID)
	assert.True(t, seats["A1"].Booked)
	assert.True(t, seats["A2"].Booked)

	stored, err := e.store.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Artifact)

	assert.Contains(t, e.events.subjects, models.EventBookingConfirmed)
}

func TestReserveWithWallet_InsufficientFunds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	e.creditWallet(t, 1, 150)

	_, err := e.services.SeatLocks.AcquireLocks(ctx, 1, showID, []string{"A1", "A2"})
	require.NoError(t, err)

	_, err = e.services.Bookings.ReserveWithWallet(ctx, 1, showID, []string{"A1", "A2"})
	requireCode(t, err, apperrors.CodeInsufficientFunds)

	// The whole unit rolled back: no ticket, balance intact, seats
	// still merely locked.
	wallet, err := e.services.Wallets.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(150), wallet.Balance)

	tickets, err := e.store.ListUserTickets(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	seats := e.seatState(t, showID)
	assert.False(t, seats["A1"].Booked)
	require.NotNil(t, seats["A1"].LockedBy)
}

func TestRateTicket(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(-2*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	rated, err := e.services.Bookings.RateTicket(ctx, 1, ticket.ID, 4)
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, *rated.Rating)
	assert.NotNil(t, rated.RatedAt)
}

func TestRateTicket_BeforeShowtime(t *testing.T) {
	e := newEnv(t)
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	_, err := e.services.Bookings.RateTicket(context.Background(), 1, ticket.ID, 5)
	requireCode(t, err, apperrors.CodeInvalidRequest)
}

func TestRateTicket_OutOfRange(t *testing.T) {
	e := newEnv(t)
	showID := e.newShow(t, time.Now().Add(-2*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	_, err := e.services.Bookings.RateTicket(context.Background(), 1, ticket.ID, 6)
	requireCode(t, err, apperrors.CodeInvalidRequest)
	_, err = e.services.Bookings.RateTicket(context.Background(), 1, ticket.ID, 0)
	requireCode(t, err, apperrors.CodeInvalidRequest)
}

func TestMyTickets_ExcludesPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))

	pending := e.lockAndReserve(t, 1, showID, []string{"A1"})

	_, err := e.services.SeatLocks.AcquireLocks(ctx, 1, showID, []string{"A2"})
	require.NoError(t, err)
	e.creditWallet(t, 1, 100)
	booked, err := e.services.Bookings.ReserveWithWallet(ctx, 1, showID, []string{"A2"})
	require.NoError(t, err)

	tickets, err := e.services.Bookings.MyTickets(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, booked.ID, tickets[0].ID)
	assert.NotEqual(t, pending.ID, tickets[0].ID)
}
