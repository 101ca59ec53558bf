package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cinetix/internal/config"
	"cinetix/internal/gateway"
	"cinetix/internal/messaging"
	"cinetix/internal/models"
	"cinetix/internal/storage"
	"cinetix/internal/storage/memory"
	"cinetix/internal/ticketart"
)

const testSecret = "test-gateway-secret"

type fakeGateway struct {
	orders int
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amountMinorUnits int64, currency string) (string, error) {
	f.orders++
	return fmt.Sprintf("order_%d", f.orders), nil
}

func (f *fakeGateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	return gateway.VerifySignature(testSecret, orderRef, paymentRef, signature)
}

func sign(orderRef, paymentRef string) string {
	return gateway.Sign(testSecret, orderRef, paymentRef)
}

type recordingPublisher struct {
	subjects []string
}

func (r *recordingPublisher) Publish(subject string, data interface{}) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

type env struct {
	store    *memory.Store
	services *Services
	events   *recordingPublisher
	cfg      config.Booking
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.Booking{
		HoldDuration:    5 * time.Minute,
		BookingClose:    30 * time.Minute,
		ResaleClose:     3 * time.Hour,
		MinorUnitFactor: 100,
		MinTopUp:        10,
		Currency:        "INR",
	}
	store := memory.New()
	events := &recordingPublisher{}
	services := NewServices(store, &fakeGateway{}, events, ticketart.NewGenerator("artifact-secret"), cfg)
	return &env{store: store, services: services, events: events, cfg: cfg}
}

var _ messaging.Publisher = (*recordingPublisher)(nil)

// newShow creates a movie and a show starting at start with a 2x3 grid
// priced at 100 per seat, returning the show id.
func (e *env) newShow(t *testing.T, start time.Time) int64 {
	t.Helper()
	ctx := context.Background()

	movie, err := e.services.Catalog.CreateMovie(ctx, &models.CreateMovieRequest{
		Title:        "Interstellar",
		Language:     "English",
		Genre:        "SciFi",
		DurationMins: 169,
	})
	require.NoError(t, err)

	theatre, err := e.services.Catalog.CreateTheatre(ctx, &models.CreateTheatreRequest{
		Name: "Galaxy", City: "Pune", Location: "Downtown",
	})
	require.NoError(t, err)

	show := &models.Show{
		MovieID:      movie.ID,
		TheatreID:    theatre.ID,
		StartTime:    start,
		PricePerSeat: 100,
		Rows:         2,
		Cols:         3,
	}
	id, err := e.store.CreateShow(ctx, show, SeatCodes(2, 3))
	require.NoError(t, err)
	return id
}

// backdateLocks rewrites the lock timestamp on the given seats so a
// test can age a hold without sleeping.
func (e *env) backdateLocks(t *testing.T, showID int64, codes []string, userID int64, at time.Time) {
	t.Helper()
	err := e.store.RunInTx(context.Background(), func(tx storage.Tx) error {
		seats, err := tx.SeatsForUpdate(showID, codes)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(seats))
		for _, s := range seats {
			ids = append(ids, s.ID)
		}
		return tx.LockSeats(ids, userID, at)
	})
	require.NoError(t, err)
}

// creditWallet sets a user's balance directly.
func (e *env) creditWallet(t *testing.T, userID, balance int64) {
	t.Helper()
	err := e.store.RunInTx(context.Background(), func(tx storage.Tx) error {
		return tx.SetWalletBalance(userID, balance)
	})
	require.NoError(t, err)
}

func (e *env) seatState(t *testing.T, showID int64) map[string]models.Seat {
	t.Helper()
	seats, err := e.store.ListSeats(context.Background(), showID)
	require.NoError(t, err)
	out := make(map[string]models.Seat, len(seats))
	for _, s := range seats {
		out[s.Code] = s
	}
	return out
}
