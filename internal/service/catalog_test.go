package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinetix/internal/apperrors"
	"cinetix/internal/models"
)

func TestSeatCodes(t *testing.T) {
	assert.Equal(t, []string{"A1", "A2", "A3", "B1", "B2", "B3"}, SeatCodes(2, 3))
	assert.Equal(t, []string{"A1"}, SeatCodes(1, 1))
}

func TestCreateShow_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	movie, err := e.services.Catalog.CreateMovie(ctx, &models.CreateMovieRequest{
		Title: "Dune", Language: "English", Genre: "SciFi", DurationMins: 155,
	})
	require.NoError(t, err)
	theatre, err := e.services.Catalog.CreateTheatre(ctx, &models.CreateTheatreRequest{
		Name: "Plaza", City: "Mumbai", Location: "Center",
	})
	require.NoError(t, err)

	base := models.CreateShowRequest{
		MovieID:      movie.ID,
		TheatreID:    theatre.ID,
		StartTime:    time.Now().Add(24 * time.Hour),
		PricePerSeat: 100,
		Rows:         2,
		Cols:         3,
	}

	cases := []struct {
		name   string
		mutate func(*models.CreateShowRequest)
		code   apperrors.Code
	}{
		{"past start", func(r *models.CreateShowRequest) { r.StartTime = time.Now().Add(-time.Hour) }, apperrors.CodeInvalidRequest},
		{"zero rows", func(r *models.CreateShowRequest) { r.Rows = 0 }, apperrors.CodeInvalidRequest},
		{"too many rows", func(r *models.CreateShowRequest) { r.Rows = 27 }, apperrors.CodeInvalidRequest},
		{"zero price", func(r *models.CreateShowRequest) { r.PricePerSeat = 0 }, apperrors.CodeInvalidRequest},
		{"missing movie", func(r *models.CreateShowRequest) { r.MovieID = 999 }, apperrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := e.services.Catalog.CreateShow(ctx, &req)
			requireCode(t, err, tc.code)
		})
	}

	show, err := e.services.Catalog.CreateShow(ctx, &base)
	require.NoError(t, err)

	seats, err := e.store.ListSeats(ctx, show.ID)
	require.NoError(t, err)
	assert.Len(t, seats, 6)

	// Same theatre and slot again: rejected with a taxonomy error, not
	// a raw constraint violation.
	_, err = e.services.Catalog.CreateShow(ctx, &base)
	requireCode(t, err, apperrors.CodeInvalidRequest)
}

func TestSeatMap_ReflectsLockExpiry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))

	_, err := e.services.SeatLocks.AcquireLocks(ctx, 1, showID, []string{"A1"})
	require.NoError(t, err)

	byCode := func(views []models.SeatView, code string) models.SeatView {
		for _, v := range views {
			if v.Code == code {
				return v
			}
		}
		t.Fatalf("seat %s not in map", code)
		return models.SeatView{}
	}

	views, err := e.services.Catalog.SeatMap(ctx, showID)
	require.NoError(t, err)
	assert.False(t, byCode(views, "A1").Available)
	assert.True(t, byCode(views, "A2").Available)

	e.backdateLocks(t, showID, []string{"A1"}, 1, time.Now().Add(-6*time.Minute))

	views, err = e.services.Catalog.SeatMap(ctx, showID)
	require.NoError(t, err)
	assert.True(t, byCode(views, "A1").Available, "expired hold reads as available")
}
