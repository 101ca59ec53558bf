package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinetix/internal/config"
	"cinetix/internal/gateway"
	"cinetix/internal/messaging"
	"cinetix/internal/middleware"
	"cinetix/internal/models"
	"cinetix/internal/service"
	"cinetix/internal/storage/memory"
	"cinetix/internal/ticketart"
)

type fakeGateway struct {
	orders int
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amountMinorUnits int64, currency string) (string, error) {
	f.orders++
	return fmt.Sprintf("order_%d", f.orders), nil
}

func (f *fakeGateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	return gateway.VerifySignature("test-secret", orderRef, paymentRef, signature)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := config.Booking{
		HoldDuration:    5 * time.Minute,
		BookingClose:    30 * time.Minute,
		ResaleClose:     3 * time.Hour,
		MinorUnitFactor: 100,
		MinTopUp:        10,
		Currency:        "INR",
	}
	store := memory.New()
	services := service.NewServices(store, &fakeGateway{}, messaging.NoopPublisher{}, ticketart.NewGenerator("art"), cfg)
	h := NewHandlers(services, nil)

	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.Identity())
	{
		api.POST("/movies", h.CreateMovie)
		api.GET("/movies", h.ListMovies)
		api.POST("/theatres", h.CreateTheatre)
		api.POST("/shows", h.CreateShow)
		api.GET("/shows/:id/seats", h.SeatMap)
		api.POST("/seats/lock", h.LockSeats)
		api.POST("/seats/release", h.ReleaseSeats)
		api.POST("/bookings", h.Reserve)
		api.GET("/wallet", h.GetWallet)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("X-User-ID", fmt.Sprintf("%d", userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentityRequired(t *testing.T) {
	r := setupRouter()

	w := doJSON(t, r, http.MethodGet, "/api/movies", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLockFlow(t *testing.T) {
	r := setupRouter()

	w := doJSON(t, r, http.MethodPost, "/api/movies", 1, models.CreateMovieRequest{
		Title: "Arrival", Language: "English", Genre: "SciFi", DurationMins: 116,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var movie models.Movie
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &movie))

	w = doJSON(t, r, http.MethodPost, "/api/theatres", 1, models.CreateTheatreRequest{
		Name: "Rex", City: "Delhi", Location: "CP",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var theatre models.Theatre
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &theatre))

	w = doJSON(t, r, http.MethodPost, "/api/shows", 1, models.CreateShowRequest{
		MovieID:      movie.ID,
		TheatreID:    theatre.ID,
		StartTime:    time.Now().Add(24 * time.Hour),
		PricePerSeat: 100,
		Rows:         2,
		Cols:         2,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var show models.Show
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &show))

	w = doJSON(t, r, http.MethodPost, "/api/seats/lock", 1, models.LockSeatsRequest{
		ShowID: show.ID, SeatCodes: []string{"A1", "A2"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var locked models.LockSeatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &locked))
	assert.ElementsMatch(t, []string{"A1", "A2"}, locked.Locked)

	// Another user hits the hold: 409 with a stable code.
	w = doJSON(t, r, http.MethodPost, "/api/seats/lock", 2, models.LockSeatsRequest{
		ShowID: show.ID, SeatCodes: []string{"A1"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	var errBody map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	assert.Equal(t, "SEAT_LOCKED_BY_OTHER", errBody["code"])

	// Holder reserves.
	w = doJSON(t, r, http.MethodPost, "/api/bookings", 1, models.ReserveRequest{
		ShowID: show.ID, SeatCodes: []string{"A1", "A2"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var reserved models.ReserveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reserved))
	assert.Equal(t, int64(200), reserved.TotalPrice)
	assert.Equal(t, "PENDING", reserved.Status)
}

func TestUnknownShowIsNotFound(t *testing.T) {
	r := setupRouter()

	w := doJSON(t, r, http.MethodPost, "/api/seats/lock", 1, models.LockSeatsRequest{
		ShowID: 42, SeatCodes: []string{"A1"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWalletStartsEmpty(t *testing.T) {
	r := setupRouter()

	w := doJSON(t, r, http.MethodGet, "/api/wallet", 9, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var wallet models.Wallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wallet))
	assert.Equal(t, int64(0), wallet.Balance)
	assert.Equal(t, int64(9), wallet.UserID)
}
