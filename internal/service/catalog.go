package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cinetix/internal/apperrors"
	"cinetix/internal/config"
	"cinetix/internal/models"
	"cinetix/internal/storage"
)

// CatalogService manages movies, theatres, shows and the seat map.
type CatalogService struct {
	store storage.Store
	cfg   config.Booking
}

func NewCatalogService(store storage.Store, cfg config.Booking) *CatalogService {
	return &CatalogService{store: store, cfg: cfg}
}

func (s *CatalogService) CreateMovie(ctx context.Context, req *models.CreateMovieRequest) (*models.Movie, error) {
	m := &models.Movie{
		Title:        req.Title,
		Description:  req.Description,
		Language:     req.Language,
		Genre:        req.Genre,
		DurationMins: req.DurationMins,
	}
	id, err := s.store.CreateMovie(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = id
	return m, nil
}

func (s *CatalogService) ListMovies(ctx context.Context) ([]models.Movie, error) {
	return s.store.ListMovies(ctx)
}

func (s *CatalogService) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	m, err := s.store.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "movie %d not found", id)
	}
	return m, nil
}

func (s *CatalogService) CreateTheatre(ctx context.Context, req *models.CreateTheatreRequest) (*models.Theatre, error) {
	t := &models.Theatre{Name: req.Name, City: req.City, Location: req.Location}
	id, err := s.store.CreateTheatre(ctx, t)
	if err != nil {
		return nil, err
	}
	t.ID = id
	return t, nil
}

// CreateShow validates the schedule and generates the full seat grid.
// Seat codes run A1..A<cols> through row <rows>.
func (s *CatalogService) CreateShow(ctx context.Context, req *models.CreateShowRequest) (*models.Show, error) {
	if req.Rows < 1 || req.Cols < 1 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "seat grid must have at least one row and one column")
	}
	if req.Rows > 26 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "seat grid supports at most 26 rows")
	}
	if req.PricePerSeat <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "price per seat must be positive")
	}
	if !req.StartTime.After(time.Now()) {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "show start time must be in the future")
	}

	movie, err := s.store.GetMovie(ctx, req.MovieID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "movie %d not found", req.MovieID)
	}

	show := &models.Show{
		MovieID:      req.MovieID,
		TheatreID:    req.TheatreID,
		StartTime:    req.StartTime,
		PricePerSeat: req.PricePerSeat,
		Rows:         req.Rows,
		Cols:         req.Cols,
	}

	id, err := s.store.CreateShow(ctx, show, SeatCodes(req.Rows, req.Cols))
	if errors.Is(err, storage.ErrDuplicateShow) {
		return nil, apperrors.Newf(apperrors.CodeInvalidRequest,
			"theatre %d already has a show at %s", req.TheatreID, req.StartTime)
	}
	if err != nil {
		return nil, err
	}
	show.ID = id
	return show, nil
}

func (s *CatalogService) GetShow(ctx context.Context, id int64) (*models.Show, error) {
	sh, err := s.store.GetShow(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "show %d not found", id)
	}
	return sh, nil
}

func (s *CatalogService) ListShowsByMovie(ctx context.Context, movieID int64) ([]models.Show, error) {
	return s.store.ListShowsByMovie(ctx, movieID)
}

// SeatMap returns every seat of the show with availability computed
// against the lock-expiry rule at call time.
func (s *CatalogService) SeatMap(ctx context.Context, showID int64) ([]models.SeatView, error) {
	sh, err := s.store.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "show %d not found", showID)
	}

	seats, err := s.store.ListSeats(ctx, showID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]models.SeatView, 0, len(seats))
	for i := range seats {
		seat := &seats[i]
		views = append(views, models.SeatView{
			Code:      seat.Code,
			Booked:    seat.Booked,
			Available: seat.Available(now, s.cfg.HoldDuration),
		})
	}
	return views, nil
}

// SeatCodes enumerates the grid row-major: A1..A<cols>, B1.. and so on.
func SeatCodes(rows, cols int) []string {
	codes := make([]string, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 1; c <= cols; c++ {
			codes = append(codes, fmt.Sprintf("%c%d", 'A'+r, c))
		}
	}
	return codes
}
