// Package postgres implements storage.Store over PostgreSQL. Row locks
// come from SELECT ... FOR UPDATE inside the transaction runner.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"cinetix/internal/database"
	"cinetix/internal/models"
	"cinetix/internal/storage"
)

type Store struct {
	db *database.DB
}

func New(db *database.DB) *Store {
	return &Store{db: db}
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) CreateMovie(ctx context.Context, m *models.Movie) (int64, error) {
	query := `
		INSERT INTO movies (title, description, language, genre, duration_mins)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		m.Title, m.Description, m.Language, m.Genre, m.DurationMins).Scan(&id)
	return id, err
}

func (s *Store) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	m := &models.Movie{}
	query := `
		SELECT id, title, description, language, genre, duration_mins
		FROM movies
		WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Title, &m.Description, &m.Language, &m.Genre, &m.DurationMins)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *Store) ListMovies(ctx context.Context) ([]models.Movie, error) {
	query := `
		SELECT id, title, description, language, genre, duration_mins
		FROM movies
		ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Language, &m.Genre, &m.DurationMins); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func (s *Store) CreateTheatre(ctx context.Context, t *models.Theatre) (int64, error) {
	query := `
		INSERT INTO theatres (name, city, location)
		VALUES ($1, $2, $3)
		RETURNING id`
	var id int64
	err := s.db.QueryRowContext(ctx, query, t.Name, t.City, t.Location).Scan(&id)
	return id, err
}

func (s *Store) CreateShow(ctx context.Context, sh *models.Show, seatCodes []string) (int64, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer sqlTx.Rollback()

	query := `
		INSERT INTO shows (movie_id, theatre_id, start_time, price_per_seat, grid_rows, grid_cols)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	var id int64
	err = sqlTx.QueryRowContext(ctx, query,
		sh.MovieID, sh.TheatreID, sh.StartTime, sh.PricePerSeat, sh.Rows, sh.Cols).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, storage.ErrDuplicateShow
		}
		return 0, err
	}

	seatQuery := `
		INSERT INTO seats (show_id, seat_code)
		SELECT $1, unnest($2::text[])`
	if _, err := sqlTx.ExecContext(ctx, seatQuery, id, pq.Array(seatCodes)); err != nil {
		return 0, err
	}

	return id, sqlTx.Commit()
}

func (s *Store) GetShow(ctx context.Context, id int64) (*models.Show, error) {
	sh := &models.Show{}
	query := `
		SELECT id, movie_id, theatre_id, start_time, price_per_seat, grid_rows, grid_cols, created_at
		FROM shows
		WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sh.ID, &sh.MovieID, &sh.TheatreID, &sh.StartTime,
		&sh.PricePerSeat, &sh.Rows, &sh.Cols, &sh.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sh, err
}

func (s *Store) ListShowsByMovie(ctx context.Context, movieID int64) ([]models.Show, error) {
	query := `
		SELECT id, movie_id, theatre_id, start_time, price_per_seat, grid_rows, grid_cols, created_at
		FROM shows
		WHERE movie_id = $1
		ORDER BY start_time`
	rows, err := s.db.QueryContext(ctx, query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shows []models.Show
	for rows.Next() {
		var sh models.Show
		err := rows.Scan(&sh.ID, &sh.MovieID, &sh.TheatreID, &sh.StartTime,
			&sh.PricePerSeat, &sh.Rows, &sh.Cols, &sh.CreatedAt)
		if err != nil {
			return nil, err
		}
		shows = append(shows, sh)
	}
	return shows, rows.Err()
}

func (s *Store) ListSeats(ctx context.Context, showID int64) ([]models.Seat, error) {
	query := `
		SELECT id, show_id, seat_code, is_booked, locked_by, locked_at
		FROM seats
		WHERE show_id = $1
		ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []models.Seat
	for rows.Next() {
		var seat models.Seat
		err := rows.Scan(&seat.ID, &seat.ShowID, &seat.Code, &seat.Booked, &seat.LockedBy, &seat.LockedAt)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func (s *Store) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	t := &models.Ticket{}
	query := `
		SELECT id, user_id, show_id, total_price, status, rating, rated_at, is_transferred, artifact, booked_at
		FROM tickets
		WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.UserID, &t.ShowID, &t.TotalPrice, &t.Status,
		&t.Rating, &t.RatedAt, &t.Transferred, &t.Artifact, &t.BookedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *Store) ListUserTickets(ctx context.Context, userID int64) ([]models.Ticket, error) {
	query := `
		SELECT id, user_id, show_id, total_price, status, rating, rated_at, is_transferred, artifact, booked_at
		FROM tickets
		WHERE user_id = $1
		ORDER BY booked_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		err := rows.Scan(&t.ID, &t.UserID, &t.ShowID, &t.TotalPrice, &t.Status,
			&t.Rating, &t.RatedAt, &t.Transferred, &t.Artifact, &t.BookedAt)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *Store) TicketSeatCodes(ctx context.Context, ticketID int64) ([]string, error) {
	query := `
		SELECT s.seat_code
		FROM ticket_seats ts
		JOIN seats s ON s.id = ts.seat_id
		WHERE ts.ticket_id = $1
		ORDER BY s.seat_code`
	rows, err := s.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (s *Store) SaveTicketArtifact(ctx context.Context, ticketID int64, artifact []byte) error {
	query := `UPDATE tickets SET artifact = $1 WHERE id = $2`
	_, err := s.db.ExecContext(ctx, query, artifact, ticketID)
	return err
}

func (s *Store) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	w := &models.Wallet{UserID: userID}
	query := `SELECT balance FROM wallets WHERE user_id = $1`
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&w.Balance)
	if err == sql.ErrNoRows {
		return w, nil
	}
	return w, err
}

func (s *Store) ListOpenListings(ctx context.Context) ([]models.ResaleListing, error) {
	query := `
		SELECT id, ticket_id, seller_id, buyer_id, price, is_sold, listed_at
		FROM resale_listings
		WHERE NOT is_sold
		ORDER BY listed_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.ResaleListing
	for rows.Next() {
		var l models.ResaleListing
		err := rows.Scan(&l.ID, &l.TicketID, &l.SellerID, &l.BuyerID, &l.Price, &l.Sold, &l.ListedAt)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *Store) GetListing(ctx context.Context, id int64) (*models.ResaleListing, error) {
	l := &models.ResaleListing{}
	query := `
		SELECT id, ticket_id, seller_id, buyer_id, price, is_sold, listed_at
		FROM resale_listings
		WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&l.ID, &l.TicketID, &l.SellerID, &l.BuyerID, &l.Price, &l.Sold, &l.ListedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (s *Store) ListBookableMovieIDs(ctx context.Context, after time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT movie_id
		FROM shows
		WHERE start_time > $1`
	rows, err := s.db.QueryContext(ctx, query, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) UserRatings(ctx context.Context, userID int64) ([]models.UserRating, error) {
	query := `
		SELECT sh.movie_id, t.rating
		FROM tickets t
		JOIN shows sh ON sh.id = t.show_id
		WHERE t.user_id = $1 AND t.rating IS NOT NULL`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []models.UserRating
	for rows.Next() {
		var r models.UserRating
		if err := rows.Scan(&r.MovieID, &r.Rating); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

func (s *Store) MovieAvgRatings(ctx context.Context) (map[int64]float64, error) {
	query := `
		SELECT sh.movie_id, AVG(t.rating)
		FROM tickets t
		JOIN shows sh ON sh.id = t.show_id
		WHERE t.rating IS NOT NULL
		GROUP BY sh.movie_id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	avgs := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var avg float64
		if err := rows.Scan(&id, &avg); err != nil {
			return nil, err
		}
		avgs[id] = avg
	}
	return avgs, rows.Err()
}
