// Package memory implements storage.Store in process memory. It backs
// the service tests; transactions take the store mutex and roll back by
// restoring a deep copy of the state taken at begin.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cinetix/internal/models"
	"cinetix/internal/storage"
)

type state struct {
	movies   map[int64]*models.Movie
	theatres map[int64]*models.Theatre
	shows    map[int64]*models.Show
	seats    map[int64]*models.Seat
	tickets  map[int64]*models.Ticket
	// ticketSeats maps ticket id to its seat ids.
	ticketSeats map[int64][]int64
	orders      map[int64]*models.PaymentOrder
	wallets     map[int64]*models.Wallet
	listings    map[int64]*models.ResaleListing
	nextID      int64
}

type Store struct {
	mu sync.Mutex
	st state
}

func New() *Store {
	return &Store{st: state{
		movies:      make(map[int64]*models.Movie),
		theatres:    make(map[int64]*models.Theatre),
		shows:       make(map[int64]*models.Show),
		seats:       make(map[int64]*models.Seat),
		tickets:     make(map[int64]*models.Ticket),
		ticketSeats: make(map[int64][]int64),
		orders:      make(map[int64]*models.PaymentOrder),
		wallets:     make(map[int64]*models.Wallet),
		listings:    make(map[int64]*models.ResaleListing),
		nextID:      1,
	}}
}

func (s *Store) nextIDLocked() int64 {
	id := s.st.nextID
	s.st.nextID++
	return id
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&tx{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (st state) clone() state {
	out := state{
		movies:      make(map[int64]*models.Movie, len(st.movies)),
		theatres:    make(map[int64]*models.Theatre, len(st.theatres)),
		shows:       make(map[int64]*models.Show, len(st.shows)),
		seats:       make(map[int64]*models.Seat, len(st.seats)),
		tickets:     make(map[int64]*models.Ticket, len(st.tickets)),
		ticketSeats: make(map[int64][]int64, len(st.ticketSeats)),
		orders:      make(map[int64]*models.PaymentOrder, len(st.orders)),
		wallets:     make(map[int64]*models.Wallet, len(st.wallets)),
		listings:    make(map[int64]*models.ResaleListing, len(st.listings)),
		nextID:      st.nextID,
	}
	for id, v := range st.movies {
		c := *v
		out.movies[id] = &c
	}
	for id, v := range st.theatres {
		c := *v
		out.theatres[id] = &c
	}
	for id, v := range st.shows {
		c := *v
		out.shows[id] = &c
	}
	for id, v := range st.seats {
		c := *v
		if v.LockedBy != nil {
			lb := *v.LockedBy
			c.LockedBy = &lb
		}
		if v.LockedAt != nil {
			la := *v.LockedAt
			c.LockedAt = &la
		}
		out.seats[id] = &c
	}
	for id, v := range st.tickets {
		c := *v
		if v.Rating != nil {
			r := *v.Rating
			c.Rating = &r
		}
		if v.RatedAt != nil {
			ra := *v.RatedAt
			c.RatedAt = &ra
		}
		out.tickets[id] = &c
	}
	for id, v := range st.ticketSeats {
		out.ticketSeats[id] = append([]int64(nil), v...)
	}
	for id, v := range st.orders {
		c := *v
		if v.PaymentRef != nil {
			pr := *v.PaymentRef
			c.PaymentRef = &pr
		}
		if v.Signature != nil {
			sig := *v.Signature
			c.Signature = &sig
		}
		out.orders[id] = &c
	}
	for id, v := range st.wallets {
		c := *v
		out.wallets[id] = &c
	}
	for id, v := range st.listings {
		c := *v
		if v.BuyerID != nil {
			b := *v.BuyerID
			c.BuyerID = &b
		}
		out.listings[id] = &c
	}
	return out
}

func (s *Store) CreateMovie(ctx context.Context, m *models.Movie) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *m
	c.ID = s.nextIDLocked()
	s.st.movies[c.ID] = &c
	return c.ID, nil
}

func (s *Store) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.st.movies[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (s *Store) ListMovies(ctx context.Context) ([]models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Movie
	for _, m := range s.st.movies {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateTheatre(ctx context.Context, t *models.Theatre) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *t
	c.ID = s.nextIDLocked()
	s.st.theatres[c.ID] = &c
	return c.ID, nil
}

func (s *Store) CreateShow(ctx context.Context, sh *models.Show, seatCodes []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Mirrors the unique (theatre_id, start_time) constraint.
	for _, existing := range s.st.shows {
		if existing.TheatreID == sh.TheatreID && existing.StartTime.Equal(sh.StartTime) {
			return 0, storage.ErrDuplicateShow
		}
	}
	c := *sh
	c.ID = s.nextIDLocked()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.st.shows[c.ID] = &c
	for _, code := range seatCodes {
		seat := &models.Seat{ID: s.nextIDLocked(), ShowID: c.ID, Code: code}
		s.st.seats[seat.ID] = seat
	}
	return c.ID, nil
}

func (s *Store) GetShow(ctx context.Context, id int64) (*models.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.st.shows[id]
	if !ok {
		return nil, nil
	}
	c := *sh
	return &c, nil
}

func (s *Store) ListShowsByMovie(ctx context.Context, movieID int64) ([]models.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Show
	for _, sh := range s.st.shows {
		if sh.MovieID == movieID {
			out = append(out, *sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Store) ListSeats(ctx context.Context, showID int64) ([]models.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seatsOfShowLocked(showID), nil
}

func (s *Store) seatsOfShowLocked(showID int64) []models.Seat {
	var out []models.Seat
	for _, seat := range s.st.seats {
		if seat.ShowID == showID {
			out = append(out, *seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.tickets[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (s *Store) ListUserTickets(ctx context.Context, userID int64) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ticket
	for _, t := range s.st.tickets {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
	return out, nil
}

func (s *Store) TicketSeatCodes(ctx context.Context, ticketID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var codes []string
	for _, seatID := range s.st.ticketSeats[ticketID] {
		if seat, ok := s.st.seats[seatID]; ok {
			codes = append(codes, seat.Code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (s *Store) SaveTicketArtifact(ctx context.Context, ticketID int64, artifact []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.st.tickets[ticketID]; ok {
		t.Artifact = append([]byte(nil), artifact...)
	}
	return nil
}

func (s *Store) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.st.wallets[userID]; ok {
		c := *w
		return &c, nil
	}
	return &models.Wallet{UserID: userID}, nil
}

func (s *Store) ListOpenListings(ctx context.Context) ([]models.ResaleListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ResaleListing
	for _, l := range s.st.listings {
		if !l.Sold {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListedAt.Before(out[j].ListedAt) })
	return out, nil
}

func (s *Store) GetListing(ctx context.Context, id int64) (*models.ResaleListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.st.listings[id]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (s *Store) ListBookableMovieIDs(ctx context.Context, after time.Time) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]bool)
	var ids []int64
	for _, sh := range s.st.shows {
		if sh.StartTime.After(after) && !seen[sh.MovieID] {
			seen[sh.MovieID] = true
			ids = append(ids, sh.MovieID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) UserRatings(ctx context.Context, userID int64) ([]models.UserRating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.UserRating
	for _, t := range s.st.tickets {
		if t.UserID == userID && t.Rating != nil {
			if sh, ok := s.st.shows[t.ShowID]; ok {
				out = append(out, models.UserRating{MovieID: sh.MovieID, Rating: *t.Rating})
			}
		}
	}
	return out, nil
}

func (s *Store) MovieAvgRatings(ctx context.Context) (map[int64]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := make(map[int64]int)
	counts := make(map[int64]int)
	for _, t := range s.st.tickets {
		if t.Rating == nil {
			continue
		}
		sh, ok := s.st.shows[t.ShowID]
		if !ok {
			continue
		}
		sums[sh.MovieID] += *t.Rating
		counts[sh.MovieID]++
	}
	avgs := make(map[int64]float64, len(sums))
	for id, sum := range sums {
		avgs[id] = float64(sum) / float64(counts[id])
	}
	return avgs, nil
}
