// Package storage defines the persistence contract of the booking
// engine. Every multi-step mutation runs inside RunInTx, which gives
// the callback a Tx whose ForUpdate reads hold row locks until commit.
// Plain reads on Store see committed state only.
package storage

import (
	"context"
	"errors"
	"time"

	"cinetix/internal/models"
)

// ErrDuplicateShow reports a violation of the one-show-per-theatre-slot
// constraint. The service layer maps it into the error taxonomy.
var ErrDuplicateShow = errors.New("theatre already has a show at this start time")

// Store is the committed-state surface plus the transaction runner.
type Store interface {
	// RunInTx executes fn atomically. A non-nil error from fn rolls
	// everything back; returning nil commits. Implementations must not
	// retry fn.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	CreateMovie(ctx context.Context, m *models.Movie) (int64, error)
	GetMovie(ctx context.Context, id int64) (*models.Movie, error)
	ListMovies(ctx context.Context) ([]models.Movie, error)
	CreateTheatre(ctx context.Context, t *models.Theatre) (int64, error)

	// CreateShow inserts the show and generates its seat rows from
	// seatCodes in one statement batch.
	CreateShow(ctx context.Context, s *models.Show, seatCodes []string) (int64, error)
	GetShow(ctx context.Context, id int64) (*models.Show, error)
	ListShowsByMovie(ctx context.Context, movieID int64) ([]models.Show, error)
	ListSeats(ctx context.Context, showID int64) ([]models.Seat, error)

	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	ListUserTickets(ctx context.Context, userID int64) ([]models.Ticket, error)
	TicketSeatCodes(ctx context.Context, ticketID int64) ([]string, error)
	// SaveTicketArtifact attaches the rendered ticket blob post-commit;
	// losing it is tolerable, the ticket itself is already durable.
	SaveTicketArtifact(ctx context.Context, ticketID int64, artifact []byte) error

	GetWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	ListOpenListings(ctx context.Context) ([]models.ResaleListing, error)
	GetListing(ctx context.Context, id int64) (*models.ResaleListing, error)

	// Recommender inputs.
	ListBookableMovieIDs(ctx context.Context, after time.Time) ([]int64, error)
	UserRatings(ctx context.Context, userID int64) ([]models.UserRating, error)
	MovieAvgRatings(ctx context.Context) (map[int64]float64, error)
}

// Tx is the locked view handed to RunInTx callbacks. All ForUpdate
// reads return (nil, nil) when the row does not exist.
type Tx interface {
	ShowForUpdate(id int64) (*models.Show, error)
	// SeatsForUpdate returns the show's seats matching codes, locked,
	// in the order the rows are stored. Missing codes simply do not
	// appear; callers detect them by count.
	SeatsForUpdate(showID int64, codes []string) ([]models.Seat, error)
	// PurgeExpiredLocks clears lock fields on every unbooked seat of
	// the show whose lock predates before.
	PurgeExpiredLocks(showID int64, before time.Time) error
	LockSeats(seatIDs []int64, userID int64, at time.Time) error
	UnlockSeats(seatIDs []int64) error
	BookSeats(seatIDs []int64) error

	CreateTicket(t *models.Ticket, seatIDs []int64) (int64, error)
	TicketForUpdate(id int64) (*models.Ticket, error)
	TicketSeatIDs(ticketID int64) ([]int64, error)
	UpdateTicketStatus(id int64, status models.TicketStatus) error
	DeleteTicket(id int64) error
	TransferTicket(id int64, newOwner int64) error
	SetTicketRating(id int64, rating int, at time.Time) error

	// UpsertOrder replaces any existing order for (kind, entity_id);
	// used for ticket and resale orders, which are one-to-one with
	// their entity.
	UpsertOrder(o *models.PaymentOrder) (int64, error)
	CreateOrder(o *models.PaymentOrder) (int64, error)
	OrderForUpdate(kind models.OrderKind, entityID int64) (*models.PaymentOrder, error)
	OrderByIDForUpdate(id int64) (*models.PaymentOrder, error)
	MarkOrderPaid(id int64, paymentRef, signature string) error
	MarkOrderFailed(id int64) error

	// WalletForUpdate creates a zero-balance wallet when none exists.
	WalletForUpdate(userID int64) (*models.Wallet, error)
	SetWalletBalance(userID int64, balance int64) error

	CreateListing(l *models.ResaleListing) (int64, error)
	ListingForUpdate(id int64) (*models.ResaleListing, error)
	ListingByTicket(ticketID int64) (*models.ResaleListing, error)
	MarkListingSold(id int64, buyerID int64) error
	DeleteListing(id int64) error
}
