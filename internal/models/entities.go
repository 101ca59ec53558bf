package models

import (
	"time"
)

// Movie is catalog metadata. Language and genre feed the recommender.
type Movie struct {
	ID           int64   `json:"id" db:"id"`
	Title        string  `json:"title" db:"title"`
	Description  *string `json:"description,omitempty" db:"description"`
	Language     string  `json:"language" db:"language"`
	Genre        string  `json:"genre" db:"genre"`
	DurationMins int     `json:"duration_mins" db:"duration_mins"`
}

// Theatre is a physical venue.
type Theatre struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	City     string `json:"city" db:"city"`
	Location string `json:"location" db:"location"`
}

// Show is a scheduled screening. The seat grid (rows x cols) and the
// per-seat price are fixed at creation; seats are generated once and
// never change shape afterwards.
type Show struct {
	ID           int64     `json:"id" db:"id"`
	MovieID      int64     `json:"movie_id" db:"movie_id"`
	TheatreID    int64     `json:"theatre_id" db:"theatre_id"`
	StartTime    time.Time `json:"start_time" db:"start_time"`
	PricePerSeat int64     `json:"price_per_seat" db:"price_per_seat"`
	Rows         int       `json:"rows" db:"grid_rows"`
	Cols         int       `json:"cols" db:"grid_cols"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Seat belongs to exactly one show. Booked=true implies the lock fields
// are cleared. A seat is available iff it is not booked and its lock is
// absent or expired.
type Seat struct {
	ID       int64      `json:"id" db:"id"`
	ShowID   int64      `json:"show_id" db:"show_id"`
	Code     string     `json:"code" db:"seat_code"`
	Booked   bool       `json:"booked" db:"is_booked"`
	LockedBy *int64     `json:"locked_by,omitempty" db:"locked_by"`
	LockedAt *time.Time `json:"locked_at,omitempty" db:"locked_at"`
}

// Available reports whether the seat can be claimed at now, treating a
// lock older than hold as expired.
func (s *Seat) Available(now time.Time, hold time.Duration) bool {
	if s.Booked {
		return false
	}
	if s.LockedBy == nil || s.LockedAt == nil {
		return true
	}
	return s.LockedAt.Before(now.Add(-hold))
}

// Ticket is a reservation over a fixed seat set. The seat set and total
// price never change after creation; only status, owner (on resale),
// rating and the artifact blob do.
type Ticket struct {
	ID          int64        `json:"id" db:"id"`
	UserID      int64        `json:"user_id" db:"user_id"`
	ShowID      int64        `json:"show_id" db:"show_id"`
	TotalPrice  int64        `json:"total_price" db:"total_price"`
	Status      TicketStatus `json:"status" db:"status"`
	Rating      *int         `json:"rating,omitempty" db:"rating"`
	RatedAt     *time.Time   `json:"rated_at,omitempty" db:"rated_at"`
	Transferred bool         `json:"is_transferred" db:"is_transferred"`
	Artifact    []byte       `json:"-" db:"artifact"`
	BookedAt    time.Time    `json:"booked_at" db:"booked_at"`
}

// OrderKind identifies which payable entity a PaymentOrder settles.
type OrderKind string

const (
	OrderKindTicket OrderKind = "TICKET"
	OrderKindTopUp  OrderKind = "TOPUP"
	OrderKindResale OrderKind = "RESALE"
)

// PaymentOrder tracks one external-gateway order. Ticket and resale
// orders are keyed one-to-one with their entity and replaced on repeated
// creation; top-up orders stand alone and are addressed by their own id.
type PaymentOrder struct {
	ID         int64       `json:"id" db:"id"`
	Kind       OrderKind   `json:"kind" db:"kind"`
	EntityID   int64       `json:"entity_id" db:"entity_id"`
	UserID     int64       `json:"user_id" db:"user_id"`
	OrderRef   string      `json:"order_ref" db:"order_ref"`
	PaymentRef *string     `json:"payment_ref,omitempty" db:"payment_ref"`
	Signature  *string     `json:"-" db:"signature"`
	Amount     int64       `json:"amount" db:"amount"`
	Status     OrderStatus `json:"status" db:"status"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// Wallet holds a per-user prepaid balance in major currency units.
// Created lazily on first access; balance never goes below zero.
type Wallet struct {
	UserID  int64 `json:"user_id" db:"user_id"`
	Balance int64 `json:"balance" db:"balance"`
}

// ResaleListing offers one BOOKED, never-transferred ticket at its
// original price. A listing whose eligibility window lapses is deleted,
// returning the ticket to the seller's normal holdings.
type ResaleListing struct {
	ID       int64     `json:"id" db:"id"`
	TicketID int64     `json:"ticket_id" db:"ticket_id"`
	SellerID int64     `json:"seller_id" db:"seller_id"`
	BuyerID  *int64    `json:"buyer_id,omitempty" db:"buyer_id"`
	Price    int64     `json:"price" db:"price"`
	Sold     bool      `json:"sold" db:"is_sold"`
	ListedAt time.Time `json:"listed_at" db:"listed_at"`
}

// UserRating is a recommender input row: one rated, booked ticket
// projected onto its movie.
type UserRating struct {
	MovieID int64
	Rating  int
}
