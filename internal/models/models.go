package models

import "time"

// Request/response payloads for the HTTP surface.

type CreateMovieRequest struct {
	Title        string  `json:"title" binding:"required"`
	Description  *string `json:"description"`
	Language     string  `json:"language" binding:"required"`
	Genre        string  `json:"genre" binding:"required"`
	DurationMins int     `json:"duration_mins"`
}

type CreateTheatreRequest struct {
	Name     string `json:"name" binding:"required"`
	City     string `json:"city" binding:"required"`
	Location string `json:"location" binding:"required"`
}

type CreateShowRequest struct {
	MovieID      int64     `json:"movie_id" binding:"required"`
	TheatreID    int64     `json:"theatre_id" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	PricePerSeat int64     `json:"price_per_seat" binding:"required"`
	Rows         int       `json:"rows" binding:"required"`
	Cols         int       `json:"cols" binding:"required"`
}

type LockSeatsRequest struct {
	ShowID    int64    `json:"show_id" binding:"required"`
	SeatCodes []string `json:"seats"`
}

type LockSeatsResponse struct {
	ShowID int64    `json:"show_id"`
	Locked []string `json:"locked"`
}

type ReleaseSeatsRequest struct {
	ShowID    int64    `json:"show_id" binding:"required"`
	SeatCodes []string `json:"seats"`
}

type ReserveRequest struct {
	ShowID    int64    `json:"show_id" binding:"required"`
	SeatCodes []string `json:"seats"`
}

type ReserveResponse struct {
	TicketID   int64  `json:"ticket_id"`
	TotalPrice int64  `json:"total_price"`
	Status     string `json:"status"`
}

type RateTicketRequest struct {
	Rating int `json:"rating" binding:"required"`
}

type CreateOrderRequest struct {
	TicketID int64 `json:"ticket_id" binding:"required"`
}

type VerifyPaymentRequest struct {
	TicketID   int64  `json:"ticket_id" binding:"required"`
	OrderRef   string `json:"order_ref" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type VerifyTopUpRequest struct {
	OrderID    int64  `json:"order_id" binding:"required"`
	OrderRef   string `json:"order_ref" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

type ListResaleRequest struct {
	TicketID int64 `json:"ticket_id" binding:"required"`
}

type CancelResaleRequest struct {
	ListingID int64 `json:"listing_id" binding:"required"`
}

type BuyResaleRequest struct {
	ListingID int64 `json:"listing_id" binding:"required"`
}

type VerifyResaleRequest struct {
	ListingID  int64  `json:"listing_id" binding:"required"`
	OrderRef   string `json:"order_ref" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

// SeatView is a seat-map entry with availability already computed
// against the lock-expiry rule at read time.
type SeatView struct {
	Code      string `json:"code"`
	Booked    bool   `json:"booked"`
	Available bool   `json:"available"`
}
