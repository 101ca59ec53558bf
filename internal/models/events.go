package models

import "time"

// NATS subjects for domain events.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventPaymentFailed    = "payment.failed"
	EventWalletCredited   = "wallet.credited"
	EventResaleSold       = "resale.sold"
)

type BookingConfirmedEvent struct {
	TicketID    int64     `json:"ticket_id"`
	ShowID      int64     `json:"show_id"`
	UserID      int64     `json:"user_id"`
	TotalPrice  int64     `json:"total_price"`
	PaymentMode string    `json:"payment_mode"`
	Timestamp   time.Time `json:"timestamp"`
}

type PaymentFailedEvent struct {
	Kind      OrderKind `json:"kind"`
	EntityID  int64     `json:"entity_id"`
	OrderRef  string    `json:"order_ref"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type WalletCreditedEvent struct {
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	Balance   int64     `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

type ResaleSoldEvent struct {
	ListingID int64     `json:"listing_id"`
	TicketID  int64     `json:"ticket_id"`
	SellerID  int64     `json:"seller_id"`
	BuyerID   int64     `json:"buyer_id"`
	Price     int64     `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}
