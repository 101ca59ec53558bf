package service

import (
	"cinetix/internal/config"
	"cinetix/internal/gateway"
	"cinetix/internal/messaging"
	"cinetix/internal/storage"
	"cinetix/internal/ticketart"
)

type Services struct {
	Catalog   *CatalogService
	SeatLocks *SeatLockService
	Bookings  *BookingService
	Payments  *PaymentService
	Wallets   *WalletService
	Resale    *ResaleService
	Recommend *RecommendService
}

func NewServices(store storage.Store, gw gateway.Client, events messaging.Publisher, art *ticketart.Generator, cfg config.Booking) *Services {
	walletService := NewWalletService(store)
	catalogService := NewCatalogService(store, cfg)
	seatLockService := NewSeatLockService(store, cfg)
	bookingService := NewBookingService(store, events, art, cfg)
	paymentService := NewPaymentService(store, gw, events, bookingService, cfg)
	resaleService := NewResaleService(store, gw, events, bookingService, cfg)
	recommendService := NewRecommendService(store)

	return &Services{
		Catalog:   catalogService,
		SeatLocks: seatLockService,
		Bookings:  bookingService,
		Payments:  paymentService,
		Wallets:   walletService,
		Resale:    resaleService,
		Recommend: recommendService,
	}
}
