package service

import (
	"context"

	"cinetix/internal/models"
	"cinetix/internal/storage"
)

// WalletService exposes the prepaid balance. Mutations happen inside
// the payment and resale settlement units, never here.
type WalletService struct {
	store storage.Store
}

func NewWalletService(store storage.Store) *WalletService {
	return &WalletService{store: store}
}

func (s *WalletService) Get(ctx context.Context, userID int64) (*models.Wallet, error) {
	return s.store.GetWallet(ctx, userID)
}
