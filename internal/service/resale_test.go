package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinetix/internal/apperrors"
	"cinetix/internal/models"
	"cinetix/internal/storage"
)

// plantListing inserts a listing directly, bypassing the window check,
// so tests can stage a listing whose window has already lapsed.
func (e *env) plantListing(t *testing.T, ticketID, sellerID, price int64) int64 {
	t.Helper()
	var id int64
	err := e.store.RunInTx(context.Background(), func(tx storage.Tx) error {
		lid, err := tx.CreateListing(&models.ResaleListing{
			TicketID: ticketID,
			SellerID: sellerID,
			Price:    price,
			ListedAt: time.Now(),
		})
		id = lid
		return err
	})
	require.NoError(t, err)
	return id
}

func TestListForResale(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1", "A2"})

	listing, err := e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.TotalPrice, listing.Price)
	assert.Equal(t, int64(1), listing.SellerID)
	assert.False(t, listing.Sold)
}

func TestListForResale_WindowClosed(t *testing.T) {
	e := newEnv(t)
	showID := e.newShow(t, time.Now().Add(2*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	_, err := e.services.Resale.ListForResale(context.Background(), 1, ticket.ID)
	requireCode(t, err, apperrors.CodeResaleWindowClosed)
}

func TestListForResale_PendingTicket(t *testing.T) {
	e := newEnv(t)
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.lockAndReserve(t, 1, showID, []string{"A1"})

	_, err := e.services.Resale.ListForResale(context.Background(), 1, ticket.ID)
	requireCode(t, err, apperrors.CodeInvalidRequest)
}

func TestListForResale_AlreadyListed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	_, err := e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	require.NoError(t, err)
	_, err = e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	requireCode(t, err, apperrors.CodeAlreadyListed)
}

func TestCancelListing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	listing, err := e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	require.NoError(t, err)

	require.NoError(t, e.services.Resale.CancelListing(ctx, 1, listing.ID))

	open, err := e.services.Resale.Market(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	// And the ticket can be listed again.
	_, err = e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	require.NoError(t, err)
}

func TestCancelListing_NotSeller(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	listing, err := e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	require.NoError(t, err)

	err = e.services.Resale.CancelListing(ctx, 2, listing.ID)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestMarket_PurgesLapsedListings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	openShow := e.newShow(t, time.Now().Add(24*time.Hour))
	openTicket := e.bookedTicket(t, 1, openShow, []string{"A1"})
	_, err := e.services.Resale.ListForResale(ctx, 1, openTicket.ID)
	require.NoError(t, err)

	lapsedShow := e.newShow(t, time.Now().Add(time.Hour))
	lapsedTicket := e.bookedTicket(t, 1, lapsedShow, []string{"A1"})
	lapsedID := e.plantListing(t, lapsedTicket.ID, 1, lapsedTicket.TotalPrice)

	open, err := e.services.Resale.Market(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, openTicket.ID, open[0].TicketID)

	gone, err := e.store.GetListing(ctx, lapsedID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCreateBuyOrder_OwnListing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	listing, err := e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	require.NoError(t, err)

	_, err = e.services.Resale.CreateBuyOrder(ctx, 1, listing.ID)
	requireCode(t, err, apperrors.CodeCannotBuyOwn)
}

func TestCreateBuyOrder_LapsedListingDeleted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})
	listingID := e.plantListing(t, ticket.ID, 1, ticket.TotalPrice)

	_, err := e.services.Resale.CreateBuyOrder(ctx, 2, listingID)
	requireCode(t, err, apperrors.CodeResaleWindowClosed)

	// The deletion survived the failed request.
	gone, err := e.store.GetListing(ctx, listingID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestVerifyBuyPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1", "A2"})

	listing, err := e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	require.NoError(t, err)

	order, err := e.services.Resale.CreateBuyOrder(ctx, 2, listing.ID)
	require.NoError(t, err)

	req := &models.VerifyResaleRequest{
		ListingID:  listing.ID,
		OrderRef:   order.OrderRef,
		PaymentRef: "pay_1",
		Signature:  sign(order.OrderRef, "pay_1"),
	}
	settled, err := e.services.Resale.VerifyBuyPayment(ctx, 2, req)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, settled.Status)

	// Compound effect: new owner, transferred flag, listing sold,
	// seller credited at the listing price.
	moved, err := e.store.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved.UserID)
	assert.True(t, moved.Transferred)

	soldListing, err := e.store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, soldListing.Sold)
	require.NotNil(t, soldListing.BuyerID)
	assert.Equal(t, int64(2), *soldListing.BuyerID)

	sellerWallet, err := e.services.Wallets.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, listing.Price, sellerWallet.Balance)

	assert.Contains(t, e.events.subjects, models.EventResaleSold)

	// Replay returns the PAID order without crediting again.
	_, err = e.services.Resale.VerifyBuyPayment(ctx, 2, req)
	require.NoError(t, err)
	sellerWallet, err = e.services.Wallets.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, listing.Price, sellerWallet.Balance)
}

func TestResale_SingleTransferOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	listing, err := e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	require.NoError(t, err)
	order, err := e.services.Resale.CreateBuyOrder(ctx, 2, listing.ID)
	require.NoError(t, err)
	_, err = e.services.Resale.VerifyBuyPayment(ctx, 2, &models.VerifyResaleRequest{
		ListingID:  listing.ID,
		OrderRef:   order.OrderRef,
		PaymentRef: "pay_1",
		Signature:  sign(order.OrderRef, "pay_1"),
	})
	require.NoError(t, err)

	// The new owner cannot relist: a ticket changes hands once.
	_, err = e.services.Resale.ListForResale(ctx, 2, ticket.ID)
	requireCode(t, err, apperrors.CodeAlreadyTransferred)
}

func TestVerifyBuyPayment_BadSignature(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	showID := e.newShow(t, time.Now().Add(24*time.Hour))
	ticket := e.bookedTicket(t, 1, showID, []string{"A1"})

	listing, err := e.services.Resale.ListForResale(ctx, 1, ticket.ID)
	require.NoError(t, err)
	order, err := e.services.Resale.CreateBuyOrder(ctx, 2, listing.ID)
	require.NoError(t, err)

	_, err = e.services.Resale.VerifyBuyPayment(ctx, 2, &models.VerifyResaleRequest{
		ListingID:  listing.ID,
		OrderRef:   order.OrderRef,
		PaymentRef: "pay_1",
		Signature:  "forged",
	})
	requireCode(t, err, apperrors.CodeSignatureInvalid)

	// Nothing moved: owner, listing and wallets are untouched.
	unmoved, err := e.store.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unmoved.UserID)
	assert.False(t, unmoved.Transferred)

	still, err := e.store.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.False(t, still.Sold)

	sellerWallet, err := e.services.Wallets.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sellerWallet.Balance)
}
