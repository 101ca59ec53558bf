package memory

import (
	"sort"
	"time"

	"cinetix/internal/models"
)

// tx mutates the live state under the store mutex; RunInTx restores the
// pre-transaction snapshot when the callback errors.
type tx struct {
	s *Store
}

func (t *tx) ShowForUpdate(id int64) (*models.Show, error) {
	sh, ok := t.s.st.shows[id]
	if !ok {
		return nil, nil
	}
	c := *sh
	return &c, nil
}

func (t *tx) SeatsForUpdate(showID int64, codes []string) ([]models.Seat, error) {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []models.Seat
	for _, seat := range t.s.st.seats {
		if seat.ShowID == showID && want[seat.Code] {
			out = append(out, *seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) PurgeExpiredLocks(showID int64, before time.Time) error {
	for _, seat := range t.s.st.seats {
		if seat.ShowID == showID && !seat.Booked && seat.LockedAt != nil && seat.LockedAt.Before(before) {
			seat.LockedBy = nil
			seat.LockedAt = nil
		}
	}
	return nil
}

func (t *tx) LockSeats(seatIDs []int64, userID int64, at time.Time) error {
	for _, id := range seatIDs {
		if seat, ok := t.s.st.seats[id]; ok {
			uid, ts := userID, at
			seat.LockedBy = &uid
			seat.LockedAt = &ts
		}
	}
	return nil
}

func (t *tx) UnlockSeats(seatIDs []int64) error {
	for _, id := range seatIDs {
		if seat, ok := t.s.st.seats[id]; ok {
			seat.LockedBy = nil
			seat.LockedAt = nil
		}
	}
	return nil
}

func (t *tx) BookSeats(seatIDs []int64) error {
	for _, id := range seatIDs {
		if seat, ok := t.s.st.seats[id]; ok {
			seat.Booked = true
			seat.LockedBy = nil
			seat.LockedAt = nil
		}
	}
	return nil
}

func (t *tx) CreateTicket(ticket *models.Ticket, seatIDs []int64) (int64, error) {
	c := *ticket
	c.ID = t.s.nextIDLocked()
	t.s.st.tickets[c.ID] = &c
	t.s.st.ticketSeats[c.ID] = append([]int64(nil), seatIDs...)
	return c.ID, nil
}

func (t *tx) TicketForUpdate(id int64) (*models.Ticket, error) {
	tk, ok := t.s.st.tickets[id]
	if !ok {
		return nil, nil
	}
	c := *tk
	return &c, nil
}

func (t *tx) TicketSeatIDs(ticketID int64) ([]int64, error) {
	ids := append([]int64(nil), t.s.st.ticketSeats[ticketID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *tx) UpdateTicketStatus(id int64, status models.TicketStatus) error {
	if tk, ok := t.s.st.tickets[id]; ok {
		tk.Status = status
	}
	return nil
}

func (t *tx) DeleteTicket(id int64) error {
	delete(t.s.st.tickets, id)
	delete(t.s.st.ticketSeats, id)
	return nil
}

func (t *tx) TransferTicket(id int64, newOwner int64) error {
	if tk, ok := t.s.st.tickets[id]; ok {
		tk.UserID = newOwner
		tk.Transferred = true
		tk.Artifact = nil
	}
	return nil
}

func (t *tx) SetTicketRating(id int64, rating int, at time.Time) error {
	if tk, ok := t.s.st.tickets[id]; ok {
		r, ts := rating, at
		tk.Rating = &r
		tk.RatedAt = &ts
	}
	return nil
}

func (t *tx) UpsertOrder(o *models.PaymentOrder) (int64, error) {
	if o.Kind != models.OrderKindTopUp {
		for id, existing := range t.s.st.orders {
			if existing.Kind == o.Kind && existing.EntityID == o.EntityID {
				delete(t.s.st.orders, id)
			}
		}
	}
	return t.CreateOrder(o)
}

func (t *tx) CreateOrder(o *models.PaymentOrder) (int64, error) {
	c := *o
	c.ID = t.s.nextIDLocked()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	t.s.st.orders[c.ID] = &c
	return c.ID, nil
}

func (t *tx) OrderForUpdate(kind models.OrderKind, entityID int64) (*models.PaymentOrder, error) {
	for _, o := range t.s.st.orders {
		if o.Kind == kind && o.EntityID == entityID {
			c := *o
			return &c, nil
		}
	}
	return nil, nil
}

func (t *tx) OrderByIDForUpdate(id int64) (*models.PaymentOrder, error) {
	o, ok := t.s.st.orders[id]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

func (t *tx) MarkOrderPaid(id int64, paymentRef, signature string) error {
	if o, ok := t.s.st.orders[id]; ok {
		pr, sig := paymentRef, signature
		o.Status = models.OrderPaid
		o.PaymentRef = &pr
		o.Signature = &sig
	}
	return nil
}

func (t *tx) MarkOrderFailed(id int64) error {
	if o, ok := t.s.st.orders[id]; ok {
		o.Status = models.OrderFailed
	}
	return nil
}

func (t *tx) WalletForUpdate(userID int64) (*models.Wallet, error) {
	w, ok := t.s.st.wallets[userID]
	if !ok {
		w = &models.Wallet{UserID: userID}
		t.s.st.wallets[userID] = w
	}
	c := *w
	return &c, nil
}

func (t *tx) SetWalletBalance(userID int64, balance int64) error {
	if w, ok := t.s.st.wallets[userID]; ok {
		w.Balance = balance
	} else {
		t.s.st.wallets[userID] = &models.Wallet{UserID: userID, Balance: balance}
	}
	return nil
}

func (t *tx) CreateListing(l *models.ResaleListing) (int64, error) {
	c := *l
	c.ID = t.s.nextIDLocked()
	if c.ListedAt.IsZero() {
		c.ListedAt = time.Now()
	}
	t.s.st.listings[c.ID] = &c
	return c.ID, nil
}

func (t *tx) ListingForUpdate(id int64) (*models.ResaleListing, error) {
	l, ok := t.s.st.listings[id]
	if !ok {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (t *tx) ListingByTicket(ticketID int64) (*models.ResaleListing, error) {
	for _, l := range t.s.st.listings {
		if l.TicketID == ticketID {
			c := *l
			return &c, nil
		}
	}
	return nil, nil
}

func (t *tx) MarkListingSold(id int64, buyerID int64) error {
	if l, ok := t.s.st.listings[id]; ok {
		b := buyerID
		l.Sold = true
		l.BuyerID = &b
	}
	return nil
}

func (t *tx) DeleteListing(id int64) error {
	delete(t.s.st.listings, id)
	return nil
}
