package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"cinetix/internal/models"
)

// tx implements storage.Tx over a single *sql.Tx. ForUpdate reads take
// row locks that outlive the call and release at commit/rollback.
type tx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *tx) ShowForUpdate(id int64) (*models.Show, error) {
	sh := &models.Show{}
	query := `
		SELECT id, movie_id, theatre_id, start_time, price_per_seat, grid_rows, grid_cols, created_at
		FROM shows
		WHERE id = $1
		FOR UPDATE`
	err := t.tx.QueryRowContext(t.ctx, query, id).Scan(
		&sh.ID, &sh.MovieID, &sh.TheatreID, &sh.StartTime,
		&sh.PricePerSeat, &sh.Rows, &sh.Cols, &sh.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sh, err
}

func (t *tx) SeatsForUpdate(showID int64, codes []string) ([]models.Seat, error) {
	// Ordered by id so concurrent transactions lock seat rows in the
	// same order and cannot deadlock each other.
	query := `
		SELECT id, show_id, seat_code, is_booked, locked_by, locked_at
		FROM seats
		WHERE show_id = $1 AND seat_code = ANY($2)
		ORDER BY id
		FOR UPDATE`
	rows, err := t.tx.QueryContext(t.ctx, query, showID, pq.Array(codes))
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

func (t *tx) PurgeExpiredLocks(showID int64, before time.Time) error {
	query := `
		UPDATE seats
		SET locked_by = NULL, locked_at = NULL
		WHERE show_id = $1 AND NOT is_booked AND locked_at < $2`
	_, err := t.tx.ExecContext(t.ctx, query, showID, before)
	return err
}

func (t *tx) LockSeats(seatIDs []int64, userID int64, at time.Time) error {
	query := `
		UPDATE seats
		SET locked_by = $1, locked_at = $2
		WHERE id = ANY($3)`
	_, err := t.tx.ExecContext(t.ctx, query, userID, at, pq.Array(seatIDs))
	return err
}

func (t *tx) UnlockSeats(seatIDs []int64) error {
	query := `
		UPDATE seats
		SET locked_by = NULL, locked_at = NULL
		WHERE id = ANY($1)`
	_, err := t.tx.ExecContext(t.ctx, query, pq.Array(seatIDs))
	return err
}

func (t *tx) BookSeats(seatIDs []int64) error {
	query := `
		UPDATE seats
		SET is_booked = TRUE, locked_by = NULL, locked_at = NULL
		WHERE id = ANY($1)`
	_, err := t.tx.ExecContext(t.ctx, query, pq.Array(seatIDs))
	return err
}

func (t *tx) CreateTicket(ticket *models.Ticket, seatIDs []int64) (int64, error) {
	query := `
		INSERT INTO tickets (user_id, show_id, total_price, status, booked_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	err := t.tx.QueryRowContext(t.ctx, query,
		ticket.UserID, ticket.ShowID, ticket.TotalPrice, ticket.Status, ticket.BookedAt).Scan(&id)
	if err != nil {
		return 0, err
	}

	seatQuery := `
		INSERT INTO ticket_seats (ticket_id, seat_id)
		SELECT $1, unnest($2::bigint[])`
	if _, err := t.tx.ExecContext(t.ctx, seatQuery, id, pq.Array(seatIDs)); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *tx) TicketForUpdate(id int64) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `
		SELECT id, user_id, show_id, total_price, status, rating, rated_at, is_transferred, artifact, booked_at
		FROM tickets
		WHERE id = $1
		FOR UPDATE`
	err := t.tx.QueryRowContext(t.ctx, query, id).Scan(
		&ticket.ID, &ticket.UserID, &ticket.ShowID, &ticket.TotalPrice, &ticket.Status,
		&ticket.Rating, &ticket.RatedAt, &ticket.Transferred, &ticket.Artifact, &ticket.BookedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ticket, err
}

func (t *tx) TicketSeatIDs(ticketID int64) ([]int64, error) {
	query := `SELECT seat_id FROM ticket_seats WHERE ticket_id = $1 ORDER BY seat_id`
	rows, err := t.tx.QueryContext(t.ctx, query, ticketID)
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

func (t *tx) UpdateTicketStatus(id int64, status models.TicketStatus) error {
	query := `UPDATE tickets SET status = $1 WHERE id = $2`
	_, err := t.tx.ExecContext(t.ctx, query, status, id)
	return err
}

func (t *tx) DeleteTicket(id int64) error {
	query := `DELETE FROM tickets WHERE id = $1`
	_, err := t.tx.ExecContext(t.ctx, query, id)
	return err
}

func (t *tx) TransferTicket(id int64, newOwner int64) error {
	query := `UPDATE tickets SET user_id = $1, is_transferred = TRUE, artifact = NULL WHERE id = $2`
	_, err := t.tx.ExecContext(t.ctx, query, newOwner, id)
	return err
}

func (t *tx) SetTicketRating(id int64, rating int, at time.Time) error {
	query := `UPDATE tickets SET rating = $1, rated_at = $2 WHERE id = $3`
	_, err := t.tx.ExecContext(t.ctx, query, rating, at, id)
	return err
}

func (t *tx) UpsertOrder(o *models.PaymentOrder) (int64, error) {
	query := `
		INSERT INTO payment_orders (kind, entity_id, user_id, order_ref, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (kind, entity_id) WHERE kind IN ('TICKET', 'RESALE')
		DO UPDATE SET order_ref = EXCLUDED.order_ref,
			payment_ref = NULL, signature = NULL,
			amount = EXCLUDED.amount, status = EXCLUDED.status,
			created_at = NOW()
		RETURNING id`
	var id int64
	err := t.tx.QueryRowContext(t.ctx, query,
		o.Kind, o.EntityID, o.UserID, o.OrderRef, o.Amount, o.Status).Scan(&id)
	return id, err
}

func (t *tx) CreateOrder(o *models.PaymentOrder) (int64, error) {
	query := `
		INSERT INTO payment_orders (kind, entity_id, user_id, order_ref, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	var id int64
	err := t.tx.QueryRowContext(t.ctx, query,
		o.Kind, o.EntityID, o.UserID, o.OrderRef, o.Amount, o.Status).Scan(&id)
	return id, err
}

func (t *tx) OrderForUpdate(kind models.OrderKind, entityID int64) (*models.PaymentOrder, error) {
	o := &models.PaymentOrder{}
	query := `
		SELECT id, kind, entity_id, user_id, order_ref, payment_ref, signature, amount, status, created_at
		FROM payment_orders
		WHERE kind = $1 AND entity_id = $2
		FOR UPDATE`
	err := t.tx.QueryRowContext(t.ctx, query, kind, entityID).Scan(
		&o.ID, &o.Kind, &o.EntityID, &o.UserID, &o.OrderRef, &o.PaymentRef,
		&o.Signature, &o.Amount, &o.Status, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

func (t *tx) OrderByIDForUpdate(id int64) (*models.PaymentOrder, error) {
	o := &models.PaymentOrder{}
	query := `
		SELECT id, kind, entity_id, user_id, order_ref, payment_ref, signature, amount, status, created_at
		FROM payment_orders
		WHERE id = $1
		FOR UPDATE`
	err := t.tx.QueryRowContext(t.ctx, query, id).Scan(
		&o.ID, &o.Kind, &o.EntityID, &o.UserID, &o.OrderRef, &o.PaymentRef,
		&o.Signature, &o.Amount, &o.Status, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

func (t *tx) MarkOrderPaid(id int64, paymentRef, signature string) error {
	query := `UPDATE payment_orders SET status = $1, payment_ref = $2, signature = $3 WHERE id = $4`
	_, err := t.tx.ExecContext(t.ctx, query, models.OrderPaid, paymentRef, signature, id)
	return err
}

func (t *tx) MarkOrderFailed(id int64) error {
	query := `UPDATE payment_orders SET status = $1 WHERE id = $2`
	_, err := t.tx.ExecContext(t.ctx, query, models.OrderFailed, id)
	return err
}

func (t *tx) WalletForUpdate(userID int64) (*models.Wallet, error) {
	insert := `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := t.tx.ExecContext(t.ctx, insert, userID); err != nil {
		return nil, err
	}

	w := &models.Wallet{UserID: userID}
	query := `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`
	err := t.tx.QueryRowContext(t.ctx, query, userID).Scan(&w.Balance)
	return w, err
}

func (t *tx) SetWalletBalance(userID int64, balance int64) error {
	query := `UPDATE wallets SET balance = $1 WHERE user_id = $2`
	_, err := t.tx.ExecContext(t.ctx, query, balance, userID)
	return err
}

func (t *tx) CreateListing(l *models.ResaleListing) (int64, error) {
	query := `
		INSERT INTO resale_listings (ticket_id, seller_id, price, listed_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	var id int64
	err := t.tx.QueryRowContext(t.ctx, query, l.TicketID, l.SellerID, l.Price, l.ListedAt).Scan(&id)
	return id, err
}

func (t *tx) ListingForUpdate(id int64) (*models.ResaleListing, error) {
	l := &models.ResaleListing{}
	query := `
		SELECT id, ticket_id, seller_id, buyer_id, price, is_sold, listed_at
		FROM resale_listings
		WHERE id = $1
		FOR UPDATE`
	err := t.tx.QueryRowContext(t.ctx, query, id).Scan(
		&l.ID, &l.TicketID, &l.SellerID, &l.BuyerID, &l.Price, &l.Sold, &l.ListedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (t *tx) ListingByTicket(ticketID int64) (*models.ResaleListing, error) {
	l := &models.ResaleListing{}
	query := `
		SELECT id, ticket_id, seller_id, buyer_id, price, is_sold, listed_at
		FROM resale_listings
		WHERE ticket_id = $1
		FOR UPDATE`
	err := t.tx.QueryRowContext(t.ctx, query, ticketID).Scan(
		&l.ID, &l.TicketID, &l.SellerID, &l.BuyerID, &l.Price, &l.Sold, &l.ListedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (t *tx) MarkListingSold(id int64, buyerID int64) error {
	query := `UPDATE resale_listings SET is_sold = TRUE, buyer_id = $1 WHERE id = $2`
	_, err := t.tx.ExecContext(t.ctx, query, buyerID, id)
	return err
}

func (t *tx) DeleteListing(id int64) error {
	query := `DELETE FROM resale_listings WHERE id = $1`
	_, err := t.tx.ExecContext(t.ctx, query, id)
	return err
}
