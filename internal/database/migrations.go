package database

import (
	"fmt"
	"log/slog"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		language VARCHAR(64) NOT NULL,
		genre VARCHAR(64) NOT NULL,
		duration_mins INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS theatres (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		city VARCHAR(128) NOT NULL,
		location VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS shows (
		id BIGSERIAL PRIMARY KEY,
		movie_id BIGINT NOT NULL REFERENCES movies(id),
		theatre_id BIGINT NOT NULL REFERENCES theatres(id),
		start_time TIMESTAMPTZ NOT NULL,
		price_per_seat BIGINT NOT NULL,
		grid_rows INT NOT NULL,
		grid_cols INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (theatre_id, start_time)
	)`,

	`CREATE TABLE IF NOT EXISTS seats (
		id BIGSERIAL PRIMARY KEY,
		show_id BIGINT NOT NULL REFERENCES shows(id),
		seat_code VARCHAR(8) NOT NULL,
		is_booked BOOLEAN NOT NULL DEFAULT FALSE,
		locked_by BIGINT,
		locked_at TIMESTAMPTZ,
		UNIQUE (show_id, seat_code)
	)`,

	`CREATE TABLE IF NOT EXISTS tickets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		show_id BIGINT NOT NULL REFERENCES shows(id),
		total_price BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL,
		rating INT,
		rated_at TIMESTAMPTZ,
		is_transferred BOOLEAN NOT NULL DEFAULT FALSE,
		artifact BYTEA,
		booked_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS ticket_seats (
		ticket_id BIGINT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		seat_id BIGINT NOT NULL REFERENCES seats(id),
		PRIMARY KEY (ticket_id, seat_id)
	)`,

	`CREATE TABLE IF NOT EXISTS payment_orders (
		id BIGSERIAL PRIMARY KEY,
		kind VARCHAR(16) NOT NULL,
		entity_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		order_ref VARCHAR(128) NOT NULL,
		payment_ref VARCHAR(128),
		signature VARCHAR(256),
		amount BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS payment_orders_entity_uniq
		ON payment_orders (kind, entity_id)
		WHERE kind IN ('TICKET', 'RESALE')`,

	`CREATE TABLE IF NOT EXISTS wallets (
		user_id BIGINT PRIMARY KEY,
		balance BIGINT NOT NULL DEFAULT 0,
		CHECK (balance >= 0)
	)`,

	`CREATE TABLE IF NOT EXISTS resale_listings (
		id BIGSERIAL PRIMARY KEY,
		ticket_id BIGINT NOT NULL REFERENCES tickets(id),
		seller_id BIGINT NOT NULL,
		buyer_id BIGINT,
		price BIGINT NOT NULL,
		is_sold BOOLEAN NOT NULL DEFAULT FALSE,
		listed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (ticket_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_seats_show ON seats (show_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_shows_movie ON shows (movie_id)`,
	`CREATE INDEX IF NOT EXISTS idx_resale_open ON resale_listings (is_sold) WHERE NOT is_sold`,
}

// Migrate applies the schema. Statements are idempotent so the call is
// safe on every startup.
func (db *DB) Migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	slog.Info("Database migrations applied", "count", len(migrations))
	return nil
}
