package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS buyers (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	location           TEXT NOT NULL,
	phone              TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	interested_crops   JSONB NOT NULL DEFAULT '[]',
	offer_price        JSONB NOT NULL DEFAULT '{}',
	latitude           DOUBLE PRECISION,
	longitude          DOUBLE PRECISION,
	additional_info    TEXT NOT NULL DEFAULT '',
	profile_image      TEXT NOT NULL DEFAULT '',
	buying_preferences JSONB NOT NULL DEFAULT '{}',
	status             TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS buyers_status_idx ON buyers (status);

CREATE TABLE IF NOT EXISTS fields (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	soil_type  TEXT NOT NULL DEFAULT '',
	crop       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS fields_user_idx ON fields (user_id);

CREATE TABLE IF NOT EXISTS transactions (
	id               TEXT PRIMARY KEY,
	farmer_id        TEXT NOT NULL,
	buyer_id         TEXT NOT NULL,
	field_id         TEXT NOT NULL DEFAULT '',
	crop_type        TEXT NOT NULL,
	quantity         DOUBLE PRECISION NOT NULL,
	unit_of_measure  TEXT NOT NULL,
	price_per_unit   DOUBLE PRECISION NOT NULL,
	total_amount     DOUBLE PRECISION NOT NULL,
	transaction_date TIMESTAMPTZ NOT NULL,
	delivery_date    TIMESTAMPTZ,
	status           TEXT NOT NULL,
	payment_status   TEXT NOT NULL,
	payment_method   TEXT NOT NULL,
	notes            TEXT NOT NULL DEFAULT '',
	quality_rating   INTEGER,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_farmer_date_idx ON transactions (farmer_id, transaction_date DESC);
CREATE INDEX IF NOT EXISTS transactions_status_updated_idx ON transactions (status, updated_at);

CREATE TABLE IF NOT EXISTS daily_reports (
	date                 DATE PRIMARY KEY,
	transactions_created INTEGER NOT NULL,
	status_counts        JSONB NOT NULL,
	created_volume       DOUBLE PRECISION NOT NULL,
	created_value        DOUBLE PRECISION NOT NULL,
	completed_revenue    DOUBLE PRECISION NOT NULL,
	cancelled            INTEGER NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the tables when they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
