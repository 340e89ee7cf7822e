package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the idempotent DDL for the search log and the geographic
// lookup tables. The search_logs table is append-only: rows are never
// updated or deleted by the application, and the composite index makes the
// window-bounded count a range scan.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS provinces (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS counties (
		id          SERIAL PRIMARY KEY,
		province_id INT NOT NULL REFERENCES provinces(id),
		name        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS neighbourhoods (
		id        SERIAL PRIMARY KEY,
		county_id INT NOT NULL REFERENCES counties(id),
		name      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS streets (
		id               SERIAL PRIMARY KEY,
		neighbourhood_id INT NOT NULL REFERENCES neighbourhoods(id),
		name             TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sites (
		id               SERIAL PRIMARY KEY,
		neighbourhood_id INT NOT NULL REFERENCES neighbourhoods(id),
		name             TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS search_logs (
		id               BIGSERIAL PRIMARY KEY,
		user_id          TEXT NOT NULL,
		created_at_utc   TIMESTAMPTZ NOT NULL,
		province_id      INT NOT NULL,
		county_id        INT NOT NULL,
		neighbourhood_id INT,
		has_street       BOOLEAN NOT NULL DEFAULT FALSE,
		street_id        INT,
		has_site         BOOLEAN NOT NULL DEFAULT FALSE,
		site_id          INT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_logs_user_created
		ON search_logs (user_id, created_at_utc)`,
	`CREATE INDEX IF NOT EXISTS idx_counties_province ON counties (province_id)`,
	`CREATE INDEX IF NOT EXISTS idx_neighbourhoods_county ON neighbourhoods (county_id)`,
	`CREATE INDEX IF NOT EXISTS idx_streets_neighbourhood ON streets (neighbourhood_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sites_neighbourhood ON sites (neighbourhood_id)`,
}

// EnsureSchema creates the tables and indexes if they don't exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement: %w", err)
		}
	}
	slog.Info("database schema ensured")
	return nil
}
