package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/database"
)

// PostgresStore persists the action log in the search_logs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const countSinceSQL = `SELECT COUNT(*) FROM search_logs WHERE user_id = $1 AND created_at_utc >= $2`

// CountSince is the read-only path; it sees only committed records.
func (s *PostgresStore) CountSince(ctx context.Context, userID string, sinceUTC time.Time) (int, error) {
	var count int
	err := database.QuerierFrom(ctx, s.pool).
		QueryRow(ctx, countSinceSQL, userID, sinceUTC).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting search logs: %w", err)
	}
	return count, nil
}

// InTx runs fn inside one transaction. Concurrent units of work for the
// same user are serialized with a transaction-scoped advisory lock, so a
// check-then-append in fn cannot race with another request for that user.
// The live transaction is placed in the context so the wrapped action's
// queries share the transactional view.
func (s *PostgresStore) InTx(ctx context.Context, userID string, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning unit of work: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		return fmt.Errorf("acquiring user lock: %w", err)
	}

	txCtx := database.WithTx(ctx, tx)
	if err := fn(txCtx, &pgTx{tx: tx}); err != nil {
		return mapConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapConflict(fmt.Errorf("committing unit of work: %w", err))
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) CountSince(ctx context.Context, userID string, sinceUTC time.Time) (int, error) {
	var count int
	if err := t.tx.QueryRow(ctx, countSinceSQL, userID, sinceUTC).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting search logs: %w", err)
	}
	return count, nil
}

func (t *pgTx) Append(ctx context.Context, rec *Record) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO search_logs (user_id, created_at_utc, province_id, county_id, neighbourhood_id, has_street, street_id, has_site, site_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.UserID, rec.CreatedAtUTC, rec.ProvinceID, rec.CountyID,
		rec.NeighbourhoodID, rec.HasStreet, rec.StreetID, rec.HasSite, rec.SiteID)
	if err != nil {
		return fmt.Errorf("appending search log: %w", err)
	}
	return nil
}

// mapConflict translates serialization and deadlock failures into
// ErrTxConflict so callers can distinguish them from quota exhaustion.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrTxConflict, pgErr.Message)
		}
	}
	return err
}
