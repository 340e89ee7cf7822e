package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/config"
)

// Action is the operation protected by the gate. It runs inside the unit
// of work; its context carries the live transaction when the store is
// Postgres-backed. If it returns an error the whole unit of work rolls
// back and the attempt is not charged against quota. Results are captured
// by the caller's closure, which keeps the gate agnostic to what the
// action produces.
type Action func(ctx context.Context) error

type counter interface {
	CountSince(ctx context.Context, userID string, sinceUTC time.Time) (int, error)
}

// Service is the quota gate: the single entry point through which usage
// is read and quota-charged actions are executed.
type Service struct {
	store Store
	cfg   config.QuotaConfig
	now   func() time.Time
}

// NewService creates a new quota Service. cfg is read-only after startup.
func NewService(store Store, cfg config.QuotaConfig) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Limits returns the configured daily and monthly limits.
func (s *Service) Limits() (daily, monthly int) {
	return s.cfg.DailyLimit, s.cfg.MonthlyLimit
}

// Usage returns the current snapshot for both windows. Read-only: safe to
// call arbitrarily often, reflects all committed records.
func (s *Service) Usage(ctx context.Context, userID string) (*Usage, error) {
	return s.snapshot(ctx, s.store, userID, s.now().UTC())
}

// Consume executes one quota-charged attempt as a single unit of work:
// it checks the daily then the monthly count against the transactional
// view, appends the log record, and runs the action inside the same unit
// of work. Any failure — exhausted quota, store error, or the action
// itself — rolls everything back, so a record exists iff the action ran
// and the unit of work committed. A request exactly at the limit
// (used == limit) is rejected. Returns the post-commit snapshot.
func (s *Service) Consume(ctx context.Context, userID string, payload Payload, action Action) (*Usage, error) {
	err := s.store.InTx(ctx, userID, func(ctx context.Context, tx Tx) error {
		nowUTC := s.now().UTC()
		w := Windows(nowUTC, s.cfg.UTCOffset)

		dayUsed, err := tx.CountSince(ctx, userID, w.Day.StartUTC)
		if err != nil {
			return err
		}
		if dayUsed >= s.cfg.DailyLimit {
			return &LimitError{
				Code:         CodeDailyLimitExceeded,
				Limit:        s.cfg.DailyLimit,
				ResetAtLocal: w.Day.ResetLocal,
			}
		}

		monthUsed, err := tx.CountSince(ctx, userID, w.Month.StartUTC)
		if err != nil {
			return err
		}
		if monthUsed >= s.cfg.MonthlyLimit {
			return &LimitError{
				Code:         CodeMonthlyLimitExceeded,
				Limit:        s.cfg.MonthlyLimit,
				ResetAtLocal: w.Month.ResetLocal,
			}
		}

		rec := Record{
			UserID:       userID,
			CreatedAtUTC: nowUTC,
			Payload:      payload,
		}
		if err := tx.Append(ctx, &rec); err != nil {
			return err
		}

		if err := action(ctx); err != nil {
			return fmt.Errorf("gated action: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.snapshot(ctx, s.store, userID, s.now().UTC())
}

// snapshot computes usage for both windows. Each window counts the full
// log with its own lower bound; the day count is not derived from the
// month count.
func (s *Service) snapshot(ctx context.Context, c counter, userID string, nowUTC time.Time) (*Usage, error) {
	w := Windows(nowUTC, s.cfg.UTCOffset)

	dayUsed, err := c.CountSince(ctx, userID, w.Day.StartUTC)
	if err != nil {
		return nil, fmt.Errorf("counting daily usage: %w", err)
	}
	monthUsed, err := c.CountSince(ctx, userID, w.Month.StartUTC)
	if err != nil {
		return nil, fmt.Errorf("counting monthly usage: %w", err)
	}

	return &Usage{
		DayUsed:           dayUsed,
		DayRemaining:      max(0, s.cfg.DailyLimit-dayUsed),
		MonthUsed:         monthUsed,
		MonthRemaining:    max(0, s.cfg.MonthlyLimit-monthUsed),
		DayResetAtLocal:   w.Day.ResetLocal,
		MonthResetAtLocal: w.Month.ResetLocal,
	}, nil
}
