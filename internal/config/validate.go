package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Quota limits must be positive; zero values were replaced by defaults
	// during Load, so anything non-positive here was set explicitly.
	if c.Quota.DailyLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_DAILY_LIMIT must be positive, got %d", c.Quota.DailyLimit))
	}
	if c.Quota.MonthlyLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_MONTHLY_LIMIT must be positive, got %d", c.Quota.MonthlyLimit))
	}
	if c.Quota.DailyLimit >= 1 && c.Quota.MonthlyLimit >= 1 && c.Quota.DailyLimit > c.Quota.MonthlyLimit {
		errs = append(errs, fmt.Sprintf("QUOTA_DAILY_LIMIT (%d) must not exceed QUOTA_MONTHLY_LIMIT (%d)", c.Quota.DailyLimit, c.Quota.MonthlyLimit))
	}

	// Offsets beyond ±14h don't exist on any real meridian.
	if c.Quota.UTCOffset < -14*time.Hour || c.Quota.UTCOffset > 14*time.Hour {
		errs = append(errs, fmt.Sprintf("QUOTA_UTC_OFFSET must be within ±14h, got %s", c.Quota.UTCOffset))
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.RateLimit.MaxRequests < 1 {
		errs = append(errs, fmt.Sprintf("RATELIMIT_MAX_REQUESTS must be positive, got %d", c.RateLimit.MaxRequests))
	}
	if c.RateLimit.WindowSec < 1 {
		errs = append(errs, fmt.Sprintf("RATELIMIT_WINDOW_SEC must be positive, got %d", c.RateLimit.WindowSec))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
