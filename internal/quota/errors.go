package quota

import (
	"errors"
	"fmt"
	"time"
)

// Machine-readable codes returned to clients alongside a 429.
const (
	CodeDailyLimitExceeded   = "DAILY_LIMIT_EXCEEDED"
	CodeMonthlyLimitExceeded = "MONTHLY_LIMIT_EXCEEDED"
)

// ErrTxConflict marks a unit of work that could not commit because of a
// concurrent conflict. The gate never retries; callers may.
var ErrTxConflict = errors.New("quota: transaction conflict")

// LimitError is the expected, recoverable-by-waiting rejection. It carries
// the configured limit and the local reset time so the caller can build a
// precise message. No state is mutated when it is returned.
type LimitError struct {
	Code         string
	Limit        int
	ResetAtLocal time.Time
}

func (e *LimitError) Error() string {
	switch e.Code {
	case CodeDailyLimitExceeded:
		return fmt.Sprintf("daily limit of %d reached, resets at %s", e.Limit, e.ResetAtLocal.Format("2006-01-02 15:04"))
	case CodeMonthlyLimitExceeded:
		return fmt.Sprintf("monthly limit of %d reached, resets at %s", e.Limit, e.ResetAtLocal.Format("2006-01-02 15:04"))
	}
	return fmt.Sprintf("quota limit of %d reached", e.Limit)
}

// AsLimitError unwraps a LimitError from err, if there is one.
func AsLimitError(err error) (*LimitError, bool) {
	var le *LimitError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
