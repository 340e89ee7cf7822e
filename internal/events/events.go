package events

import "time"

// Stream and subject names.
const (
	StreamEvents = "QUOTAAPP_EVENTS"

	SubjectSearchPerformed = "quotaapp.events.search.performed"
	SubjectQuotaExceeded   = "quotaapp.events.quota.exceeded"
)

// SearchPerformed is published after a gated search commits.
type SearchPerformed struct {
	UserID          string    `json:"user_id"`
	ProvinceID      int       `json:"province_id"`
	CountyID        int       `json:"county_id"`
	NeighbourhoodID *int      `json:"neighbourhood_id,omitempty"`
	ResultCount     int       `json:"result_count"`
	DayRemaining    int       `json:"day_remaining"`
	MonthRemaining  int       `json:"month_remaining"`
	Timestamp       time.Time `json:"timestamp"`
}

// QuotaExceeded is published when the gate rejects an attempt.
type QuotaExceeded struct {
	UserID       string    `json:"user_id"`
	Code         string    `json:"code"`
	Limit        int       `json:"limit"`
	ResetAtLocal time.Time `json:"reset_at_local"`
	Timestamp    time.Time `json:"timestamp"`
}
