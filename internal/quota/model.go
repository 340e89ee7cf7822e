package quota

import "time"

// Payload carries the action-specific fields stored alongside each
// accepted attempt. The gate treats it as opaque; it only persists it.
type Payload struct {
	ProvinceID      int  `json:"province_id"`
	CountyID        int  `json:"county_id"`
	NeighbourhoodID *int `json:"neighbourhood_id,omitempty"`
	HasStreet       bool `json:"has_street"`
	StreetID        *int `json:"street_id,omitempty"`
	HasSite         bool `json:"has_site"`
	SiteID          *int `json:"site_id,omitempty"`
}

// Record is one row of the append-only action log: one accepted attempt.
// Immutable once committed; never updated or deleted by this service.
type Record struct {
	UserID       string
	CreatedAtUTC time.Time
	Payload
}

// Usage is the computed per-user snapshot for both windows. Remaining
// values are clamped at zero.
type Usage struct {
	DayUsed           int       `json:"day_used"`
	DayRemaining      int       `json:"day_remaining"`
	MonthUsed         int       `json:"month_used"`
	MonthRemaining    int       `json:"month_remaining"`
	DayResetAtLocal   time.Time `json:"day_reset_at_local"`
	MonthResetAtLocal time.Time `json:"month_reset_at_local"`
}
