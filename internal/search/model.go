package search

import "github.com/FatihSuicmez/DevBlazorQuotaApp/internal/quota"

// Request is the search form posted by the client. Street and site IDs
// are only required when the matching flag is set, mirroring the
// conditional selects in the UI.
type Request struct {
	ProvinceID      int  `json:"province_id" validate:"required,gt=0"`
	CountyID        int  `json:"county_id" validate:"required,gt=0"`
	NeighbourhoodID *int `json:"neighbourhood_id,omitempty" validate:"omitempty,gt=0"`
	HasStreet       bool `json:"has_street"`
	StreetID        *int `json:"street_id,omitempty" validate:"required_if=HasStreet true,omitempty,gt=0"`
	HasSite         bool `json:"has_site"`
	SiteID          *int `json:"site_id,omitempty" validate:"required_if=HasSite true,omitempty,gt=0"`
}

// Payload converts the request into the record payload the quota gate
// persists with the attempt.
func (r Request) Payload() quota.Payload {
	return quota.Payload{
		ProvinceID:      r.ProvinceID,
		CountyID:        r.CountyID,
		NeighbourhoodID: r.NeighbourhoodID,
		HasStreet:       r.HasStreet,
		StreetID:        r.StreetID,
		HasSite:         r.HasSite,
		SiteID:          r.SiteID,
	}
}

// Option is one row of a lookup dropdown.
type Option struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Response pairs the search results with the post-search usage snapshot.
type Response struct {
	Items []string     `json:"items"`
	Usage *quota.Usage `json:"usage"`
}
