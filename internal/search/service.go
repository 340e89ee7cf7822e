package search

import (
	"context"
	"fmt"
)

const sampleStreetLimit = 3

// Service runs the geographic search. From the quota gate's point of
// view this is the wrapped action: it has no quota knowledge of its own.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Run resolves the most specific selector the request carries: an exact
// street, an exact site, or a street sample for the neighbourhood. With
// none of those it asks the user to narrow the search. Always returns at
// least one line.
func (s *Service) Run(ctx context.Context, req Request) ([]string, error) {
	var items []string

	switch {
	case req.HasStreet && req.StreetID != nil && *req.StreetID > 0:
		name, found, err := s.repo.StreetNameByID(ctx, *req.StreetID)
		if err != nil {
			return nil, err
		}
		if found {
			items = append(items, fmt.Sprintf("[Street result] %s", name))
		}

	case req.HasSite && req.SiteID != nil && *req.SiteID > 0:
		name, found, err := s.repo.SiteNameByID(ctx, *req.SiteID)
		if err != nil {
			return nil, err
		}
		if found {
			items = append(items, fmt.Sprintf("[Site result] %s", name))
		}

	case req.NeighbourhoodID != nil && *req.NeighbourhoodID > 0:
		names, err := s.repo.SampleStreetNames(ctx, *req.NeighbourhoodID, sampleStreetLimit)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			items = append(items, fmt.Sprintf("[Sample street] %s", name))
		}

	default:
		return []string{"Please refine your search (e.g. select a neighbourhood)."}, nil
	}

	if len(items) == 0 {
		items = append(items, "No results matched your search.")
	}
	return items, nil
}
