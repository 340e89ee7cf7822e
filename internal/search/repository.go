package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/database"
)

// Repository reads the geographic lookup tables. Query methods pick the
// context's transaction when one is present, so searches executed under
// the quota gate share its unit of work.
type Repository interface {
	Provinces(ctx context.Context) ([]Option, error)
	ProvinceExists(ctx context.Context, provinceID int) (bool, error)
	CountiesByProvince(ctx context.Context, provinceID int) ([]Option, error)
	NeighbourhoodsByCounty(ctx context.Context, countyID int) ([]Option, error)
	StreetsByNeighbourhood(ctx context.Context, neighbourhoodID int) ([]Option, error)
	SitesByNeighbourhood(ctx context.Context, neighbourhoodID int) ([]Option, error)
	StreetNameByID(ctx context.Context, streetID int) (string, bool, error)
	SiteNameByID(ctx context.Context, siteID int) (string, bool, error)
	SampleStreetNames(ctx context.Context, neighbourhoodID, limit int) ([]string, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Provinces(ctx context.Context) ([]Option, error) {
	return r.options(ctx, `SELECT id, name FROM provinces ORDER BY name`)
}

func (r *postgresRepository) ProvinceExists(ctx context.Context, provinceID int) (bool, error) {
	var exists bool
	err := database.QuerierFrom(ctx, r.pool).
		QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM provinces WHERE id = $1)`, provinceID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking province: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) CountiesByProvince(ctx context.Context, provinceID int) ([]Option, error) {
	return r.options(ctx, `SELECT id, name FROM counties WHERE province_id = $1 ORDER BY name`, provinceID)
}

func (r *postgresRepository) NeighbourhoodsByCounty(ctx context.Context, countyID int) ([]Option, error) {
	return r.options(ctx, `SELECT id, name FROM neighbourhoods WHERE county_id = $1 ORDER BY name`, countyID)
}

func (r *postgresRepository) StreetsByNeighbourhood(ctx context.Context, neighbourhoodID int) ([]Option, error) {
	return r.options(ctx, `SELECT id, name FROM streets WHERE neighbourhood_id = $1 ORDER BY name`, neighbourhoodID)
}

func (r *postgresRepository) SitesByNeighbourhood(ctx context.Context, neighbourhoodID int) ([]Option, error) {
	return r.options(ctx, `SELECT id, name FROM sites WHERE neighbourhood_id = $1 ORDER BY name`, neighbourhoodID)
}

func (r *postgresRepository) StreetNameByID(ctx context.Context, streetID int) (string, bool, error) {
	return r.nameByID(ctx, `SELECT name FROM streets WHERE id = $1`, streetID)
}

func (r *postgresRepository) SiteNameByID(ctx context.Context, siteID int) (string, bool, error) {
	return r.nameByID(ctx, `SELECT name FROM sites WHERE id = $1`, siteID)
}

func (r *postgresRepository) SampleStreetNames(ctx context.Context, neighbourhoodID, limit int) ([]string, error) {
	rows, err := database.QuerierFrom(ctx, r.pool).
		Query(ctx, `SELECT name FROM streets WHERE neighbourhood_id = $1 ORDER BY name LIMIT $2`, neighbourhoodID, limit)
	if err != nil {
		return nil, fmt.Errorf("sampling streets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning street name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *postgresRepository) options(ctx context.Context, query string, args ...any) ([]Option, error) {
	rows, err := database.QuerierFrom(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying options: %w", err)
	}
	defer rows.Close()

	var opts []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scanning option row: %w", err)
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

func (r *postgresRepository) nameByID(ctx context.Context, query string, id int) (string, bool, error) {
	var name string
	err := database.QuerierFrom(ctx, r.pool).QueryRow(ctx, query, id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("querying name by id: %w", err)
	}
	return name, true, nil
}
