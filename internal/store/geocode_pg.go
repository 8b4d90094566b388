package store

import (
	"context"
	"errors"
	"time"

	"heekkr/internal/geocode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GeocodePG is the Postgres-backed geocode.Cache.
type GeocodePG struct {
	db *pgxpool.Pool
}

func NewGeocodePG(db *pgxpool.Pool) *GeocodePG {
	return &GeocodePG{db: db}
}

func (r *GeocodePG) Get(ctx context.Context, keyword string) (geocode.Entry, bool, error) {
	query := `
	SELECT latitude, longitude, fetched_at
	FROM geocode_cache
	WHERE keyword = $1
	`
	var e geocode.Entry
	err := r.db.QueryRow(ctx, query, keyword).Scan(&e.Coordinate.Latitude, &e.Coordinate.Longitude, &e.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return geocode.Entry{}, false, nil
	}
	if err != nil {
		return geocode.Entry{}, false, err
	}
	return e, true, nil
}

func (r *GeocodePG) Put(ctx context.Context, keyword string, entry geocode.Entry) error {
	query := `
	INSERT INTO geocode_cache (keyword, latitude, longitude, fetched_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (keyword) DO UPDATE
	SET latitude = EXCLUDED.latitude,
	    longitude = EXCLUDED.longitude,
	    fetched_at = EXCLUDED.fetched_at
	`
	_, err := r.db.Exec(ctx, query, keyword, entry.Coordinate.Latitude, entry.Coordinate.Longitude, entry.FetchedAt)
	return err
}

// DeleteOlderThan drops entries fetched before cutoff and reports how many
// were removed.
func (r *GeocodePG) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM geocode_cache WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *GeocodePG) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
