package api

import (
	"context"

	"github.com/tourchat/tourchat/internal/destination"
	"github.com/tourchat/tourchat/internal/trip"
)

// CityLookup defines the reference-dataset lookup needed by handlers.
// *trip.CityIndex satisfies this interface.
type CityLookup interface {
	Coordinates(city string) (trip.Coordinate, bool)
}

// EnrichmentCache defines the cache operations needed by handlers. The
// reference dataset never mutates, so there is no invalidation path;
// entries age out via their TTL.
type EnrichmentCache interface {
	Get(ctx context.Context, city string) (*destination.EnrichmentData, error)
	Set(ctx context.Context, city string, data *destination.EnrichmentData) error
}

// Enricher defines the external destination-data aggregation needed by
// handlers. *destination.Fetcher satisfies this interface.
type Enricher interface {
	Enrich(ctx context.Context, city string, coord trip.Coordinate, includeWeather bool) *destination.EnrichmentData
}
