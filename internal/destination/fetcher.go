package destination

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tourchat/tourchat/internal/trip"
)

// weatherFetcher is the interface satisfied by WeatherClient and StubWeatherClient.
type weatherFetcher interface {
	Fetch(ctx context.Context, city string) (*WeatherData, error)
}

// poiFetcher is the interface satisfied by POIClient.
type poiFetcher interface {
	Fetch(ctx context.Context, coord trip.Coordinate) ([]POI, error)
}

// Fetcher aggregates weather and POI data for a destination in parallel.
type Fetcher struct {
	weather weatherFetcher
	poi     poiFetcher
}

// NewFetcher constructs a Fetcher from API keys. An empty weather key
// selects the stub forecast; an empty POI key disables POI markers.
func NewFetcher(weatherKey, poiKey string) *Fetcher {
	f := &Fetcher{}
	if weatherKey != "" {
		f.weather = NewWeatherClient(weatherKey)
	} else {
		f.weather = StubWeatherClient{}
	}
	if poiKey != "" {
		f.poi = NewPOIClient(poiKey)
	}
	return f
}

// NewFetcherWithClients constructs a Fetcher with injectable clients (used in tests).
func NewFetcherWithClients(w weatherFetcher, p poiFetcher) *Fetcher {
	return &Fetcher{weather: w, poi: p}
}

// Enrich fetches weather (when requested) and POIs for the destination in
// parallel. Failures are non-fatal: partial data is returned with the
// failure logged, so a dead external API never blocks the map.
func (f *Fetcher) Enrich(ctx context.Context, city string, coord trip.Coordinate, includeWeather bool) *EnrichmentData {
	g, gCtx := errgroup.WithContext(ctx)

	var weatherData *WeatherData
	var poiData []POI

	if includeWeather && f.weather != nil {
		g.Go(func() error {
			wd, err := f.weather.Fetch(gCtx, city)
			if err != nil {
				slog.Warn("weather fetch failed", "city", city, "err", err)
				return nil
			}
			weatherData = wd
			return nil
		})
	}

	if f.poi != nil {
		g.Go(func() error {
			pd, err := f.poi.Fetch(gCtx, coord)
			if err != nil {
				slog.Warn("poi fetch failed", "city", city, "err", err)
				return nil
			}
			poiData = pd
			return nil
		})
	}

	_ = g.Wait() // branches never return errors, only log them

	return &EnrichmentData{
		Weather:     weatherData,
		PointsOfInt: poiData,
	}
}
