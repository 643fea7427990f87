package destination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tourchat/tourchat/internal/trip"
)

const httpTimeout = 10 * time.Second

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// doGet performs a GET request and decodes the JSON response into dst.
func doGet(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", rawURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", rawURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}

	return nil
}

// ---- OpenWeatherMap ----

// WeatherClient fetches current weather from OpenWeatherMap.
type WeatherClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

const owmDefaultURL = "https://api.openweathermap.org/data/2.5/weather"

// NewWeatherClient constructs a WeatherClient with the given API key.
func NewWeatherClient(apiKey string) *WeatherClient {
	return &WeatherClient{apiKey: apiKey, baseURL: owmDefaultURL, client: newHTTPClient()}
}

// NewWeatherClientWithURL constructs a WeatherClient pointing at a custom base URL (for tests).
func NewWeatherClientWithURL(baseURL, apiKey string) *WeatherClient {
	return &WeatherClient{apiKey: apiKey, baseURL: baseURL, client: newHTTPClient()}
}

type owmResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Fetch retrieves weather data for the given city.
func (c *WeatherClient) Fetch(ctx context.Context, city string) (*WeatherData, error) {
	endpoint := c.baseURL + "?q=" + url.QueryEscape(city) + "&appid=" + c.apiKey + "&units=metric"

	var raw owmResponse
	if err := doGet(ctx, c.client, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("openweathermap fetch for %s: %w", city, err)
	}

	description := ""
	if len(raw.Weather) > 0 {
		description = raw.Weather[0].Description
	}

	return &WeatherData{
		Temperature: raw.Main.Temp,
		FeelsLike:   raw.Main.FeelsLike,
		Humidity:    raw.Main.Humidity,
		Description: description,
		WindSpeed:   raw.Wind.Speed,
	}, nil
}

// ---- Stub weather ----

// StubWeatherClient is the no-API-key fallback: a fixed sunny forecast.
type StubWeatherClient struct{}

// Fetch returns the fixed forecast for any city.
func (StubWeatherClient) Fetch(_ context.Context, _ string) (*WeatherData, error) {
	return &WeatherData{Temperature: 25, Description: "sunny"}, nil
}

// ---- OpenTripMap ----

// POIClient fetches points of interest from OpenTripMap. Coordinates come
// from the city reference dataset, so no geocoding round trip is needed.
type POIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

const otmPOIDefault = "https://api.opentripmap.com/0.1/en/places/radius"

// NewPOIClient constructs a POIClient with the given API key.
func NewPOIClient(apiKey string) *POIClient {
	return &POIClient{apiKey: apiKey, baseURL: otmPOIDefault, client: newHTTPClient()}
}

// NewPOIClientWithURL constructs a POIClient pointing at a custom base URL (for tests).
func NewPOIClientWithURL(baseURL, apiKey string) *POIClient {
	return &POIClient{apiKey: apiKey, baseURL: baseURL, client: newHTTPClient()}
}

type otmRadiusResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Name  string `json:"name"`
			Kinds string `json:"kinds"`
			Rate  int    `json:"rate"`
		} `json:"properties"`
	} `json:"features"`
}

// Fetch retrieves the top points of interest within 5km of coord.
func (c *POIClient) Fetch(ctx context.Context, coord trip.Coordinate) ([]POI, error) {
	endpoint := fmt.Sprintf(
		"%s?radius=5000&lon=%f&lat=%f&limit=10&format=geojson&apikey=%s",
		c.baseURL, coord.Lng, coord.Lat, c.apiKey,
	)

	var raw otmRadiusResponse
	if err := doGet(ctx, c.client, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("opentripmap radius fetch: %w", err)
	}

	pois := make([]POI, 0, len(raw.Features))
	for _, f := range raw.Features {
		if f.Properties.Name == "" {
			continue
		}
		p := POI{
			Name:  f.Properties.Name,
			Kinds: f.Properties.Kinds,
			Rate:  f.Properties.Rate,
		}
		if len(f.Geometry.Coordinates) == 2 {
			p.Lng = f.Geometry.Coordinates[0]
			p.Lat = f.Geometry.Coordinates[1]
		}
		pois = append(pois, p)
	}

	return pois, nil
}
