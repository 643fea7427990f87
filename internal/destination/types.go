package destination

// WeatherData holds current weather conditions for a city.
type WeatherData struct {
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`
}

// POI represents a single point of interest near the destination.
type POI struct {
	Name  string  `json:"name"`
	Kinds string  `json:"kinds"`
	Rate  int     `json:"rate"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// EnrichmentData is the aggregated weather and POI data rendered next to
// the destination map.
type EnrichmentData struct {
	Weather     *WeatherData `json:"weather,omitempty"`
	PointsOfInt []POI        `json:"points_of_interest,omitempty"`
}
