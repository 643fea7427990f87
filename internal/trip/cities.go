package trip

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CityIndex is the read-only city → coordinate reference table, loaded
// once at startup from a worldcities-style CSV.
type CityIndex struct {
	byName map[string]Coordinate
}

// LoadCityIndex reads a CSV with at least the columns city, lat, and lng
// (matched by header name) and builds a case-insensitive index. The first
// row for a given city wins, matching the reference dataset's ordering of
// cities by prominence.
func LoadCityIndex(r io.Reader) (*CityIndex, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading city CSV header: %w", err)
	}

	cityCol, latCol, lngCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "city":
			cityCol = i
		case "lat":
			latCol = i
		case "lng":
			lngCol = i
		}
	}
	if cityCol < 0 || latCol < 0 || lngCol < 0 {
		return nil, fmt.Errorf("city CSV missing required columns (city, lat, lng), got %v", header)
	}

	idx := &CityIndex{byName: make(map[string]Coordinate)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading city CSV row: %w", err)
		}
		if len(rec) <= cityCol || len(rec) <= latCol || len(rec) <= lngCol {
			continue
		}

		name := strings.ToLower(strings.TrimSpace(rec[cityCol]))
		if name == "" {
			continue
		}
		if _, exists := idx.byName[name]; exists {
			continue
		}

		lat, latErr := strconv.ParseFloat(rec[latCol], 64)
		lng, lngErr := strconv.ParseFloat(rec[lngCol], 64)
		if latErr != nil || lngErr != nil {
			continue
		}
		idx.byName[name] = Coordinate{Lat: lat, Lng: lng}
	}

	return idx, nil
}

// LoadCityIndexFile opens path and builds the index from it.
func LoadCityIndexFile(path string) (*CityIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening city CSV %s: %w", path, err)
	}
	defer f.Close()
	return LoadCityIndex(f)
}

// Coordinates returns the coordinates for city (case-insensitive exact
// match). A miss is reported as ok=false, never as an error.
func (idx *CityIndex) Coordinates(city string) (Coordinate, bool) {
	c, ok := idx.byName[strings.ToLower(strings.TrimSpace(city))]
	return c, ok
}

// Len returns the number of indexed cities.
func (idx *CityIndex) Len() int {
	return len(idx.byName)
}
