package trip

import (
	"fmt"
	"time"
)

// Activity is one of the trip activity styles offered in the sidebar.
type Activity string

const (
	ActivitySightseeing Activity = "Sightseeing"
	ActivityAdventure   Activity = "Adventure"
	ActivityRelaxation  Activity = "Relaxation"
	ActivityCultural    Activity = "Cultural"
	ActivityFoodTour    Activity = "Food Tour"
)

// Activities lists every valid activity, in the order the UI renders them.
var Activities = []Activity{
	ActivitySightseeing,
	ActivityAdventure,
	ActivityRelaxation,
	ActivityCultural,
	ActivityFoodTour,
}

// Valid reports whether a is one of the known activities.
func (a Activity) Valid() bool {
	for _, known := range Activities {
		if a == known {
			return true
		}
	}
	return false
}

const dateLayout = "2006-01-02"

// DateRange is an estimated travel window. Dates are ISO (YYYY-MM-DD)
// strings; an empty range means the user has not picked dates yet.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IsZero reports whether no dates have been set.
func (r DateRange) IsZero() bool {
	return r.Start == "" && r.End == ""
}

// Validate checks that both dates parse and that Start <= End.
func (r DateRange) Validate() error {
	if r.IsZero() {
		return nil
	}
	start, err := time.Parse(dateLayout, r.Start)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", r.Start, err)
	}
	end, err := time.Parse(dateLayout, r.End)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", r.End, err)
	}
	if end.Before(start) {
		return fmt.Errorf("travel dates out of order: %s is after %s", r.Start, r.End)
	}
	return nil
}

// Preferences is the user's saved trip-planning input. It is overwritten
// wholesale on every update, never merged field by field.
type Preferences struct {
	Budget         float64   `json:"budget"`
	CityName       string    `json:"city_name"`
	StartingPoint  string    `json:"starting_point"`
	Activity       Activity  `json:"preferred_activity"`
	IncludeWeather bool      `json:"include_weather"`
	TravelDates    DateRange `json:"travel_dates"`
}

// Validate checks the preference invariants: non-negative budget, a known
// activity (empty is allowed for a freshly registered user), ordered dates.
func (p Preferences) Validate() error {
	if p.Budget < 0 {
		return fmt.Errorf("budget must be non-negative, got %v", p.Budget)
	}
	if p.Activity != "" && !p.Activity.Valid() {
		return fmt.Errorf("unknown activity %q", p.Activity)
	}
	return p.TravelDates.Validate()
}

// Coordinate is a latitude/longitude pair from the city reference dataset.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
