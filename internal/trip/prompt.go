package trip

import (
	"fmt"
	"strings"
)

// Agent selects which planning task the assistant is prompted for.
type Agent string

const (
	AgentWeather      Agent = "weather"
	AgentItinerary    Agent = "itinerary"
	AgentOptimization Agent = "optimization"
)

// promptBuilders is the dispatch table from agent to system prompt.
// Unknown agents fall back to the itinerary builder.
var promptBuilders = map[Agent]func(Preferences) string{
	AgentItinerary:    itineraryPrompt,
	AgentWeather:      weatherPrompt,
	AgentOptimization: optimizationPrompt,
}

// SystemPrompt renders the system prompt for the given agent, embedding
// the current preferences verbatim.
func SystemPrompt(agent Agent, p Preferences) string {
	build, ok := promptBuilders[agent]
	if !ok {
		build = itineraryPrompt
	}
	return build(p)
}

// preferenceBlock renders the labelled preference list shared by all agents.
func preferenceBlock(p Preferences) string {
	startingPoint := p.StartingPoint
	if startingPoint == "" {
		startingPoint = "First attraction"
	}
	includeWeather := "No"
	if p.IncludeWeather {
		includeWeather = "Yes"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- **Budget**: $%g\n", p.Budget)
	fmt.Fprintf(&b, "- **Preferred Activity**: %s\n", p.Activity)
	fmt.Fprintf(&b, "- **Include Weather Forecast**: %s\n", includeWeather)
	fmt.Fprintf(&b, "- **Location**: %s\n", p.CityName)
	fmt.Fprintf(&b, "- **Starting Point**: %s\n", startingPoint)
	fmt.Fprintf(&b, "- **Estimated Range of Travel Dates**: %s to %s\n", p.TravelDates.Start, p.TravelDates.End)
	return b.String()
}

func itineraryPrompt(p Preferences) string {
	return "You are a tour planning assistant. You help users plan a trip based on their preferences.\n\n" +
		"When planning the itinerary, consider the following preferences:\n\n" +
		preferenceBlock(p) + "\n" +
		"Provide a detailed itinerary for the user based on their preferences, including suggested locations and activities."
}

func weatherPrompt(p Preferences) string {
	return "You are a travel weather assistant. Advise the user on expected conditions and how they affect the plan below.\n\n" +
		preferenceBlock(p) + "\n" +
		"Suggest clothing, timing, and indoor alternatives appropriate for the forecast."
}

func optimizationPrompt(p Preferences) string {
	return "You are a trip optimization assistant. Rework the user's plan to minimize travel time and cost.\n\n" +
		preferenceBlock(p) + "\n" +
		"Propose an ordering of stops that stays within budget and reduces backtracking."
}
