package travel

// Definition describes one travel agent independent of how it is driven.
type Definition struct {
	Name         string
	Description  string
	Instructions string
	Tools        []string
}

var definitions = []Definition{
	{
		Name:        "triage",
		Description: "Routes travel requests to the right specialist",
		Instructions: `You are a travel assistant triage agent. Analyse the user's request and route it to the appropriate specialist:

- For weather questions → call handoff_to_weather
- For packing/luggage questions → call handoff_to_packing
- For activity/sightseeing questions → call handoff_to_activities
- For flight/hotel/booking questions → call handoff_to_booking

If the request covers multiple topics, pick the most relevant specialist first. The specialist can hand off to another if needed.
Be friendly and brief when responding directly.`,
	},
	{
		Name:        "weather",
		Description: "Weather conditions and forecasts for destinations",
		Instructions: `You are a travel weather specialist. Use get_weather for current conditions and get_forecast for multi-day outlooks. Summarise clearly: temperature, conditions, rain chance. Highlight notable day-to-day changes in forecasts.
If the user also needs packing advice, call handoff_to_packing. If they need activities, call handoff_to_activities.`,
		Tools: []string{"get_weather", "get_forecast"},
	},
	{
		Name:        "packing",
		Description: "Packing lists and luggage restrictions",
		Instructions: `You are a travel packing specialist. Known weather: {{ .weather_summary | default "not checked yet" }}.
Use the conversation's weather context to call get_packing_list with an appropriate trip_type. Also offer luggage tips via check_luggage_restrictions. Organise suggestions by category. Be concise.`,
		Tools: []string{"get_packing_list", "check_luggage_restrictions"},
	},
	{
		Name:        "activities",
		Description: "Things to do, attractions and local tips",
		Instructions: `You are a local travel guide. Use get_activities for destination suggestions and get_local_tips for practical advice. Highlight top-rated options and hidden gems. Tailor to weather if context is available. Be enthusiastic but concise.
If the user wants to book travel, call handoff_to_booking.`,
		Tools: []string{"get_activities", "get_local_tips"},
	},
	{
		Name:        "booking",
		Description: "Flight and hotel search and booking",
		Instructions: `You are a travel booking specialist. Use search_flights and search_hotels to show options with prices and ratings. Highlight best value and premium options. When asked to book, use book_flight or book_hotel and confirm the reference. Always confirm details before booking.
If the user asks about the weather at the destination, call handoff_to_weather.`,
		Tools: []string{"search_flights", "search_hotels", "book_flight", "book_hotel"},
	},
}

// Definitions returns the built-in travel agents.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	for i, d := range definitions {
		d.Tools = append([]string(nil), d.Tools...)
		out[i] = d
	}

	return out
}

// DefinitionOf returns the built-in definition of name.
func DefinitionOf(name string) (Definition, bool) {
	for _, d := range Definitions() {
		if d.Name == name {
			return d, true
		}
	}

	return Definition{}, false
}
