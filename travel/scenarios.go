package travel

// Scenario is one scripted demo request.
type Scenario struct {
	Title string
	Mode  string
	Input string
}

// Scenarios returns the five demo requests covering all three modes.
func Scenarios() []Scenario {
	return []Scenario{
		{Title: "Handoff: weather-only request", Mode: "handoff", Input: "What's the weather like in Tokyo?"},
		{Title: "Handoff: booking request", Mode: "handoff", Input: "Find me flights from Dublin to Barcelona"},
		{Title: "Handoff: multi-topic (weather → packing)", Mode: "handoff", Input: "What's the weather in Reykjavik and what should I pack for hiking?"},
		{Title: "Sequential: weather → packing pipeline", Mode: "sequential", Input: "What should I pack for a beach trip to Bali?"},
		{
			Title: "Concurrent: full trip overview",
			Mode:  "concurrent",
			Input: "Tell me everything about travelling to Galway, Ireland. Check the weather, find flights from Dublin, and suggest activities.",
		},
	}
}
