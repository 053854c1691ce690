package travel

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/travelmesh/config"
	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/handoff"
	"github.com/hupe1980/travelmesh/internal/testutil"
	"github.com/hupe1980/travelmesh/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func fixedClock(o *ToolboxOptions) { o.Now = func() time.Time { return fixedNow } }

func TestMockData_Deterministic(t *testing.T) {
	w := CurrentWeather("Tokyo", fixedNow)
	assert.Equal(t, "Overcast with Rain, 8°C", w.Summary())
	assert.Equal(t, 46, w.Current.TemperatureF)

	assert.Equal(t, "Cold and Snowy", CurrentWeather("Reykjavik", fixedNow).Current.Condition)
	assert.Equal(t, "Sunny", CurrentWeather("bali", fixedNow).Current.Condition)

	f1 := ForecastFor("Tokyo", 5, fixedNow)
	f2 := ForecastFor("Tokyo", 5, fixedNow)
	assert.Equal(t, f1, f2)
	require.Len(t, f1.Days, 5)
	assert.Equal(t, "2025-03-15", f1.Days[0].Date)
	assert.Len(t, ForecastFor("Tokyo", 40, fixedNow).Days, 14)

	s1 := SearchFlights("Dublin", "Barcelona", "")
	assert.Equal(t, s1, SearchFlights("Dublin", "Barcelona", ""))
	require.Len(t, s1.Flights, 4)
	assert.Equal(t, "FL-1000", s1.Flights[0].FlightID)
	assert.Equal(t, DefaultTravelDate, s1.Date)
	assert.Equal(t, 1, s1.Flights[3].Stops)

	hs := SearchHotels("Galway", "", 0)
	assert.Equal(t, 1, hs.Nights)
	require.Len(t, hs.Hotels, 5)
	assert.Contains(t, hs.Hotels[3].Amenities, "Pool")

	assert.Equal(t, BookFlight("FL-1000", "Ada"), BookFlight("FL-1000", "Ada"))
	assert.Regexp(t, `^HBK-\d{6}$`, BookHotel("HTL-2000", "Ada", 2).BookingRef)
}

func TestPackingFor(t *testing.T) {
	pl := PackingFor("Sunny, 22°C", "beach")
	assert.Contains(t, pl.Categories["clothing"], "Sunscreen SPF50")
	assert.Contains(t, pl.Categories["trip_specific"], "Swimsuit")

	total := 0
	for _, items := range pl.Categories {
		total += len(items)
	}

	assert.Equal(t, total, pl.TotalItems)

	snow := PackingFor("Cold and Snowy, -2°C", "unknown")
	assert.Contains(t, snow.Categories["clothing"], "Thermal layers")
	assert.Contains(t, snow.Categories["trip_specific"], "Versatile outfit layers")
}

func TestActivitiesFor(t *testing.T) {
	all := ActivitiesFor("Galway", "all")
	assert.Equal(t, 12, all.TotalOptions)
	assert.Equal(t, "Local Food Tour in Galway", all.Top(1)[0].Name)

	fallback := ActivitiesFor("Galway", "nightlife")
	assert.Equal(t, 3, fallback.TotalOptions)
	assert.Contains(t, fallback.ByCategory, "nightlife")
}

func TestExtractors(t *testing.T) {
	tests := []struct {
		in, dest, origin, trip string
	}{
		{"What's the weather like in Tokyo?", "Tokyo", "", "general"},
		{"Find me flights from Dublin to Barcelona", "Barcelona", "Dublin", "general"},
		{"What's the weather in Reykjavik and what should I pack for hiking?", "Reykjavik", "", "hiking"},
		{"What should I pack for a beach trip to Bali?", "Bali", "", "beach"},
		{"Tell me everything about travelling to Galway, Ireland.", "Galway", "", "general"},
		{"hello there", "", "", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.dest, ExtractDestination(tt.in))
			assert.Equal(t, tt.origin, ExtractOrigin(tt.in))
			assert.Equal(t, tt.trip, DetectTripType(tt.in))
		})
	}

	assert.Equal(t, []string{"weather", "packing"}, DetectTopics("weather in Oslo and what to pack").Ordered())
	assert.Equal(t, []string{"booking"}, DetectTopics("Find me flights").Ordered())
}

func TestToolbox(t *testing.T) {
	tb := NewToolbox(fixedClock)
	assert.Len(t, tb.Names(), 10)

	_, err := tb.Select([]string{"get_weather", "teleport"})
	assert.Error(t, err)

	sess := testutil.NewSessionBuilder("tools").Build()
	runCtx := core.NewRunContext(context.Background(), sess, core.AgentInfo{Name: "weather"})

	tools, err := tb.Select([]string{"get_weather", "get_packing_list", "book_flight"})
	require.NoError(t, err)

	// Schema enums stay in sync with the data tables.
	props := tools[1].Parameters()["properties"].(map[string]any)
	assert.Equal(t, TripTypes, props["trip_type"].(map[string]any)["enum"])

	acts, _ := tb.Get("get_activities")
	props = acts.Parameters()["properties"].(map[string]any)
	assert.Equal(t, ActivityCategories, props["category"].(map[string]any)["enum"])

	w, _ := tb.Get("get_weather")
	res, err := w.Call(core.NewToolContext(runCtx, "c1"), map[string]any{"destination": "Bali"})
	require.NoError(t, err)
	assert.Equal(t, "Sunny, 22°C", res.(Weather).Summary())
	assert.Equal(t, fixedNow, res.(Weather).RetrievedAt)

	v, ok := sess.GetState(StateWeatherSummary)
	require.True(t, ok)
	assert.Equal(t, "Sunny, 22°C", v)

	_, err = tools[1].Call(core.NewToolContext(runCtx, "c2"), map[string]any{"weather_summary": "x", "trip_type": "space"})
	var te *core.ToolInvocationError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, core.ToolCodeValidation, te.Code)

	_, err = tools[2].Call(core.NewToolContext(runCtx, "c3"), map[string]any{"flight_id": "XX-1", "passenger_name": "Ada"})
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "UNKNOWN_FLIGHT", te.Code)
}

func runHandoff(t *testing.T, input string) (*handoff.Result, *testutil.RecordingSink) {
	t.Helper()

	cfg := config.Default()
	agents, err := NewRuleAgents(cfg, func(o *Options) { o.Toolbox = NewToolbox(fixedClock) })
	require.NoError(t, err)

	table, err := cfg.RoutingTable()
	require.NoError(t, err)

	sink := testutil.NewRecordingSink()

	exec, err := handoff.New(table, agents, func(o *handoff.Options) {
		o.Sink = sink
		o.Terminate = handoff.MaxTurns(cfg.MaxTurns)
	})
	require.NoError(t, err)

	sess := core.NewSession("travel", cfg.MaxHops)
	sess.AddUserInput(input)

	res, err := exec.Run(context.Background(), sess)
	require.NoError(t, err)

	return res, sink
}

func TestRuleAgents_WeatherOnly(t *testing.T) {
	res, sink := runHandoff(t, "What's the weather like in Tokyo?")

	assert.Equal(t, "weather", res.FinalAgent)
	assert.Equal(t, 1, res.Hops)
	assert.Contains(t, res.Output, "Current weather in Tokyo: Overcast with Rain, 8°C")

	calls := sink.OfType(core.EventToolCall)
	require.Len(t, calls, 1)
	assert.Equal(t, "get_weather", calls[0].Payload.(core.ToolCallPayload).Tool)
}

func TestRuleAgents_WeatherThenPacking(t *testing.T) {
	res, _ := runHandoff(t, "What's the weather in Reykjavik and what should I pack for hiking?")

	assert.Equal(t, "packing", res.FinalAgent)
	assert.Equal(t, 2, res.Hops)
	assert.Contains(t, res.Output, "Packing list for a hiking trip (Cold and Snowy, -2°C)")
	assert.Contains(t, res.Output, "Thermal layers")
	assert.Contains(t, res.Output, "Trekking poles")

	var order []string
	for _, h := range res.Handoffs {
		order = append(order, h.From+"->"+h.To)
	}

	assert.Equal(t, []string{"triage->weather", "weather->packing"}, order)
}

func TestRuleAgents_Booking(t *testing.T) {
	res, _ := runHandoff(t, "Find me flights from Dublin to Barcelona")

	assert.Equal(t, "booking", res.FinalAgent)
	assert.Contains(t, res.Output, "Flights Dublin → Barcelona on 2025-03-01")
	assert.Contains(t, res.Output, "Best value:")
	assert.NotContains(t, res.Output, "Hotels in")
}

func TestRuleAgents_BookingRemembersOrigin(t *testing.T) {
	cfg := config.Default()
	agents, err := NewRuleAgents(cfg, func(o *Options) { o.Toolbox = NewToolbox(fixedClock) })
	require.NoError(t, err)

	table, err := cfg.RoutingTable()
	require.NoError(t, err)

	exec, err := handoff.New(table, agents)
	require.NoError(t, err)

	sess := core.NewSession("travel", cfg.MaxHops)
	sess.AddUserInput("Find me flights from Dublin to Barcelona")

	first, err := exec.Run(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, "booking", first.FinalAgent)

	v, ok := sess.GetState(StateOrigin)
	require.True(t, ok)
	assert.Equal(t, "Dublin", v)

	// The follow-up names no origin; search_flights stored it on the first turn.
	sess.AddUserInput("What about flights to Lisbon?")

	second, err := exec.Run(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, "booking", second.FinalAgent)
	assert.Contains(t, second.Output, "Flights Dublin → Lisbon")
	assert.NotContains(t, second.Output, "Tell me where you're flying from")
}

func TestRuleAgents_TriageAnswersDirectly(t *testing.T) {
	res, _ := runHandoff(t, "hello")

	assert.Equal(t, "triage", res.FinalAgent)
	assert.Equal(t, 0, res.Hops)
	assert.Contains(t, res.Output, "Where are you heading?")
}

func TestRuleAgents_Profile(t *testing.T) {
	agents, err := NewRuleAgents(config.Default())
	require.NoError(t, err)
	require.Len(t, agents, 5)

	p, ok := agents[4].(core.Profiler)
	require.True(t, ok)
	assert.Equal(t, []string{"book_flight", "book_hotel", "search_flights", "search_hotels"}, p.ToolNames())
	assert.Contains(t, p.Instructions(), "travel booking specialist")

	cfg := config.Default()
	cfg.Agents = append(cfg.Agents, config.AgentConfig{Name: "visa"})

	_, err = NewRuleAgents(cfg)
	assert.Error(t, err)
}

func TestModelAgents_Handoff(t *testing.T) {
	cfg := config.Default()

	llm := model.NewScriptedModel("scripted",
		model.HandoffTo("weather", "weather question"),
		model.CallTool("get_weather", map[string]any{"destination": "Paris"}),
		model.Say("It is sunny in Paris."),
	)

	agents, err := NewModelAgents(llm, cfg, func(o *Options) { o.Toolbox = NewToolbox(fixedClock) })
	require.NoError(t, err)
	require.Len(t, agents, 5)

	p := agents[1].(core.Profiler)
	assert.Equal(t, []string{"get_forecast", "get_weather", "session_state"}, p.ToolNames())

	table, err := cfg.RoutingTable()
	require.NoError(t, err)

	exec, err := handoff.New(table, agents)
	require.NoError(t, err)

	sess := core.NewSession("model", cfg.MaxHops)
	sess.AddUserInput("What's the weather in Paris?")

	res, err := exec.Run(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, "weather", res.FinalAgent)
	assert.Equal(t, "It is sunny in Paris.", res.Output)

	v, ok := sess.GetState(StateDestination)
	require.True(t, ok)
	assert.Equal(t, "Paris", v)

	// The weather agent's request carried its tools plus handoff tools for its targets.
	reqs := llm.Requests()
	require.Len(t, reqs, 3)

	assert.Equal(t, "weather", reqs[1].Agent)
	assert.True(t, reqs[1].HasTool("handoff_to_packing"))
	assert.True(t, reqs[1].HasTool("handoff_to_activities"))
	assert.False(t, reqs[1].HasTool("handoff_to_booking"))
}

func TestModelAgents_UnknownTool(t *testing.T) {
	cfg := config.Default()
	cfg.Agents[1].Tools = []string{"teleport"}

	_, err := NewModelAgents(model.NewScriptedModel("m"), cfg)
	assert.Error(t, err)
}

func TestWeatherJSON(t *testing.T) {
	data, err := json.Marshal(CurrentWeather("Bali", fixedNow))
	require.NoError(t, err)
	assert.JSONEq(t, `{"destination":"Bali","current":{"temperature_c":22,"temperature_f":72,"condition":"Sunny","humidity_pct":45,"wind_kph":12,"rain_chance_pct":5},"retrieved_at":"2025-03-14T09:26:53Z"}`, string(data))
}
