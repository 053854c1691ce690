package travel

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/tool"
)

var (
	destinationRe = regexp.MustCompile(`\b(?:in|to|for|at|about|visit|visiting)\s+([A-Z][\p{L}'-]+(?:\s+[A-Z][\p{L}'-]+)*)`)
	originRe      = regexp.MustCompile(`\bfrom\s+([A-Z][\p{L}'-]+(?:\s+[A-Z][\p{L}'-]+)*)`)
	flightIDRe    = regexp.MustCompile(`\bFL-\d{4}\b`)
	hotelIDRe     = regexp.MustCompile(`\bHTL-\d{4}\b`)
	personRe      = regexp.MustCompile(`(?i:name is|passenger|guest)\s+([A-Z][\p{L}'-]+(?:\s+[A-Z][\p{L}'-]+)*)`)
)

// Topics are detected from the user input by keyword.
type Topics struct {
	Weather    bool
	Packing    bool
	Activities bool
	Booking    bool
}

// DetectTopics classifies a travel request.
func DetectTopics(text string) Topics {
	t := strings.ToLower(text)

	return Topics{
		Weather:    containsAny(t, "weather", "forecast", "temperature", "rain", "sunny", "climate"),
		Packing:    containsAny(t, "pack", "luggage", "suitcase", "carry-on", "bring"),
		Activities: containsAny(t, "activit", "things to do", "what to do", "sightseeing", "attraction", "tour"),
		Booking:    containsAny(t, "flight", "hotel", "book", "fly "),
	}
}

// Ordered returns the matching agent names by routing priority.
func (t Topics) Ordered() []string {
	var out []string

	if t.Weather {
		out = append(out, "weather")
	}

	if t.Booking {
		out = append(out, "booking")
	}

	if t.Activities {
		out = append(out, "activities")
	}

	if t.Packing {
		out = append(out, "packing")
	}

	return out
}

// ExtractDestination finds the first capitalised place name after a
// preposition, e.g. "weather in Tokyo" → "Tokyo".
func ExtractDestination(text string) string {
	if m := destinationRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	return ""
}

// ExtractOrigin finds "from <Place>".
func ExtractOrigin(text string) string {
	if m := originRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	return ""
}

// DetectTripType maps keywords to one of TripTypes.
func DetectTripType(text string) string {
	t := strings.ToLower(text)

	switch {
	case containsAny(t, "beach", "swim"):
		return "beach"
	case containsAny(t, "hiking", "hike", "trek"):
		return "hiking"
	case containsAny(t, "business", "conference", "meeting"):
		return "business"
	case containsAny(t, "city break", "city trip", "sightseeing"):
		return "city"
	default:
		return "general"
	}
}

func detectCategory(text string) string {
	t := strings.ToLower(text)

	switch {
	case containsAny(t, "food", "eat", "restaurant"):
		return "food"
	case containsAny(t, "hike", "hiking", "outdoor", "nature"):
		return "outdoor"
	case containsAny(t, "museum", "culture", "art", "music"):
		return "culture"
	case strings.Contains(t, "sightseeing"):
		return "sightseeing"
	default:
		return "all"
	}
}

// ruleSet implements the offline decision functions. Tool calls go through
// the agent's registry so they show up as events and transcript turns.
type ruleSet struct {
	agent    string
	registry *tool.Registry
}

func (r ruleSet) call(runCtx *core.RunContext, name string, args map[string]any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}

	id := "call_" + core.NewID()[:8]

	runCtx.Emit(core.EventToolCall, core.ToolCallPayload{CallID: id, Tool: name, Arguments: string(raw)})

	res, err := r.registry.Invoke(core.NewToolContext(runCtx, id), name, string(raw))

	payload := core.ToolResultPayload{CallID: id, Tool: name}
	errMsg := ""

	if err != nil {
		errMsg = err.Error()
		payload.Error = errMsg
	} else {
		payload.Result = string(res)
	}

	runCtx.Emit(core.EventToolResult, payload)
	runCtx.Record(core.ToolCallTurn(r.agent, id, name, string(raw)))
	runCtx.Record(core.ToolResultTurn(r.agent, id, name, string(res), errMsg))

	if err != nil {
		runCtx.LogWarn("travel.rule.tool_failed", "agent", r.agent, "tool", name, "error", errMsg)
		return err
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(res, out)
}

// handoffCandidate returns the first candidate that is permitted and has not
// answered since the last user input.
func handoffCandidate(runCtx *core.RunContext, candidates ...string) string {
	spoke := map[string]bool{}

	turns := runCtx.History()
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Role == core.RoleUser && t.Kind == core.TurnMessage {
			break
		}

		if t.Kind == core.TurnMessage {
			spoke[t.Speaker] = true
		}
	}

	for _, c := range candidates {
		if runCtx.CanHandoffTo(c) && !spoke[c] {
			return c
		}
	}

	return ""
}

func destinationOf(runCtx *core.RunContext) string {
	if d := ExtractDestination(runCtx.Input()); d != "" {
		return d
	}

	if v, ok := runCtx.GetState(StateDestination); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

func stateString(runCtx *core.RunContext, key string) string {
	if v, ok := runCtx.GetState(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

func withHandoff(output, target, reason string) core.Result {
	return core.Result{Output: output, Handoff: &core.HandoffRequest{Target: target, Reason: reason}}
}

func (r ruleSet) triage(runCtx *core.RunContext) (core.Result, error) {
	topics := DetectTopics(runCtx.Input())

	if target := handoffCandidate(runCtx, topics.Ordered()...); target != "" {
		return withHandoff(
			fmt.Sprintf("Let me bring in our %s specialist.", target),
			target,
			"request mentions "+target,
		), nil
	}

	return core.Final("Hi! I can help with weather, packing, activities and flight or hotel bookings. Where are you heading?"), nil
}

func (r ruleSet) weather(runCtx *core.RunContext) (core.Result, error) {
	input := runCtx.Input()

	dest := destinationOf(runCtx)
	if dest == "" {
		return core.Final("Which destination should I check the weather for?"), nil
	}

	var w Weather
	if err := r.call(runCtx, "get_weather", map[string]any{"destination": dest}, &w); err != nil {
		return core.Final(fmt.Sprintf("Sorry, I couldn't get the weather for %s right now.", dest)), nil
	}

	c := w.Current

	var sb strings.Builder
	fmt.Fprintf(&sb, "Current weather in %s: %s, %d°C (%d°F), humidity %d%%, wind %d km/h, %d%% chance of rain.",
		dest, c.Condition, c.TemperatureC, c.TemperatureF, c.HumidityPct, c.WindKPH, c.RainChancePct)

	if containsAny(strings.ToLower(input), "forecast", "week", "days", "next") {
		var f Forecast
		if err := r.call(runCtx, "get_forecast", map[string]any{"destination": dest, "days": 5}, &f); err == nil {
			sb.WriteString("\nForecast:")

			for _, d := range f.Days {
				fmt.Fprintf(&sb, "\n- %s: %s, %d to %d°C, %d%% rain", d.Date, d.Condition, d.LowC, d.HighC, d.RainChancePct)
			}
		}
	}

	text := sb.String()
	topics := DetectTopics(input)

	var next []string
	if topics.Packing {
		next = append(next, "packing")
	}

	if topics.Activities {
		next = append(next, "activities")
	}

	if target := handoffCandidate(runCtx, next...); target != "" {
		return withHandoff(text, target, "traveller also asked about "+target), nil
	}

	return core.Final(text), nil
}

func (r ruleSet) packing(runCtx *core.RunContext) (core.Result, error) {
	input := runCtx.Input()
	summary := stateString(runCtx, StateWeatherSummary)
	trip := DetectTripType(input)

	var pl PackingList
	if err := r.call(runCtx, "get_packing_list", map[string]any{"weather_summary": summary, "trip_type": trip}, &pl); err != nil {
		return core.Final("Sorry, I couldn't build a packing list right now."), nil
	}

	var sb strings.Builder

	if summary != "" {
		fmt.Fprintf(&sb, "Packing list for a %s trip (%s):", pl.TripType, summary)
	} else {
		fmt.Fprintf(&sb, "Packing list for a %s trip:", pl.TripType)
	}

	cats := make([]string, 0, len(pl.Categories))
	for cat := range pl.Categories {
		cats = append(cats, cat)
	}

	sort.Strings(cats)

	for _, cat := range cats {
		fmt.Fprintf(&sb, "\n- %s: %s", strings.ReplaceAll(cat, "_", " "), strings.Join(pl.Categories[cat], ", "))
	}

	if containsAny(strings.ToLower(input), "luggage", "carry", "airline", "bag", "weight") {
		var lr LuggageRestrictions
		if err := r.call(runCtx, "check_luggage_restrictions", map[string]any{"airline": "general"}, &lr); err == nil {
			fmt.Fprintf(&sb, "\nLuggage: carry-on up to %d kg (%s cm), checked up to %d kg.",
				lr.CarryOn.MaxWeightKG, lr.CarryOn.MaxDimensions, lr.Checked.MaxWeightKG)
		}
	}

	return core.Final(sb.String()), nil
}

func (r ruleSet) activities(runCtx *core.RunContext) (core.Result, error) {
	input := runCtx.Input()

	dest := destinationOf(runCtx)
	if dest == "" {
		return core.Final("Which destination would you like activity ideas for?"), nil
	}

	var acts Activities
	if err := r.call(runCtx, "get_activities", map[string]any{"destination": dest, "category": detectCategory(input)}, &acts); err != nil {
		return core.Final(fmt.Sprintf("Sorry, I couldn't find activities for %s right now.", dest)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Top things to do in %s:", dest)

	for i, a := range acts.Top(3) {
		fmt.Fprintf(&sb, "\n%d. %s (%.1f★, %s, $%d)", i+1, a.Name, a.Rating, a.Duration, a.PriceUSD)
	}

	var tips LocalTips
	if err := r.call(runCtx, "get_local_tips", map[string]any{"destination": dest}, &tips); err == nil {
		fmt.Fprintf(&sb, "\nTip: %s", tips.Transport)
	}

	if containsAny(strings.ToLower(stateString(runCtx, StateWeatherSummary)), "rain", "snow", "overcast") {
		sb.WriteString("\nThe weather looks wet, so keep an indoor option in reserve.")
	}

	text := sb.String()

	if DetectTopics(input).Booking {
		if target := handoffCandidate(runCtx, "booking"); target != "" {
			return withHandoff(text, target, "traveller wants to book"), nil
		}
	}

	return core.Final(text), nil
}

func (r ruleSet) booking(runCtx *core.RunContext) (core.Result, error) {
	input := runCtx.Input()
	lower := strings.ToLower(input)

	var parts []string

	person := "Traveller"
	if m := personRe.FindStringSubmatch(input); m != nil {
		person = m[1]
	}

	if id := flightIDRe.FindString(input); id != "" && strings.Contains(lower, "book") {
		var b Booking
		if err := r.call(runCtx, "book_flight", map[string]any{"flight_id": id, "passenger_name": person}, &b); err == nil {
			parts = append(parts, fmt.Sprintf("Flight %s booked for %s. Reference: %s.", id, person, b.BookingRef))
		}
	}

	if id := hotelIDRe.FindString(input); id != "" && strings.Contains(lower, "book") {
		var b Booking
		if err := r.call(runCtx, "book_hotel", map[string]any{"hotel_id": id, "guest_name": person, "nights": 3}, &b); err == nil {
			parts = append(parts, fmt.Sprintf("Hotel %s booked for %s (%d nights). Reference: %s.", id, person, b.Nights, b.BookingRef))
		}
	}

	if len(parts) == 0 {
		dest := destinationOf(runCtx)
		if dest == "" {
			return core.Final("Where would you like to travel to?"), nil
		}

		wantFlights := containsAny(lower, "flight", "fly")
		wantHotels := containsAny(lower, "hotel", "stay", "accommodation")

		if !wantFlights && !wantHotels {
			wantFlights, wantHotels = true, true
		}

		if wantFlights {
			parts = append(parts, r.flights(runCtx, dest))
		}

		if wantHotels {
			parts = append(parts, r.hotels(runCtx, dest))
		}
	}

	text := strings.Join(parts, "\n\n")

	if DetectTopics(input).Weather {
		if target := handoffCandidate(runCtx, "weather"); target != "" {
			return withHandoff(text, target, "traveller asked about the weather"), nil
		}
	}

	return core.Final(text), nil
}

func (r ruleSet) flights(runCtx *core.RunContext, dest string) string {
	origin := ExtractOrigin(runCtx.Input())
	if origin == "" {
		origin = stateString(runCtx, StateOrigin)
	}

	if origin == "" {
		return fmt.Sprintf("Tell me where you're flying from and I'll search flights to %s.", dest)
	}

	var fs FlightSearch
	if err := r.call(runCtx, "search_flights", map[string]any{"origin": origin, "destination": dest}, &fs); err != nil {
		return fmt.Sprintf("Sorry, flight search to %s failed.", dest)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Flights %s → %s on %s:", fs.Origin, fs.Destination, fs.Date)

	for _, f := range fs.Flights {
		fmt.Fprintf(&sb, "\n- %s %s, departs %s, %.1fh, %d stop(s), €%d", f.FlightID, f.Airline, f.Departure, f.DurationHours, f.Stops, f.PriceEUR)
	}

	if best, ok := fs.Cheapest(); ok {
		fmt.Fprintf(&sb, "\nBest value: %s at €%d.", best.FlightID, best.PriceEUR)
	}

	return sb.String()
}

func (r ruleSet) hotels(runCtx *core.RunContext, dest string) string {
	var hs HotelSearch
	if err := r.call(runCtx, "search_hotels", map[string]any{"destination": dest, "nights": 3}, &hs); err != nil {
		return fmt.Sprintf("Sorry, hotel search in %s failed.", dest)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hotels in %s from %s (%d nights):", hs.Destination, hs.CheckIn, hs.Nights)

	for _, h := range hs.Hotels {
		fmt.Fprintf(&sb, "\n- %s %s, %d★, rated %.1f, €%d/night", h.HotelID, h.Name, h.Stars, h.Rating, h.PricePerNightEUR)
	}

	return sb.String()
}
