package travel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/travelmesh/core"
	"github.com/hupe1980/travelmesh/tool"
)

// Session state keys written by the travel tools.
const (
	StateDestination    = "destination"
	StateWeatherSummary = "weather_summary"
	StateOrigin         = "origin"
)

// ToolboxOptions configures a Toolbox.
type ToolboxOptions struct {
	// Now is the clock used for timestamps and forecast dates.
	Now func() time.Time
}

// Toolbox holds the mock travel tools by name.
type Toolbox struct {
	tools map[string]tool.Tool
	now   func() time.Time
}

type destinationArgs struct {
	Destination string `json:"destination" description:"City or region, e.g. Tokyo"`
}

type forecastArgs struct {
	Destination string `json:"destination" description:"City or region"`
	Days        int    `json:"days,omitempty" description:"Number of days (1-14, default 5)"`
}

type packingArgs struct {
	WeatherSummary string `json:"weather_summary" description:"Short weather description, e.g. Sunny, 22°C"`
	TripType       string `json:"trip_type,omitempty" description:"Kind of trip" enum:"general,business,hiking,beach,city"`
}

type luggageArgs struct {
	Airline string `json:"airline,omitempty" description:"Airline name"`
}

type activitiesArgs struct {
	Destination string `json:"destination" description:"City or region"`
	Category    string `json:"category,omitempty" description:"Activity filter" enum:"all,sightseeing,food,outdoor,culture"`
}

type flightSearchArgs struct {
	Origin      string `json:"origin" description:"Departure city"`
	Destination string `json:"destination" description:"Arrival city"`
	Date        string `json:"date,omitempty" description:"Departure date (YYYY-MM-DD)"`
}

type hotelSearchArgs struct {
	Destination string `json:"destination" description:"City or region"`
	CheckIn     string `json:"checkin,omitempty" description:"Check-in date (YYYY-MM-DD)"`
	Nights      int    `json:"nights,omitempty" description:"Number of nights (default 3)"`
}

type bookFlightArgs struct {
	FlightID      string `json:"flight_id" description:"Flight id from search_flights, e.g. FL-1000"`
	PassengerName string `json:"passenger_name" description:"Full name of the passenger"`
}

type bookHotelArgs struct {
	HotelID   string `json:"hotel_id" description:"Hotel id from search_hotels, e.g. HTL-2000"`
	GuestName string `json:"guest_name" description:"Full name of the guest"`
	Nights    int    `json:"nights,omitempty" description:"Number of nights (default 3)"`
}

// NewToolbox builds the ten travel tools.
func NewToolbox(optFns ...func(o *ToolboxOptions)) *Toolbox {
	opts := ToolboxOptions{Now: time.Now}

	for _, fn := range optFns {
		fn(&opts)
	}

	tb := &Toolbox{tools: make(map[string]tool.Tool), now: opts.Now}

	tb.add(tool.NewFunctionToolFromStruct("get_weather", "Get current weather conditions for a travel destination.", destinationArgs{}, tb.getWeather))
	tb.add(tool.NewFunctionToolFromStruct("get_forecast", "Get a multi-day weather forecast for a travel destination.", forecastArgs{}, tb.getForecast))
	tb.add(tool.NewFunctionToolFromStruct("get_packing_list", "Generate a packing list based on weather conditions and trip type (general/business/hiking/beach/city).", packingArgs{}, tb.getPackingList))
	tb.add(tool.NewFunctionToolFromStruct("check_luggage_restrictions", "Check airline luggage restrictions, weight limits, and prohibited items.", luggageArgs{}, tb.checkLuggage))
	tb.add(tool.NewFunctionToolFromStruct("get_activities", "Get activity suggestions for a destination. Category: all/sightseeing/food/outdoor/culture.", activitiesArgs{}, tb.getActivities))
	tb.add(tool.NewFunctionToolFromStruct("get_local_tips", "Get local tips: currency, language basics, safety, and transport for a destination.", destinationArgs{}, tb.getLocalTips))
	tb.add(tool.NewFunctionToolFromStruct("search_flights", "Search for available flights from origin to destination on a given date.", flightSearchArgs{}, tb.searchFlights))
	tb.add(tool.NewFunctionToolFromStruct("search_hotels", "Search for available hotels at a destination for a check-in date and number of nights.", hotelSearchArgs{}, tb.searchHotels))
	tb.add(tool.NewFunctionToolFromStruct("book_flight", "Book a specific flight by flight ID for a passenger.", bookFlightArgs{}, tb.bookFlight))
	tb.add(tool.NewFunctionToolFromStruct("book_hotel", "Book a specific hotel by hotel ID for a guest.", bookHotelArgs{}, tb.bookHotel))

	return tb
}

func (tb *Toolbox) add(t tool.Tool) { tb.tools[t.Name()] = t }

// Names returns the sorted tool names.
func (tb *Toolbox) Names() []string {
	names := make([]string, 0, len(tb.tools))
	for name := range tb.tools {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Get returns a tool by name.
func (tb *Toolbox) Get(name string) (tool.Tool, bool) {
	t, ok := tb.tools[name]
	return t, ok
}

// Select returns the named tools in the given order.
func (tb *Toolbox) Select(names []string) ([]tool.Tool, error) {
	out := make([]tool.Tool, 0, len(names))

	for _, name := range names {
		t, ok := tb.tools[name]
		if !ok {
			return nil, fmt.Errorf("unknown travel tool %q", name)
		}

		out = append(out, t)
	}

	return out, nil
}

func (tb *Toolbox) getWeather(tc *core.ToolContext, args map[string]any) (any, error) {
	dest, err := requireString(args, "destination")
	if err != nil {
		return nil, err
	}

	w := CurrentWeather(dest, tb.now().UTC())

	tc.SetState(StateDestination, dest)
	tc.SetState(StateWeatherSummary, w.Summary())

	return w, nil
}

func (tb *Toolbox) getForecast(tc *core.ToolContext, args map[string]any) (any, error) {
	dest, err := requireString(args, "destination")
	if err != nil {
		return nil, err
	}

	tc.SetState(StateDestination, dest)

	return ForecastFor(dest, intArg(args, "days", 5), tb.now().UTC()), nil
}

func (tb *Toolbox) getPackingList(_ *core.ToolContext, args map[string]any) (any, error) {
	return PackingFor(stringArg(args, "weather_summary", ""), stringArg(args, "trip_type", "general")), nil
}

func (tb *Toolbox) checkLuggage(_ *core.ToolContext, args map[string]any) (any, error) {
	return LuggageFor(stringArg(args, "airline", "general")), nil
}

func (tb *Toolbox) getActivities(tc *core.ToolContext, args map[string]any) (any, error) {
	dest, err := requireString(args, "destination")
	if err != nil {
		return nil, err
	}

	tc.SetState(StateDestination, dest)

	return ActivitiesFor(dest, stringArg(args, "category", "all")), nil
}

func (tb *Toolbox) getLocalTips(_ *core.ToolContext, args map[string]any) (any, error) {
	dest, err := requireString(args, "destination")
	if err != nil {
		return nil, err
	}

	return LocalTipsFor(dest), nil
}

func (tb *Toolbox) searchFlights(tc *core.ToolContext, args map[string]any) (any, error) {
	origin, err := requireString(args, "origin")
	if err != nil {
		return nil, err
	}

	dest, err := requireString(args, "destination")
	if err != nil {
		return nil, err
	}

	tc.SetState(StateOrigin, origin)
	tc.SetState(StateDestination, dest)

	return SearchFlights(origin, dest, stringArg(args, "date", DefaultTravelDate)), nil
}

func (tb *Toolbox) searchHotels(tc *core.ToolContext, args map[string]any) (any, error) {
	dest, err := requireString(args, "destination")
	if err != nil {
		return nil, err
	}

	tc.SetState(StateDestination, dest)

	return SearchHotels(dest, stringArg(args, "checkin", DefaultTravelDate), intArg(args, "nights", 3)), nil
}

func (tb *Toolbox) bookFlight(_ *core.ToolContext, args map[string]any) (any, error) {
	id, err := requireString(args, "flight_id")
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(id, "FL-") {
		return nil, tool.NewToolError("book_flight", fmt.Sprintf("unknown flight id %q", id), "UNKNOWN_FLIGHT")
	}

	name, err := requireString(args, "passenger_name")
	if err != nil {
		return nil, err
	}

	return BookFlight(id, name), nil
}

func (tb *Toolbox) bookHotel(_ *core.ToolContext, args map[string]any) (any, error) {
	id, err := requireString(args, "hotel_id")
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(id, "HTL-") {
		return nil, tool.NewToolError("book_hotel", fmt.Sprintf("unknown hotel id %q", id), "UNKNOWN_HOTEL")
	}

	name, err := requireString(args, "guest_name")
	if err != nil {
		return nil, err
	}

	return BookHotel(id, name, intArg(args, "nights", 3)), nil
}

func requireString(args map[string]any, key string) (string, error) {
	s := strings.TrimSpace(stringArg(args, key, ""))
	if s == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}

	return s, nil
}

func stringArg(args map[string]any, key, def string) string {
	if s, ok := args[key].(string); ok && s != "" {
		return s
	}

	return def
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
