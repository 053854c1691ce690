package travel

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
)

// Conditions is a snapshot of the weather at a destination.
type Conditions struct {
	TemperatureC  int    `json:"temperature_c"`
	TemperatureF  int    `json:"temperature_f"`
	Condition     string `json:"condition"`
	HumidityPct   int    `json:"humidity_pct"`
	WindKPH       int    `json:"wind_kph"`
	RainChancePct int    `json:"rain_chance_pct"`
}

// Weather is the result of get_weather.
type Weather struct {
	Destination string     `json:"destination"`
	Current     Conditions `json:"current"`
	RetrievedAt time.Time  `json:"retrieved_at"`
}

// Summary renders a one-line description, e.g. "Sunny, 22°C".
func (w Weather) Summary() string {
	return fmt.Sprintf("%s, %d°C", w.Current.Condition, w.Current.TemperatureC)
}

// ForecastDay is one day of a forecast.
type ForecastDay struct {
	Date          string `json:"date"`
	HighC         int    `json:"high_c"`
	LowC          int    `json:"low_c"`
	Condition     string `json:"condition"`
	RainChancePct int    `json:"rain_chance_pct"`
}

// Forecast is the result of get_forecast.
type Forecast struct {
	Destination string        `json:"destination"`
	Days        []ForecastDay `json:"forecast"`
}

// PackingList is the result of get_packing_list.
type PackingList struct {
	Categories map[string][]string `json:"packing_list"`
	TripType   string              `json:"trip_type"`
	TotalItems int                 `json:"total_items"`
}

// LuggageRestrictions is the result of check_luggage_restrictions.
type LuggageRestrictions struct {
	Airline         string       `json:"airline"`
	CarryOn         LuggageLimit `json:"carry_on"`
	Checked         LuggageLimit `json:"checked"`
	ProhibitedItems []string     `json:"prohibited_items"`
	Tips            []string     `json:"tips"`
}

// LuggageLimit bounds one class of luggage.
type LuggageLimit struct {
	MaxWeightKG   int    `json:"max_weight_kg"`
	MaxDimensions string `json:"max_dimensions_cm"`
	FreeBags      int    `json:"free_bags,omitempty"`
}

// Activity is a bookable thing to do.
type Activity struct {
	Name     string  `json:"name"`
	Duration string  `json:"duration"`
	PriceUSD int     `json:"price_usd"`
	Rating   float64 `json:"rating"`
}

// Activities is the result of get_activities.
type Activities struct {
	Destination  string                `json:"destination"`
	ByCategory   map[string][]Activity `json:"activities"`
	TotalOptions int                   `json:"total_options"`
}

// Top returns the n best rated activities across all categories. Ties keep
// name order.
func (a Activities) Top(n int) []Activity {
	var all []Activity
	for _, list := range a.ByCategory {
		all = append(all, list...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}

		return all[i].Name < all[j].Name
	})

	if len(all) > n {
		all = all[:n]
	}

	return all
}

// LocalTips is the result of get_local_tips.
type LocalTips struct {
	Destination    string   `json:"destination"`
	Currency       string   `json:"currency"`
	LanguageBasics []string `json:"language_basics"`
	Tipping        string   `json:"tipping"`
	Safety         string   `json:"safety"`
	Transport      string   `json:"transport"`
}

// Flight is one search result.
type Flight struct {
	FlightID       string  `json:"flight_id"`
	Airline        string  `json:"airline"`
	Departure      string  `json:"departure"`
	DurationHours  float64 `json:"duration_hours"`
	Stops          int     `json:"stops"`
	PriceEUR       int     `json:"price_eur"`
	CabinClass     string  `json:"cabin_class"`
	SeatsRemaining int     `json:"seats_remaining"`
}

// FlightSearch is the result of search_flights.
type FlightSearch struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Date        string   `json:"date"`
	Flights     []Flight `json:"flights"`
}

// Cheapest returns the lowest priced flight.
func (s FlightSearch) Cheapest() (Flight, bool) {
	if len(s.Flights) == 0 {
		return Flight{}, false
	}

	best := s.Flights[0]
	for _, f := range s.Flights[1:] {
		if f.PriceEUR < best.PriceEUR {
			best = f
		}
	}

	return best, true
}

// Hotel is one search result.
type Hotel struct {
	HotelID          string   `json:"hotel_id"`
	Name             string   `json:"name"`
	Stars            int      `json:"stars"`
	PricePerNightEUR int      `json:"price_per_night_eur"`
	TotalEUR         int      `json:"total_eur"`
	Rating           float64  `json:"rating"`
	Amenities        []string `json:"amenities"`
	RoomsAvailable   int      `json:"rooms_available"`
}

// HotelSearch is the result of search_hotels.
type HotelSearch struct {
	Destination string  `json:"destination"`
	CheckIn     string  `json:"checkin"`
	Nights      int     `json:"nights"`
	Hotels      []Hotel `json:"hotels"`
}

// Booking confirms a flight or hotel reservation.
type Booking struct {
	Status     string `json:"status"`
	BookingRef string `json:"booking_ref"`
	FlightID   string `json:"flight_id,omitempty"`
	HotelID    string `json:"hotel_id,omitempty"`
	Passenger  string `json:"passenger,omitempty"`
	Guest      string `json:"guest,omitempty"`
	Nights     int    `json:"nights,omitempty"`
}

// DefaultTravelDate is used when a search omits the date.
const DefaultTravelDate = "2025-03-01"

var (
	weatherTable = []Conditions{
		{TemperatureC: 22, Condition: "Sunny", HumidityPct: 45, WindKPH: 12, RainChancePct: 5},
		{TemperatureC: 14, Condition: "Partly Cloudy", HumidityPct: 68, WindKPH: 24, RainChancePct: 40},
		{TemperatureC: 8, Condition: "Overcast with Rain", HumidityPct: 85, WindKPH: 35, RainChancePct: 80},
		{TemperatureC: 30, Condition: "Hot and Humid", HumidityPct: 78, WindKPH: 8, RainChancePct: 15},
		{TemperatureC: -2, Condition: "Cold and Snowy", HumidityPct: 70, WindKPH: 20, RainChancePct: 60},
		{TemperatureC: 18, Condition: "Mild and Breezy", HumidityPct: 55, WindKPH: 18, RainChancePct: 25},
	}

	forecastCycle = []string{"Sunny", "Partly Cloudy", "Cloudy", "Light Rain", "Sunny", "Thunderstorms", "Clear"}
	rainChances   = []int{10, 20, 30, 50, 70}
	airlines      = []string{"Aer Lingus", "Ryanair", "Lufthansa", "KLM", "Emirates", "British Airways"}

	// TripTypes are the packing profiles understood by get_packing_list.
	TripTypes = []string{"general", "business", "hiking", "beach", "city"}
	// ActivityCategories are the filters understood by get_activities.
	ActivityCategories = []string{"all", "sightseeing", "food", "outdoor", "culture"}
)

// charSum is the stable per-destination seed.
func charSum(s string) int {
	sum := 0
	for _, r := range s {
		sum += int(r)
	}

	return sum
}

func rngFor(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(strings.ToLower(p)))
		_, _ = h.Write([]byte{0})
	}

	seed := h.Sum64()

	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func between(r *rand.Rand, lo, hi int) int { return lo + r.IntN(hi-lo+1) }

// CurrentWeather returns the (mock) current conditions at destination.
func CurrentWeather(destination string, now time.Time) Weather {
	w := weatherTable[charSum(strings.ToLower(destination))%len(weatherTable)]
	w.TemperatureF = int(math.Round(float64(w.TemperatureC)*9/5 + 32))

	return Weather{Destination: destination, Current: w, RetrievedAt: now}
}

// ForecastFor returns a days long forecast starting tomorrow. days is clamped
// to 1..14.
func ForecastFor(destination string, days int, now time.Time) Forecast {
	days = min(max(days, 1), 14)

	base := charSum(strings.ToLower(destination))%25 + 5
	r := rngFor("forecast", destination)

	out := Forecast{Destination: destination, Days: make([]ForecastDay, 0, days)}

	for i := 0; i < days; i++ {
		v := between(r, -3, 3)
		out.Days = append(out.Days, ForecastDay{
			Date:          now.AddDate(0, 0, i+1).Format("2006-01-02"),
			HighC:         base + 4 + v,
			LowC:          base - 4 + v,
			Condition:     forecastCycle[(charSum(destination)+i)%len(forecastCycle)],
			RainChancePct: rainChances[r.IntN(len(rainChances))],
		})
	}

	return out
}

// PackingFor derives a packing list from a weather summary and trip type.
func PackingFor(weatherSummary, tripType string) PackingList {
	if tripType == "" {
		tripType = "general"
	}

	cats := map[string][]string{
		"essentials":  {"Passport/ID", "Phone charger", "Travel adapter", "Toiletries bag", "Medications"},
		"clothing":    {"Underwear (7 days)", "Socks (7 pairs)", "Comfortable walking shoes"},
		"accessories": {"Sunglasses", "Day backpack", "Reusable water bottle"},
	}

	ws := strings.ToLower(weatherSummary)

	if containsAny(ws, "rain", "cloudy", "overcast") {
		cats["clothing"] = append(cats["clothing"], "Waterproof jacket", "Umbrella", "Quick-dry trousers")
	}

	if containsAny(ws, "cold", "snow", "freez") {
		cats["clothing"] = append(cats["clothing"], "Warm coat", "Thermal layers", "Gloves", "Beanie", "Scarf")
	}

	if containsAny(ws, "hot", "sunny", "humid") {
		cats["clothing"] = append(cats["clothing"], "Light breathable shirts", "Shorts", "Sun hat", "Sunscreen SPF50")
	}

	if containsAny(ws, "mild", "breezy", "partly") {
		cats["clothing"] = append(cats["clothing"], "Light jacket", "Layers", "Long-sleeve shirts")
	}

	extras := map[string][]string{
		"business": {"Formal shirt/blouse", "Dress shoes", "Laptop + charger", "Blazer"},
		"hiking":   {"Hiking boots", "Trekking poles", "Trail snacks", "First aid kit", "Headlamp"},
		"beach":    {"Swimsuit", "Flip flops", "Beach towel", "Reef-safe sunscreen"},
		"city":     {"City map/guidebook", "Smart casual outfit", "Camera", "Portable battery"},
		"general":  {"Versatile outfit layers", "Comfortable shoes", "Camera"},
	}

	specific, ok := extras[strings.ToLower(tripType)]
	if !ok {
		specific = extras["general"]
	}

	cats["trip_specific"] = specific

	total := 0
	for _, items := range cats {
		total += len(items)
	}

	return PackingList{Categories: cats, TripType: tripType, TotalItems: total}
}

// LuggageFor returns the luggage rules of an airline.
func LuggageFor(airline string) LuggageRestrictions {
	if airline == "" {
		airline = "general"
	}

	return LuggageRestrictions{
		Airline: airline,
		CarryOn: LuggageLimit{MaxWeightKG: 7, MaxDimensions: "55 x 40 x 20"},
		Checked: LuggageLimit{MaxWeightKG: 23, MaxDimensions: "158 linear cm", FreeBags: 1},
		ProhibitedItems: []string{
			"Liquids over 100ml in carry-on",
			"Sharp objects in carry-on",
			"Lithium batteries in checked luggage",
		},
		Tips: []string{
			"Pack liquids in a clear resealable bag",
			"Wear heaviest shoes on the plane",
			"Roll clothes to save space",
		},
	}
}

// ActivitiesFor lists activities of a category ("all" for every category).
// Unknown categories fall back to sightseeing.
func ActivitiesFor(destination, category string) Activities {
	db := map[string][]Activity{
		"sightseeing": {
			{Name: "Walking Tour of " + destination, Duration: "3h", PriceUSD: 25, Rating: 4.7},
			{Name: destination + " Historical Museum", Duration: "2h", PriceUSD: 15, Rating: 4.5},
			{Name: "Panoramic City View Point", Duration: "1h", PriceUSD: 0, Rating: 4.8},
		},
		"food": {
			{Name: "Local Food Tour in " + destination, Duration: "3.5h", PriceUSD: 65, Rating: 4.9},
			{Name: "Cooking Class - Local Cuisine", Duration: "4h", PriceUSD: 80, Rating: 4.6},
			{Name: "Street Food Market Visit", Duration: "2h", PriceUSD: 0, Rating: 4.4},
		},
		"outdoor": {
			{Name: "Day Hike near " + destination, Duration: "5h", PriceUSD: 40, Rating: 4.7},
			{Name: "Bike Tour", Duration: "3h", PriceUSD: 35, Rating: 4.5},
			{Name: "Kayaking / Water Sports", Duration: "2h", PriceUSD: 55, Rating: 4.3},
		},
		"culture": {
			{Name: "Live Music / Theatre", Duration: "2.5h", PriceUSD: 45, Rating: 4.6},
			{Name: "Art Gallery Crawl", Duration: "3h", PriceUSD: 20, Rating: 4.4},
			{Name: "Local Market & Artisan Shops", Duration: "2h", PriceUSD: 0, Rating: 4.5},
		},
	}

	category = strings.ToLower(category)

	selected := db
	if category != "" && category != "all" {
		list, ok := db[category]
		if !ok {
			list = db["sightseeing"]
		}

		selected = map[string][]Activity{category: list}
	}

	total := 0
	for _, list := range selected {
		total += len(list)
	}

	return Activities{Destination: destination, ByCategory: selected, TotalOptions: total}
}

// LocalTipsFor returns practical advice for a destination.
func LocalTipsFor(destination string) LocalTips {
	return LocalTips{
		Destination:    destination,
		Currency:       "Check XE.com for current rates",
		LanguageBasics: []string{"Hello", "Thank you", "Excuse me", "How much?"},
		Tipping:        "10-15% at restaurants is standard in most countries",
		Safety:         "Generally safe for tourists. Keep valuables secure in crowded areas.",
		Transport:      fmt.Sprintf("Public transport in %s is recommended. Consider a day pass.", destination),
	}
}

// SearchFlights returns four flights from origin to destination.
func SearchFlights(origin, destination, date string) FlightSearch {
	if date == "" {
		date = DefaultTravelDate
	}

	seed := charSum(destination)
	base := seed%400 + 150
	r := rngFor("flights", origin, destination, date)

	out := FlightSearch{Origin: origin, Destination: destination, Date: date}

	for i := 0; i < 4; i++ {
		stops := 0
		if i >= 2 {
			stops = 1
		}

		minute := "00"
		if i%2 == 1 {
			minute = "30"
		}

		dur := float64(2 + seed%10)
		if stops > 0 {
			dur += 0.5
		}

		out.Flights = append(out.Flights, Flight{
			FlightID:       fmt.Sprintf("FL-%d", 1000+i),
			Airline:        airlines[(seed+i)%len(airlines)],
			Departure:      fmt.Sprintf("%sT%02d:%s:00", date, 6+i*4, minute),
			DurationHours:  dur,
			Stops:          stops,
			PriceEUR:       base + i*45 + between(r, -20, 40),
			CabinClass:     "Economy",
			SeatsRemaining: between(r, 2, 45),
		})
	}

	return out
}

// SearchHotels returns five hotels. nights < 1 means 1.
func SearchHotels(destination, checkIn string, nights int) HotelSearch {
	if checkIn == "" {
		checkIn = DefaultTravelDate
	}

	nights = max(nights, 1)

	names := []string{
		"Grand Hotel " + destination,
		"The " + destination + " Inn",
		"Park View Suites",
		"Budget Stay " + destination,
		"Boutique " + destination + " House",
	}

	base := charSum(destination)%80 + 60
	r := rngFor("hotels", destination, checkIn)

	out := HotelSearch{Destination: destination, CheckIn: checkIn, Nights: nights}

	for i, name := range names {
		price := base + i*30 + between(r, -10, 20)
		stars := min(5, 2+i)

		amenities := []string{"WiFi", "Breakfast"}
		if stars >= 4 {
			amenities = append(amenities, "Pool", "Gym")
		}

		rating := 3.5 + float64(stars)*0.25 + (r.Float64()*0.5 - 0.2)

		out.Hotels = append(out.Hotels, Hotel{
			HotelID:          fmt.Sprintf("HTL-%d", 2000+i),
			Name:             name,
			Stars:            stars,
			PricePerNightEUR: price,
			TotalEUR:         price * nights,
			Rating:           math.Round(rating*10) / 10,
			Amenities:        amenities,
			RoomsAvailable:   between(r, 1, 12),
		})
	}

	return out
}

// BookFlight confirms a flight. The reference is derived from the inputs.
func BookFlight(flightID, passenger string) Booking {
	return Booking{
		Status:     "confirmed",
		BookingRef: fmt.Sprintf("BK-%d", between(rngFor("book_flight", flightID, passenger), 100000, 999999)),
		FlightID:   flightID,
		Passenger:  passenger,
	}
}

// BookHotel confirms a hotel stay.
func BookHotel(hotelID, guest string, nights int) Booking {
	nights = max(nights, 1)

	return Booking{
		Status:     "confirmed",
		BookingRef: fmt.Sprintf("HBK-%d", between(rngFor("book_hotel", hotelID, guest), 100000, 999999)),
		HotelID:    hotelID,
		Guest:      guest,
		Nights:     nights,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
