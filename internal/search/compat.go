package search

import (
	"time"

	"flight_search/internal/models"
)

// Check decides whether f may be appended to the current leg of it.
type Check func(f *models.Flight, it *Itinerary, cfg *Config) bool

// Check names, as reported by Rejection and in pruning stats.
const (
	CheckNotRevisited   = "not_revisited"
	CheckLayover        = "layover"
	CheckStayLength     = "stay_length"
	CheckTravelTime     = "travel_time"
	CheckNrChanges      = "nr_changes"
	CheckDepartureDate  = "departure_date"
	CheckMulticityOrder = "multicity_order"
	CheckBags           = "bags"
)

var checks = []struct {
	name string
	ok   Check
}{
	{CheckNotRevisited, NotRevisited},
	{CheckLayover, LayoverCompatible},
	{CheckStayLength, StayLengthCompatible},
	{CheckTravelTime, TravelTimeCompatible},
	{CheckNrChanges, NrChangesCompatible},
	{CheckDepartureDate, DepartureDateCompatible},
	{CheckMulticityOrder, MulticityOrderingCompatible},
	{CheckBags, BagCompatible},
}

// CheckNames lists the checks in evaluation order.
func CheckNames() []string {
	out := make([]string, len(checks))
	for i, c := range checks {
		out[i] = c.name
	}
	return out
}

// Compatible reports whether f passes every check.
func Compatible(f *models.Flight, it *Itinerary, cfg *Config) bool {
	return Rejection(f, it, cfg) == ""
}

// Rejection returns the name of the first check f fails, or "".
func Rejection(f *models.Flight, it *Itinerary, cfg *Config) string {
	for _, c := range checks {
		if !c.ok(f, it, cfg) {
			return c.name
		}
	}
	return ""
}

// NotRevisited rejects a destination already reached in the current leg,
// including the airport the leg started from. Earlier legs do not count.
func NotRevisited(f *models.Flight, it *Itinerary, _ *Config) bool {
	leg := it.Current()
	if f.Destination == leg.Start {
		return false
	}
	for _, prev := range leg.Flights {
		if prev.Destination == f.Destination {
			return false
		}
	}
	return true
}

// LayoverCompatible bounds the connection time inside a leg to
// [1h, MaxLayoverHours], both inclusive.
func LayoverCompatible(f *models.Flight, it *Itinerary, cfg *Config) bool {
	last := it.Current().Last()
	if last == nil {
		return true
	}
	gap := f.Departure.Sub(last.Arrival)
	return gap >= time.Hour && gap <= hours(cfg.MaxLayoverHours)
}

// StayLengthCompatible keeps every flight after the first leg at least
// DaysOfStay days after the first leg's final arrival.
func StayLengthCompatible(f *models.Flight, it *Itinerary, cfg *Config) bool {
	if len(it.Legs) < 2 {
		return true
	}
	arrived := it.Legs[0].Last()
	if arrived == nil {
		return true
	}
	return f.Departure.Sub(arrived.Arrival) >= days(cfg.DaysOfStay)
}

// TravelTimeCompatible bounds the elapsed time of the current leg.
func TravelTimeCompatible(f *models.Flight, it *Itinerary, cfg *Config) bool {
	if cfg.MaxTravelHours == 0 {
		return true
	}
	limit := hours(cfg.MaxTravelHours)
	first := it.Current().First()
	if first == nil {
		return f.Duration() <= limit
	}
	return f.Arrival.Sub(first.Departure) <= limit
}

// NrChangesCompatible limits connections. The bound is taken against the
// number of legs, not the flights in the current leg.
func NrChangesCompatible(_ *models.Flight, it *Itinerary, cfg *Config) bool {
	if it.Current().Empty() {
		return true
	}
	if cfg.MaxNrChanges == -1 {
		return true
	}
	return len(it.Legs) < cfg.MaxNrChanges+1
}

// DepartureDateCompatible pins the very first flight of the trip to the
// configured day. Later flights are unconstrained.
func DepartureDateCompatible(f *models.Flight, it *Itinerary, cfg *Config) bool {
	if !cfg.HasDepartureDate() {
		return true
	}
	if !it.Legs[0].Empty() {
		return true
	}
	return sameDay(f.Departure, cfg.DepartureDate)
}

// MulticityOrderingCompatible keeps the stops of a multicity trip in order:
// the first leg may not reach the final destination and the second leg may
// not return to the source.
func MulticityOrderingCompatible(f *models.Flight, it *Itinerary, cfg *Config) bool {
	if cfg.Trip != Multicity {
		return true
	}
	switch len(it.Legs) {
	case 1:
		return f.Destination != cfg.Destination
	case 2:
		return f.Destination != cfg.Source
	}
	return true
}

func BagCompatible(f *models.Flight, _ *Itinerary, cfg *Config) bool {
	return f.BagsAllowed >= cfg.Bags
}

func hours(n int) time.Duration { return time.Duration(n) * time.Hour }

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
