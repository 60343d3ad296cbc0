package search

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"flight_search/internal/models"
)

// Project converts completed itineraries into results ordered by total
// price. Equal prices keep discovery order.
func Project(its []*Itinerary, cfg *Config) []models.Itinerary {
	out := make([]models.Itinerary, 0, len(its))
	for _, it := range its {
		flights := it.Flights()
		if len(flights) == 0 {
			continue
		}
		out = append(out, project(it, flights, cfg))
	}

	slices.SortStableFunc(out, func(a, b models.Itinerary) int {
		return cmp.Compare(a.TotalPrice, b.TotalPrice)
	})
	return out
}

func project(it *Itinerary, flights []*models.Flight, cfg *Config) models.Itinerary {
	res := models.Itinerary{
		Flights:     make([]models.Flight, 0, len(flights)),
		BagsAllowed: flights[0].BagsAllowed,
		BagsCount:   cfg.Bags,
		Origin:      cfg.Source,
		Destination: cfg.Destination,
	}

	var base, bags float64
	for _, f := range flights {
		res.Flights = append(res.Flights, *f)
		res.BagsAllowed = min(res.BagsAllowed, f.BagsAllowed)
		base += f.BasePrice
		bags += f.BagPrice * float64(cfg.Bags)
	}
	res.TotalPrice = base + bags

	first, last := &it.Legs[0], &it.Legs[len(it.Legs)-1]
	switch cfg.Trip {
	case Return:
		res.TravelTimes = []models.TravelTime{
			{To: cfg.Destination, Elapsed: FormatElapsed(first.Elapsed())},
			{To: cfg.Source, Elapsed: FormatElapsed(last.Elapsed())},
		}
	case Multicity:
		res.MiddleDestination = cfg.MiddleDestination
		res.TravelTimes = []models.TravelTime{
			{To: cfg.MiddleDestination, Elapsed: FormatElapsed(first.Elapsed())},
			{To: cfg.Destination, Elapsed: FormatElapsed(last.Elapsed())},
		}
	default:
		elapsed := flights[len(flights)-1].Arrival.Sub(flights[0].Departure)
		res.TravelTimes = []models.TravelTime{{Elapsed: FormatElapsed(elapsed)}}
	}

	return res
}

// FormatElapsed renders d as "H:MM:SS", prefixed by "N day, " or
// "N days, " when d spans whole days.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		return "-" + FormatElapsed(-d)
	}
	d = d.Truncate(time.Second)

	day := 24 * time.Hour
	n := d / day
	d -= n * day
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	hms := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	switch n {
	case 0:
		return hms
	case 1:
		return "1 day, " + hms
	default:
		return fmt.Sprintf("%d days, %s", n, hms)
	}
}
