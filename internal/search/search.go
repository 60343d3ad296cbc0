package search

import (
	"context"
	"errors"
)

var (
	// ErrIndexNil is returned when Search is called without an index.
	ErrIndexNil = errors.New("search: index is nil")
	// ErrConfigNil is returned when Search is called without a config.
	ErrConfigNil = errors.New("search: config is nil")
)

// Stats describes the work done by one Search call.
type Stats struct {
	Dequeued  int
	Enqueued  int
	Completed int
	MaxQueue  int
	// Pruned counts rejected expansions by check name.
	Pruned map[string]int
}

// Result holds the completed itineraries in discovery order.
type Result struct {
	Itineraries []*Itinerary
	Stats       Stats
}

// walker holds the mutable state of one breadth-first search.
type walker struct {
	idx   *Index
	cfg   *Config
	ctx   context.Context
	queue []*Itinerary
	res   *Result
}

// Search enumerates every itinerary from cfg.Source to cfg.Terminal() that
// passes all leg checks. An empty result is not an error. The only error
// after argument checks is ctx.Err() when the context ends first.
func Search(ctx context.Context, idx *Index, cfg *Config) (*Result, error) {
	if idx == nil {
		return nil, ErrIndexNil
	}
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	w := &walker{
		idx: idx,
		cfg: cfg,
		ctx: ctx,
		res: &Result{
			Itineraries: make([]*Itinerary, 0),
			Stats:       Stats{Pruned: make(map[string]int)},
		},
	}

	w.enqueue(NewItinerary(cfg.Source))
	return w.res, w.loop()
}

func (w *walker) enqueue(it *Itinerary) {
	w.queue = append(w.queue, it)
	w.res.Stats.Enqueued++
	if n := len(w.queue); n > w.res.Stats.MaxQueue {
		w.res.Stats.MaxQueue = n
	}
}

func (w *walker) dequeue() *Itinerary {
	it := w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]
	w.res.Stats.Dequeued++
	return it
}

// loop processes the queue until it is empty or ctx is done.
func (w *walker) loop() error {
	for len(w.queue) > 0 {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		it := w.dequeue()
		if w.complete(it) {
			w.res.Itineraries = append(w.res.Itineraries, it)
			w.res.Stats.Completed++
			continue
		}
		w.openLeg(it)
		w.expand(it)
	}
	return nil
}

// complete reports whether it ends at the terminal airport after at least
// one real flight.
func (w *walker) complete(it *Itinerary) bool {
	last := it.Current().Last()
	return last != nil && last.Destination == w.cfg.Terminal()
}

// openLeg starts the return leg at the destination, or the second multicity
// leg at the middle destination.
func (w *walker) openLeg(it *Itinerary) {
	last := it.Current().Last()
	if last == nil {
		return
	}
	switch {
	case w.cfg.Trip == Return && last.Destination == w.cfg.Destination:
		it.StartLeg(w.cfg.Destination)
	case w.cfg.Trip == Multicity && last.Destination == w.cfg.MiddleDestination:
		it.StartLeg(w.cfg.MiddleDestination)
	}
}

// expand enqueues one copy of it per compatible departure.
func (w *walker) expand(it *Itinerary) {
	for _, f := range w.idx.Departures(it.Current().End()) {
		if name := Rejection(f, it, w.cfg); name != "" {
			w.res.Stats.Pruned[name]++
			continue
		}
		next := it.Clone()
		next.Append(f)
		w.enqueue(next)
	}
}
