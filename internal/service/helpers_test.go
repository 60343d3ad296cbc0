package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"flight_search/internal/models"
)

func ts(s string) time.Time {
	t, err := time.Parse(models.TimestampLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func flight(no, from, to, dep, arr string, price, bag float64, bags int) models.Flight {
	return models.Flight{
		FlightNo:    no,
		Origin:      from,
		Destination: to,
		Departure:   ts(dep),
		Arrival:     ts(arr),
		BasePrice:   price,
		BagPrice:    bag,
		BagsAllowed: bags,
	}
}

// timetable: AAA-CCC direct for 200 or via BBB for 150, and a way back.
func timetable() []models.Flight {
	return []models.Flight{
		flight("F1", "AAA", "BBB", "2021-09-01T10:00:00", "2021-09-01T12:00:00", 100, 10, 2),
		flight("F2", "BBB", "CCC", "2021-09-01T14:00:00", "2021-09-01T16:00:00", 50, 5, 1),
		flight("F3", "AAA", "CCC", "2021-09-01T09:00:00", "2021-09-01T13:00:00", 200, 20, 2),
		flight("F4", "CCC", "AAA", "2021-09-05T10:00:00", "2021-09-05T14:00:00", 80, 8, 2),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

type countingStore struct {
	mu      sync.Mutex
	flights []models.Flight
	err     error
	calls   int
}

func (s *countingStore) ListAll(context.Context) ([]models.Flight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.flights, nil
}

type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) Close() error { return nil }

// fakeTx implements the two pgx.Tx methods the services call.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	txs []*fakeTx
	err error
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if d.err != nil {
		return nil, d.err
	}
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	return tx, nil
}

func (d *fakeDB) last() *fakeTx {
	if len(d.txs) == 0 {
		return nil
	}
	return d.txs[len(d.txs)-1]
}

var errBoom = errors.New("boom")
