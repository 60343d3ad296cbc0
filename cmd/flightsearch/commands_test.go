package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight_search/internal/models"
	"flight_search/internal/service"
	"flight_search/internal/timetable"
)

const dataset = `flight_no,origin,destination,departure,arrival,base_price,bag_price,bags_allowed
ZH214,WIW,RFZ,2021-09-01T23:20:00,2021-09-02T03:50:00,168.0,12,2
ZH665,RFZ,WIW,2021-09-02T08:05:00,2021-09-02T12:35:00,168.0,12,1
`

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flights.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSearchCommand_OneWay(t *testing.T) {
	out, _, err := execute(t, writeDataset(t, dataset), "WIW", "RFZ", "--bags", "1")
	require.NoError(t, err)

	lines := strings.SplitN(out, "\n", 2)
	require.Len(t, lines, 2)
	assert.Equal(t, "path from src WIW to dst RFZ are", lines[0])

	body := strings.TrimSpace(lines[1])
	count := body[strings.LastIndex(body, "\n")+1:]
	assert.Equal(t, "1", count)

	var its []map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(body, count)), &its))
	require.Len(t, its, 1)
	assert.Equal(t, 180.0, its[0]["total_price"])
	assert.Equal(t, "4:30:00", its[0]["travel_time"])
	assert.Contains(t, out, "\n    {\n        \"flights\": [")
}

func TestSearchCommand_Return(t *testing.T) {
	out, _, err := execute(t, writeDataset(t, dataset), "WIW", "RFZ", "--return")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "path from src WIW to dst RFZ to src WIW are\n"))
	assert.Contains(t, out, `"travel_time_to_RFZ": "4:30:00"`)
	assert.Contains(t, out, `"travel_time_to_WIW": "4:30:00"`)
	assert.Contains(t, out, `"bags_allowed": 1`)
	assert.True(t, strings.HasSuffix(out, "]\n1\n"))
}

func TestSearchCommand_NoResults(t *testing.T) {
	out, _, err := execute(t, writeDataset(t, dataset), "WIW", "RFZ", "--bags", "3")
	require.NoError(t, err)
	assert.Equal(t, noResults+"\n", out)
}

func TestSearchCommand_Errors(t *testing.T) {
	path := writeDataset(t, dataset)

	_, _, err := execute(t, path, "WIW", "WIW")
	assert.ErrorIs(t, err, service.ErrSameSourceDestination)

	_, _, err = execute(t, path, "WIW", "RFZ", "--return", "--multicity", "--middle_destination", "PRG")
	assert.ErrorIs(t, err, service.ErrReturnAndMulticity)

	_, _, err = execute(t, path, "WIW", "PRG")
	var aerr *service.AirportError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, []string{"RFZ", "WIW"}, aerr.Available)

	_, _, err = execute(t, writeDataset(t, "flight_no,origin\nZH214,WIW\n"), "WIW", "RFZ")
	assert.ErrorIs(t, err, timetable.ErrMissingColumns)

	_, _, err = execute(t, path, "WIW")
	assert.Error(t, err)
}

type fakePublisher struct {
	sent   []models.Flight
	closed bool
}

func (p *fakePublisher) SendFlight(importID int, f *models.Flight) error {
	p.sent = append(p.sent, *f)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func TestPublishCommand(t *testing.T) {
	fake := &fakePublisher{}
	var gotBrokers []string
	var gotTopic string

	orig := newPublisher
	newPublisher = func(brokers []string, topic string) (flightPublisher, error) {
		gotBrokers, gotTopic = brokers, topic
		return fake, nil
	}
	t.Cleanup(func() { newPublisher = orig })

	out, _, err := execute(t, "publish", writeDataset(t, dataset), "--brokers", "k1:9092, k2:9092")
	require.NoError(t, err)

	assert.Equal(t, "published 2 flights to timetable_flights\n", out)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, gotBrokers)
	assert.Equal(t, service.DefaultTopic, gotTopic)
	require.Len(t, fake.sent, 2)
	assert.Equal(t, "ZH665", fake.sent[1].FlightNo)
	assert.True(t, fake.closed)
}
