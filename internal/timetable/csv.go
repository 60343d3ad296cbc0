// Package timetable reads flight timetables from CSV.
package timetable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"flight_search/internal/models"
)

// Columns is the required column set. Order in the file is free.
var Columns = []string{
	"flight_no",
	"origin",
	"destination",
	"departure",
	"arrival",
	"base_price",
	"bag_price",
	"bags_allowed",
}

var (
	ErrMissingColumns = errors.New("timetable: missing columns")
	ErrNoHeader       = errors.New("timetable: no header row")
)

// ReadFile loads the timetable stored at path.
func ReadFile(path string) ([]models.Flight, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open timetable: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a timetable. A row containing any column name is taken as the
// header; all other rows are data. Records that do not parse fail with a
// *models.DataError naming the row and column.
func Read(r io.Reader) ([]models.Flight, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		header []string
		rows   [][]string
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read timetable csv: %w", err)
		}
		if isHeader(rec) {
			header = rec
			continue
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}

	if header == nil {
		return nil, ErrNoHeader
	}
	pos, err := columnPositions(header)
	if err != nil {
		return nil, err
	}

	out := make([]models.Flight, 0, len(rows))
	for i, rec := range rows {
		f, err := parseRow(i, rec, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func isHeader(rec []string) bool {
	for _, v := range rec {
		if slices.Contains(Columns, strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func columnPositions(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, c := range Columns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return pos, nil
}

func parseRow(row int, rec []string, pos map[string]int) (models.Flight, error) {
	field := func(name string) (string, error) {
		i := pos[name]
		if i >= len(rec) {
			return "", &models.DataError{Row: row, Field: name, Err: errors.New("missing value")}
		}
		return strings.TrimSpace(rec[i]), nil
	}

	var (
		f   models.Flight
		err error
		v   string
	)
	if f.FlightNo, err = field("flight_no"); err != nil {
		return f, err
	}
	if f.Origin, err = field("origin"); err != nil {
		return f, err
	}
	if f.Destination, err = field("destination"); err != nil {
		return f, err
	}

	if v, err = field("departure"); err != nil {
		return f, err
	}
	if f.Departure, err = time.Parse(models.TimestampLayout, v); err != nil {
		return f, &models.DataError{Row: row, Field: "departure", Err: err}
	}
	if v, err = field("arrival"); err != nil {
		return f, err
	}
	if f.Arrival, err = time.Parse(models.TimestampLayout, v); err != nil {
		return f, &models.DataError{Row: row, Field: "arrival", Err: err}
	}

	if v, err = field("base_price"); err != nil {
		return f, err
	}
	if f.BasePrice, err = parsePrice(v); err != nil {
		return f, &models.DataError{Row: row, Field: "base_price", Err: err}
	}
	if v, err = field("bag_price"); err != nil {
		return f, err
	}
	if f.BagPrice, err = parsePrice(v); err != nil {
		return f, &models.DataError{Row: row, Field: "bag_price", Err: err}
	}
	if v, err = field("bags_allowed"); err != nil {
		return f, err
	}
	if f.BagsAllowed, err = strconv.Atoi(v); err != nil {
		return f, &models.DataError{Row: row, Field: "bags_allowed", Err: err}
	}

	return f, nil
}

// parsePrice rejects NaN and infinities, which ParseFloat accepts.
func parsePrice(v string) (float64, error) {
	p, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%q is not a finite number", v)
	}
	return p, nil
}
