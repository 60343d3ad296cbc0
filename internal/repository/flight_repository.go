package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flight_search/internal/models"
)

var flightColumns = []string{
	"flight_no",
	"origin",
	"destination",
	"departure",
	"arrival",
	"base_price",
	"bag_price",
	"bags_allowed",
}

// FlightRepository stores the timetable, one row per (flight_no, departure).
type FlightRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewFlightRepository(db *pgxpool.Pool) *FlightRepository {
	return &FlightRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// ListAll returns the full timetable in a stable order.
func (r *FlightRepository) ListAll(ctx context.Context) ([]models.Flight, error) {
	sqlStr, args, err := listFlightsQuery(r.sb).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list flights sql: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	res := make([]models.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flight row: %w", err)
		}
		res = append(res, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flight rows: %w", err)
	}

	return res, nil
}

// Get loads one flight by its key.
func (r *FlightRepository) Get(ctx context.Context, flightNo string, departure time.Time) (*models.Flight, error) {
	if flightNo == "" {
		return nil, fmt.Errorf("flight_no is empty")
	}
	if departure.IsZero() {
		return nil, fmt.Errorf("departure is zero")
	}

	query := r.sb.
		Select(flightColumns...).
		From("flights").
		Where(sq.Eq{
			"flight_no": flightNo,
			"departure": departure,
		}).
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get flight sql: %w", err)
	}

	f, err := scanFlight(r.db.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get flight: %w", err)
	}

	return &f, nil
}

func (r *FlightRepository) UpsertTx(ctx context.Context, tx pgx.Tx, f *models.Flight) error {
	if err := validateFlight(f); err != nil {
		return err
	}

	sqlStr, args, err := upsertFlightQuery(r.sb, f).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert flight tx sql: %w", err)
	}

	if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("upsert flight tx: %w", err)
	}

	return nil
}

func validateFlight(f *models.Flight) error {
	if f == nil {
		return fmt.Errorf("flight is nil")
	}
	if f.FlightNo == "" {
		return fmt.Errorf("flight_no is empty")
	}
	if f.Departure.IsZero() {
		return fmt.Errorf("departure is zero")
	}
	return nil
}

func listFlightsQuery(sb sq.StatementBuilderType) sq.SelectBuilder {
	return sb.
		Select(flightColumns...).
		From("flights").
		OrderBy("departure ASC", "flight_no ASC")
}

func upsertFlightQuery(sb sq.StatementBuilderType, f *models.Flight) sq.InsertBuilder {
	return sb.
		Insert("flights").
		Columns(flightColumns...).
		Values(
			f.FlightNo,
			f.Origin,
			f.Destination,
			f.Departure,
			f.Arrival,
			f.BasePrice,
			f.BagPrice,
			f.BagsAllowed,
		).
		Suffix(`
ON CONFLICT (flight_no, departure)
DO UPDATE SET
	origin = EXCLUDED.origin,
	destination = EXCLUDED.destination,
	arrival = EXCLUDED.arrival,
	base_price = EXCLUDED.base_price,
	bag_price = EXCLUDED.bag_price,
	bags_allowed = EXCLUDED.bags_allowed,
	updated_at = NOW()
`)
}

func scanFlight(row pgx.Row) (models.Flight, error) {
	var (
		f    models.Flight
		bags int32
	)
	err := row.Scan(
		&f.FlightNo,
		&f.Origin,
		&f.Destination,
		&f.Departure,
		&f.Arrival,
		&f.BasePrice,
		&f.BagPrice,
		&bags,
	)
	f.BagsAllowed = int(bags)
	return f, err
}
