package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"flight_search/internal/kafka"
	"flight_search/internal/metrics"
	"flight_search/internal/models"
	"flight_search/internal/repository"
	"flight_search/internal/search"
)

const DefaultTopic = "timetable_flights"

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type importStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, imp *models.FlightImport) error
	UpdateStatus(ctx context.Context, id int, status string) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int, status string) error
	GetByFlightNo(ctx context.Context, flightNo, status string, limit, offset int) ([]*models.FlightImport, int, error)
}

type flightStore interface {
	UpsertTx(ctx context.Context, tx pgx.Tx, f *models.Flight) error
	Get(ctx context.Context, flightNo string, departure time.Time) (*models.Flight, error)
}

type outboxWriter interface {
	CreateMessage(ctx context.Context, tx pgx.Tx, msg *models.OutboxMessage) error
}

// IngestService feeds the timetable store. Submitted flights travel through
// the outbox and Kafka before they are upserted, so searches only see them
// once the consumer has committed.
type IngestService struct {
	db      txBeginner
	imports importStore
	flights flightStore
	outbox  outboxWriter

	kafkaTopic string
	logger     *slog.Logger
}

func NewIngestService(
	db txBeginner,
	imports importStore,
	flights flightStore,
	outbox outboxWriter,
	kafkaTopic string,
	logger *slog.Logger,
) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(kafkaTopic) == "" {
		kafkaTopic = DefaultTopic
	}

	return &IngestService{
		db:         db,
		imports:    imports,
		flights:    flights,
		outbox:     outbox,
		kafkaTopic: kafkaTopic,
		logger:     logger,
	}
}

// SubmitFlight records a pending import and its outbox message in one
// transaction and returns the import id.
func (s *IngestService) SubmitFlight(ctx context.Context, f *models.Flight) (int, error) {
	if f == nil {
		return 0, fmt.Errorf("%w: flight is nil", ErrInvalidInput)
	}
	if err := search.ValidateFlight(0, f); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	imp := &models.FlightImport{
		FlightNo:  f.FlightNo,
		Departure: f.Departure,
	}
	if err := s.imports.CreateTx(ctx, tx, imp); err != nil {
		return 0, fmt.Errorf("create import tx: %w", err)
	}

	msg := kafka.NewFlightMessage(imp.ID, f)
	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("marshal kafka payload: %w", err)
	}

	ob := &models.OutboxMessage{
		Topic:   s.kafkaTopic,
		Key:     msg.Key(),
		Payload: payload,
	}
	if err := s.outbox.CreateMessage(ctx, tx, ob); err != nil {
		return 0, fmt.Errorf("create outbox message tx: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	s.logger.Info("flight submitted", "import_id", imp.ID, "flight_no", f.FlightNo)
	return imp.ID, nil
}

// ProcessFlightMessage upserts the flight carried by message and marks its
// import processed. Payloads that can never be stored are reported with
// kafka.ErrSkipMessage and their import is marked as failed.
func (s *IngestService) ProcessFlightMessage(ctx context.Context, message []byte) error {
	msg, err := kafka.DecodeFlightMessage(message)
	if err != nil {
		return fmt.Errorf("%w: %w", kafka.ErrSkipMessage, err)
	}

	if err := search.ValidateFlight(0, &msg.Flight); err != nil {
		s.markFailed(ctx, msg.ImportID)
		return fmt.Errorf("%w: %w", kafka.ErrSkipMessage, err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.flights.UpsertTx(ctx, tx, &msg.Flight); err != nil {
		return fmt.Errorf("upsert flight tx: %w", err)
	}

	if msg.ImportID > 0 {
		err := s.imports.UpdateStatusTx(ctx, tx, msg.ImportID, repository.StatusProcessed)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// import rows may be purged before a replay; the flight is still stored
			s.logger.Warn("import row not found", "import_id", msg.ImportID)
		case err != nil:
			return fmt.Errorf("update import status tx: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	metrics.IncFlightsIngested()

	return nil
}

func (s *IngestService) markFailed(ctx context.Context, importID int) {
	if importID <= 0 {
		return
	}
	if err := s.imports.UpdateStatus(ctx, importID, repository.StatusError); err != nil {
		s.logger.Error("mark import failed", "import_id", importID, "error", err)
	}
}

// GetFlight returns the stored flight flightNo departing at departure.
func (s *IngestService) GetFlight(ctx context.Context, flightNo string, departure time.Time) (*models.Flight, error) {
	if strings.TrimSpace(flightNo) == "" {
		return nil, fmt.Errorf("%w: flight_no is required", ErrInvalidInput)
	}
	if departure.IsZero() {
		return nil, fmt.Errorf("%w: departure is required", ErrInvalidInput)
	}
	return s.flights.Get(ctx, flightNo, departure)
}

// GetImports pages through the imports of flightNo. limit is clamped to
// [1, 100] with 50 as default.
func (s *IngestService) GetImports(ctx context.Context, flightNo, status string, limit, offset int) (*models.FlightImportResponse, error) {
	if strings.TrimSpace(flightNo) == "" {
		return nil, fmt.Errorf("%w: flight_no is required", ErrInvalidInput)
	}
	if status != "" && !repository.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: status must be pending|processed|error", ErrInvalidInput)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0", ErrInvalidInput)
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	rows, total, err := s.imports.GetByFlightNo(ctx, flightNo, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get imports by flight_no: %w", err)
	}

	items := make([]models.FlightImportItemResponse, 0, len(rows))
	for _, m := range rows {
		items = append(items, models.FlightImportItemResponse{
			ID:          m.ID,
			FlightNo:    m.FlightNo,
			Departure:   m.Departure.Format(models.TimestampLayout),
			Status:      m.Status,
			CreatedAt:   m.CreatedAt,
			ProcessedAt: m.ProcessedAt,
		})
	}

	return &models.FlightImportResponse{
		FlightNo: flightNo,
		Imports:  items,
		Pagination: models.Pagination{
			Total: total,
			Limit: limit,
		},
	}, nil
}
