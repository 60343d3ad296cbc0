package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"flight_search/internal/models"
)

const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusError     = "error"
)

var allowedStatuses = map[string]struct{}{
	StatusPending:   {},
	StatusProcessed: {},
	StatusError:     {},
}

// IsValidStatus reports whether s is a known import status.
func IsValidStatus(s string) bool {
	_, ok := allowedStatuses[s]
	return ok
}

// ImportRepository tracks flights submitted for ingestion.
type ImportRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewImportRepository(db *pgxpool.Pool) *ImportRepository {
	return &ImportRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateTx inserts imp with status pending.
func (r *ImportRepository) CreateTx(ctx context.Context, tx pgx.Tx, imp *models.FlightImport) error {
	if imp == nil {
		return fmt.Errorf("import is nil")
	}
	if imp.FlightNo == "" {
		return fmt.Errorf("flight_no is empty")
	}

	imp.Status = StatusPending

	query := r.sb.
		Insert("flight_imports").
		Columns("flight_no", "departure", "status").
		Values(imp.FlightNo, imp.Departure, StatusPending).
		Suffix("RETURNING id, created_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build create import sql: %w", err)
	}

	var id int64
	if err := tx.QueryRow(ctx, sqlStr, args...).Scan(&id, &imp.CreatedAt); err != nil {
		return fmt.Errorf("create import: %w", err)
	}

	imp.ID = int(id)
	imp.ProcessedAt = nil

	return nil
}

// UpdateStatus sets status and processed_at outside a transaction.
func (r *ImportRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	sqlStr, args, err := r.updateStatusQuery(id, status)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("update import status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *ImportRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int, status string) error {
	sqlStr, args, err := r.updateStatusQuery(id, status)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("update import status tx: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *ImportRepository) updateStatusQuery(id int, status string) (string, []any, error) {
	if id <= 0 {
		return "", nil, fmt.Errorf("invalid id")
	}
	if !IsValidStatus(status) {
		return "", nil, fmt.Errorf("invalid status: %s", status)
	}

	sqlStr, args, err := r.sb.
		Update("flight_imports").
		Set("status", status).
		Set("processed_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build update import status sql: %w", err)
	}
	return sqlStr, args, nil
}

// GetByFlightNo pages through the imports of one flight number, newest first.
func (r *ImportRepository) GetByFlightNo(
	ctx context.Context,
	flightNo string,
	status string,
	limit int,
	offset int,
) ([]*models.FlightImport, int, error) {
	if flightNo == "" {
		return nil, 0, fmt.Errorf("flight_no is empty")
	}
	if status != "" && !IsValidStatus(status) {
		return nil, 0, fmt.Errorf("invalid status: %s", status)
	}

	filters := sq.And{
		sq.Eq{"flight_no": flightNo},
	}
	if status != "" {
		filters = append(filters, sq.Eq{"status": status})
	}

	// 1) count
	countSQL, countArgs, err := r.sb.
		Select("COUNT(*)").
		From("flight_imports").
		Where(filters).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count imports sql: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count import rows: %w", err)
	}

	// 2) page
	dataQuery := r.sb.
		Select("id", "flight_no", "departure", "status", "created_at", "processed_at").
		From("flight_imports").
		Where(filters).
		OrderBy("created_at DESC", "id DESC")

	if limit > 0 {
		dataQuery = dataQuery.Limit(uint64(limit))
	}
	if offset > 0 {
		dataQuery = dataQuery.Offset(uint64(offset))
	}

	dataSQL, dataArgs, err := dataQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build select imports sql: %w", err)
	}

	rows, err := r.db.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query import rows: %w", err)
	}
	defer rows.Close()

	result := make([]*models.FlightImport, 0)

	for rows.Next() {
		var (
			m         models.FlightImport
			id        int64
			departure time.Time
			processed pgtype.Timestamptz
		)

		if err := rows.Scan(
			&id,
			&m.FlightNo,
			&departure,
			&m.Status,
			&m.CreatedAt,
			&processed,
		); err != nil {
			return nil, 0, fmt.Errorf("scan import row: %w", err)
		}

		m.ID = int(id)
		m.Departure = departure
		if processed.Valid {
			t := processed.Time
			m.ProcessedAt = &t
		}

		result = append(result, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate import rows: %w", err)
	}

	return result, int(total), nil
}
