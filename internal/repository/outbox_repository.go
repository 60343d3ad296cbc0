package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flight_search/internal/models"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

const outboxTable = "outbox_messages"

var outboxColumns = []string{
	"id",
	"message_id::text AS message_id",
	"topic",
	"message_key",
	"payload",
	"status",
	"retry_count",
	"created_at",
	"sent_at",
	"last_error",
}

// OutboxRepository stores timetable messages waiting to be published.
type OutboxRepository struct {
	db         *pgxpool.Pool
	sb         sq.StatementBuilderType
	maxRetries int
}

func NewOutboxRepository(db *pgxpool.Pool, maxRetries int) *OutboxRepository {
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &OutboxRepository{
		db:         db,
		sb:         sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		maxRetries: maxRetries,
	}
}

func checkOutboxMessage(msg *models.OutboxMessage) error {
	switch {
	case msg == nil:
		return errors.New("outbox message is nil")
	case msg.Topic == "":
		return errors.New("outbox topic is empty")
	case len(msg.Payload) == 0:
		return errors.New("outbox payload is empty")
	case !json.Valid(msg.Payload):
		return errors.New("outbox payload is not valid json")
	}
	return nil
}

// CreateMessage queues msg inside tx so it commits together with the import
// it announces.
func (r *OutboxRepository) CreateMessage(ctx context.Context, tx pgx.Tx, msg *models.OutboxMessage) error {
	if err := checkOutboxMessage(msg); err != nil {
		return err
	}

	sqlStr, args, err := r.sb.
		Insert(outboxTable).
		Columns("topic", "message_key", "payload").
		Values(msg.Topic, msg.Key, []byte(msg.Payload)).
		Suffix("RETURNING id, message_id::text, status, retry_count, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}

	row := tx.QueryRow(ctx, sqlStr, args...)
	if err := row.Scan(&msg.ID, &msg.MessageID, &msg.Status, &msg.RetryCount, &msg.CreatedAt); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	msg.SentAt, msg.LastError = nil, nil
	return nil
}

// GetPendingMessages returns up to limit pending messages in insertion order.
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	sqlStr, args, err := r.sb.
		Select(outboxColumns...).
		From(outboxTable).
		Where(sq.Eq{"status": OutboxStatusPending}).
		OrderBy("created_at", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outbox pending select: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox pending: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.OutboxMessage])
	if err != nil {
		return nil, fmt.Errorf("collect outbox pending: %w", err)
	}
	return msgs, nil
}

// MarkAsSent records a successful publish.
func (r *OutboxRepository) MarkAsSent(ctx context.Context, messageID string) error {
	if messageID == "" {
		return errors.New("outbox message id is empty")
	}

	return r.update(ctx, "mark outbox sent", r.sb.
		Update(outboxTable).
		SetMap(map[string]any{
			"status":     OutboxStatusSent,
			"sent_at":    sq.Expr("NOW()"),
			"last_error": nil,
		}).
		Where(sq.Eq{"message_id": messageID}))
}

// MarkAsFailed counts a failed publish. The message leaves the pending queue
// once its retry count reaches the limit.
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, messageID string, errorMsg string) error {
	if messageID == "" {
		return errors.New("outbox message id is empty")
	}
	if errorMsg == "" {
		errorMsg = "unknown error"
	}

	return r.update(ctx, "mark outbox failed", r.markFailedQuery(messageID, errorMsg))
}

func (r *OutboxRepository) markFailedQuery(messageID, errorMsg string) sq.UpdateBuilder {
	giveUp := sq.Expr(
		"CASE WHEN retry_count + 1 >= ? THEN ? ELSE status END",
		r.maxRetries, OutboxStatusFailed,
	)
	return r.sb.
		Update(outboxTable).
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("last_error", errorMsg).
		Set("status", giveUp).
		Where(sq.Eq{"message_id": messageID})
}

func (r *OutboxRepository) update(ctx context.Context, op string, q sq.UpdateBuilder) error {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CleanupOldMessages deletes sent messages older than retentionDays and
// returns how many were removed.
func (r *OutboxRepository) CleanupOldMessages(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	sqlStr, args, err := r.sb.
		Delete(outboxTable).
		Where(sq.And{
			sq.Eq{"status": OutboxStatusSent},
			sq.Expr("sent_at < NOW() - make_interval(days => ?)", retentionDays),
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build outbox cleanup: %w", err)
	}

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup outbox: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *OutboxRepository) MaxRetries() int { return r.maxRetries }
