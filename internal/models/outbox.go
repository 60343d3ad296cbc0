package models

import (
	"encoding/json"
	"time"
)

// OutboxMessage is a Kafka message stored in the same transaction as the
// flight import it announces.
type OutboxMessage struct {
	ID        int             `db:"id"`
	MessageID string          `db:"message_id"` // uuid
	Topic     string          `db:"topic"`
	Key       string          `db:"message_key"`
	Payload   json.RawMessage `db:"payload"` // jsonb

	Status     string     `db:"status"` // pending, sent, failed
	RetryCount int        `db:"retry_count"`
	CreatedAt  time.Time  `db:"created_at"`
	SentAt     *time.Time `db:"sent_at"` // NULL until sent
	LastError  *string    `db:"last_error"`
}
