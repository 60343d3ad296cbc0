package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"flight_search/internal/kafka"
	"flight_search/internal/metrics"
	"flight_search/internal/models"
)

type outboxQueue interface {
	GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkAsSent(ctx context.Context, messageID string) error
	MarkAsFailed(ctx context.Context, messageID string, errorMsg string) error
	CleanupOldMessages(ctx context.Context, retentionDays int) (int, error)
}

type rawSender interface {
	SendRaw(topic, key string, payload []byte) error
}

// OutboxSender publishes pending outbox rows to Kafka.
type OutboxSender struct {
	repo          outboxQueue
	producer      rawSender
	pollInterval  time.Duration
	batchSize     int
	retentionDays int
	maxRetries    int
	logger        *slog.Logger

	cleanupEvery time.Duration
}

func NewOutboxSender(
	repo outboxQueue,
	producer rawSender,
	pollInterval time.Duration,
	batchSize int,
	retentionDays int,
	maxRetries int,
	logger *slog.Logger,
) *OutboxSender {
	if maxRetries <= 0 {
		maxRetries = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if retentionDays < 0 {
		retentionDays = 0
	}

	return &OutboxSender{
		repo:          repo,
		producer:      producer,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		retentionDays: retentionDays,
		maxRetries:    maxRetries,
		logger:        logger,
		cleanupEvery:  1 * time.Hour,
	}
}

// Run polls the outbox until ctx is done.
func (s *OutboxSender) Run(ctx context.Context) error {
	s.logger.Info("outbox sender started")
	defer s.logger.Info("outbox sender stopped")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(s.cleanupEvery)
	defer cleanupTicker.Stop()

	s.flushOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.flushOnce(ctx)
		case <-cleanupTicker.C:
			s.cleanupOnce(ctx)
		}
	}
}

// flushOnce sends one batch and returns the number of messages sent.
func (s *OutboxSender) flushOnce(ctx context.Context) int {
	msgs, err := s.repo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("outbox get pending failed", "error", err)
		return 0
	}

	sent := 0
	for _, m := range msgs {
		if err := s.sendOne(m); err != nil {
			// the repository flips the row to failed once the retry limit is hit
			if err2 := s.repo.MarkAsFailed(ctx, m.MessageID, err.Error()); err2 != nil {
				s.logger.Error("outbox mark failed error", "message_id", m.MessageID, "error", err2)
			}
			if m.RetryCount+1 >= s.maxRetries {
				metrics.IncOutboxFailed()
				s.logger.Error("outbox message gave up", "message_id", m.MessageID, "error", err)
			}
			continue
		}
		if err := s.repo.MarkAsSent(ctx, m.MessageID); err != nil {
			s.logger.Error("outbox mark sent failed", "message_id", m.MessageID, "error", err)
			continue
		}
		sent++
	}
	return sent
}

func (s *OutboxSender) sendOne(m *models.OutboxMessage) error {
	if m == nil {
		return fmt.Errorf("outbox message is nil")
	}
	if m.Topic == "" {
		return fmt.Errorf("outbox topic is empty")
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("outbox payload is empty")
	}

	metrics.ObserveOutboxLagSeconds(time.Since(m.CreatedAt).Seconds())
	start := time.Now()

	key := m.Key
	if key == "" {
		msg, err := kafka.DecodeFlightMessage(m.Payload)
		if err != nil {
			metrics.IncKafkaError("producer", "prepare")
			metrics.ObserveOutboxProcessing(time.Since(start))
			return fmt.Errorf("extract message key: %w", err)
		}
		key = msg.Key()
	}

	if err := s.producer.SendRaw(m.Topic, key, m.Payload); err != nil {
		metrics.IncKafkaError("producer", "send")
		metrics.IncOutboxRetry()
		metrics.ObserveOutboxProcessing(time.Since(start))
		return fmt.Errorf("kafka send failed: %w", err)
	}

	metrics.IncKafkaSent()
	metrics.IncOutboxSent()
	metrics.ObserveOutboxProcessing(time.Since(start))

	return nil
}

func (s *OutboxSender) cleanupOnce(ctx context.Context) {
	if s.retentionDays <= 0 {
		return
	}
	n, err := s.repo.CleanupOldMessages(ctx, s.retentionDays)
	if err != nil {
		s.logger.Error("outbox cleanup failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("outbox cleanup", "deleted", n)
	}
}
