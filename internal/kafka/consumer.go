package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"flight_search/internal/cache"
	"flight_search/internal/metrics"
)

// ErrSkipMessage marks a message that can never be processed. The consumer
// commits past it instead of retrying.
var ErrSkipMessage = errors.New("kafka: skip message")

type MessageProcessor interface {
	ProcessFlightMessage(ctx context.Context, message []byte) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler sarama.ConsumerGroupHandler
	logger  *slog.Logger
}

func NewConsumer(
	brokers []string,
	groupID string,
	topic string,
	processor MessageProcessor,
	c cache.Cache,
	logger *slog.Logger,
) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := sarama.NewConfig()

	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	// offsets are committed by hand after a message is processed
	cfg.Consumer.Offsets.AutoCommit.Enable = false

	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRange(),
	}
	cfg.Consumer.Group.Session.Timeout = 30 * time.Second
	cfg.Consumer.Group.Heartbeat.Interval = 3 * time.Second

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &Consumer{
		group: group,
		topic: topic,
		handler: &flightGroupHandler{
			processor: processor,
			logger:    logger,
			cache:     c,
			backoff:   retryBackoff,
		},
		logger: logger,
	}, nil
}

// Start consumes until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("consumer group error", "error", err)
			metrics.IncKafkaError("consumer", "group")
		}
	}()

	for {
		err := c.group.Consume(ctx, []string{c.topic}, c.handler)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("consume loop error", "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type flightGroupHandler struct {
	processor MessageProcessor
	logger    *slog.Logger
	cache     cache.Cache
	backoff   func(attempt int) time.Duration
}

func (h *flightGroupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *flightGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *flightGroupHandler) ConsumeClaim(
	session sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	for kafkaMsg := range claim.Messages() {
		lag := claim.HighWaterMarkOffset() - kafkaMsg.Offset - 1
		metrics.SetKafkaConsumerLag(kafkaMsg.Topic, kafkaMsg.Partition, lag)

		err := h.processWithRetry(session.Context(), kafkaMsg)
		switch {
		case errors.Is(err, ErrSkipMessage):
			metrics.IncKafkaError("consumer", "skip")
			h.logger.Error("skipping kafka message",
				"topic", kafkaMsg.Topic,
				"partition", kafkaMsg.Partition,
				"offset", kafkaMsg.Offset,
				"error", err,
			)
			session.MarkMessage(kafkaMsg, "")
			session.Commit()
			continue
		case err != nil:
			metrics.IncKafkaError("consumer", "process")
			// not marked: the message is read again after rebalance
			return err
		}
		metrics.IncKafkaProcessed()

		if h.cache != nil {
			if err := h.cache.Del(session.Context(), cache.TimetableKeys()...); err != nil {
				h.logger.Warn("invalidate timetable cache", "error", err)
			}
		}

		session.MarkMessage(kafkaMsg, "")
		session.Commit()
	}
	return nil
}

// processWithRetry retries until success, a skip error, or ctx is canceled.
func (h *flightGroupHandler) processWithRetry(ctx context.Context, m *sarama.ConsumerMessage) error {
	attempt := 0

	for {
		attempt++
		err := h.processor.ProcessFlightMessage(ctx, m.Value)
		if err == nil || errors.Is(err, ErrSkipMessage) {
			return err
		}

		backoff := h.backoff(attempt)
		h.logger.Warn("process kafka message failed",
			"topic", m.Topic,
			"partition", m.Partition,
			"offset", m.Offset,
			"attempt", attempt,
			"error", err,
			"retry_in", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryBackoff grows linearly from 1s up to 30s.
func retryBackoff(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
