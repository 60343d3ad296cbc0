package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"flight_search/internal/models"
)

type Producer struct {
	topic    string
	producer sarama.SyncProducer
}

func NewSyncProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()

	// required by SyncProducer
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 500 * time.Millisecond

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create sarama sync producer: %w", err)
	}

	return newProducer(prod, topic), nil
}

func newProducer(p sarama.SyncProducer, topic string) *Producer {
	return &Producer{
		topic:    topic,
		producer: p,
	}
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

// SendFlight publishes f to the producer topic.
func (p *Producer) SendFlight(importID int, f *models.Flight) error {
	if f == nil {
		return fmt.Errorf("flight is nil")
	}
	if importID < 0 {
		return fmt.Errorf("invalid importID")
	}

	msg := NewFlightMessage(importID, f)
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal flight message: %w", err)
	}

	return p.SendRaw(p.topic, msg.Key(), b)
}

// SendRaw publishes an already encoded payload.
func (p *Producer) SendRaw(topic, key string, payload []byte) error {
	if topic == "" {
		topic = p.topic
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: time.Now(),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send kafka message: %w", err)
	}

	return nil
}
