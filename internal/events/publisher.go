// Package events publishes successful city searches to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// DefaultTopic receives search events when KAFKA_TOPIC is unset.
const DefaultTopic = "weather_searches"

// Search describes one successful search.
type Search struct {
	Username     string    `json:"username,omitempty"`
	City         string    `json:"city"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	TemperatureC float64   `json:"temperatureC"`
	At           time.Time `json:"at"`
}

// KafkaPublisher sends search events through a synchronous producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaPublisher connects a producer that waits for all in-sync replicas.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("connect to kafka: %w", err)
	}
	return NewPublisherWithProducer(producer, topic, logger), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// PublishSearch sends ev keyed by username so one user's searches stay ordered.
func (p *KafkaPublisher) PublishSearch(_ context.Context, ev Search) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	bytes, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode search event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Username),
		Value: sarama.ByteEncoder(bytes),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send search event: %w", err)
	}

	p.logger.Debug("search event sent",
		"city", ev.City,
		"partition", partition,
		"offset", offset)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
