package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// Kafka record header names.
const (
	HeaderDedupeKey   = "dedupe-key"
	HeaderRecipientID = "recipient-id"
)

// NewKafkaProducer creates a synchronous producer that waits for all in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Version = sarama.V2_5_0_0

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// kafkaMessage is the JSON value of a notification record.
type kafkaMessage struct {
	DedupeKey   string    `json:"dedupeKey"`
	RecipientID string    `json:"recipientId"`
	Transition  string    `json:"transition"`
	GroupID     string    `json:"groupId"`
	UserID      string    `json:"userId"`
	ActorID     string    `json:"actorId"`
	Status      string    `json:"status"`
	Role        string    `json:"role"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// KafkaPublisher publishes each notification to "<prefix><topic>", keyed by
// group so one group's notifications stay on one partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	prefix   string
}

func NewKafkaPublisher(producer sarama.SyncProducer, topicPrefix string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, prefix: topicPrefix}
}

func (p *KafkaPublisher) Publish(_ context.Context, n domain.Notification) error {
	value, err := json.Marshal(kafkaMessage{
		DedupeKey:   n.DedupeKey,
		RecipientID: n.RecipientID,
		Transition:  string(n.Transition),
		GroupID:     n.GroupID,
		UserID:      n.UserID,
		ActorID:     n.ActorID,
		Status:      string(n.Status),
		Role:        string(n.Role),
		OccurredAt:  n.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.prefix + n.Topic,
		Key:   sarama.StringEncoder(n.GroupID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderDedupeKey), Value: []byte(n.DedupeKey)},
			{Key: []byte(HeaderRecipientID), Value: []byte(n.RecipientID)},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send to %s: %w", msg.Topic, err)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
