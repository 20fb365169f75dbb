package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes audit events to a Kafka topic keyed by help request
// id, so one request's lifecycle stays ordered within a partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 3, 1, nil, topic); err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

type kafkaPayload struct {
	Timestamp     string `json:"timestamp"`
	HelpRequestID string `json:"helpRequestId"`
	UserID        string `json:"userId,omitempty"`
	Action        string `json:"action"`
	Detail        string `json:"detail,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
}

// Append produces the event synchronously.
func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(kafkaPayload{
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		HelpRequestID: event.HelpRequestID.String(),
		UserID:        event.UserID.String(),
		Action:        string(event.Action),
		Detail:        event.Detail,
		RequestID:     event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.HelpRequestID.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
