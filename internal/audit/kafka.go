package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"ysvs/internal/platform/kafka/producer"
)

// DefaultTopic is where audit events land unless configured otherwise.
const DefaultTopic = "ysvs.audit.v1"

// KafkaSink publishes audit events to a Kafka topic, keyed by subject so all
// events for one registration or certificate stay in partition order.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
}

func NewKafkaSink(p *producer.Producer, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.SubjectID),
		Value: payload,
		Headers: map[string]string{
			"action": event.Action,
		},
	})
}
