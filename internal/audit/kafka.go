package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes activity records as JSON, keyed by user id so one
// user's events stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

type activityEvent struct {
	UserID     int64     `json:"user_id"`
	Action     string    `json:"action"`
	EntityType *string   `json:"entity_type,omitempty"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	Details    *string   `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Write(ctx context.Context, a *domain.ActivityLog) error {
	data, err := json.Marshal(activityEvent{
		UserID:     a.UserID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Details:    a.Details,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("KafkaSink: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(a.UserID, 10)),
		Value: data,
	}); err != nil {
		return fmt.Errorf("KafkaSink: write: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
