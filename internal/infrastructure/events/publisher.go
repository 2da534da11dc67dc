package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const TypeMessageCreated = "message.created"

// MessageEvent is written to the bus for every persisted chat message.
type MessageEvent struct {
	Type        string    `json:"type"`
	RoomID      string    `json:"room_id"`
	MessageID   string    `json:"message_id"`
	SenderID    string    `json:"sender_id"`
	MessageType string    `json:"message_type"`
	Seq         int64     `json:"seq"`
	CreatedAt   time.Time `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event MessageEvent) error
	Close() error
}

// KafkaPublisher keys records by room so one room stays on one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// publishTimeout bounds the partition lookup a write may need before it is
// handed to the background batcher.
const publishTimeout = 2 * time.Second

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
			Completion:   logFailedBatch,
		},
	}
}

// Publish hands the event to the writer and returns without waiting for the
// broker; failed batches are logged by the writer's completion hook.
func (p *KafkaPublisher) Publish(ctx context.Context, event MessageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RoomID),
		Value: payload,
		Time:  event.CreatedAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func logFailedBatch(messages []kafka.Message, err error) {
	if err != nil {
		log.Printf("Events: failed to publish %d message events: %v", len(messages), err)
	}
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event MessageEvent) error { return nil }
func (NoopPublisher) Close() error                                         { return nil }
