package events

import (
	"context"
	"encoding/json"
	"time"

	"dukira/internal/logger"

	"github.com/segmentio/kafka-go"
)

const Topic = "dukira-events"

const (
	TypeSyncRequested = "sync.requested"
	TypeImagePending  = "image.pending"
)

// Event is the envelope for every message on the topic. Only the fields
// relevant to the event type are set. Ordering across events is not
// guaranteed and consumers must not rely on it.
type Event struct {
	Type      string    `json:"type"`
	StoreID   string    `json:"store_id,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	JobType   string    `json:"job_type,omitempty"`
	ImageID   string    `json:"image_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

func NewPublisher(brokers string, logger *logger.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers),
		Topic:        Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}
}

func (p *Publisher) PublishSyncRequested(ctx context.Context, storeID, jobID, jobType string) error {
	return p.publish(ctx, storeID, Event{
		Type:      TypeSyncRequested,
		StoreID:   storeID,
		JobID:     jobID,
		JobType:   jobType,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) PublishImagePending(ctx context.Context, imageID string) error {
	return p.publish(ctx, imageID, Event{
		Type:      TypeImagePending,
		ImageID:   imageID,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, key string, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to publish %s event: %v", event.Type, err)
		return err
	}

	p.logger.Debug("Published %s event (key=%s)", event.Type, key)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
