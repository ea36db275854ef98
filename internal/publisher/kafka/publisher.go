// Package kafka implements a publisher backed by Apache Kafka.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	sdk "github.com/segmentio/kafka-go"

	"github.com/JakeFAU/articles-api/internal/article"
)

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

// Publisher writes JSON-encoded events keyed by article id.
type Publisher struct {
	writer MessageWriter
}

// NewWriter builds a kafka writer for the given brokers. The topic is chosen
// per message.
func NewWriter(brokers []string) (*sdk.Writer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	return &sdk.Writer{
		Addr:                   sdk.TCP(brokers...),
		Balancer:               &sdk.Hash{},
		RequiredAcks:           sdk.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}, nil
}

// New creates a Publisher for the provided writer.
func New(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// Publish marshals the event and writes it to topic.
func (p *Publisher) Publish(ctx context.Context, topic string, event article.PublishedEvent) (string, error) {
	if p.writer == nil {
		return "", fmt.Errorf("kafka writer is not configured")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	key := event.Key()
	err = p.writer.WriteMessages(ctx, sdk.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []sdk.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
	if err != nil {
		return "", fmt.Errorf("write message: %w", err)
	}
	return topic + "/" + key, nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
