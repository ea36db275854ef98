// Package log implements a publisher that writes events to the structured log.
package log

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/articles-api/internal/article"
)

// Publisher logs each event at info level. It is the default backend when no
// broker is configured.
type Publisher struct {
	logger *zap.Logger
	seq    atomic.Uint64
}

// New returns a log Publisher.
func New(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// Publish writes the event and returns a sequential pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, event article.PublishedEvent) (string, error) {
	id := fmt.Sprintf("log-%d", p.seq.Add(1))
	p.logger.Info("article published event",
		zap.String("message_id", id),
		zap.String("topic", topic),
		zap.String("article_id", event.ArticleID.String()),
		zap.String("title", event.Title),
		zap.String("published_at", event.PublishedAt.Format(time.RFC3339Nano)),
	)
	return id, nil
}

// Close flushes the logger.
func (p *Publisher) Close() error {
	_ = p.logger.Sync()
	return nil
}
