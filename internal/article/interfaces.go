package article

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store executes article operations against a backend. Implementations must be
// safe for concurrent use and must not hold a connection across calls.
type Store interface {
	Create(ctx context.Context, draft Draft) (Article, error)
	Update(ctx context.Context, id uuid.UUID, draft Draft) (Article, error)
	Delete(ctx context.Context, id uuid.UUID) (Article, error)
	Publish(ctx context.Context, id uuid.UUID) (Article, error)
	ListPublished(ctx context.Context) ([]Article, error)
	Ping(ctx context.Context) error
}

// Publisher pushes published-article notifications to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event PublishedEvent) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces article ids.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}
