package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/JakeFAU/articles-api/internal/article"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	first := article.PublishedEvent{ArticleID: uuid.New(), Title: "one"}
	id1, err := pub.Publish(context.Background(), "topic-a", first)
	if err != nil || id1 != "memory-1" {
		t.Fatalf("unexpected publish result id=%s err=%v", id1, err)
	}
	id2, err := pub.Publish(context.Background(), "topic-b", article.PublishedEvent{Title: "two"})
	if err != nil || id2 != "memory-2" {
		t.Fatalf("unexpected publish result id=%s err=%v", id2, err)
	}

	msgs := pub.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != "topic-a" || msgs[1].Topic != "topic-b" {
		t.Fatalf("topics not recorded correctly: %+v", msgs)
	}
	if msgs[0].Event != first {
		t.Fatalf("event not recorded: %+v", msgs[0].Event)
	}

	msgs[0].Topic = "modified"
	if pub.Messages()[0].Topic == "modified" {
		t.Fatal("expected Messages() to return a copy")
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
