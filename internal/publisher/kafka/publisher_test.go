package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	sdk "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/articles-api/internal/article"
)

type recordingWriter struct {
	msgs   []sdk.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...sdk.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesKeyedJSON(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{}
	pub := New(writer)
	event := article.PublishedEvent{
		ArticleID:   uuid.New(),
		Title:       "Hello",
		PublishedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	id, err := pub.Publish(context.Background(), "article-published", event)
	require.NoError(t, err)
	require.Equal(t, "article-published/"+event.ArticleID.String(), id)

	require.Len(t, writer.msgs, 1)
	msg := writer.msgs[0]
	require.Equal(t, "article-published", msg.Topic)
	require.Equal(t, event.ArticleID.String(), string(msg.Key))

	var decoded article.PublishedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, event.ArticleID, decoded.ArticleID)
	require.Equal(t, event.Title, decoded.Title)
	require.True(t, event.PublishedAt.Equal(decoded.PublishedAt))

	require.NoError(t, pub.Close())
	require.True(t, writer.closed)
}

func TestPublishWrapsWriterError(t *testing.T) {
	t.Parallel()

	pub := New(&recordingWriter{err: errors.New("leader not available")})
	_, err := pub.Publish(context.Background(), "t", article.PublishedEvent{})
	require.EqualError(t, err, "write message: leader not available")
}

func TestPublishWithoutWriter(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "t", article.PublishedEvent{})
	require.Error(t, err)
}

func TestNewWriterRequiresBrokers(t *testing.T) {
	t.Parallel()

	_, err := NewWriter(nil)
	require.Error(t, err)

	w, err := NewWriter([]string{"localhost:9092"})
	require.NoError(t, err)
	require.Equal(t, "localhost:9092", w.Addr.String())
}
