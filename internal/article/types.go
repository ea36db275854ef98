package article

import (
	"time"

	"github.com/google/uuid"
)

// Article is the sole persisted entity, a blog post.
type Article struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Published bool      `json:"published" db:"published"`
}

// Draft carries the user-editable fields of an article.
type Draft struct {
	Title string `json:"title" validate:"notblank,max=255"`
	Body  string `json:"body" validate:"notblank,max=100000"`
}

// PublishedEvent is emitted after an article has been published.
type PublishedEvent struct {
	ArticleID   uuid.UUID `json:"article_id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
}

// Key returns the partitioning key used by event backends.
func (e PublishedEvent) Key() string {
	return e.ArticleID.String()
}
