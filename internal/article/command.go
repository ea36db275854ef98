package article

import "github.com/google/uuid"

// Command kinds reported by Kind and used as metric labels.
const (
	KindCreate        = "create"
	KindUpdate        = "update"
	KindDelete        = "delete"
	KindPublish       = "publish"
	KindListPublished = "list_published"
)

// Command is one requested mutation or query against a Store. A command is
// consumed exactly once.
type Command interface {
	Kind() string
}

// Create inserts a new unpublished article.
type Create struct {
	Draft Draft
}

// Update replaces the title and body of an existing article.
type Update struct {
	ID    uuid.UUID
	Draft Draft
}

// Delete permanently removes an article.
type Delete struct {
	ID uuid.UUID
}

// Publish marks an article as published.
type Publish struct {
	ID uuid.UUID
}

// ListPublished returns every published article.
type ListPublished struct{}

// Kind implements Command.
func (Create) Kind() string { return KindCreate }

// Kind implements Command.
func (Update) Kind() string { return KindUpdate }

// Kind implements Command.
func (Delete) Kind() string { return KindDelete }

// Kind implements Command.
func (Publish) Kind() string { return KindPublish }

// Kind implements Command.
func (ListPublished) Kind() string { return KindListPublished }

// Result is the typed reply to a Command. Article is set for single-row
// commands, Articles for ListPublished.
type Result struct {
	Article  Article
	Articles []Article
	Err      error
}
