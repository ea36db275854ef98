// Package memory provides an in-memory article store for development and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/JakeFAU/articles-api/internal/article"
)

// ArticleStore keeps articles in insertion order behind a mutex.
type ArticleStore struct {
	mu       sync.RWMutex
	ids      article.IDGenerator
	order    []uuid.UUID
	articles map[uuid.UUID]article.Article
}

// NewArticleStore constructs an ArticleStore.
func NewArticleStore(ids article.IDGenerator) *ArticleStore {
	return &ArticleStore{
		ids:      ids,
		articles: make(map[uuid.UUID]article.Article),
	}
}

// Create stores a new unpublished article under a fresh id.
func (s *ArticleStore) Create(_ context.Context, draft article.Draft) (article.Article, error) {
	id, err := s.ids.NewRawID()
	if err != nil {
		return article.Article{}, article.NewStorageError("create", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.articles[id]; exists {
		return article.Article{}, article.NewStorageError("create", errors.New("duplicate article id "+id.String()))
	}
	a := article.Article{ID: id, Title: draft.Title, Body: draft.Body}
	s.articles[id] = a
	s.order = append(s.order, id)
	return a, nil
}

// Update replaces title and body, leaving the published flag untouched.
func (s *ArticleStore) Update(_ context.Context, id uuid.UUID, draft article.Draft) (article.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return article.Article{}, article.ErrNotFound
	}
	a.Title = draft.Title
	a.Body = draft.Body
	s.articles[id] = a
	return a, nil
}

// Delete removes an article and returns its last state.
func (s *ArticleStore) Delete(_ context.Context, id uuid.UUID) (article.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return article.Article{}, article.ErrNotFound
	}
	delete(s.articles, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return a, nil
}

// Publish marks an article as published.
func (s *ArticleStore) Publish(_ context.Context, id uuid.UUID) (article.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return article.Article{}, article.ErrNotFound
	}
	a.Published = true
	s.articles[id] = a
	return a, nil
}

// ListPublished returns a copy of every published article in insertion order.
func (s *ArticleStore) ListPublished(_ context.Context) ([]article.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]article.Article, 0, len(s.order))
	for _, id := range s.order {
		if a := s.articles[id]; a.Published {
			out = append(out, a)
		}
	}
	return out, nil
}

// Ping always succeeds.
func (s *ArticleStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *ArticleStore) Close() {}
