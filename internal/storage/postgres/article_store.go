package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/articles-api/internal/article"
)

const (
	articlesTable      = "articles"
	defaultPingTimeout = 3 * time.Second
)

var articleColumns = []string{"id", "title", "body", "published"}

const returningArticle = "RETURNING id, title, body, published"

// DB is the minimal pool surface the store depends on (pgxpool or pgxmock).
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// ArticleStore implements article.Store on Postgres.
type ArticleStore struct {
	db  DB
	ids article.IDGenerator
}

// NewArticleStore creates the connection pool, verifies it with a ping and
// returns a store backed by it.
func NewArticleStore(ctx context.Context, cfg Config, ids article.IDGenerator) (*ArticleStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewArticleStoreWithPool(pool, ids)
}

// NewArticleStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewArticleStoreWithPool(db DB, ids article.IDGenerator) (*ArticleStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	return &ArticleStore{db: db, ids: ids}, nil
}

// Close releases the underlying pool resources.
func (s *ArticleStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// Ping checks that a connection can be acquired and used.
func (s *ArticleStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return article.NewStorageError("ping", err)
	}
	return nil
}

// Create inserts a new unpublished article with a server-generated id.
func (s *ArticleStore) Create(ctx context.Context, draft article.Draft) (article.Article, error) {
	id, err := s.ids.NewRawID()
	if err != nil {
		return article.Article{}, article.NewStorageError("create", err)
	}
	query, args, err := squirrel.Insert(articlesTable).
		Columns(articleColumns...).
		Values(id, draft.Title, draft.Body, false).
		Suffix(returningArticle).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return article.Article{}, article.NewStorageError("create", fmt.Errorf("building insert query: %w", err))
	}
	var created article.Article
	if err := pgxscan.Get(ctx, s.db, &created, query, args...); err != nil {
		if article.IsUniqueViolation(err) {
			err = fmt.Errorf("duplicate article id %s: %w", id, err)
		}
		return article.Article{}, article.NewStorageError("create", err)
	}
	return created, nil
}

// Update replaces title and body of the matching article.
func (s *ArticleStore) Update(ctx context.Context, id uuid.UUID, draft article.Draft) (article.Article, error) {
	builder := squirrel.Update(articlesTable).
		Set("title", draft.Title).
		Set("body", draft.Body).
		Where(squirrel.Eq{"id": id}).
		Suffix(returningArticle).
		PlaceholderFormat(squirrel.Dollar)
	return s.returningOne(ctx, "update", builder)
}

// Delete removes the matching article and returns its last state.
func (s *ArticleStore) Delete(ctx context.Context, id uuid.UUID) (article.Article, error) {
	builder := squirrel.Delete(articlesTable).
		Where(squirrel.Eq{"id": id}).
		Suffix(returningArticle).
		PlaceholderFormat(squirrel.Dollar)
	return s.returningOne(ctx, "delete", builder)
}

// Publish sets published=true on the matching article. Publishing twice is a no-op.
func (s *ArticleStore) Publish(ctx context.Context, id uuid.UUID) (article.Article, error) {
	builder := squirrel.Update(articlesTable).
		Set("published", true).
		Where(squirrel.Eq{"id": id}).
		Suffix(returningArticle).
		PlaceholderFormat(squirrel.Dollar)
	return s.returningOne(ctx, "publish", builder)
}

// ListPublished returns published articles in insertion order.
func (s *ArticleStore) ListPublished(ctx context.Context) ([]article.Article, error) {
	query, args, err := squirrel.Select(articleColumns...).
		From(articlesTable).
		Where(squirrel.Eq{"published": true}).
		OrderBy("created_at", "id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, article.NewStorageError("list_published", fmt.Errorf("building select query: %w", err))
	}
	var articles []article.Article
	if err := pgxscan.Select(ctx, s.db, &articles, query, args...); err != nil {
		return nil, article.NewStorageError("list_published", err)
	}
	if articles == nil {
		articles = []article.Article{}
	}
	return articles, nil
}

// returningOne runs a single-row statement ending in RETURNING. Zero rows maps
// to article.ErrNotFound.
func (s *ArticleStore) returningOne(ctx context.Context, op string, builder squirrel.Sqlizer) (article.Article, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return article.Article{}, article.NewStorageError(op, fmt.Errorf("building %s query: %w", op, err))
	}
	var row article.Article
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return article.Article{}, article.ErrNotFound
		}
		return article.Article{}, article.NewStorageError(op, err)
	}
	return row, nil
}
