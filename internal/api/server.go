package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/articles-api/internal/article"
	"github.com/JakeFAU/articles-api/internal/config"
	"github.com/JakeFAU/articles-api/internal/metrics"
	"github.com/JakeFAU/articles-api/internal/middleware"
)

// Error messages returned in the {"error": ...} body.
const (
	msgNotFound        = "article not found"
	msgInvalidID       = "invalid article id"
	msgInvalidJSON     = "invalid JSON body"
	msgBodyTooLarge    = "request body too large"
	msgRequestCanceled = "request canceled"
	msgInternal        = "something went wrong"
)

const readyTimeout = 2 * time.Second

// Submitter runs a command on the worker pool and returns its result.
type Submitter interface {
	Submit(ctx context.Context, cmd article.Command) (article.Result, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the worker pool.
type Server struct {
	router    chi.Router
	submitter Submitter
	ready     Pinger
	cfg       config.ServerConfig
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(submitter Submitter, ready Pinger, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		submitter: submitter,
		ready:     ready,
		cfg:       cfg,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/new", s.createArticle)
	r.Get("/published", s.listPublished)
	r.Put("/{id}", s.updateArticle)
	r.Delete("/{id}", s.deleteArticle)
	r.Post("/{id}/publish", s.publishArticle)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) createArticle(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	s.run(w, r, article.Create{Draft: draft})
}

func (s *Server) updateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	draft, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	s.run(w, r, article.Update{ID: id, Draft: draft})
}

func (s *Server) deleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.run(w, r, article.Delete{ID: id})
}

func (s *Server) publishArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.run(w, r, article.Publish{ID: id})
}

func (s *Server) listPublished(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, article.ListPublished{})
}

// run submits cmd and maps the result to a response.
func (s *Server) run(w http.ResponseWriter, r *http.Request, cmd article.Command) {
	res, err := s.submitter.Submit(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.writeError(w, http.StatusServiceUnavailable, msgRequestCanceled)
			return
		}
		s.logger.Error("submit command failed",
			zap.String("kind", cmd.Kind()),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if res.Err != nil {
		s.writeCommandError(w, r, cmd, res.Err)
		return
	}
	if cmd.Kind() == article.KindListPublished {
		list := res.Articles
		if list == nil {
			list = []article.Article{}
		}
		s.writeJSON(w, http.StatusOK, list)
		return
	}
	s.writeJSON(w, http.StatusOK, res.Article)
}

func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, cmd article.Command, err error) {
	var verr *article.ValidationError
	switch {
	case errors.Is(err, article.ErrNotFound):
		s.writeError(w, http.StatusNotFound, msgNotFound)
	case errors.As(err, &verr):
		s.writeError(w, http.StatusBadRequest, verr.Error())
	default:
		s.logger.Error("command failed",
			zap.String("kind", cmd.Kind()),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := article.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, msgInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) decodeDraft(w http.ResponseWriter, r *http.Request) (article.Draft, bool) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	var draft article.Draft
	err := dec.Decode(&draft)
	if err == nil {
		if extra := dec.Decode(&struct{}{}); !errors.Is(extra, io.EOF) {
			err = fmt.Errorf("trailing data after JSON body: %w", extra)
		}
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return article.Draft{}, false
		}
		s.writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return article.Draft{}, false
	}
	if err := article.ValidateDraft(draft); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return article.Draft{}, false
	}
	return draft, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
