// Package worker executes article commands pulled from the command queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/articles-api/internal/article"
	"github.com/JakeFAU/articles-api/internal/metrics"
)

const tracerName = "github.com/JakeFAU/articles-api/internal/worker"

// ErrQueueClosed is reported by a Source that will never yield another job.
var ErrQueueClosed = errors.New("queue closed")

// Job is one queued command together with the channel its result goes to.
type Job struct {
	Command  article.Command
	Reply    chan<- article.Result
	Enqueued time.Time
}

// Source yields jobs to workers.
type Source interface {
	Dequeue(ctx context.Context) (Job, error)
}

// Config controls Worker behavior.
type Config struct {
	// Topic receives a PublishedEvent after each successful publish. Empty disables events.
	Topic string
	// PublishTimeout bounds one event delivery. Zero uses DefaultPublishTimeout.
	PublishTimeout time.Duration
}

// DefaultPublishTimeout bounds event delivery when Config.PublishTimeout is unset.
const DefaultPublishTimeout = 5 * time.Second

// Worker consumes jobs one at a time and executes them against the store.
type Worker struct {
	index     int
	queue     Source
	store     article.Store
	publisher article.Publisher
	clock     article.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	index int,
	queue Source,
	store article.Store,
	publisher article.Publisher,
	clock article.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		index:     index,
		queue:     queue,
		store:     store,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With(zap.Int("index", index)),
	}
}

// Run blocks, consuming jobs until the context finishes or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	kind := "unknown"
	if job.Command != nil {
		kind = job.Command.Kind()
	}
	if !job.Enqueued.IsZero() {
		metrics.ObserveQueueWait(time.Since(job.Enqueued))
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "article."+kind,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("article.command", kind), attribute.Int("worker.index", w.index)),
	)
	defer span.End()

	start := time.Now()
	res := w.Execute(ctx, job.Command)
	elapsed := time.Since(start)
	metrics.ObserveCommand(kind, outcome(res.Err), elapsed)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, outcome(res.Err))
	}

	fields := []zap.Field{zap.String("kind", kind), zap.Duration("duration", elapsed)}
	if sc := span.SpanContext(); sc.IsValid() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	if res.Err != nil && !errors.Is(res.Err, article.ErrNotFound) {
		w.logger.Error("command failed", append(fields, zap.Error(res.Err))...)
	} else {
		w.logger.Debug("command executed", fields...)
	}

	w.reply(job, kind, res)

	if res.Err == nil && kind == article.KindPublish {
		w.notifyPublished(ctx, res.Article)
	}
}

// Execute runs a single command to completion against the store.
func (w *Worker) Execute(ctx context.Context, cmd article.Command) article.Result {
	switch c := cmd.(type) {
	case article.Create:
		a, err := w.store.Create(ctx, c.Draft)
		return article.Result{Article: a, Err: err}
	case article.Update:
		a, err := w.store.Update(ctx, c.ID, c.Draft)
		return article.Result{Article: a, Err: err}
	case article.Delete:
		a, err := w.store.Delete(ctx, c.ID)
		return article.Result{Article: a, Err: err}
	case article.Publish:
		a, err := w.store.Publish(ctx, c.ID)
		return article.Result{Article: a, Err: err}
	case article.ListPublished:
		list, err := w.store.ListPublished(ctx)
		return article.Result{Articles: list, Err: err}
	default:
		return article.Result{Err: fmt.Errorf("unsupported command %T", cmd)}
	}
}

func (w *Worker) reply(job Job, kind string, res article.Result) {
	if job.Reply == nil {
		return
	}
	select {
	case job.Reply <- res:
	default:
		w.logger.Warn("reply dropped, nobody is waiting", zap.String("kind", kind))
	}
}

func (w *Worker) notifyPublished(ctx context.Context, a article.Article) {
	if w.cfg.Topic == "" || w.publisher == nil {
		return
	}
	event := article.PublishedEvent{
		ArticleID:   a.ID,
		Title:       a.Title,
		PublishedAt: w.now(),
	}
	timeout := w.cfg.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msgID, err := w.publisher.Publish(ctx, w.cfg.Topic, event)
	metrics.ObserveEvent(err == nil)
	if err != nil {
		w.logger.Warn("publish event failed",
			zap.String("article_id", a.ID.String()),
			zap.String("topic", w.cfg.Topic),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("article published",
		zap.String("article_id", a.ID.String()),
		zap.String("topic", w.cfg.Topic),
		zap.String("message_id", msgID),
	)
}

func (w *Worker) now() time.Time {
	if w.clock == nil {
		return time.Now().UTC()
	}
	return w.clock.Now()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, article.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
