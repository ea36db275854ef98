package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/articles-api/internal/article"
	"github.com/JakeFAU/articles-api/internal/config"
	idgen "github.com/JakeFAU/articles-api/internal/id/uuid"
	kafkapublisher "github.com/JakeFAU/articles-api/internal/publisher/kafka"
	logpublisher "github.com/JakeFAU/articles-api/internal/publisher/log"
	memorypublisher "github.com/JakeFAU/articles-api/internal/publisher/memory"
	storeMemory "github.com/JakeFAU/articles-api/internal/storage/memory"
)

// MockPublisher mocks EventPublisher.
type MockPublisher struct {
	mock.Mock
}

// Publish satisfies article.Publisher for the mock.
func (m *MockPublisher) Publish(ctx context.Context, topic string, event article.PublishedEvent) (string, error) {
	args := m.Called(ctx, topic, event)
	return args.String(0), args.Error(1)
}

// Close satisfies EventPublisher for the mock.
func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            4000,
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Worker: config.WorkerConfig{Count: 5, QueueDepth: 8},
		Events: config.EventsConfig{Backend: config.EventsBackendMemory, Topic: "article-published"},
	}
}

func TestServeEndToEndAndShutdown(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	store := storeMemory.NewArticleStore(idgen.New())
	published := make(chan article.PublishedEvent, 1)
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "article-published", mock.AnythingOfType("article.PublishedEvent")).
		Run(func(args mock.Arguments) { published <- args.Get(2).(article.PublishedEvent) }).
		Return("msg-1", nil).Once()
	pub.On("Close").Return(nil).Once()

	app := newApp(cfg, zap.NewNop(), store, pub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- app.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := http.Post(base+"/new", "application/json", bytes.NewBufferString(`{"title":"Hi","body":"There"}`))
	require.NoError(t, err)
	var created article.Article
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(base+"/"+created.ID.String()+"/publish", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case event := <-published:
		require.Equal(t, created.ID, event.ArticleID)
		require.Equal(t, "Hi", event.Title)
	case <-time.After(time.Second):
		t.Fatal("published event not emitted")
	}

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	pub.AssertExpectations(t)
}

func TestCloseReportsPublisherError(t *testing.T) {
	t.Parallel()

	pub := new(MockPublisher)
	pub.On("Close").Return(errors.New("flush failed"))

	app := newApp(testConfig(), zap.NewNop(), storeMemory.NewArticleStore(idgen.New()), pub)
	err := app.Close(context.Background())
	assert.ErrorContains(t, err, "flush failed")
	pub.AssertExpectations(t)
}

func TestCloseOnPartialApp(t *testing.T) {
	t.Parallel()

	app := &App{logger: zap.NewNop()}
	require.NoError(t, app.Close(context.Background()))
}

func TestSetupPublisherSelectsBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig()

	cfg.Events.Backend = config.EventsBackendMemory
	pub, err := setupPublisher(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &memorypublisher.Publisher{}, pub)

	cfg.Events.Backend = config.EventsBackendLog
	pub, err = setupPublisher(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &logpublisher.Publisher{}, pub)

	cfg.Events.Backend = config.EventsBackendKafka
	cfg.Events.KafkaBrokers = []string{"localhost:9092"}
	pub, err = setupPublisher(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &kafkapublisher.Publisher{}, pub)
	require.NoError(t, pub.Close())

	cfg.Events.KafkaBrokers = nil
	_, err = setupPublisher(ctx, cfg, zap.NewNop())
	require.Error(t, err)

	cfg.Events.Backend = config.EventsBackendPubSub
	cfg.Events.PubSubProject = ""
	_, err = setupPublisher(ctx, cfg, zap.NewNop())
	require.Error(t, err)
}

func TestNewAppSizesWorkerPool(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Worker.Count = 3
	app := newApp(cfg, zap.NewNop(), storeMemory.NewArticleStore(idgen.New()), memorypublisher.New())
	require.Equal(t, 3, app.dispatch.Size())
	require.NotNil(t, app.Handler())
}

func TestBuildWithMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig()
	cfg.DB.Backend = config.DBBackendMemory
	cfg.Telemetry = config.TelemetryConfig{ServiceName: "articles-api", SampleRatio: 1}

	app, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storeMemory.ArticleStore{}, app.store)
	require.Equal(t, 5, app.dispatch.Size())

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.dispatch.Run(workerCtx)
	}()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/new", bytes.NewBufferString(`{"title":"Local","body":"run"}`))
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var created article.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Local", created.Title)

	cancel()
	<-done
	require.NoError(t, app.Close(ctx))
}
