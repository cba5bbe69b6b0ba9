package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OtterDevelopment/twitch-hook/internal/domain"
	"github.com/OtterDevelopment/twitch-hook/internal/platform/config"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const testRequestSecret = "s3cret-value-for-tests"

// --- Mock implementations ---

type mockWebhook struct {
	handleFn func(c echo.Context) error
}

func (m *mockWebhook) HandleEventSub(c echo.Context) error {
	if m.handleFn != nil {
		return m.handleFn(c)
	}
	return c.NoContent(http.StatusNoContent)
}

type mockRegistrar struct {
	registerAllFn func(ctx context.Context) (int, error)
}

func (m *mockRegistrar) RegisterAll(ctx context.Context) (int, error) {
	if m.registerAllFn != nil {
		return m.registerAllFn(ctx)
	}
	return 0, nil
}

type mockBroadcasters struct {
	listFn   func(ctx context.Context) ([]domain.BroadcasterEntry, error)
	getFn    func(ctx context.Context, id string) (*domain.BroadcasterEntry, error)
	saveFn   func(ctx context.Context, entry domain.BroadcasterEntry) (*domain.BroadcasterEntry, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockBroadcasters) List(ctx context.Context) ([]domain.BroadcasterEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockBroadcasters) Get(ctx context.Context, id string) (*domain.BroadcasterEntry, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBroadcasters) Save(ctx context.Context, entry domain.BroadcasterEntry) (*domain.BroadcasterEntry, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, entry)
	}
	return &entry, nil
}

func (m *mockBroadcasters) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Test server builder ---

type testServerOpts struct {
	webhook      *mockWebhook
	registrar    *mockRegistrar
	broadcasters *mockBroadcasters
	registry     *prometheus.Registry
	healthChecks []HealthCheck
	configure    func(*config.Config)
}

type testServerOption func(*testServerOpts)

func withWebhook(w *mockWebhook) testServerOption {
	return func(o *testServerOpts) { o.webhook = w }
}

func withRegistrar(r *mockRegistrar) testServerOption {
	return func(o *testServerOpts) { o.registrar = r }
}

func withBroadcasters(b *mockBroadcasters) testServerOption {
	return func(o *testServerOpts) { o.broadcasters = b }
}

func withRegistry(reg *prometheus.Registry) testServerOption {
	return func(o *testServerOpts) { o.registry = reg }
}

func withHealthChecks(checks ...HealthCheck) testServerOption {
	return func(o *testServerOpts) { o.healthChecks = checks }
}

func withConfig(fn func(*config.Config)) testServerOption {
	return func(o *testServerOpts) { o.configure = fn }
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:           "test",
		Port:             "8080",
		BaseURL:          "https://hook.example.com",
		ClientID:         "test-client-id",
		ClientSecret:     "test-client-secret",
		RequestSecret:    testRequestSecret,
		DirectoryBackend: config.BackendPostgres,
		DiscordInviteURL: "https://discord.gg/VvE5ucuJmW",
		GitHubURL:        "https://github.com/OtterDevelopment/twitch-hook",
	}
}

func newTestServer(t *testing.T, opts ...testServerOption) *Server {
	t.Helper()

	o := &testServerOpts{
		webhook:      &mockWebhook{},
		registrar:    &mockRegistrar{},
		broadcasters: &mockBroadcasters{},
	}
	for _, opt := range opts {
		opt(o)
	}

	cfg := testConfig()
	if o.configure != nil {
		o.configure(cfg)
	}

	return NewServer(cfg, o.webhook, o.registrar, o.broadcasters, o.registry, o.healthChecks)
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func adminRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("secret", testRequestSecret)
	return req
}
