package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/khrees2412/applytrack/internal/auth"
	"github.com/khrees2412/applytrack/internal/config"
	"github.com/khrees2412/applytrack/internal/gateway"
	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AIProvider:    "gemini",
		StoreDriver:   "sqlite",
		DataDir:       t.TempDir(),
		AuthSecret:    "0123456789abcdef0123456789abcdef",
		AllowedEmails: []string{"ada@example.com"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func login(t *testing.T, a *App, id auth.Identity) {
	t.Helper()
	token, err := a.Tokens.Issue(id, time.Hour)
	require.NoError(t, err)
	_, err = a.Tokens.Store(token)
	require.NoError(t, err)
}

func TestSignInBindsCollections(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.Applications.Create(ctx, models.Application{Company: "Acme"})
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	login(t, a, auth.Identity{ID: "u-1", Email: "ADA@example.com"})
	id, err := a.SignIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.ID)
	assert.Equal(t, "u-1", a.Applications.User())
	assert.Equal(t, "u-1", a.Outputs.User())

	_, err = a.Applications.Create(ctx, models.Application{Company: "Acme", Status: models.StatusDraft})
	require.NoError(t, err)
	st, err := a.Applications.Wait(ctx, func(s gateway.State[models.Application]) bool { return len(s.Items) == 1 })
	require.NoError(t, err)
	assert.Equal(t, "Acme", st.Items[0].Company)

	require.NoError(t, a.Session.SignOut(ctx))
	assert.Equal(t, "", a.Applications.User())
	assert.Empty(t, a.Applications.State().Items)
}

func TestSignInDenied(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	login(t, a, auth.Identity{ID: "u-2", Email: "mallory@example.com"})

	_, err := a.SignIn(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrAuthorizationDenied))
	assert.Equal(t, "", a.Applications.User())

	// the session file is gone after the forced sign-out
	_, err = a.Tokens.SignIn(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestAssistantReportsBadProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.AIProvider = "nope"
	a := newTestApp(t, cfg)

	_, err := a.Assistant()
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))

	cfg = testConfig(t)
	a = newTestApp(t, cfg)
	f, err := a.Assistant()
	require.NoError(t, err)
	assert.NotNil(t, f)
}

func TestContextRoundTrip(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoApp)

	a := &App{}
	ctx := SetAppInContext(context.Background(), a)
	got, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, a, got)
}

func TestNewLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
