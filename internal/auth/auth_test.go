package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/khrees2412/applytrack/internal/apperr"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newProvider(t *testing.T) *TokenProvider {
	t.Helper()
	return NewTokenProvider(testSecret, filepath.Join(t.TempDir(), "session"))
}

var ada = Identity{ID: "u-1", DisplayName: "Ada", Email: "Ada@Example.com", PhotoURL: "https://example.com/a.png"}

func TestTokenRoundTrip(t *testing.T) {
	p := newProvider(t)

	token, err := p.Issue(ada, time.Hour)
	require.NoError(t, err)

	_, err = p.SignIn(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	stored, err := p.Store(token)
	require.NoError(t, err)
	assert.Equal(t, ada, *stored)

	got, err := p.SignIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ada, *got)

	info, err := os.Stat(p.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, p.SignOut(context.Background()))
	require.NoError(t, p.SignOut(context.Background()))
	_, err = p.SignIn(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
}

func TestTokenRejected(t *testing.T) {
	p := newProvider(t)
	other := NewTokenProvider("another-secret-another-secret-123", p.path)

	foreign, err := other.Issue(ada, time.Hour)
	require.NoError(t, err)

	expired, err := p.Issue(ada, -time.Minute)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"expired":      expired,
		"garbage":      "not.a.token",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.Store(token)
			assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
			_, statErr := os.Stat(p.path)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestTokenNeedsSecret(t *testing.T) {
	p := NewTokenProvider("", filepath.Join(t.TempDir(), "session"))
	_, err := p.Issue(ada, time.Hour)
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
	assert.Contains(t, apperr.Message(err), "auth_secret")
}

func TestListPolicy(t *testing.T) {
	p := NewListPolicy([]string{" ada@example.com ", "", "GRACE@example.com"})

	assert.True(t, p.Allowed("ADA@example.com"))
	assert.True(t, p.Allowed("grace@example.com"))
	assert.False(t, p.Allowed("mallory@example.com"))
	assert.False(t, p.Allowed(""))
	assert.Equal(t, 2, p.Len())

	p.Set(nil)
	assert.False(t, p.Allowed("ada@example.com"))
}

type fakeProvider struct {
	mu       sync.Mutex
	id       *Identity
	err      error
	signOuts int
}

func (f *fakeProvider) SignIn(ctx context.Context) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	id := *f.id
	return &id, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	return nil
}

func TestSessionDeniesIdentityOutsidePolicy(t *testing.T) {
	provider := &fakeProvider{id: &Identity{ID: "u-2", Email: "mallory@example.com"}}
	s := NewSession(provider, NewListPolicy([]string{"ada@example.com"}), nil)

	var seen []*Identity
	s.OnChange(func(id *Identity) { seen = append(seen, id) })

	_, err := s.SignIn(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrAuthorizationDenied))
	assert.Equal(t, 1, provider.signOuts)
	assert.Nil(t, s.Current())
	assert.Equal(t, "", s.UserID())
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])
}

func TestSessionSignInAndOut(t *testing.T) {
	provider := &fakeProvider{id: &ada}
	s := NewSession(provider, NewListPolicy([]string{"ada@example.com"}), nil)

	var seen []*Identity
	unsubscribe := s.OnChange(func(id *Identity) { seen = append(seen, id) })

	id, err := s.SignIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.ID)
	assert.Equal(t, "u-1", s.UserID())

	require.NoError(t, s.SignOut(context.Background()))
	assert.Nil(t, s.Current())
	require.Len(t, seen, 2)
	assert.NotNil(t, seen[0])
	assert.Nil(t, seen[1])

	unsubscribe()
	_, err = s.SignIn(context.Background())
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestSessionProviderError(t *testing.T) {
	provider := &fakeProvider{err: apperr.New(apperr.ErrUnauthenticated, "sign in", "not signed in")}
	s := NewSession(provider, NewListPolicy([]string{"ada@example.com"}), nil)

	_, err := s.SignIn(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))
	assert.Equal(t, 0, provider.signOuts)
}

func TestWatchConfigReloadsPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allowed_emails:\n  - ada@example.com\n"), 0600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	p := NewListPolicy(v.GetStringSlice("allowed_emails"))
	WatchConfig(v, "allowed_emails", p, nil)
	require.True(t, p.Allowed("ada@example.com"))

	require.NoError(t, os.WriteFile(path, []byte("allowed_emails:\n  - grace@example.com\n"), 0600))

	require.Eventually(t, func() bool {
		return p.Allowed("grace@example.com") && !p.Allowed("ada@example.com")
	}, 5*time.Second, 20*time.Millisecond)
}
