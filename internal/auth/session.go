package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/khrees2412/applytrack/internal/apperr"
)

// Session tracks the signed-in identity and enforces the policy
type Session struct {
	provider Provider
	policy   Policy
	log      *slog.Logger

	mu        sync.Mutex
	current   *Identity
	listeners map[int]func(*Identity)
	nextID    int
}

func NewSession(provider Provider, policy Policy, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		provider:  provider,
		policy:    policy,
		log:       log.With("component", "auth"),
		listeners: make(map[int]func(*Identity)),
	}
}

// SignIn asks the provider for an identity. An identity outside the policy
// is signed out again and the call fails with apperr.ErrAuthorizationDenied.
func (s *Session) SignIn(ctx context.Context) (*Identity, error) {
	id, err := s.provider.SignIn(ctx)
	if err != nil {
		return nil, err
	}

	if !s.policy.Allowed(id.Email) {
		s.log.Warn("identity not on allow-list", slog.String("email", id.Email))
		if err := s.provider.SignOut(ctx); err != nil {
			s.log.Error("forced sign-out failed", slog.String("error", err.Error()))
		}
		s.set(nil)
		return nil, apperr.New(apperr.ErrAuthorizationDenied, "sign in",
			fmt.Sprintf("%s is not allowed to use this application", id.Email))
	}

	s.set(id)
	return id, nil
}

// SignOut ends the session
func (s *Session) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return err
	}
	s.set(nil)
	return nil
}

// Current returns the signed-in identity or nil
func (s *Session) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	id := *s.current
	return &id
}

// UserID returns the id of the signed-in identity, or "" when signed out
func (s *Session) UserID() string {
	if id := s.Current(); id != nil {
		return id.ID
	}
	return ""
}

// OnChange registers fn to run after every sign-in and sign-out. The returned
// func unregisters it.
func (s *Session) OnChange(fn func(*Identity)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) set(id *Identity) {
	s.mu.Lock()
	s.current = id
	fns := make([]func(*Identity), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}
