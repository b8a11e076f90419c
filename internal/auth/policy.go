package auth

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Policy decides whether an identity may use the application
type Policy interface {
	Allowed(email string) bool
}

// ListPolicy allows a fixed set of email addresses, compared without case.
// An empty list allows nobody.
type ListPolicy struct {
	mu     sync.RWMutex
	emails map[string]struct{}
}

func NewListPolicy(emails []string) *ListPolicy {
	p := &ListPolicy{}
	p.Set(emails)
	return p
}

// Set replaces the allowed addresses
func (p *ListPolicy) Set(emails []string) {
	m := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			m[e] = struct{}{}
		}
	}
	p.mu.Lock()
	p.emails = m
	p.mu.Unlock()
}

func (p *ListPolicy) Allowed(email string) bool {
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.emails[email]
	return ok
}

// Len returns the number of allowed addresses
func (p *ListPolicy) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.emails)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WatchConfig reloads the policy from key whenever v's config file changes
func WatchConfig(v *viper.Viper, key string, p *ListPolicy, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		emails := v.GetStringSlice(key)
		p.Set(emails)
		log.Info("allow-list reloaded", slog.String("file", e.Name), slog.Int("entries", p.Len()))
	})
	v.WatchConfig()
}
