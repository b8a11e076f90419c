package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/khrees2412/applytrack/internal/apperr"
)

const issuer = "applytrack"

// identityClaims carries the identity fields next to the registered claims
type identityClaims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

// TokenProvider signs users in from an HS256 token kept in a session file
type TokenProvider struct {
	secret []byte
	path   string
	now    func() time.Time
}

// NewTokenProvider keeps the session token at sessionPath
func NewTokenProvider(secret, sessionPath string) *TokenProvider {
	return &TokenProvider{secret: []byte(secret), path: sessionPath, now: time.Now}
}

// Issue signs a token for id, valid for ttl
func (p *TokenProvider) Issue(id Identity, ttl time.Duration) (string, error) {
	if len(p.secret) == 0 {
		return "", errNoSecret
	}
	if id.ID == "" || id.Email == "" {
		return "", apperr.New(apperr.ErrInvalidArgument, "issue token", "id and email are required")
	}

	now := p.now()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:    id.DisplayName,
		Email:   id.Email,
		Picture: id.PhotoURL,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

var errNoSecret = apperr.New(apperr.ErrUnauthenticated, "token", "auth_secret not configured. Run: applytrack config set --key auth_secret --value YOUR_SECRET")

// Parse validates a token and returns the identity it carries
func (p *TokenProvider) Parse(token string) (*Identity, error) {
	if len(p.secret) == 0 {
		return nil, errNoSecret
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.New(apperr.ErrUnauthenticated, "parse token", "token is empty")
	}

	parsed, err := jwt.ParseWithClaims(token, &identityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUnauthenticated, "parse token", err)
	}

	claims, ok := parsed.Claims.(*identityClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, apperr.New(apperr.ErrUnauthenticated, "parse token", "invalid token claims")
	}
	return &Identity{
		ID:          claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		PhotoURL:    claims.Picture,
	}, nil
}

// Store validates token and writes it to the session file
func (p *TokenProvider) Store(token string) (*Identity, error) {
	id, err := p.Parse(token)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(strings.TrimSpace(token)+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("failed to write session: %w", err)
	}
	return id, nil
}

// SignIn reads the stored session
func (p *TokenProvider) SignIn(ctx context.Context) (*Identity, error) {
	b, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.New(apperr.ErrUnauthenticated, "sign in", "not signed in. Run: applytrack login")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return p.Parse(string(b))
}

// SignOut removes the stored session. Signing out twice is not an error.
func (p *TokenProvider) SignOut(ctx context.Context) error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
