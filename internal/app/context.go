package app

import (
	"context"
	"errors"
)

// contextKey is used to store App in context
type contextKey struct{}

var appContextKey = contextKey{}

// ErrNoApp is returned when a command runs without an initialized App
var ErrNoApp = errors.New("application not initialized")

// GetAppFromContext retrieves the App from context
func GetAppFromContext(ctx context.Context) *App {
	if ctx == nil {
		return nil
	}
	app, ok := ctx.Value(appContextKey).(*App)
	if !ok {
		return nil
	}
	return app
}

// FromContext is GetAppFromContext with an error for commands
func FromContext(ctx context.Context) (*App, error) {
	if a := GetAppFromContext(ctx); a != nil {
		return a, nil
	}
	return nil, ErrNoApp
}

// SetAppInContext stores the App in context
func SetAppInContext(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appContextKey, app)
}
