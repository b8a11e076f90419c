// Package auth signs users in and checks them against an allow-list policy.
package auth

import "context"

// Identity is a signed-in user
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Provider is the identity provider collaborator
type Provider interface {
	SignIn(ctx context.Context) (*Identity, error)
	SignOut(ctx context.Context) error
}
