// Package federation resolves profiles asserted by external OAuth2 identity
// providers into local accounts. It owns the provider abstraction, the
// encrypted state round-trip, and the reconciliation rules that keep one
// local account per person regardless of how they sign in.
package federation

import (
	"context"
	"fmt"
	"time"
)

// Provider is an OAuth2 identity provider: it hands out an authorization
// URL, trades the callback code for a token, and fetches the profile the
// token grants access to.
type Provider interface {
	// Name returns the provider identifier, e.g. "google".
	Name() string

	// AuthCodeURL returns the URL to redirect the user to. The state value
	// must round-trip unmodified through the provider.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string) (*Token, error)

	// UserInfo fetches the profile behind the access token.
	UserInfo(ctx context.Context, token *Token) (*Profile, error)
}

// Token is a provider token response in normalized form.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
	Raw          map[string]any
}

// Profile is the provider-asserted identity in normalized form. SubjectID is
// the provider's stable identifier for the person and never changes between
// logins; email and display fields can.
type Profile struct {
	SubjectID     string
	Provider      string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
	Raw           map[string]any
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: map[string]Provider{}}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.providers[p.Name()] = p
}

// Get returns the named provider or ErrProviderNotFound.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		clone := ErrProviderNotFound.Clone()
		if clone == nil {
			return nil, ErrProviderNotFound
		}
		return nil, clone.WithMetadata(map[string]any{"provider": name})
	}
	return p, nil
}

// ProviderError captures a normalized provider response failure.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := e.Provider
	if e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	}

	switch {
	case e.Description != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
