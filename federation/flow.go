package federation

import (
	"context"
	"time"

	"github.com/gatherly/go-identity"
)

// Flow orchestrates the full provider round-trip: hand the browser to the
// provider, validate the callback, reconcile the profile, and mint a local
// session.
type Flow struct {
	registry   *Registry
	codec      StateCodec
	reconciler *Reconciler
	auther     identity.Authenticator
	notifier   identity.Notifier
	logger     identity.Logger
}

type FlowOption func(*Flow)

func WithFlowNotifier(notifier identity.Notifier) FlowOption {
	return func(f *Flow) {
		if notifier != nil {
			f.notifier = notifier
		}
	}
}

func WithFlowLogger(logger identity.Logger) FlowOption {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFlow(
	registry *Registry,
	codec StateCodec,
	reconciler *Reconciler,
	auther identity.Authenticator,
	opts ...FlowOption,
) *Flow {
	f := &Flow{
		registry:   registry,
		codec:      codec,
		reconciler: reconciler,
		auther:     auther,
		notifier:   identity.NoopNotifier{},
		logger:     noopLogger{},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Redirect is where Begin sends the browser.
type Redirect struct {
	URL      string
	State    string
	Provider string
}

// Begin starts the OAuth flow for a provider.
func (f *Flow) Begin(ctx context.Context, providerName, redirectURL string) (*Redirect, error) {
	provider, err := f.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	state := &FlowState{
		Provider:    providerName,
		RedirectURL: redirectURL,
		IssuedAt:    time.Now().Unix(),
	}

	stateToken, err := f.codec.Encode(state)
	if err != nil {
		return nil, err
	}

	return &Redirect{
		URL:      provider.AuthCodeURL(stateToken),
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// Result is the outcome of a completed flow.
type Result struct {
	Account      *identity.Account
	SessionToken string
	Created      bool
	Merged       bool
	RedirectURL  string
}

// Complete finishes the OAuth flow after the provider callback. A state that
// fails to decode, or that names a different provider than the callback,
// aborts the flow before any token exchange.
func (f *Flow) Complete(ctx context.Context, providerName, code, stateToken string) (*Result, error) {
	state, err := f.codec.Decode(stateToken)
	if err != nil {
		return nil, err
	}

	if state.Provider != providerName {
		return nil, ErrInvalidState
	}

	provider, err := f.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	token, err := provider.Exchange(ctx, code)
	if err != nil {
		return nil, wrapProviderFailure(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderFailure(ErrUserInfoFailed, providerName, "user_info", err)
	}

	reconciled, err := f.reconciler.Reconcile(ctx, profile)
	if err != nil {
		return nil, err
	}

	sessionToken, err := f.auther.EstablishSession(reconciled.Account)
	if err != nil {
		return nil, err
	}

	if reconciled.Created {
		account := reconciled.Account
		if err := f.notifier.SendWelcome(ctx, account.Email, account.DisplayName); err != nil {
			f.logger.Warn("failed to send welcome: %v", err)
		}
	}

	return &Result{
		Account:      reconciled.Account,
		SessionToken: sessionToken,
		Created:      reconciled.Created,
		Merged:       reconciled.Merged,
		RedirectURL:  state.RedirectURL,
	}, nil
}
