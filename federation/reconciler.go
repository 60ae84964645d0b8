package federation

import (
	"context"

	"github.com/gatherly/go-identity"
	"github.com/goliatone/go-repository-bun"
)

// Reconciler maps a provider-asserted profile onto a local account. The
// stable subject id wins over email: once linked, an account follows the
// subject even if the provider email later changes. A profile whose email
// matches an existing local account merges into it instead of creating a
// duplicate, so email stays unique across both signup paths.
type Reconciler struct {
	repo                identity.RepositoryManager
	bootstrapAdminEmail string
	logger              identity.Logger
}

type ReconcilerOption func(*Reconciler)

func WithReconcilerLogger(logger identity.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewReconciler(repo identity.RepositoryManager, cfg identity.Config, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		repo:                repo,
		bootstrapAdminEmail: cfg.GetBootstrapAdminEmail(),
		logger:              noopLogger{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ReconcileResult reports how the profile was resolved.
type ReconcileResult struct {
	Account *identity.Account
	// Created is true when a new account was provisioned for the profile.
	Created bool
	// Merged is true when the profile was linked into an account that
	// previously existed with local credentials only.
	Merged bool
}

// Reconcile resolves the profile to exactly one local account, creating or
// linking as needed. Calling it twice with the same profile is idempotent.
func (r *Reconciler) Reconcile(ctx context.Context, profile *Profile) (*ReconcileResult, error) {
	if profile == nil || profile.SubjectID == "" {
		return nil, ErrMissingSubjectClaim
	}
	if profile.Email == "" {
		return nil, ErrMissingEmailClaim
	}

	result, err := r.resolve(ctx, profile)
	if err != nil {
		return nil, err
	}

	account, err := r.bootstrapAdministrator(ctx, result.Account)
	if err != nil {
		return nil, err
	}
	result.Account = account

	return result, nil
}

func (r *Reconciler) resolve(ctx context.Context, profile *Profile) (*ReconcileResult, error) {
	accounts := r.repo.Accounts()

	// Fast path: the subject already has an account.
	existing, err := accounts.GetByExternalSubject(ctx, profile.SubjectID)
	if err == nil {
		return &ReconcileResult{Account: existing}, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	email := identity.NormalizeEmail(profile.Email)

	// A local account with the same email absorbs the federated identity.
	local, err := accounts.GetByEmail(ctx, email)
	if err == nil {
		linked, err := accounts.LinkExternalSubject(ctx, local.ID, profile.SubjectID)
		if err != nil {
			if identity.IsDuplicateKey(err) {
				return r.retryAsLookup(ctx, profile)
			}
			return nil, err
		}
		r.logger.Info("linked subject %s into account %s", profile.SubjectID, linked.Email)
		return &ReconcileResult{Account: linked, Merged: true}, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	account := &identity.Account{
		DisplayName:       profile.Name,
		Email:             email,
		ExternalSubjectID: profile.SubjectID,
		AvatarURL:         profile.AvatarURL,
		Role:              identity.RoleAttendee,
		EmailVerified:     true,
		RoleSelected:      false,
	}

	created, err := accounts.Register(ctx, account)
	if err != nil {
		if identity.IsDuplicateKey(err) {
			// Lost a race with a concurrent callback for the same person.
			return r.retryAsLookup(ctx, profile)
		}
		return nil, err
	}

	r.logger.Info("provisioned account %s for subject %s", created.Email, profile.SubjectID)

	return &ReconcileResult{Account: created, Created: true}, nil
}

// retryAsLookup handles the write race: by the time our insert or link
// failed, another request had already resolved the same profile, so the
// winning row is authoritative.
func (r *Reconciler) retryAsLookup(ctx context.Context, profile *Profile) (*ReconcileResult, error) {
	accounts := r.repo.Accounts()

	if existing, err := accounts.GetByExternalSubject(ctx, profile.SubjectID); err == nil {
		return &ReconcileResult{Account: existing}, nil
	}

	existing, err := accounts.GetByEmail(ctx, identity.NormalizeEmail(profile.Email))
	if err != nil {
		return nil, err
	}

	return &ReconcileResult{Account: existing}, nil
}

// bootstrapAdministrator promotes the configured bootstrap email on sight.
// The designation lives in configuration, so it applies no matter which
// signup path the account arrived through.
func (r *Reconciler) bootstrapAdministrator(ctx context.Context, account *identity.Account) (*identity.Account, error) {
	if r.bootstrapAdminEmail == "" || account.Administrator {
		return account, nil
	}
	if account.Email != r.bootstrapAdminEmail {
		return account, nil
	}

	promoted, err := r.repo.Accounts().PromoteToAdministrator(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("promoted bootstrap administrator %s", promoted.Email)

	return promoted, nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
