package federation

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound  = "federation_provider_not_found"
	TextCodeInvalidState      = "federation_invalid_state"
	TextCodeStateExpired      = "federation_state_expired"
	TextCodeTokenExchangeFail = "federation_token_exchange_failed"
	TextCodeUserInfoFail      = "federation_user_info_failed"
	TextCodeMissingEmail      = "federation_missing_email_claim"
	TextCodeMissingSubject    = "federation_missing_subject_claim"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("identity provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the OAuth state is invalid or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrTokenExchangeFailed is returned when a provider token exchange fails.
var ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrUserInfoFailed is returned when fetching the provider profile fails.
var ErrUserInfoFailed = errors.New("failed to fetch provider profile", errors.CategoryAuth).
	WithTextCode(TextCodeUserInfoFail).
	WithCode(errors.CodeUnauthorized)

// ErrMissingEmailClaim is returned when the provider profile carries no
// email. Reconciliation needs one to key the local account.
var ErrMissingEmailClaim = errors.New("provider profile has no email claim", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingEmail).
	WithCode(errors.CodeBadRequest)

// ErrMissingSubjectClaim is returned when the provider profile carries no
// stable subject identifier.
var ErrMissingSubjectClaim = errors.New("provider profile has no subject claim", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingSubject).
	WithCode(errors.CodeBadRequest)

// IsProviderNotFoundError reports whether the error names an unconfigured
// provider.
func IsProviderNotFoundError(err error) bool {
	return hasTextCode(err, TextCodeProviderNotFound)
}

// IsTokenExchangeError reports whether the error came from a failed code
// exchange, including wrapped provider detail.
func IsTokenExchangeError(err error) bool {
	return hasTextCode(err, TextCodeTokenExchangeFail)
}

// IsUserInfoError reports whether the error came from a failed profile fetch.
func IsUserInfoError(err error) bool {
	return hasTextCode(err, TextCodeUserInfoFail)
}

func hasTextCode(err error, code string) bool {
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == code
}

// wrapProviderFailure attaches provider response detail to one of the
// sentinel errors above without losing its code.
func wrapProviderFailure(base *errors.Error, provider, operation string, err error) error {
	clone := base.Clone()
	if clone == nil {
		return err
	}

	meta := map[string]any{
		"provider":  provider,
		"operation": operation,
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		if perr.Status != 0 {
			meta["status"] = perr.Status
		}
		if perr.Code != "" {
			meta["code"] = perr.Code
		}
		if perr.Description != "" {
			meta["description"] = perr.Description
		}
	} else if err != nil {
		meta["error"] = err.Error()
	}

	if err != nil {
		clone.Source = err
	}

	return clone.WithMetadata(meta)
}
