package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeValidation        = "IDENTITY_VALIDATION"
	textCodeDuplicateAccount  = "DUPLICATE_ACCOUNT"
	textCodeIdentityNotFound  = "IDENTITY_NOT_FOUND"
	textCodeEmailNotVerified  = "EMAIL_NOT_VERIFIED"
	textCodeChallengeNotFound = "OTP_CHALLENGE_NOT_FOUND"
	textCodeChallengeMismatch = "OTP_CHALLENGE_MISMATCH"
	textCodeChallengeExpired  = "OTP_CHALLENGE_EXPIRED"
	textCodeUnauthenticated   = "UNAUTHENTICATED"
	textCodeSuspended         = "ACCOUNT_SUSPENDED"
	textCodeForbidden         = "FORBIDDEN"
	textCodePersistence       = "PERSISTENCE_FAILURE"
	textCodeSessionInvalid    = "SESSION_INVALID"
	textCodeTokenExpired      = "TOKEN_EXPIRED"
	textCodeTokenMalformed    = "TOKEN_MALFORMED"
)

// ErrIdentityNotFound is returned for unknown identifiers and for failed
// password comparisons, so that login does not reveal which of the two it was.
var ErrIdentityNotFound = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(textCodeIdentityNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateAccount is returned when the email is already registered and
// verified.
var ErrDuplicateAccount = errors.New("an account already exists with this email", errors.CategoryValidation).
	WithTextCode(textCodeDuplicateAccount).
	WithCode(errors.CodeConflict)

// ErrEmailNotVerified blocks login until the email challenge has been passed.
var ErrEmailNotVerified = errors.New("email not verified, check your inbox for the code", errors.CategoryAuth).
	WithTextCode(textCodeEmailNotVerified).
	WithCode(errors.CodeForbidden)

// ErrAlreadyVerified rejects a verification-code request for an account that
// has already passed the email challenge.
var ErrAlreadyVerified = errors.New("email already verified", errors.CategoryValidation).
	WithTextCode(textCodeValidation).
	WithCode(errors.CodeBadRequest)

// ErrChallengeNotFound covers never-issued, already-consumed, and
// garbage-collected challenges. The user should request a new code.
var ErrChallengeNotFound = errors.New("verification code not found, request a new one", errors.CategoryNotFound).
	WithTextCode(textCodeChallengeNotFound).
	WithCode(errors.CodeNotFound)

// ErrChallengeMismatch means the code was wrong; the challenge stays live and
// the user may retry until expiry.
var ErrChallengeMismatch = errors.New("incorrect verification code", errors.CategoryValidation).
	WithTextCode(textCodeChallengeMismatch).
	WithCode(errors.CodeBadRequest)

// ErrChallengeExpired means the code is past its validity window. The user
// should request a new code.
var ErrChallengeExpired = errors.New("verification code expired, request a new one", errors.CategoryValidation).
	WithTextCode(textCodeChallengeExpired).
	WithCode(errors.CodeBadRequest)

// ErrUnauthenticated rejects requests carrying no resolvable principal.
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(textCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrAccountSuspended rejects a suspended principal. It always wins over
/// capability checks: a suspended administrator is told about the suspension,
// never about privileges.
var ErrAccountSuspended = errors.New("account suspended", errors.CategoryAuth).
	WithTextCode(textCodeSuspended).
	WithCode(errors.CodeForbidden)

// ErrForbidden rejects an authenticated, active principal lacking the
// required capability.
var ErrForbidden = errors.New("insufficient privileges", errors.CategoryAuthz).
	WithTextCode(textCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrPersistence hides store failures behind a generic message; internal
// detail stays in the wrapped source, never in the user-facing text.
var ErrPersistence = errors.New("service temporarily unavailable", errors.CategoryInternal).
	WithTextCode(textCodePersistence).
	WithCode(errors.CodeInternal)

// ErrSessionInvalid is returned when a session token resolves to an account
// that no longer exists; the caller must terminate the session.
var ErrSessionInvalid = errors.New("session no longer valid", errors.CategoryAuth).
	WithTextCode(textCodeSessionInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is the session token past its expiration.
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers undecodable or tampered session tokens.
var ErrTokenMalformed = errors.New("session token malformed", errors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty secrets before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode(textCodeValidation).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the bcrypt comparison failure.
var ErrMismatchedHashAndPassword = errors.New("hash does not match value", errors.CategoryAuth).
	WithTextCode(textCodeIdentityNotFound).
	WithCode(errors.CodeUnauthorized)

// suspendedError clones ErrAccountSuspended and attaches the human-readable
// reason so callers can surface it.
func suspendedError(account *Account) *errors.Error {
	clone := ErrAccountSuspended.Clone()
	if clone == nil {
		return ErrAccountSuspended
	}
	clone.Source = ErrAccountSuspended
	if account != nil && account.SuspensionReason != "" {
		return clone.WithMetadata(map[string]any{
			"reason": account.SuspensionReason,
		})
	}
	return clone
}

// IsSuspendedError reports whether err carries the account-suspended code,
// regardless of attached metadata.
func IsSuspendedError(err error) bool {
	return hasTextCode(err, textCodeSuspended)
}

// validationError wraps ozzo field errors into the shared taxonomy.
func validationError(err error) *errors.Error {
	return errors.Wrap(err, errors.CategoryValidation, "invalid signup fields").
		WithTextCode(textCodeValidation).
		WithCode(errors.CodeBadRequest)
}

// persistenceError wraps a store failure without leaking detail to end users.
func persistenceError(err error, msg string) *errors.Error {
	clone := ErrPersistence.Clone()
	if clone == nil {
		return ErrPersistence
	}
	clone.Source = err
	return clone.WithMetadata(map[string]any{"op": msg})
}

// IsDuplicateKey detects unique-constraint violations across the drivers we
// run against (postgres in production, sqlite in tests). Driver errors carry
// no shared sentinel, so string matching is the portable check.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint violation")
}

// IsTokenExpiredError will check for expired session tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, textCodeTokenExpired) {
		return true
	}
	return errors.Is(err, ErrTokenExpired) || strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, textCodeTokenMalformed) {
		return true
	}
	return errors.Is(err, ErrTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

func hasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
