package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// VerificationStatus is the outcome of a challenge verification attempt.
// NotFound and Expired both mean "request a new code"; Mismatch means
// "wrong code, try again". They are distinct because the user guidance is.
type VerificationStatus string

const (
	VerificationOK       VerificationStatus = "verified"
	VerificationNotFound VerificationStatus = "not_found"
	VerificationMismatch VerificationStatus = "mismatch"
	VerificationExpired  VerificationStatus = "expired"
)

// Err maps the status to the shared error taxonomy; OK maps to nil.
func (s VerificationStatus) Err() error {
	switch s {
	case VerificationOK:
		return nil
	case VerificationMismatch:
		return ErrChallengeMismatch
	case VerificationExpired:
		return ErrChallengeExpired
	default:
		return ErrChallengeNotFound
	}
}

const verificationCodeDigits = 6

// GenerateVerificationCode returns a uniformly random 6-digit code.
func GenerateVerificationCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate verification code")
	}
	return fmt.Sprintf("%0*d", verificationCodeDigits, n.Int64()), nil
}

// ChallengeService issues and verifies one-time email verification codes.
// Only the hash of a code is ever persisted; the plaintext goes back to the
// caller exactly once, for delivery.
type ChallengeService struct {
	repo   Challenges
	logger Logger
	now    func() time.Time
}

type ChallengeServiceOption func(*ChallengeService)

// WithChallengeClock injects a custom clock (useful for tests).
func WithChallengeClock(clock func() time.Time) ChallengeServiceOption {
	return func(s *ChallengeService) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithChallengeLogger(logger Logger) ChallengeServiceOption {
	return func(s *ChallengeService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewChallengeService(repo Challenges, opts ...ChallengeServiceOption) *ChallengeService {
	s := &ChallengeService{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Issue creates a fresh challenge for the email, replacing any prior live
// one, and returns the plaintext code for delivery.
func (s *ChallengeService) Issue(ctx context.Context, email string) (string, error) {
	code, err := GenerateVerificationCode()
	if err != nil {
		return "", err
	}

	hash, err := HashSecret(code)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash verification code")
	}

	now := s.now()
	challenge := &OtpChallenge{
		Email:     NormalizeEmail(email),
		CodeHash:  hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(ChallengeTTL),
	}

	if err := s.repo.Replace(ctx, challenge); err != nil {
		return "", persistenceError(err, "otp.issue")
	}

	return code, nil
}

// Verify checks the candidate code against the live challenge for the email.
// A match consumes the challenge; a mismatch leaves it live so the user may
// retry until expiry. Stale rows that GC has not collected yet are removed
// lazily and reported as expired.
func (s *ChallengeService) Verify(ctx context.Context, email, candidate string) (VerificationStatus, error) {
	now := s.now()

	challenge, err := s.repo.FindLive(ctx, email, now)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			expired, cerr := s.repo.CollectExpired(ctx, email, now)
			if cerr != nil {
				return "", persistenceError(cerr, "otp.collect")
			}
			if expired {
				return VerificationExpired, nil
			}
			return VerificationNotFound, nil
		}
		return "", persistenceError(err, "otp.find")
	}

	if err := CompareSecretAndHash(candidate, challenge.CodeHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return VerificationMismatch, nil
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to compare verification code")
	}

	if err := s.repo.Consume(ctx, email); err != nil {
		return "", persistenceError(err, "otp.consume")
	}

	return VerificationOK, nil
}

// PurgeExpired garbage-collects stale challenges. Hosts run it periodically;
// correctness does not depend on it since reads filter on expiry.
func (s *ChallengeService) PurgeExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, persistenceError(err, "otp.purge")
	}

	if count > 0 {
		s.logger.Debug("collected %d expired verification challenges", count)
	}

	return count, nil
}
