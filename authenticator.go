package identity

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// defaultSuspensionReason is recorded when an administrator suspends an
// account without giving one.
const defaultSuspensionReason = "Violation of community guidelines"

var _ Authenticator = &Auther{}

// SignupRequest carries the fields a local registration needs. Role must be
// one of the selectable roles; administrators are never created through
// signup.
type SignupRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"user_role"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.Role, validation.Required, validation.By(func(value any) error {
			raw, _ := value.(string)
			if _, ok := ParseRole(raw); !ok {
				return fmt.Errorf("must be one of %q or %q", RoleAttendee, RoleCreator)
			}
			return nil
		})),
	)
}

// Auther implements the account lifecycle: registration, email verification,
// credential login, session minting and resolution, and moderation.
type Auther struct {
	repo            RepositoryManager
	challenges      *ChallengeService
	notifier        Notifier
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        []string
	logger          Logger
	now             func() time.Time
}

// NewAuthenticator returns a new Auther backed by the given repositories.
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	return &Auther{
		repo:            repo,
		challenges:      NewChallengeService(repo.Challenges()),
		notifier:        NoopNotifier{},
		signingKey:      []byte(cfg.GetSigningKey()),
		tokenExpiration: cfg.GetTokenExpiration(),
		issuer:          cfg.GetIssuer(),
		audience:        cfg.GetAudience(),
		logger:          defLogger{},
		now:             time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithNotifier configures delivery of lifecycle emails. Delivery failures are
// logged and never fail the triggering operation.
func (s *Auther) WithNotifier(notifier Notifier) *Auther {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	s.notifier = notifier
	return s
}

// WithChallengeService replaces the default verification-code service.
func (s *Auther) WithChallengeService(challenges *ChallengeService) *Auther {
	s.challenges = challenges
	return s
}

// WithClock overrides the time source, mostly for tests.
func (s *Auther) WithClock(clock func() time.Time) *Auther {
	s.now = clock
	return s
}

// Signup registers a local account and issues a verification challenge. If an
// unverified account already exists for the email the pending registration is
// refreshed in place: a new code replaces the old one and no second account
// is created. A verified account makes the email unavailable.
func (s *Auther) Signup(ctx context.Context, req SignupRequest) (*Account, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	email := NormalizeEmail(req.Email)
	role, _ := ParseRole(req.Role)

	existing, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err == nil {
		if existing.EmailVerified {
			return nil, ErrDuplicateAccount
		}
		return existing, s.issueChallenge(ctx, existing)
	}
	if !repository.IsRecordNotFound(err) {
		return nil, persistenceError(err, "signup lookup failed")
	}

	hash, err := HashSecret(req.Password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		DisplayName:  req.DisplayName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		RoleSelected: true,
	}

	created, err := s.repo.Accounts().Register(ctx, account)
	if err != nil {
		if IsDuplicateKey(err) {
			// Lost a race with a concurrent signup for the same email.
			return s.resolveSignupRace(ctx, email)
		}
		return nil, persistenceError(err, "signup create failed")
	}

	s.logger.Info("registered account %s role=%s", created.Email, created.Role)

	return created, s.issueChallenge(ctx, created)
}

// resolveSignupRace re-reads the row that won a concurrent insert and treats
// it exactly like a pre-existing account would have been treated.
func (s *Auther) resolveSignupRace(ctx context.Context, email string) (*Account, error) {
	existing, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		return nil, persistenceError(err, "signup race lookup failed")
	}
	if existing.EmailVerified {
		return nil, ErrDuplicateAccount
	}
	return existing, s.issueChallenge(ctx, existing)
}

func (s *Auther) issueChallenge(ctx context.Context, account *Account) error {
	code, err := s.challenges.Issue(ctx, account.Email)
	if err != nil {
		return err
	}

	s.safeNotify("verification code", func() error {
		return s.notifier.SendVerificationCode(ctx, account.Email, account.DisplayName, code)
	})

	return nil
}

// VerifyEmail consumes a pending challenge and marks the account verified.
func (s *Auther) VerifyEmail(ctx context.Context, email, code string) (*Account, error) {
	email = NormalizeEmail(email)

	status, err := s.challenges.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if serr := status.Err(); serr != nil {
		return nil, serr
	}

	account, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, persistenceError(err, "verify lookup failed")
	}

	if account.EmailVerified {
		return account, nil
	}

	verified, err := s.repo.Accounts().MarkVerified(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	s.safeNotify("welcome", func() error {
		return s.notifier.SendWelcome(ctx, verified.Email, verified.DisplayName)
	})

	return verified, nil
}

// ResendCode replaces the pending challenge for an unverified account. The
// previous code stops working immediately.
func (s *Auther) ResendCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	account, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return persistenceError(err, "resend lookup failed")
	}

	if account.EmailVerified {
		return ErrAlreadyVerified
	}

	return s.issueChallenge(ctx, account)
}

// Login verifies an email/password pair and mints a session token. Unknown
// email, federated-only account, and wrong password all fail the same way so
// the response does not reveal which emails are registered.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)

	account, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", ErrIdentityNotFound
		}
		return "", persistenceError(err, "login lookup failed")
	}

	if !account.HasCredentials() {
		return "", ErrIdentityNotFound
	}

	if err := CompareSecretAndHash(password, account.PasswordHash); err != nil {
		return "", ErrIdentityNotFound
	}

	if !account.EmailVerified {
		return "", ErrEmailNotVerified
	}

	if account.Suspended {
		s.logger.Warn("login blocked for suspended account %s", account.Email)
		return "", suspendedError(account)
	}

	return s.EstablishSession(account)
}

// SelectRole records the account's chosen role. Federated accounts land
// without one and must pick before they can act as a creator.
func (s *Auther) SelectRole(ctx context.Context, id uuid.UUID, role AccountRole) (*Account, error) {
	if !role.IsValid() {
		return nil, validationError(fmt.Errorf("invalid role %q", role))
	}
	return s.repo.Accounts().SelectRole(ctx, id, role)
}

// Suspend blocks an account from authenticated activity. An empty reason gets
// the default. Suspending an already-suspended account updates the reason and
// keeps the original suspension time.
func (s *Auther) Suspend(ctx context.Context, id uuid.UUID, reason string) (*Account, error) {
	if reason == "" {
		reason = defaultSuspensionReason
	}

	account, err := s.repo.Accounts().Suspend(ctx, id, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("suspended account %s: %s", account.Email, reason)
	s.safeNotify("suspension notice", func() error {
		return s.notifier.SendSuspensionNotice(ctx, account.Email, account.DisplayName, reason)
	})

	return account, nil
}

// Reinstate lifts a suspension and clears its reason and timestamp.
func (s *Auther) Reinstate(ctx context.Context, id uuid.UUID) (*Account, error) {
	account, err := s.repo.Accounts().Reinstate(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reinstated account %s", account.Email)
	s.safeNotify("reinstatement notice", func() error {
		return s.notifier.SendReinstatementNotice(ctx, account.Email, account.DisplayName)
	})

	return account, nil
}

// EstablishSession mints a signed session token for the account.
func (s *Auther) EstablishSession(account *Account) (string, error) {
	if account == nil {
		return "", errors.New("account must not be nil", errors.CategoryInternal)
	}

	claims := s.newJWTClaims(account)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// SessionFromToken parses and validates a raw session token. The session
// carries claims only; callers needing the durable record go through
// IdentityFromSession.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}
	if len(s.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(s.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			s.logger.Error("unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrSessionInvalid
	}

	return sessionFromClaims(claims)
}

// IdentityFromSession resolves the durable account record behind a session.
// A token whose account no longer exists yields an invalid session, not a
// not-found error.
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (*Account, error) {
	if session == nil {
		return nil, ErrSessionInvalid
	}

	account, err := s.repo.Accounts().GetByIdentifier(ctx, session.GetUserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionInvalid
		}
		return nil, persistenceError(err, "session lookup failed")
	}

	return account, nil
}

func (s *Auther) newJWTClaims(account *Account) *JWTClaims {
	now := s.now()

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   account.ID.String(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.tokenExpiration) * time.Hour)),
		},
		UID:      account.ID.String(),
		UserRole: string(account.Role),
	}
}

func (s *Auther) safeNotify(kind string, send func() error) {
	if err := send(); err != nil {
		s.logger.Warn("failed to send %s: %v", kind, err)
	}
}
