package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an authenticated session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	EstablishSession(account *Account) (string, error)
	SessionFromToken(token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (*Account, error)
}

// Config holds identity options. Hosts bind it from whatever configuration
// system they use; nothing in this package reads the environment directly.
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	// GetBootstrapAdminEmail designates the single email address promoted to
	// administrator on reconciliation. Empty disables the bootstrap.
	GetBootstrapAdminEmail() string
}

// Notifier delivers account lifecycle emails. Every call site treats delivery
// as fire-and-forget: failures are logged and never roll back a state change.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, name, code string) error
	SendWelcome(ctx context.Context, email, name string) error
	SendSuspensionNotice(ctx context.Context, email, name, reason string) error
	SendReinstatementNotice(ctx context.Context, email, name string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
