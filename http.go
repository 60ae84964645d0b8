package identity

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteGuard wires session resolution and authorization checks into a
// router middleware chain. Each guard resolves the caller once per request
// and stows the account under the configured context key for handlers.
type RouteGuard struct {
	auth           Authenticator
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

func NewRouteGuard(auther Authenticator, cfg Config) *RouteGuard {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	g := &RouteGuard{
		auth:           auther,
		cfg:            cfg,
		cookieDuration: cookieDuration,
		Logger:         defLogger{},
	}

	g.ErrorHandler = g.defaultErrHandler

	return g
}

func (g RouteGuard) GetCookieDuration() time.Duration {
	return g.cookieDuration
}

// RequireAuthenticated resolves the caller from the session token and rejects
// requests without a valid session. Downstream handlers read the account via
// AccountFromRouter or FromContext.
func (g *RouteGuard) RequireAuthenticated() router.MiddlewareFunc {
	return g.capabilityGuard(CapabilityAny, true)
}

// RequireNotSuspended additionally rejects suspended accounts. Privileged
// accounts are not exempt.
func (g *RouteGuard) RequireNotSuspended() router.MiddlewareFunc {
	return g.capabilityGuard(CapabilityAny, false)
}

// RequireCreatorOrAdministrator admits accounts that can publish events.
func (g *RouteGuard) RequireCreatorOrAdministrator() router.MiddlewareFunc {
	return g.capabilityGuard(CapabilityCreator, false)
}

// RequireAdministrator admits administrators only.
func (g *RouteGuard) RequireAdministrator() router.MiddlewareFunc {
	return g.capabilityGuard(CapabilityAdministrator, false)
}

// capabilityGuard builds the shared resolve-then-authorize middleware.
// allowSuspended relaxes the suspension check for routes a suspended account
// must still reach, like viewing its own profile or logging out.
func (g *RouteGuard) capabilityGuard(capability Capability, allowSuspended bool) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			account, err := g.resolveAccount(ctx)
			if err != nil {
				return g.ErrorHandler(ctx, err)
			}

			if err := Authorize(account, capability); err != nil {
				if !allowSuspended || !IsSuspendedError(err) {
					return g.ErrorHandler(ctx, err)
				}
			}

			ctx.Locals(g.contextKey(), account)
			ctx.SetContext(WithContext(ctx.Context(), account))

			return hf(ctx)
		}
	}
}

// resolveAccount re-reads the durable record on every request so role
// changes and suspensions take effect before the token expires.
func (g *RouteGuard) resolveAccount(ctx router.Context) (*Account, error) {
	if account, ok := AccountFromRouter(ctx, g.contextKey()); ok {
		return account, nil
	}

	raw := g.tokenFromRequest(ctx)
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	session, err := g.auth.SessionFromToken(raw)
	if err != nil {
		g.Logger.Debug("session token rejected: %v", err)
		return nil, ErrUnauthenticated
	}

	account, err := g.auth.IdentityFromSession(ctx.Context(), session)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	ctx.SetContext(WithSessionContext(ctx.Context(), session))

	return account, nil
}

// tokenFromRequest checks the session cookie first, then the Authorization
// header using the configured scheme.
func (g *RouteGuard) tokenFromRequest(ctx router.Context) string {
	if token := ctx.Cookies(g.contextKey()); token != "" {
		return token
	}

	header := ctx.GetString("Authorization", "")
	scheme := strings.TrimSpace(g.cfg.GetAuthScheme())
	if scheme == "" {
		scheme = "Bearer"
	}

	if len(header) > len(scheme)+1 && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}

	return ""
}

func (g *RouteGuard) contextKey() string {
	if key := g.cfg.GetContextKey(); key != "" {
		return key
	}
	return "identity"
}

// SetSessionCookie stores the session token in an HTTP-only cookie.
func (g *RouteGuard) SetSessionCookie(ctx router.Context, token string) {
	ctx.Cookie(&router.Cookie{
		Name:     g.contextKey(),
		Value:    token,
		Expires:  time.Now().Add(g.cookieDuration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ClearSessionCookie expires the session cookie.
func (g *RouteGuard) ClearSessionCookie(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     g.contextKey(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	g.Logger.Info(
		"guard rejected request path=%s code=%s details=%s",
		c.OriginalURL(),
		richErr.TextCode,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	code := richErr.Code
	if code == 0 {
		code = router.StatusInternalServerError
	}

	return c.JSON(code, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}
