package identity

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// IdentityControllerRoutes configures the mount points for the account
// lifecycle endpoints.
type IdentityControllerRoutes struct {
	Signup      string
	VerifyEmail string
	ResendCode  string
	Login       string
	Logout      string
	Me          string
	SelectRole  string
	Suspend     string
	Reinstate   string
}

type IdentityController struct {
	Debug        bool
	Logger       Logger
	Auther       *Auther
	Guard        *RouteGuard
	Routes       *IdentityControllerRoutes
	ErrorHandler router.ErrorHandler
}

type IdentityControllerOption func(*IdentityController) *IdentityController

func WithControllerLogger(logger Logger) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Logger = logger
		return c
	}
}

func WithControllerAuther(auther *Auther) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Auther = auther
		return c
	}
}

func WithControllerGuard(guard *RouteGuard) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Guard = guard
		return c
	}
}

func WithControllerRoutes(routes *IdentityControllerRoutes) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Routes = routes
		return c
	}
}

func NewIdentityController(opts ...IdentityControllerOption) *IdentityController {
	c := &IdentityController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &IdentityControllerRoutes{
			Signup:      "/auth/signup",
			VerifyEmail: "/auth/verify-email",
			ResendCode:  "/auth/resend-code",
			Login:       "/auth/login",
			Logout:      "/auth/logout",
			Me:          "/auth/me",
			SelectRole:  "/auth/select-role",
			Suspend:     "/admin/accounts/:id/suspend",
			Reinstate:   "/admin/accounts/:id/reinstate",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in identity controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in identity controller...")
	}

	return c
}

// RegisterIdentityRoutes mounts the lifecycle endpoints on the given router.
func RegisterIdentityRoutes[T any](app router.Router[T], opts ...IdentityControllerOption) {
	controller := NewIdentityController(opts...)
	guard := controller.Guard

	app.Post(controller.Routes.Signup, controller.SignupPost).
		SetName("auth.signup")
	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmailPost).
		SetName("auth.verify-email")
	app.Post(controller.Routes.ResendCode, controller.ResendCodePost).
		SetName("auth.resend-code")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")
	app.Post(controller.Routes.Logout,
		guard.RequireAuthenticated()(controller.LogoutPost)).
		SetName("auth.logout")
	app.Get(controller.Routes.Me,
		guard.RequireAuthenticated()(controller.MeGet)).
		SetName("auth.me")
	app.Post(controller.Routes.SelectRole,
		guard.RequireNotSuspended()(controller.SelectRolePost)).
		SetName("auth.select-role")

	app.Post(controller.Routes.Suspend,
		guard.RequireAdministrator()(controller.SuspendPost)).
		SetName("admin.accounts.suspend")
	app.Post(controller.Routes.Reinstate,
		guard.RequireAdministrator()(controller.ReinstatePost)).
		SetName("admin.accounts.reinstate")
}

func (a *IdentityController) SignupPost(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("signup parse payload: %v", err)
		return a.ErrorHandler(ctx, validationError(err))
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	account, err := a.Auther.Signup(ctx.Context(), *payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"account": account,
		"message": "Verification code sent",
	})
}

// EmailCodePayload carries an email plus its one-time verification code.
type EmailCodePayload struct {
	Email string `form:"email" json:"email"`
	Code  string `form:"code" json:"code"`
}

func (r EmailCodePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *IdentityController) VerifyEmailPost(ctx router.Context) error {
	payload := new(EmailCodePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	account, err := a.Auther.VerifyEmail(ctx.Context(), payload.Email, payload.Code)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
		"message": "Email verified",
	})
}

// EmailPayload carries only an email address.
type EmailPayload struct {
	Email string `form:"email" json:"email"`
}

func (r EmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *IdentityController) ResendCodePost(ctx router.Context) error {
	payload := new(EmailPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if err := a.Auther.ResendCode(ctx.Context(), payload.Email); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Verification code sent",
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *IdentityController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("login error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	a.Guard.SetSessionCookie(ctx, token)

	return ctx.JSON(router.StatusOK, map[string]any{
		"token": token,
	})
}

func (a *IdentityController) LogoutPost(ctx router.Context) error {
	a.Guard.ClearSessionCookie(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "Logged out",
	})
}

func (a *IdentityController) MeGet(ctx router.Context) error {
	account, ok := AccountFromRouter(ctx, a.Guard.contextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
	})
}

// SelectRolePayload carries the role the caller picked.
type SelectRolePayload struct {
	Role string `form:"user_role" json:"user_role"`
}

func (r SelectRolePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.By(func(value any) error {
			raw, _ := value.(string)
			if _, ok := ParseRole(raw); !ok {
				return fmt.Errorf("must be one of %q or %q", RoleAttendee, RoleCreator)
			}
			return nil
		})),
	)
}

func (a *IdentityController) SelectRolePost(ctx router.Context) error {
	account, ok := AccountFromRouter(ctx, a.Guard.contextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated)
	}

	payload := new(SelectRolePayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	role, _ := ParseRole(payload.Role)

	updated, err := a.Auther.SelectRole(ctx.Context(), account.ID, role)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": updated,
	})
}

// SuspendPayload carries the optional suspension reason.
type SuspendPayload struct {
	Reason string `form:"reason" json:"reason"`
}

func (a *IdentityController) SuspendPost(ctx router.Context) error {
	id, err := a.accountIDParam(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(SuspendPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, validationError(err))
	}

	account, err := a.Auther.Suspend(ctx.Context(), id, payload.Reason)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
	})
}

func (a *IdentityController) ReinstatePost(ctx router.Context) error {
	id, err := a.accountIDParam(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	account, err := a.Auther.Reinstate(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
	})
}

func (a *IdentityController) accountIDParam(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, validationError(fmt.Errorf("invalid account id %q", raw))
	}
	return id, nil
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = router.StatusInternalServerError
	}

	return c.JSON(code, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
			"metadata":  richErr.Metadata,
		},
	})
}
