package identity_test

import (
	"context"
	"testing"

	"github.com/gatherly/go-identity"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T) (*identity.IdentityController, *guardHarness) {
	t.Helper()

	h := newGuardHarness(t)
	controller := identity.NewIdentityController(
		identity.WithControllerAuther(h.auther),
		identity.WithControllerGuard(h.guard),
	)
	return controller, h
}

// bindPayload wires MockContext.Bind to populate the handler's payload
// struct the way a real request body would.
func bindPayload[T any](ctx *MockContext, payload T) {
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		target, ok := args.Get(0).(*T)
		if ok {
			*target = payload
		}
	}).Return(nil)
}

// response captures what a handler wrote back.
type response struct {
	status int
	body   map[string]any
}

func expectJSON(ctx *MockContext) *response {
	res := &response{}
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		res.status = args.Int(0)
		res.body, _ = args.Get(1).(map[string]any)
	}).Return(nil)
	return res
}

func (r *response) errTextCode() string {
	outer, _ := r.body["error"].(map[string]any)
	code, _ := outer["text_code"].(string)
	return code
}

func TestSignupPost(t *testing.T) {
	t.Parallel()

	controller, h := newController(t)

	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	bindPayload(ctx, identity.SignupRequest{
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
		Password:    "difference-engine",
		Role:        "creator",
	})
	res := expectJSON(ctx)

	require.NoError(t, controller.SignupPost(ctx))

	assert.Equal(t, router.StatusCreated, res.status)
	account, ok := res.body["account"].(*identity.Account)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", account.Email)

	sent, ok := h.notifier.lastCode()
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", sent.Email)
}

func TestSignupPostValidationFailure(t *testing.T) {
	t.Parallel()

	controller, _ := newController(t)

	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	bindPayload(ctx, identity.SignupRequest{Email: "not-an-email"})
	res := expectJSON(ctx)

	require.NoError(t, controller.SignupPost(ctx))
	assert.Equal(t, router.StatusBadRequest, res.status)
}

func TestLoginPostSetsSessionCookie(t *testing.T) {
	t.Parallel()

	controller, h := newController(t)
	h.loginAs(t, "ada@example.com", "creator")

	var cookie *router.Cookie
	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookie, _ = args.Get(0).(*router.Cookie)
	})
	bindPayload(ctx, identity.LoginRequest{
		Email:    "ada@example.com",
		Password: "a-usable-password",
	})
	res := expectJSON(ctx)

	require.NoError(t, controller.LoginPost(ctx))

	assert.Equal(t, router.StatusOK, res.status)
	token, _ := res.body["token"].(string)
	require.NotEmpty(t, token)

	require.NotNil(t, cookie)
	assert.Equal(t, "identity", cookie.Name)
	assert.Equal(t, token, cookie.Value)
	assert.True(t, cookie.HTTPOnly)
}

func TestLoginPostBadCredentials(t *testing.T) {
	t.Parallel()

	controller, h := newController(t)
	h.loginAs(t, "ada@example.com", "creator")

	ctx := &MockContext{}
	ctx.On("Context").Return(context.Background())
	bindPayload(ctx, identity.LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong password",
	})
	res := expectJSON(ctx)

	require.NoError(t, controller.LoginPost(ctx))
	assert.Equal(t, router.StatusUnauthorized, res.status)
	assert.Equal(t, "IDENTITY_NOT_FOUND", res.errTextCode())
	ctx.AssertNotCalled(t, "Cookie", mock.Anything)
}

func TestVerifyEmailPostRejectsBadCode(t *testing.T) {
	t.Parallel()

	controller, _ := newController(t)

	ctx := &MockContext{}
	bindPayload(ctx, identity.EmailCodePayload{
		Email: "ada@example.com",
		Code:  "12345", // five digits, fails validation before any lookup
	})
	res := expectJSON(ctx)

	require.NoError(t, controller.VerifyEmailPost(ctx))
	assert.Equal(t, router.StatusBadRequest, res.status)
}

func TestSuspendPostRejectsMalformedID(t *testing.T) {
	t.Parallel()

	controller, _ := newController(t)

	ctx := &MockContext{}
	ctx.On("Param", "id").Return("not-a-uuid")
	res := expectJSON(ctx)

	require.NoError(t, controller.SuspendPost(ctx))
	assert.Equal(t, router.StatusBadRequest, res.status)
}

func TestMeGetReturnsStowedAccount(t *testing.T) {
	t.Parallel()

	controller, _ := newController(t)
	account := &identity.Account{DisplayName: "Ada Lovelace"}

	ctx := &MockContext{}
	ctx.On("Locals", "identity").Return(account)
	res := expectJSON(ctx)

	require.NoError(t, controller.MeGet(ctx))
	assert.Equal(t, router.StatusOK, res.status)
	assert.Same(t, account, res.body["account"])
}

func TestLogoutPostClearsCookie(t *testing.T) {
	t.Parallel()

	controller, _ := newController(t)

	var cookie *router.Cookie
	ctx := &MockContext{}
	ctx.On("Cookie", mock.Anything).Run(func(args mock.Arguments) {
		cookie, _ = args.Get(0).(*router.Cookie)
	})
	res := expectJSON(ctx)

	require.NoError(t, controller.LogoutPost(ctx))

	assert.Equal(t, router.StatusOK, res.status)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}
