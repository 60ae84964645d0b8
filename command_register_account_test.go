package identity_test

import (
	"context"
	"testing"

	"github.com/gatherly/go-identity"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAccountHandler(t *testing.T) {
	t.Parallel()

	repo := newTestManager(t)
	handler := identity.NewRegisterAccountHandler(repo)
	ctx := context.Background()

	err := handler.Execute(ctx, identity.RegisterAccountMessage{
		DisplayName: "Seed Admin",
		Email:       "Seed@Example.com",
		Password:    "seeded-password",
		Role:        "creator",
	})
	require.NoError(t, err)

	account, err := repo.Accounts().GetByEmail(ctx, "seed@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleCreator, account.Role)
	// Seeded accounts skip the challenge step entirely.
	assert.True(t, account.EmailVerified)
	assert.True(t, account.RoleSelected)
	require.NoError(t, identity.CompareSecretAndHash("seeded-password", account.PasswordHash))
}

func TestRegisterAccountHandlerDeterministicID(t *testing.T) {
	t.Parallel()

	repo := newTestManager(t)
	handler := identity.NewRegisterAccountHandler(repo)
	ctx := context.Background()

	err := handler.Execute(ctx, identity.RegisterAccountMessage{
		DisplayName: "Seed Admin",
		Email:       "seed@example.com",
		Password:    "seeded-password",
		UseHashid:   true,
	})
	require.NoError(t, err)

	expected, err := hashid.NewUUID("seed@example.com")
	require.NoError(t, err)

	account, err := repo.Accounts().GetByEmail(ctx, "seed@example.com")
	require.NoError(t, err)
	assert.Equal(t, expected, account.ID)
}

func TestRegisterAccountHandlerDefaultsRole(t *testing.T) {
	t.Parallel()

	repo := newTestManager(t)
	handler := identity.NewRegisterAccountHandler(repo)
	ctx := context.Background()

	err := handler.Execute(ctx, identity.RegisterAccountMessage{
		DisplayName: "Seed Attendee",
		Email:       "attendee@example.com",
		Password:    "seeded-password",
		Role:        "not-a-role",
	})
	require.NoError(t, err)

	account, err := repo.Accounts().GetByEmail(ctx, "attendee@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAttendee, account.Role)
}

func TestRegisterAccountHandlerCancelledContext(t *testing.T) {
	t.Parallel()

	handler := identity.NewRegisterAccountHandler(newTestManager(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, identity.RegisterAccountMessage{
		DisplayName: "Never Created",
		Email:       "never@example.com",
		Password:    "seeded-password",
	})
	assert.Error(t, err)
}
