package identity_test

import (
	"testing"

	"github.com/gatherly/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeOrdering(t *testing.T) {
	t.Parallel()

	attendee := &identity.Account{Role: identity.RoleAttendee}
	creator := &identity.Account{Role: identity.RoleCreator}
	admin := &identity.Account{Role: identity.RoleAttendee, Administrator: true}
	suspendedAdmin := &identity.Account{
		Role:             identity.RoleCreator,
		Administrator:    true,
		Suspended:        true,
		SuspensionReason: "abuse reports",
	}

	tests := []struct {
		name       string
		account    *identity.Account
		capability identity.Capability
		wantErr    error
	}{
		{"nil account", nil, identity.CapabilityAny, identity.ErrUnauthenticated},
		{"attendee any", attendee, identity.CapabilityAny, nil},
		{"attendee creator", attendee, identity.CapabilityCreator, identity.ErrForbidden},
		{"attendee admin", attendee, identity.CapabilityAdministrator, identity.ErrForbidden},
		{"creator creator", creator, identity.CapabilityCreator, nil},
		{"creator admin", creator, identity.CapabilityAdministrator, identity.ErrForbidden},
		{"admin creator", admin, identity.CapabilityCreator, nil},
		{"admin admin", admin, identity.CapabilityAdministrator, nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := identity.Authorize(tc.account, tc.capability)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}

	// Suspension is checked before capability, so a suspended administrator
	// gets the suspension error even on routes they would otherwise pass.
	for _, capability := range []identity.Capability{
		identity.CapabilityAny,
		identity.CapabilityCreator,
		identity.CapabilityAdministrator,
	} {
		err := identity.Authorize(suspendedAdmin, capability)
		assert.True(t, identity.IsSuspendedError(err), "capability %s", capability)
	}
}

func TestPolicyPredicates(t *testing.T) {
	t.Parallel()

	assert.False(t, identity.IsSuspended(nil))
	assert.True(t, identity.IsSuspended(&identity.Account{Suspended: true}))

	assert.False(t, identity.IsAdministrator(nil))
	assert.True(t, identity.IsAdministrator(&identity.Account{Administrator: true}))

	// Administrators can act as creators without the creator role.
	assert.True(t, identity.CanActAsCreator(&identity.Account{
		Role:          identity.RoleAttendee,
		Administrator: true,
	}))
	assert.True(t, identity.CanActAsCreator(&identity.Account{Role: identity.RoleCreator}))
	assert.False(t, identity.CanActAsCreator(&identity.Account{Role: identity.RoleAttendee}))
}
