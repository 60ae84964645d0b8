package identity

// Capability names a protected operation class. Every protected route checks
// exactly one capability after the shared authentication and suspension
// gates.
type Capability string

const (
	// CapabilityAny requires only an authenticated, non-suspended account.
	CapabilityAny Capability = "any"
	// CapabilityCreator requires the creator role or administrator flag.
	CapabilityCreator Capability = "creator"
	// CapabilityAdministrator requires the administrator flag.
	CapabilityAdministrator Capability = "administrator"
)

// IsSuspended reports whether the account is currently blocked.
func IsSuspended(account *Account) bool {
	return account != nil && account.Suspended
}

// IsAdministrator reports whether the account carries the admin flag.
func IsAdministrator(account *Account) bool {
	return account != nil && account.Administrator
}

// CanActAsCreator holds for creators and for administrators regardless of
// their role.
func CanActAsCreator(account *Account) bool {
	if account == nil {
		return false
	}
	return account.Role.CanCreateEvents() || account.Administrator
}

// Authorize applies the fixed evaluation order shared by every protected
// operation:
//
//  1. authenticated, else Unauthenticated
//  2. not suspended, else Suspended with the reason, even for accounts that
//     would otherwise qualify (a suspended administrator is told about the
//     suspension, not about privilege)
//  3. the capability predicate, else Forbidden
//
// The order is the contract: it keeps suspended privileged users out and
// avoids leaking why they would otherwise qualify.
func Authorize(account *Account, capability Capability) error {
	if account == nil {
		return ErrUnauthenticated
	}

	if IsSuspended(account) {
		return suspendedError(account)
	}

	switch capability {
	case CapabilityAny:
		return nil
	case CapabilityCreator:
		if CanActAsCreator(account) {
			return nil
		}
	case CapabilityAdministrator:
		if IsAdministrator(account) {
			return nil
		}
	}

	return ErrForbidden
}
