// Package identity provides the account lifecycle for an event storefront:
// registration with email verification, credential login, JWT session
// issuance, capability checks, and account moderation.
//
// Signup paths:
//   - Local signup hashes the password with bcrypt and issues a one-time
//     6-digit verification code. The account cannot log in until the code is
//     redeemed; retrying signup for an unverified email re-issues the code
//     instead of creating a duplicate.
//   - Federated signup (see the federation subpackage) reconciles a
//     provider-asserted profile into a local account: an email match merges
//     into the existing account, otherwise a verified account is created
//     without credentials and with no role selected yet.
//
// Authorization:
//   - Accounts carry a role (attendee or creator) plus administrator and
//     suspension flags. Authorize applies the checks in a fixed order:
//     authenticated, then not suspended, then capability. Suspension outranks
//     privilege, so a suspended administrator is still locked out.
//   - RouteGuard packages the same checks as router middleware and re-reads
//     the durable record on every request, so suspensions and role changes
//     apply before the session token expires.
//
// Notifications:
//   - Notifier delivers lifecycle email (verification codes, welcome,
//     suspension notices). Every call site is fire-and-forget: failures are
//     logged and never roll back the state change that triggered them.
package identity
