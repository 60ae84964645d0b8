package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountRole determines whether an account may author events. It is
// orthogonal to the administrator flag.
type AccountRole string

const (
	// RoleAttendee may browse and book events.
	RoleAttendee AccountRole = "attendee"
	// RoleCreator may additionally create and manage events.
	RoleCreator AccountRole = "creator"
)

// IsValid checks if the role is one of the predefined valid roles
func (r AccountRole) IsValid() bool {
	switch r {
	case RoleAttendee, RoleCreator:
		return true
	default:
		return false
	}
}

// CanCreateEvents reports whether this role alone grants event authorship.
func (r AccountRole) CanCreateEvents() bool {
	return r == RoleCreator
}

// ParseRole safely parses a string into an AccountRole
func ParseRole(raw string) (AccountRole, bool) {
	role := AccountRole(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.IsValid()
}

// DefaultAvatarURL is assigned to accounts created without a profile picture.
const DefaultAvatarURL = "https://avataaars.io/?avatarStyle=Circle&topType=Hat&clotheType=ShirtCrewNeck"

// Account is the durable identity record. Email is the sole join key between
// local and federated identities; uniqueness is enforced by the store, not
// by read-then-write.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acct"`

	ID          uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	DisplayName string    `bun:"display_name,notnull" json:"display_name,omitempty"`
	Email       string    `bun:"email,notnull,unique" json:"email,omitempty"`

	// PasswordHash is set for locally registered accounts and empty for
	// accounts created purely via federation.
	PasswordHash string `bun:"password_hash" json:"-"`

	// ExternalSubjectID is set once the account has been linked to the
	// identity provider. Uniqueness only applies to assigned values; the
	// column stays NULL for local-only accounts.
	ExternalSubjectID string `bun:"external_subject_id,nullzero,unique" json:"external_subject_id,omitempty"`

	AvatarURL string      `bun:"avatar_url" json:"avatar_url,omitempty"`
	Role      AccountRole `bun:"user_role,notnull" json:"user_role,omitempty"`

	// EmailVerified is monotonic false -> true, it never reverts.
	EmailVerified bool `bun:"is_email_verified" json:"is_email_verified,omitempty"`

	// Administrator is promoted by policy and never revoked here.
	Administrator bool `bun:"is_admin" json:"is_admin,omitempty"`

	Suspended        bool       `bun:"is_suspended" json:"is_suspended,omitempty"`
	SuspensionReason string     `bun:"suspension_reason" json:"suspension_reason,omitempty"`
	SuspendedAt      *time.Time `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`

	// RoleSelected is true immediately for local signups; federation-created
	// accounts start false until the user explicitly picks a role.
	RoleSelected bool `bun:"has_selected_role" json:"has_selected_role,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsFederated reports whether the account has been linked to the provider.
func (a *Account) IsFederated() bool {
	return a != nil && a.ExternalSubjectID != ""
}

// HasCredentials reports whether the account can authenticate with a password.
func (a *Account) HasCredentials() bool {
	return a != nil && a.PasswordHash != ""
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
// Emails are unique case-insensitively, so everything is stored lowercase.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = NormalizeEmail(record.Email)
	if record.Role == "" {
		record.Role = RoleAttendee
	}
	if record.AvatarURL == "" {
		record.AvatarURL = DefaultAvatarURL
	}
}

// ChallengeTTL is the validity window of a verification code. The store
// enforces the window; any read after expiry behaves as if the record does
// not exist, whether or not physical deletion has happened.
const ChallengeTTL = 600 * time.Second

// OtpChallenge is the ephemeral artifact that proves control of an email
// address. At most one live challenge exists per email; issuing a new one
// replaces any prior one. Its lifetime is strictly shorter than the Account
// it guards.
type OtpChallenge struct {
	bun.BaseModel `bun:"table:otp_challenges,alias:otp"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email     string    `bun:"email,notnull,unique" json:"email,omitempty"`
	CodeHash  string    `bun:"code_hash,notnull" json:"-"`
	IssuedAt  time.Time `bun:"issued_at,notnull" json:"issued_at,omitempty"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expires_at,omitempty"`
}

// Expired reports whether the challenge is past its validity window.
func (c *OtpChallenge) Expired(now time.Time) bool {
	return c == nil || !now.Before(c.ExpiresAt)
}
