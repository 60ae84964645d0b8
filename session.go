package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject holds the attributes of an authenticated session. It carries
// only the account id plus token envelope data; the durable record is always
// re-read from the store on resolution.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	UserRole       string     `json:"user_role,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) String() string {
	return fmt.Sprintf("session user=%s issuer=%s audience=%v", s.UserID, s.Issuer, s.Audience)
}

// JWTClaims is the session token payload. The subject carries the account
// id; the role claim is informational only, authorization always re-reads
// the durable record.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

func sessionFromClaims(claims *JWTClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, errors.New("claims must not be nil", errors.CategoryInternal)
	}

	if claims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	session := &SessionObject{
		UserID:   claims.Subject,
		UserRole: claims.UserRole,
		Audience: claims.Audience,
		Issuer:   claims.Issuer,
	}

	if claims.IssuedAt != nil {
		issuedAt := claims.IssuedAt.Time
		session.IssuedAt = &issuedAt
	}

	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time
		session.ExpirationDate = &expiresAt
	}

	return session, nil
}
