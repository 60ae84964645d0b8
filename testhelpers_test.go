package identity_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/gatherly/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []any{
		(*identity.Account)(nil),
		(*identity.OtpChallenge)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestManager(t *testing.T) identity.RepositoryManager {
	t.Helper()
	return identity.NewRepositoryManager(newTestDB(t))
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return id
}

func testConfig() identity.SimpleConfig {
	return identity.SimpleConfig{
		SigningKey:      "test-signing-key",
		TokenExpiration: 24,
		Issuer:          "gatherly-test",
		Audience:        []string{"storefront"},
	}
}

// recordingNotifier captures every delivery so tests can assert on what was
// sent without touching a mail system.
type recordingNotifier struct {
	mu             sync.Mutex
	codes          []sentCode
	welcomes       []string
	suspensions    []sentSuspension
	reinstatements []string
	fail           bool
}

type sentCode struct {
	Email string
	Name  string
	Code  string
}

type sentSuspension struct {
	Email  string
	Reason string
}

func (n *recordingNotifier) SendVerificationCode(ctx context.Context, email, name, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errTestDelivery
	}
	n.codes = append(n.codes, sentCode{Email: email, Name: name, Code: code})
	return nil
}

func (n *recordingNotifier) SendWelcome(ctx context.Context, email, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errTestDelivery
	}
	n.welcomes = append(n.welcomes, email)
	return nil
}

func (n *recordingNotifier) SendSuspensionNotice(ctx context.Context, email, name, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errTestDelivery
	}
	n.suspensions = append(n.suspensions, sentSuspension{Email: email, Reason: reason})
	return nil
}

func (n *recordingNotifier) SendReinstatementNotice(ctx context.Context, email, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errTestDelivery
	}
	n.reinstatements = append(n.reinstatements, email)
	return nil
}

func (n *recordingNotifier) lastCode() (sentCode, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		return sentCode{}, false
	}
	return n.codes[len(n.codes)-1], true
}

var errTestDelivery = &deliveryError{}

type deliveryError struct{}

func (e *deliveryError) Error() string { return "smtp unavailable" }
