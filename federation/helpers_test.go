package federation_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/gatherly/go-identity"
	"github.com/gatherly/go-identity/federation"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestManager(t *testing.T) identity.RepositoryManager {
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

	return identity.NewRepositoryManager(db)
}

func testConfig() identity.SimpleConfig {
	return identity.SimpleConfig{
		SigningKey:      "test-signing-key",
		TokenExpiration: 24,
		Issuer:          "gatherly-test",
		Audience:        []string{"storefront"},
	}
}

func googleProfile() *federation.Profile {
	return &federation.Profile{
		SubjectID:     "google-sub-1138",
		Provider:      "google",
		Email:         "ada@example.com",
		EmailVerified: true,
		Name:          "Ada Lovelace",
		AvatarURL:     "https://lh3.example.com/photo.jpg",
	}
}
