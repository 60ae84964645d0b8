package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var markAccountVerifiedSQL = `UPDATE "accounts" AS "acct"
SET
	"is_email_verified" = TRUE,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acct"."id" = ?
RETURNING *;`

var suspendAccountSQL = `UPDATE "accounts" AS "acct"
SET
	"is_suspended" = TRUE,
	"suspension_reason" = ?,
	"suspended_at" = COALESCE("suspended_at", ?),
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acct"."id" = ?
RETURNING *;`

var reinstateAccountSQL = `UPDATE "accounts" AS "acct"
SET
	"is_suspended" = FALSE,
	"suspension_reason" = '',
	"suspended_at" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acct"."id" = ?
RETURNING *;`

var promoteAdministratorSQL = `UPDATE "accounts" AS "acct"
SET
	"is_admin" = TRUE,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acct"."id" = ?
RETURNING *;`

var selectAccountRoleSQL = `UPDATE "accounts" AS "acct"
SET
	"user_role" = ?,
	"has_selected_role" = TRUE,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acct"."id" = ?
RETURNING *;`

var linkExternalSubjectSQL = `UPDATE "accounts" AS "acct"
SET
	"external_subject_id" = ?,
	"is_email_verified" = TRUE,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acct"."id" = ?
RETURNING *;`

// Accounts is the durable identity store. Email and external subject
// uniqueness are enforced by the table's constraints; concurrent writers
// converge through IsDuplicateKey detection, never application locks.
type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	GetByExternalSubject(ctx context.Context, subjectID string) (*Account, error)
	GetByExternalSubjectTx(ctx context.Context, tx bun.IDB, subjectID string) (*Account, error)

	Register(ctx context.Context, record *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	MarkVerified(ctx context.Context, id uuid.UUID) (*Account, error)
	SelectRole(ctx context.Context, id uuid.UUID, role AccountRole) (*Account, error)
	LinkExternalSubject(ctx context.Context, id uuid.UUID, subjectID string) (*Account, error)
	PromoteToAdministrator(ctx context.Context, id uuid.UUID) (*Account, error)

	Suspend(ctx context.Context, id uuid.UUID, reason string) (*Account, error)
	Reinstate(ctx context.Context, id uuid.UUID) (*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db  *bun.DB
	now func() time.Time
}

var _ Accounts = (*accounts)(nil)

type AccountsOption func(*accounts)

// WithAccountsClock injects a custom clock (useful for tests).
func WithAccountsClock(clock func() time.Time) AccountsOption {
	return func(a *accounts) {
		if clock != nil {
			a.now = clock
		}
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoAccounts := &accounts{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}

	return repoAccounts
}

func (a *accounts) Register(ctx context.Context, record *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, record)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.getByColumnTx(ctx, tx, "email", NormalizeEmail(email))
}

func (a *accounts) GetByExternalSubject(ctx context.Context, subjectID string) (*Account, error) {
	return a.GetByExternalSubjectTx(ctx, a.db, subjectID)
}

func (a *accounts) GetByExternalSubjectTx(ctx context.Context, tx bun.IDB, subjectID string) (*Account, error) {
	return a.getByColumnTx(ctx, tx, "external_subject_id", strings.TrimSpace(subjectID))
}

func (a *accounts) getByColumnTx(ctx context.Context, tx bun.IDB, column, value string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{column: value})
		}
		return nil, err
	}

	return record, nil
}

// GetByIdentifier resolves an account from either a UUID or an email address.
func (a *accounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *accounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	identifier = strings.TrimSpace(identifier)

	column := "id"
	value := identifier

	if _, err := uuid.Parse(identifier); err != nil {
		if _, err := mail.ParseAddress(identifier); err == nil {
			column = "email"
			value = NormalizeEmail(identifier)
		}
	}

	record := &Account{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"identifier": identifier})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) MarkVerified(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.execReturningOne(ctx, markAccountVerifiedSQL, id.String())
}

func (a *accounts) SelectRole(ctx context.Context, id uuid.UUID, role AccountRole) (*Account, error) {
	return a.execReturningOne(ctx, selectAccountRoleSQL, string(role), id.String())
}

func (a *accounts) LinkExternalSubject(ctx context.Context, id uuid.UUID, subjectID string) (*Account, error) {
	return a.execReturningOne(ctx, linkExternalSubjectSQL, strings.TrimSpace(subjectID), id.String())
}

// PromoteToAdministrator is one-way; nothing in this package clears the flag.
func (a *accounts) PromoteToAdministrator(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.execReturningOne(ctx, promoteAdministratorSQL, id.String())
}

// Suspend is idempotent-safe: re-suspending updates the reason and keeps the
// original suspension timestamp.
func (a *accounts) Suspend(ctx context.Context, id uuid.UUID, reason string) (*Account, error) {
	return a.execReturningOne(ctx, suspendAccountSQL, reason, a.now(), id.String())
}

// Reinstate clears the suspension flag, reason, and timestamp. Reinstating an
// already-active account is a no-op.
func (a *accounts) Reinstate(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.execReturningOne(ctx, reinstateAccountSQL, id.String())
}

func (a *accounts) execReturningOne(ctx context.Context, sql string, args ...any) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, a.db, sql, args...)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}
