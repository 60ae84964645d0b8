package identity

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Challenges persists one-time verification codes. The unique constraint on
// email plus the delete-then-insert in Replace guarantee at most one live
// challenge per address. Expiry is enforced at the data layer: FindLive never
// returns a stale row, whether or not it has been physically collected.
type Challenges interface {
	Replace(ctx context.Context, challenge *OtpChallenge) error
	ReplaceTx(ctx context.Context, tx bun.IDB, challenge *OtpChallenge) error

	// FindLive returns the unexpired challenge for the email, or a record
	// not found error when none exists or the one present is past expiry.
	FindLive(ctx context.Context, email string, now time.Time) (*OtpChallenge, error)

	// Consume deletes the challenge after successful verification.
	Consume(ctx context.Context, email string) error

	// CollectExpired deletes a stale row for the email if one is still
	// present, reporting whether it existed. Lets callers distinguish
	// "expired" from "never issued" while keeping stale rows invisible to
	// FindLive.
	CollectExpired(ctx context.Context, email string, now time.Time) (bool, error)

	// PurgeExpired garbage-collects every stale row, returning the count.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type challenges struct {
	db *bun.DB
}

var _ Challenges = (*challenges)(nil)

func NewChallengesRepository(db *bun.DB) Challenges {
	return &challenges{db: db}
}

func (c *challenges) Replace(ctx context.Context, challenge *OtpChallenge) error {
	return c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return c.ReplaceTx(ctx, tx, challenge)
	})
}

// ReplaceTx discards any prior challenge for the email before inserting the
// new one. Replace, not append: the old code must stop verifying immediately.
func (c *challenges) ReplaceTx(ctx context.Context, tx bun.IDB, challenge *OtpChallenge) error {
	if challenge.ID == uuid.Nil {
		challenge.ID = uuid.New()
	}
	challenge.Email = NormalizeEmail(challenge.Email)

	if _, err := tx.NewDelete().
		Model((*OtpChallenge)(nil)).
		Where("?TableAlias.email = ?", challenge.Email).
		Exec(ctx); err != nil {
		return err
	}

	_, err := tx.NewInsert().Model(challenge).Exec(ctx)
	return err
}

func (c *challenges) FindLive(ctx context.Context, email string, now time.Time) (*OtpChallenge, error) {
	record := &OtpChallenge{}
	err := c.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Where("?TableAlias.expires_at > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": NormalizeEmail(email)})
		}
		return nil, err
	}

	return record, nil
}

func (c *challenges) Consume(ctx context.Context, email string) error {
	_, err := c.db.NewDelete().
		Model((*OtpChallenge)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Exec(ctx)
	return err
}

func (c *challenges) CollectExpired(ctx context.Context, email string, now time.Time) (bool, error) {
	res, err := c.db.NewDelete().
		Model((*OtpChallenge)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Where("?TableAlias.expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return deleted > 0, nil
}

func (c *challenges) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := c.db.NewDelete().
		Model((*OtpChallenge)(nil)).
		Where("?TableAlias.expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
