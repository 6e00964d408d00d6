package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nomadworks/tourhub/internal/domain/approval"
)

// The PENDING/ACTIVE/REJECTED gate is identical for shops, workshops and
// community events, so the guarded transition lives here once and each repo
// binds its own table name and not-found error.

var statusTables = map[string]struct{}{
	"shops":     {},
	"workshops": {},
	"events":    {},
}

var errUnknownStatusTable = errors.New("unknown status table")

// transitionStatus applies PENDING -> next as one guarded UPDATE. A zero
// row count means either the row is missing (notFound) or it already left
// PENDING (approval.ErrInvalidTransition); one existence probe tells them
// apart.
func transitionStatus(ctx context.Context, pool *pgxpool.Pool, table, id string, next approval.Status, reason *string, notFound error) error {
	if _, ok := statusTables[table]; !ok {
		return errUnknownStatusTable
	}

	if !approval.StatusPending.CanTransitionTo(next) {
		return approval.ErrInvalidTransition
	}

	tag, err := pool.Exec(ctx,
		`UPDATE `+table+`
		 SET status = $2,
		     reject_reason = $3,
		     updated_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, string(next), reason, string(approval.StatusPending),
	)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var dummy string
	err = pool.QueryRow(ctx, `SELECT id FROM `+table+` WHERE id = $1`, id).Scan(&dummy)

	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}

	if err != nil {
		return err
	}

	return approval.ErrInvalidTransition
}
