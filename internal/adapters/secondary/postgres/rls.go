package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AsSubject runs fn inside a transaction whose row-security context is a
// verified claim subject rather than the service principal. set_config with
// is_local=true scopes both settings to the transaction, so the connection
// returns to the pool as the service principal regardless of outcome.
//
// This is the same execution context a direct store client (the admin CMS)
// gets when it connects with a user claim, which makes it the honest way to
// exercise the row-security policies.
func AsSubject(ctx context.Context, pool *pgxpool.Pool, subject string, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return classifyError(fmt.Errorf("begin subject transaction: %w", err))
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT set_config('request.jwt.role', 'authenticated', true)`); err != nil {
		return classifyError(err)
	}
	if _, err := tx.Exec(ctx, `SELECT set_config('request.jwt.sub', $1, true)`, subject); err != nil {
		return classifyError(err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AsAnonymous runs fn inside a transaction with no claim context at all:
// neither request.jwt.sub nor request.jwt.role is set, so every policy
// predicate evaluates false and the store fails closed.
func AsAnonymous(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return classifyError(fmt.Errorf("begin anonymous transaction: %w", err))
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT set_config('request.jwt.role', '', true)`); err != nil {
		return classifyError(err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
