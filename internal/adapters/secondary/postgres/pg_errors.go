package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
)

// Postgres error codes the repository cares about.
const (
	codeUniqueViolation       = "23505"
	codeSerializationFailure  = "40001"
	codeDeadlockDetected      = "40P01"
	codeInvalidAuthorization  = "28000"
	codeInvalidPassword       = "28P01"
	codeInsufficientPrivilege = "42501"
)

// emailUniqueConstraint is the implicit constraint name Postgres assigns to
// the UNIQUE on users.email.
const emailUniqueConstraint = "users_email_key"

// classifyError maps a store error onto the retry taxonomy: transient errors
// are marked so the synchronizer's bounded loop retries them, everything
// else is permanent. A uniqueness race on email is marked transient because
// a second attempt with refreshed data typically resolves it; if it does
// not, the final error still identifies the conflict.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	// A cancelled or expired context will not recover on retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == emailUniqueConstraint:
			return apperrors.MarkTransient(fmt.Errorf("%w: %s", apperrors.ErrEmailTaken, pgErr.Detail))
		case pgErr.Code == codeUniqueViolation:
			return apperrors.MarkTransient(fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.ConstraintName))
		case pgErr.Code == codeSerializationFailure, pgErr.Code == codeDeadlockDetected:
			return apperrors.MarkTransient(err)
		case pgErr.Code == codeInvalidAuthorization,
			pgErr.Code == codeInvalidPassword,
			pgErr.Code == codeInsufficientPrivilege:
			return fmt.Errorf("%w: %s", apperrors.ErrStoreUnauthorized, pgErr.Message)
		case strings.HasPrefix(pgErr.Code, "08"): // connection exceptions
			return apperrors.MarkTransient(err)
		default:
			return err
		}
	}

	// Anything that never reached the server is worth retrying.
	if pgconn.SafeToRetry(err) {
		return apperrors.MarkTransient(err)
	}

	// Remaining errors are network-level failures between client and server.
	return apperrors.MarkTransient(err)
}
