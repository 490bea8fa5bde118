package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/identity-sync-backend/internal/core/domain"
	apperrors "github.com/lorrc/identity-sync-backend/internal/core/errors"
	"github.com/lorrc/identity-sync-backend/internal/core/ports"
)

// ProjectionRepository is the secondary adapter for the user projection
// table. All writes go through the idempotent upsert/delete pair; the
// updated_at trigger and the created_at immutability live in the schema,
// not here.
type ProjectionRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ProjectionRepository = (*ProjectionRepository)(nil)

// NewProjectionRepository creates a new projection repository.
func NewProjectionRepository(pool *pgxpool.Pool) *ProjectionRepository {
	return &ProjectionRepository{pool: pool}
}

const projectionColumns = `external_uid, email, display_name, avatar_url, created_at, updated_at`

func scanProjection(row pgx.Row) (*domain.UserProjection, error) {
	var p domain.UserProjection
	err := row.Scan(
		&p.ExternalUID,
		&p.Email,
		&p.DisplayName,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert inserts the row or, on external_uid conflict, overwrites the
// mutable columns. The conflict target is the primary key, which is what
// makes redelivered events idempotent; a conflicting email surfaces as a
// classified uniqueness error instead.
func (r *ProjectionRepository) Upsert(ctx context.Context, p *domain.UserProjection) (*domain.UserProjection, error) {
	query := `
		INSERT INTO users (external_uid, email, display_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_uid) DO UPDATE
		SET email        = EXCLUDED.email,
		    display_name = EXCLUDED.display_name,
		    avatar_url   = EXCLUDED.avatar_url
		RETURNING ` + projectionColumns

	stored, err := scanProjection(r.pool.QueryRow(ctx, query,
		p.ExternalUID,
		p.Email,
		p.DisplayName,
		p.AvatarURL,
	))
	if err != nil {
		return nil, classifyError(fmt.Errorf("upsert projection: %w", err))
	}
	return stored, nil
}

// Delete removes the row keyed by externalUID. Zero rows affected is a
// successful no-op.
func (r *ProjectionRepository) Delete(ctx context.Context, externalUID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE external_uid = $1`, externalUID)
	if err != nil {
		return 0, classifyError(fmt.Errorf("delete projection: %w", err))
	}
	return tag.RowsAffected(), nil
}

// GetByUID retrieves a single row by its external UID.
func (r *ProjectionRepository) GetByUID(ctx context.Context, externalUID string) (*domain.UserProjection, error) {
	query := `SELECT ` + projectionColumns + ` FROM users WHERE external_uid = $1`

	p, err := scanProjection(r.pool.QueryRow(ctx, query, externalUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProjectionNotFound
		}
		return nil, classifyError(fmt.Errorf("get projection by uid: %w", err))
	}
	return p, nil
}

// GetByEmail retrieves a single row by email, the secondary access path.
func (r *ProjectionRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProjection, error) {
	query := `SELECT ` + projectionColumns + ` FROM users WHERE email = $1`

	p, err := scanProjection(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrProjectionNotFound
		}
		return nil, classifyError(fmt.Errorf("get projection by email: %w", err))
	}
	return p, nil
}

// List returns a page of rows ordered by creation time.
func (r *ProjectionRepository) List(ctx context.Context, limit, offset int32) ([]*domain.UserProjection, error) {
	query := `SELECT ` + projectionColumns + `
		FROM users
		ORDER BY created_at, external_uid
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, classifyError(fmt.Errorf("list projections: %w", err))
	}
	defer rows.Close()

	projections := make([]*domain.UserProjection, 0)
	for rows.Next() {
		p, err := scanProjection(rows)
		if err != nil {
			return nil, classifyError(err)
		}
		projections = append(projections, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}
	return projections, nil
}
