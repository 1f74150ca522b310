package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"clipfeed/internal/model"
)

const sessionColumns = `id, user_id, token_hash,
	COALESCE(device_info, '') AS device_info,
	COALESCE(ip_address, '') AS ip_address,
	expires_at, created_at, revoked_at, replaced_by`

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create stores s and fills in the generated id and creation time.
func (r *sessionRepository) Create(ctx context.Context, s *model.Session) error {
	return insertSession(ctx, r.db, s)
}

func insertSession(ctx context.Context, q sqlx.QueryerContext, s *model.Session) error {
	err := q.QueryRowxContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, device_info, ip_address)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING id, created_at`,
		s.UserID, s.TokenHash, s.ExpiresAt, s.Device, s.IP,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) ByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	var s model.Session
	err := r.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &s, nil
}

// Rotate revokes the session oldID and stores next as its successor in one
// transaction. If oldID was already revoked nothing is written and
// ErrSessionReused is returned.
func (r *sessionRepository) Rotate(ctx context.Context, oldID string, next *model.Session) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, oldID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	} else if n == 0 {
		return model.ErrSessionReused
	}

	if err := insertSession(ctx, tx, next); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET replaced_by = $2 WHERE id = $1`, oldID, next.ID); err != nil {
		return fmt.Errorf("failed to link successor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}
	return nil
}

// Revoke is a no-op for unknown or already revoked sessions.
func (r *sessionRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (r *sessionRepository) RevokeAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return res.RowsAffected()
}

// Purge deletes sessions that expired before cutoff, revoked or not.
func (r *sessionRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}
