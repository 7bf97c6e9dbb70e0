package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"domus-api/internal/model"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Issue replaces the user's live refresh token with a fresh one. The delete
// and insert run in one transaction, and refresh_tokens has a UNIQUE
// constraint on user_id, so two concurrent issuances for the same user can
// never both commit a row.
func (r *TokenRepository) Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (model.RefreshToken, error) {
	token := model.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(ttl),
		CreatedAt: time.Now().UTC(),
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete existing refresh token: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO refresh_tokens (id, user_id, expires_at, created_at)
			 VALUES ($1, $2, $3, $4)`,
			token.ID, token.UserID, token.ExpiresAt, token.CreatedAt); err != nil {
			return fmt.Errorf("insert refresh token: %w", err)
		}

		return nil
	})
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return token, nil
}

// Get returns the refresh token row regardless of expiry. Expiry is checked
// by the caller, not enforced by the store.
func (r *TokenRepository) Get(ctx context.Context, id uuid.UUID) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, expires_at, created_at FROM refresh_tokens WHERE id = $1`, id).
		Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.RefreshToken{}, model.ErrTokenNotFound
	}
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("get refresh token: %w", err)
	}
	return t, nil
}

// DeleteForUser removes the user's live refresh token if one exists.
// Deleting when none exists is not an error.
func (r *TokenRepository) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// CleanExpired deletes refresh tokens past their expiry. Run periodically by
// the app, never on the request path.
func (r *TokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
