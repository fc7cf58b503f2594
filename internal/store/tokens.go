package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storyreel/server/internal/model"
)

func (s *Store) SaveRefreshToken(ctx context.Context, tok model.RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, created_at)
		 VALUES (?, ?, ?, ?, NULL, ?)`,
		tok.ID, tok.UserID, tok.TokenHash, formatTime(tok.ExpiresAt), formatTime(tok.CreatedAt),
	)
	if err != nil {
		return unavailable("save refresh token", err)
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, id string) (model.RefreshToken, error) {
	var tok model.RefreshToken
	var expiresAt, createdAt string
	var revokedAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		 FROM refresh_tokens WHERE id = ?`, id,
	).Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &expiresAt, &revokedAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, ErrNotFound
		}
		return model.RefreshToken{}, unavailable("get refresh token", err)
	}
	tok.ExpiresAt = parseTime(expiresAt)
	tok.CreatedAt = parseTime(createdAt)
	if revokedAt.Valid && revokedAt.String != "" {
		t := parseTime(revokedAt.String)
		tok.RevokedAt = &t
	}
	return tok, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		formatTime(revokedAt), id)
	if err != nil {
		return unavailable("revoke refresh token", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("revoke refresh token", err)
	}
	if affected == 0 {
		if _, getErr := s.GetRefreshToken(ctx, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
	}
	return nil
}
