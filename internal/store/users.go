package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"storyreel/server/internal/model"
)

// CreateUser inserts a new active account with the default lives balance.
// Emails are stored lower-cased; duplicates surface as ErrConflict.
func (s *Store) CreateUser(ctx context.Context, email, fullName, passwordHash string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return model.User{}, ErrInvalidInput
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, full_name, password_hash, status, lives_remaining, created_at)
		 VALUES (?, ?, ?, 'active', ?, ?)`,
		email, strings.TrimSpace(fullName), passwordHash, model.DefaultLives, formatTime(now),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return model.User{}, ErrConflict
		}
		return model.User{}, unavailable("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, unavailable("last insert id", err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, password_hash, status, lives_remaining, created_at
		 FROM users WHERE id = ?`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, password_hash, status, lives_remaining, created_at
		 FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))))
}

// ListUsers returns all accounts ordered by id. Admin surface only.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, full_name, password_hash, status, lives_remaining, created_at
		 FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row *sql.Row) (model.User, error) {
	u, err := scanUserRow(row)
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func scanUserRow(row rowScanner) (model.User, error) {
	var u model.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Status, &u.LivesRemaining, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, unavailable("scan user", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}
