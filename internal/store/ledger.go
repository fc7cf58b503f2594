package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storyreel/server/internal/model"
)

// DebitLives atomically spends one life for userID and appends the audit
// entry in the same transaction. The conditional update guarantees that two
// concurrent debits against a balance of 1 yield exactly one success: the
// loser's UPDATE matches zero rows and maps to ErrInsufficientLives.
func (s *Store) DebitLives(ctx context.Context, userID int64, reason string) (model.LedgerEntry, error) {
	var entry model.LedgerEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET lives_remaining = lives_remaining - 1
			 WHERE id = ? AND lives_remaining > 0`, userID)
		if err != nil {
			return unavailable("debit lives", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return unavailable("debit lives", err)
		}
		if affected == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(1) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
				return unavailable("check user", err)
			}
			if exists == 0 {
				return ErrNotFound
			}
			return ErrInsufficientLives
		}

		var remaining int
		if err := tx.QueryRowContext(ctx,
			`SELECT lives_remaining FROM users WHERE id = ?`, userID).Scan(&remaining); err != nil {
			return unavailable("read remaining lives", err)
		}

		e, err := appendEntry(ctx, tx, model.LedgerEntry{
			UserID:        userID,
			PreviousLives: remaining + 1,
			NewLives:      remaining,
			Action:        model.ActionUserSpend,
			Reason:        reason,
		})
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return model.LedgerEntry{}, err
	}
	return entry, nil
}

// SetLives atomically replaces userID's balance and appends the audit entry,
// attributed to actorID. The action is classified inside the transaction:
// admin_reset exactly when the new value is the default and the previous
// balance differed, admin_set otherwise.
func (s *Store) SetLives(ctx context.Context, userID int64, newValue int, actorID int64, reason string) (model.LedgerEntry, error) {
	if newValue < 0 {
		return model.LedgerEntry{}, ErrInvalidInput
	}
	var entry model.LedgerEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var previous int
		err := tx.QueryRowContext(ctx,
			`SELECT lives_remaining FROM users WHERE id = ?`, userID).Scan(&previous)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return unavailable("read lives", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET lives_remaining = ? WHERE id = ?`, newValue, userID); err != nil {
			return unavailable("set lives", err)
		}

		action := model.ActionAdminSet
		if newValue == model.DefaultLives && previous != model.DefaultLives {
			action = model.ActionAdminReset
		}

		e, err := appendEntry(ctx, tx, model.LedgerEntry{
			UserID:        userID,
			PreviousLives: previous,
			NewLives:      newValue,
			Action:        action,
			Reason:        reason,
			AdminUserID:   &actorID,
		})
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return model.LedgerEntry{}, err
	}
	return entry, nil
}

func appendEntry(ctx context.Context, tx *sql.Tx, e model.LedgerEntry) (model.LedgerEntry, error) {
	e.CreatedAt = time.Now().UTC()
	var adminID any
	if e.AdminUserID != nil {
		adminID = *e.AdminUserID
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO lives_log (user_id, previous_lives, new_lives, action_type, reason, admin_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.PreviousLives, e.NewLives, string(e.Action), e.Reason, adminID, formatTime(e.CreatedAt),
	)
	if err != nil {
		return model.LedgerEntry{}, unavailable("append ledger entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.LedgerEntry{}, unavailable("ledger entry id", err)
	}
	e.ID = id
	return e, nil
}

// LedgerHistory returns entries newest first. userID 0 means all users.
func (s *Store) LedgerHistory(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error) {
	query := `SELECT id, user_id, previous_lives, new_lives, action_type, reason, admin_user_id, created_at
		 FROM lives_log`
	args := []any{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("ledger history", err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var e model.LedgerEntry
		var action, createdAt string
		var adminID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &e.PreviousLives, &e.NewLives, &action, &e.Reason, &adminID, &createdAt); err != nil {
			return nil, unavailable("scan ledger entry", err)
		}
		e.Action = model.LedgerAction(action)
		if adminID.Valid {
			v := adminID.Int64
			e.AdminUserID = &v
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("ledger history", err)
	}
	return entries, nil
}
