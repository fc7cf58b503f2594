// Package ledger tracks per-user generation credits ("lives") with an
// append-only audit trail. Every balance change goes through this service;
// nothing else writes lives_remaining.
package ledger

import (
	"context"
	"log/slog"

	"storyreel/server/internal/model"
	"storyreel/server/internal/store"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

type Service struct {
	store *store.Store
	log   *slog.Logger
}

func NewService(st *store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, log: logger}
}

// Debit spends one life for userID and returns the remaining balance.
// A balance of zero yields store.ErrInsufficientLives and leaves both the
// balance and the audit log untouched.
func (s *Service) Debit(ctx context.Context, userID int64, reason string) (int, error) {
	if reason == "" {
		reason = "video generation"
	}
	entry, err := s.store.DebitLives(ctx, userID, reason)
	if err != nil {
		return 0, err
	}
	s.log.Info("lives_debited",
		"user_id", userID,
		"previous", entry.PreviousLives,
		"remaining", entry.NewLives,
	)
	return entry.NewLives, nil
}

// SetBalance replaces userID's balance on behalf of actorID. Negative values
// are rejected before any store access. The resulting entry records the
// before/after balances and the actor.
func (s *Service) SetBalance(ctx context.Context, userID int64, newValue int, actorID int64, reason string) (model.LedgerEntry, error) {
	if newValue < 0 {
		return model.LedgerEntry{}, store.ErrInvalidInput
	}
	entry, err := s.store.SetLives(ctx, userID, newValue, actorID, reason)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	s.log.Info("lives_set",
		"user_id", userID,
		"actor_id", actorID,
		"previous", entry.PreviousLives,
		"new", entry.NewLives,
		"action", entry.Action,
	)
	return entry, nil
}

// History returns audit entries newest first. userID 0 selects all users.
// limit <= 0 falls back to 100; values above 500 are clamped.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.store.LedgerHistory(ctx, userID, limit)
}
