// Package admin gates privileged ledger mutations behind a fixed allow-list
// of administrator emails. The list is injected from configuration, already
// normalized (lower-cased, trimmed).
package admin

import (
	"context"
	"log/slog"
	"strings"

	"storyreel/server/internal/ledger"
	"storyreel/server/internal/model"
	"storyreel/server/internal/store"
)

type Service struct {
	store       *store.Store
	ledger      *ledger.Service
	allowEmails map[string]struct{}
	log         *slog.Logger
}

func NewService(st *store.Store, lg *ledger.Service, adminEmails []string, logger *slog.Logger) *Service {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allow[e] = struct{}{}
		}
	}
	return &Service{store: st, ledger: lg, allowEmails: allow, log: logger}
}

// IsAdmin reports whether email is on the allow-list. Matching is
// case-insensitive; membership is the sole authorization mechanism.
func (s *Service) IsAdmin(email string) bool {
	_, ok := s.allowEmails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// SetUserLives overrides targetUserID's balance on behalf of actorUserID.
// The actor must resolve to an allow-listed account; a non-admin actor never
// reaches the ledger mutation path.
func (s *Service) SetUserLives(ctx context.Context, actorUserID, targetUserID int64, newValue int, reason string) (model.LedgerEntry, error) {
	actor, err := s.store.GetUserByID(ctx, actorUserID)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	if !s.IsAdmin(actor.Email) {
		s.log.Warn("admin_override_denied", "actor_id", actorUserID, "target_id", targetUserID)
		return model.LedgerEntry{}, store.ErrForbidden
	}
	entry, err := s.ledger.SetBalance(ctx, targetUserID, newValue, actorUserID, reason)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	s.log.Info("admin_override_applied",
		"actor_id", actorUserID,
		"target_id", targetUserID,
		"previous", entry.PreviousLives,
		"new", entry.NewLives,
		"action", entry.Action,
	)
	return entry, nil
}
