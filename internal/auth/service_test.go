package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storyreel/server/internal/model"
	"storyreel/server/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, "test-secret", 15*time.Minute, 24*time.Hour), st
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"empty email", "", "password123"},
		{"missing at sign", "not-an-email", "password123"},
		{"short password", "user@example.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.email, "User", tc.password); !errors.Is(err, store.ErrInvalidInput) {
				t.Fatalf("err=%v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dup@example.com", "First", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "DUP@example.com", "Second", "password123"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate email: err=%v, want ErrConflict", err)
	}
}

func TestRegisterDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.Register(context.Background(), "  New@Example.com ", "New User", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Fatalf("email %q not normalized", user.Email)
	}
	if user.LivesRemaining != model.DefaultLives {
		t.Fatalf("lives %d, want %d", user.LivesRemaining, model.DefaultLives)
	}
	if user.Status != "active" {
		t.Fatalf("status %q, want active", user.Status)
	}
	if user.PasswordHash == "password123" || user.PasswordHash == "" {
		t.Fatalf("password stored without hashing")
	}
}

func TestLoginIssuesParsableTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "login@example.com", "Login", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	user, tokens, err := svc.Login(ctx, "login@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("user id %d, want %d", user.ID, registered.ID)
	}
	if !strings.HasPrefix(tokens.RefreshToken, "rt_") {
		t.Fatalf("refresh token %q", tokens.RefreshToken)
	}

	claims, err := svc.ParseAccess(tokens.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != registered.ID || claims.Email != "login@example.com" {
		t.Fatalf("claims %+v", claims)
	}
}

func TestLoginWrongCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "victim@example.com", "Victim", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.Login(ctx, "victim@example.com", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: err=%v, want ErrUnauthorized", err)
	}
	if _, _, err := svc.Login(ctx, "ghost@example.com", "password123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown email: err=%v, want ErrUnauthorized", err)
	}
}

func TestParseAccessRejectsForgedToken(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "forge@example.com", "Forge", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	other := NewService(st, "different-secret", 15*time.Minute, 24*time.Hour)
	_, tokens, err := other.Login(ctx, "forge@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.ParseAccess(tokens.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign signature: err=%v, want ErrUnauthorized", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "rotate@example.com", "Rotate", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, first, err := svc.Login(ctx, "rotate@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}
	if _, err := svc.ParseAccess(second.AccessToken); err != nil {
		t.Fatalf("parse rotated access: %v", err)
	}

	// The consumed token is revoked and cannot be replayed.
	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("replayed refresh: err=%v, want ErrUnauthorized", err)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "expired@example.com", "Expired", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, tokens, err := svc.Login(ctx, "expired@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	if _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired refresh: err=%v, want ErrTokenExpired", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "logout@example.com", "Logout", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, tokens, err := svc.Login(ctx, "logout@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("refresh after logout: err=%v, want ErrUnauthorized", err)
	}

	if err := svc.Logout(ctx, "rt_nonsense_token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("logout unknown token: err=%v, want ErrUnauthorized", err)
	}
	if err := svc.Logout(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("logout malformed token: err=%v, want ErrUnauthorized", err)
	}
}

func TestEnsureUserIdempotent(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureUser(ctx, "seed@example.com", "Seed", "password123"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	first, err := st.GetUserByEmail(ctx, "seed@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if err := svc.EnsureUser(ctx, "seed@example.com", "Seed", "other-password"); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	second, err := st.GetUserByEmail(ctx, "seed@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if second.ID != first.ID || second.PasswordHash != first.PasswordHash {
		t.Fatalf("ensure replaced the existing account")
	}
}
