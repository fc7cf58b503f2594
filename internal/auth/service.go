package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storyreel/server/internal/model"
	"storyreel/server/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
)

type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresInSec int64  `json:"expires_in_sec"`
}

type Service struct {
	store      *store.Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(st *store.Store, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:      st,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Register creates a new active account with the default lives balance.
// A duplicate email surfaces as store.ErrConflict.
func (s *Service) Register(ctx context.Context, email, fullName, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, store.ErrInvalidInput
	}
	if len(password) < 8 {
		return model.User{}, store.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateUser(ctx, email, fullName, string(hash))
}

// EnsureUser registers email if absent; used to seed admin accounts at boot.
func (s *Service) EnsureUser(ctx context.Context, email, fullName, password string) error {
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err := s.Register(ctx, email, fullName, password)
	return err
}

func (s *Service) Login(ctx context.Context, email, password string) (model.User, Tokens, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return model.User{}, Tokens{}, err
		}
		return model.User{}, Tokens{}, ErrUnauthorized
	}
	if user.Status != "active" {
		return model.User{}, Tokens{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.User{}, Tokens{}, ErrUnauthorized
	}
	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return model.User{}, Tokens{}, err
	}
	return user, tokens, nil
}

func (s *Service) ParseAccess(tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrUnauthorized
	}
	return *claims, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	tokenID, ok := parseRefreshTokenID(refreshToken)
	if !ok {
		return Tokens{}, ErrUnauthorized
	}
	stored, err := s.store.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return Tokens{}, ErrUnauthorized
	}
	if stored.RevokedAt != nil {
		return Tokens{}, ErrUnauthorized
	}
	now := s.now().UTC()
	if stored.ExpiresAt.Before(now) {
		return Tokens{}, ErrTokenExpired
	}
	if stored.TokenHash != hashToken(refreshToken) {
		return Tokens{}, ErrUnauthorized
	}
	user, err := s.store.GetUserByID(ctx, stored.UserID)
	if err != nil {
		return Tokens{}, ErrUnauthorized
	}
	_ = s.store.RevokeRefreshToken(ctx, stored.ID, now)
	return s.issueTokens(ctx, user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	tokenID, ok := parseRefreshTokenID(refreshToken)
	if !ok {
		return ErrUnauthorized
	}
	if err := s.store.RevokeRefreshToken(ctx, tokenID, s.now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

func (s *Service) issueTokens(ctx context.Context, user model.User) (Tokens, error) {
	now := s.now().UTC()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "storyreel-server",
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Tokens{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshID := uuid.NewString()
	secretPart := strings.ReplaceAll(uuid.NewString(), "-", "")
	refreshToken := "rt_" + refreshID + "_" + secretPart
	rt := model.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.store.SaveRefreshToken(ctx, rt); err != nil {
		return Tokens{}, err
	}

	return Tokens{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresInSec: int64(s.accessTTL.Seconds()),
	}, nil
}

func parseRefreshTokenID(refreshToken string) (string, bool) {
	if !strings.HasPrefix(refreshToken, "rt_") {
		return "", false
	}
	parts := strings.Split(refreshToken, "_")
	if len(parts) < 3 {
		return "", false
	}
	return parts[1], true
}

func hashToken(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
