package api

import (
	"errors"
	"net/http"
	"strconv"

	"storyreel/server/internal/auth"
	"storyreel/server/internal/store"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name"`
	Password string `json:"password" binding:"required,min=8"`
}

func (s *Server) register(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid registration payload", false, nil)
		return
	}
	user, err := s.auth.Register(c.Request.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(c, http.StatusConflict, "EMAIL_TAKEN", "Email is already registered", false, nil)
			return
		}
		writeServiceError(c, err, "Failed to register")
		return
	}
	writeData(c, http.StatusCreated, gin.H{
		"id":              user.ID,
		"email":           user.Email,
		"full_name":       user.FullName,
		"lives_remaining": user.LivesRemaining,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (s *Server) login(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid login payload", false, nil)
		return
	}
	user, tokens, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeServiceError(c, err, "Login failed")
			return
		}
		writeError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", false, nil)
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"access_token":   tokens.AccessToken,
		"refresh_token":  tokens.RefreshToken,
		"expires_in_sec": tokens.ExpiresInSec,
		"user": gin.H{
			"id":              user.ID,
			"email":           user.Email,
			"lives_remaining": user.LivesRemaining,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) refresh(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "refresh_token is required", false, nil)
		return
	}
	tokens, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			writeError(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Refresh token expired", false, nil)
			return
		}
		writeUnauthorized(c)
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"access_token":   tokens.AccessToken,
		"refresh_token":  tokens.RefreshToken,
		"expires_in_sec": tokens.ExpiresInSec,
	})
}

func (s *Server) logout(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "refresh_token is required", false, nil)
		return
	}
	if err := s.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeUnauthorized(c)
		return
	}
	writeData(c, http.StatusOK, gin.H{"ok": true})
}

func (s *Server) me(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == 0 {
		writeUnauthorized(c)
		return
	}
	user, err := s.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeUnauthorized(c)
			return
		}
		writeServiceError(c, err, "Failed to load user")
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"id":              user.ID,
		"email":           user.Email,
		"full_name":       user.FullName,
		"status":          user.Status,
		"lives_remaining": user.LivesRemaining,
		"is_admin":        s.admin.IsAdmin(user.Email),
	})
}

func (s *Server) myLedger(c *gin.Context) {
	userID := userIDFromContext(c)
	limit := parseIntDefault(c.Query("limit"), 0)
	entries, err := s.ledger.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeServiceError(c, err, "Failed to load ledger history")
		return
	}
	writeData(c, http.StatusOK, gin.H{"entries": entries})
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
