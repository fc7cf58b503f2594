package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) adminListUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "Failed to list users")
		return
	}
	writeData(c, http.StatusOK, gin.H{"items": users})
}

// adminLedger returns audit entries across all users, or for one user when
// ?user_id= is supplied. Newest first.
func (s *Server) adminLedger(c *gin.Context) {
	var userID int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "user_id must be a positive integer", false, nil)
			return
		}
		userID = id
	}
	limit := parseIntDefault(c.Query("limit"), 0)
	entries, err := s.ledger.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeServiceError(c, err, "Failed to load ledger history")
		return
	}
	writeData(c, http.StatusOK, gin.H{"entries": entries})
}

type setLivesRequest struct {
	Lives  *int   `json:"lives" binding:"required"`
	Reason string `json:"reason"`
}

func (s *Server) adminSetLives(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	targetID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || targetID <= 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user id", false, nil)
		return
	}
	var req setLivesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Lives == nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "lives is required", false, nil)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "admin override"
	}
	entry, err := s.admin.SetUserLives(c.Request.Context(), userIDFromContext(c), targetID, *req.Lives, reason)
	if err != nil {
		writeServiceError(c, err, "Failed to set lives")
		return
	}
	writeData(c, http.StatusOK, entry)
}
