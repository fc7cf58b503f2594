package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storyreel/server/internal/job"
	"storyreel/server/internal/model"
	"storyreel/server/internal/store"

	"github.com/gin-gonic/gin"
)

type createVideoRequest struct {
	Script string `json:"script" binding:"required"`
}

func (s *Server) createVideo(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	userID := userIDFromContext(c)
	var req createVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "script is required", false, nil)
		return
	}
	created, err := s.jobs.Create(c.Request.Context(), userID, req.Script)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			writeError(c, http.StatusBadRequest, "SCRIPT_TOO_SHORT", "Script must be at least 10 characters", false, nil)
			return
		}
		writeServiceError(c, err, "Failed to create video")
		return
	}
	writeData(c, http.StatusCreated, created)
}

func (s *Server) listVideos(c *gin.Context) {
	userID := userIDFromContext(c)
	jobs, err := s.jobs.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "Failed to list videos")
		return
	}
	writeData(c, http.StatusOK, gin.H{"items": jobs})
}

func (s *Server) getVideo(c *gin.Context) {
	videoID := c.Param("video_id")
	userID := userIDFromContext(c)
	j, err := s.jobs.Get(c.Request.Context(), videoID, userID)
	if err != nil {
		writeServiceError(c, err, "Failed to load video")
		return
	}
	writeData(c, http.StatusOK, j)
}

type patchVideoRequest struct {
	Script     *string           `json:"script"`
	VideoURL   *string           `json:"video_url"`
	Status     *string           `json:"status"`
	Storyboard *model.Storyboard `json:"storyboard"`
}

func (s *Server) patchVideo(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	videoID := c.Param("video_id")
	userID := userIDFromContext(c)
	var req patchVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid patch payload", false, nil)
		return
	}
	fields := job.UpdateFields{
		Script:     req.Script,
		VideoURL:   req.VideoURL,
		Storyboard: req.Storyboard,
	}
	if req.Status != nil {
		status := model.JobStatus(*req.Status)
		switch status {
		case model.JobDraft, model.JobSubmitted, model.JobCompleted, model.JobFailed:
			fields.Status = &status
		default:
			writeError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown job status", false, nil)
			return
		}
	}
	updated, err := s.jobs.Update(c.Request.Context(), videoID, userID, fields)
	if err != nil {
		writeServiceError(c, err, "Failed to update video")
		return
	}
	writeData(c, http.StatusOK, updated)
}

func (s *Server) submitVideo(c *gin.Context) {
	videoID := c.Param("video_id")
	userID := userIDFromContext(c)
	j, err := s.jobs.Submit(c.Request.Context(), videoID, userID)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientLives) {
			writeError(c, http.StatusPaymentRequired, "INSUFFICIENT_LIVES", "No lives remaining", false, nil)
			return
		}
		if j.ID != "" && j.Status == model.JobFailed {
			// Debited but rejected by the provider; report the failed job.
			writeError(c, http.StatusBadGateway, "PROVIDER_REJECTED", "Generation provider rejected the job", true,
				map[string]any{"job": j})
			return
		}
		writeServiceError(c, err, "Failed to submit video")
		return
	}
	writeData(c, http.StatusOK, j)
}

func (s *Server) refreshVideo(c *gin.Context) {
	videoID := c.Param("video_id")
	userID := userIDFromContext(c)
	j, err := s.jobs.Refresh(c.Request.Context(), videoID, userID)
	if err != nil {
		writeServiceError(c, err, "Failed to refresh video")
		return
	}
	writeData(c, http.StatusOK, j)
}

func (s *Server) streamVideoEvents(c *gin.Context) {
	videoID := c.Param("video_id")
	userID := userIDFromContext(c)
	j, err := s.jobs.Get(c.Request.Context(), videoID, userID)
	if err != nil {
		writeServiceError(c, err, "Failed to load video")
		return
	}

	sub, unsubscribe := s.hub.Subscribe(j.ID, 128)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		writeError(c, http.StatusInternalServerError, "SSE_UNSUPPORTED", "Streaming unsupported", false, nil)
		return
	}

	// Current status first, so late subscribers see where the job stands.
	writeSSE(c, model.JobEvent{JobID: j.ID, UserID: j.UserID, Type: model.EventJobStatus, Status: j.Status, TS: time.Now().UTC()})
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt, ok := <-sub:
			if !ok {
				return
			}
			writeSSE(c, evt)
			flusher.Flush()
			if evt.Status.Terminal() {
				return
			}
		case <-heartbeat.C:
			fmt.Fprintf(c.Writer, ": ping %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeSSE(c *gin.Context, evt model.JobEvent) {
	payload, _ := json.Marshal(evt)
	fmt.Fprintf(c.Writer, "event: %s\n", evt.Type)
	fmt.Fprintf(c.Writer, "data: %s\n\n", string(payload))
}
