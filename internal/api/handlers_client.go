package api

import (
	"net/http"

	"storyreel/server/internal/model"

	"github.com/gin-gonic/gin"
)

func (s *Server) clientBootstrap(c *gin.Context) {
	writeData(c, http.StatusOK, gin.H{
		"default_lives": model.DefaultLives,
		"feature_flags": gin.H{
			"sse_job_events":    true,
			"storyboard_editor": true,
		},
		"limits": gin.H{
			"min_script_chars":      10,
			"max_storyboard_scenes": 7,
		},
	})
}
