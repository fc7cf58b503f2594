package api

import (
	"log/slog"
	"net/http"

	"storyreel/server/internal/admin"
	"storyreel/server/internal/auth"
	"storyreel/server/internal/events"
	"storyreel/server/internal/job"
	"storyreel/server/internal/ledger"
	"storyreel/server/internal/store"

	"github.com/gin-gonic/gin"
)

type Server struct {
	auth   *auth.Service
	store  *store.Store
	ledger *ledger.Service
	jobs   *job.Service
	admin  *admin.Service
	hub    *events.Hub
	log    *slog.Logger
}

func NewServer(authSvc *auth.Service, st *store.Store, lg *ledger.Service, jobs *job.Service, adminSvc *admin.Service, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		auth:   authSvc,
		store:  st,
		ledger: lg,
		jobs:   jobs,
		admin:  adminSvc,
		hub:    hub,
		log:    logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogMiddleware(s.log))

	v1 := r.Group("/api/v1")
	v1.GET("/healthz", func(c *gin.Context) {
		writeData(c, http.StatusOK, gin.H{"status": "ok"})
	})

	v1.POST("/auth/register", s.register)
	v1.POST("/auth/login", s.login)
	v1.POST("/auth/refresh", s.refresh)

	authed := v1.Group("")
	authed.Use(AuthMiddleware(s.auth))
	{
		authed.GET("/client/bootstrap", s.clientBootstrap)
		authed.POST("/auth/logout", s.logout)
		authed.GET("/me", s.me)
		authed.GET("/me/ledger", s.myLedger)

		authed.POST("/videos", s.createVideo)
		authed.GET("/videos", s.listVideos)
		authed.GET("/videos/:video_id", s.getVideo)
		authed.PATCH("/videos/:video_id", s.patchVideo)
		authed.POST("/videos/:video_id/submit", s.submitVideo)
		authed.POST("/videos/:video_id/refresh", s.refreshVideo)
		authed.GET("/videos/:video_id/events", s.streamVideoEvents)

		adminGrp := authed.Group("/admin")
		adminGrp.Use(s.AdminMiddleware())
		{
			adminGrp.GET("/users", s.adminListUsers)
			adminGrp.GET("/ledger", s.adminLedger)
			adminGrp.PUT("/users/:user_id/lives", s.adminSetLives)
		}
	}

	return r
}
