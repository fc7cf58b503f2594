package main

import (
	"context"
	"log/slog"
	"os"

	"storyreel/server/internal/admin"
	"storyreel/server/internal/api"
	"storyreel/server/internal/auth"
	"storyreel/server/internal/config"
	"storyreel/server/internal/events"
	"storyreel/server/internal/job"
	"storyreel/server/internal/ledger"
	"storyreel/server/internal/provider"
	"storyreel/server/internal/store"
	"storyreel/server/internal/telemetry"
)

func main() {
	cfg := config.Load()
	logger := telemetry.NewLogger()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open store failed", "db_path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authSvc := auth.NewService(st, cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)

	// Seed allow-listed admin accounts so overrides work on a fresh database.
	if cfg.AdminPassword != "" {
		for _, email := range cfg.AdminEmails {
			if err := authSvc.EnsureUser(context.Background(), email, "Administrator", cfg.AdminPassword); err != nil {
				logger.Error("seed admin failed", "email", email, "error", err)
				os.Exit(1)
			}
		}
	}

	ledgerSvc := ledger.NewService(st, logger)
	adminSvc := admin.NewService(st, ledgerSvc, cfg.AdminEmails, logger)
	hub := events.NewHub()
	prov := provider.NewMockAdapter(cfg.ProviderDelay)
	jobSvc := job.NewService(st, ledgerSvc, prov, hub, logger)

	srv := api.NewServer(authSvc, st, ledgerSvc, jobSvc, adminSvc, hub, logger)
	router := srv.Router()

	logger.Info("server_start",
		"addr", cfg.Addr,
		"db_path", cfg.DBPath,
		"admin_emails", len(cfg.AdminEmails),
	)
	if err := router.Run(cfg.Addr); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
