// Package main runs the OSF CRUD web service: record updates with
// revisioning, reads, revision history and search projection.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/health"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/ontology"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/records"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/revisions"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/scheduler"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/search"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/tracing"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/database"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/migrate"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/server"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/kvcache"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
)

func main() {
	// .env.local overrides .env
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		server.Module,
		tracing.Module,
		triplestore.Module,
		kvcache.Module,

		// Domain
		health.Module,
		ontology.Module,
		graph.Module,
		revisions.Module,
		search.Module,
		records.Module,
		scheduler.Module,
	).Run()
}
