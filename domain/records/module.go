package records

import (
	"log/slog"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/revisions"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/search"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/kvcache"
)

var Module = fx.Module("records",
	fx.Provide(
		provideJournal,
		provideLocker,
		provideService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)

// provideJournal falls back to the in-memory journal without a database.
func provideJournal(db *bun.DB, log *slog.Logger) Journal {
	if db == nil {
		log.Warn("update journal is in-memory")
		return NewMemoryJournal()
	}
	return NewBunJournal(db)
}

func provideLocker(db *bun.DB) Locker {
	if db == nil {
		return NewMutexLocker()
	}
	return NewAdvisoryLocker(db)
}

func provideService(
	rev *revisions.Manager,
	updater *graph.Updater,
	projector *search.Projector,
	reader *graph.Reader,
	journal Journal,
	locker Locker,
	cache kvcache.Cache,
	cfg *config.Config,
	log *slog.Logger,
) *Service {
	return NewService(rev, updater, projector, reader, journal, locker, cache, Options{
		MaxDocumentSize: cfg.Records.MaxDocumentSize,
		CacheTTL:        cfg.Cache.TTL,
	}, log)
}
