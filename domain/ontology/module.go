package ontology

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/kvcache"
)

var Module = fx.Module("ontology",
	fx.Provide(provideCache),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

func provideCache(store triplestore.Store, shared kvcache.Cache, cfg *config.Config, log *slog.Logger) (*Cache, error) {
	return NewCache(store, shared, Options{
		RootType:  cfg.Records.RootType,
		LocalSize: cfg.Ontology.LocalCacheSize,
		LocalTTL:  cfg.Ontology.LocalCacheTTL,
		SharedTTL: cfg.Cache.TTL,
	}, log)
}
