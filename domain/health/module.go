package health

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/search"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/kvcache"
)

var Module = fx.Module("health",
	fx.Provide(
		provideDependencies,
		NewHandler,
		NewMetricsHandler,
	),
	fx.Invoke(RegisterRoutes),
)

// provideDependencies skips the database when it is disabled.
func provideDependencies(pool *pgxpool.Pool, store triplestore.Store, index search.Index, cache kvcache.Cache) []Dependency {
	deps := []Dependency{
		{Name: "triplestore", Pinger: store},
		{Name: "index", Pinger: index},
		{Name: "cache", Pinger: CachePinger(cache)},
	}
	if pool != nil {
		deps = append([]Dependency{{Name: "database", Pinger: pool}}, deps...)
	}
	return deps
}
