package search

import (
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/ontology"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/solr"
)

var Module = fx.Module("search",
	fx.Provide(NewIndex),
	fx.Provide(provideProjector),
)

// NewIndex selects the backend named by INDEX_BACKEND.
func NewIndex(cfg *config.Config, log *slog.Logger) (Index, error) {
	switch cfg.Index.Backend {
	case "memory":
		return NewMemoryIndex(), nil
	case "solr", "":
		return solr.NewClient(cfg.Index.URL, cfg.Index.Core, cfg.Index.Timeout, log), nil
	default:
		return nil, fmt.Errorf("unknown INDEX_BACKEND %q", cfg.Index.Backend)
	}
}

func provideProjector(index Index, cache *ontology.Cache, store triplestore.Store, reader *graph.Reader, cfg *config.Config, log *slog.Logger) *Projector {
	return NewProjector(index, cache, store, reader, Options{
		Languages:  cfg.Records.Languages,
		GeoEnabled: cfg.Records.GeoEnabled,
		AutoCommit: cfg.Index.AutoCommit,
	}, log)
}
