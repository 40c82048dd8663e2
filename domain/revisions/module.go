package revisions

import (
	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
)

var Module = fx.Module("revisions",
	fx.Provide(
		func(s triplestore.Store) Store { return s },
		func(r *graph.Reader) RecordReader { return r },
		func(cfg *config.Config) *Timestamper { return NewTimestamper(cfg.Records.RevisionMinDelay) },
	),
	fx.Provide(NewManager),
)
