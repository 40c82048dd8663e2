package graph

import (
	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
)

var Module = fx.Module("graph",
	fx.Provide(
		func(s triplestore.Store) Store { return s },
		func(s triplestore.Store) ReadStore { return s },
	),
	fx.Provide(NewUpdater),
	fx.Provide(NewReader),
)
