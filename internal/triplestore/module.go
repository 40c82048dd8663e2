package triplestore

import (
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/sparql"
)

var Module = fx.Module("triplestore",
	fx.Provide(NewStore),
)

// NewStore selects the backend named by TRIPLESTORE_BACKEND.
func NewStore(cfg *config.Config, log *slog.Logger) (Store, error) {
	tc := cfg.TripleStore
	switch tc.Backend {
	case "memory":
		log.Warn("using in-memory triple store; data is lost on restart")
		return NewMemoryStore(), nil
	case "sparql", "":
		client := sparql.NewClient(sparql.Config{
			QueryURL:      tc.QueryEndpoint,
			UpdateURL:     tc.UpdateURL(),
			GraphStoreURL: tc.GraphStore,
			User:          tc.User,
			Password:      tc.Password,
			Timeout:       tc.Timeout,
		}, log)
		return NewSPARQLStore(client, tc.BulkLoad, log), nil
	default:
		return nil, fmt.Errorf("unknown TRIPLESTORE_BACKEND %q", tc.Backend)
	}
}
