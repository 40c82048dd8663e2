package kvcache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
)

var Module = fx.Module("kvcache",
	fx.Provide(NewCache),
)

// NewCache selects the backend named by CACHE_BACKEND. The bucket TTL is
// CACHE_TTL, the longest TTL any caller sets. The NATS connection is drained
// on shutdown.
func NewCache(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (Cache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return NewMemory(), nil
	case "nats", "":
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.Cache.Backend)
	}

	nc, err := nats.Connect(cfg.Cache.NatsURL, nats.Name("osf-crud"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	c, err := NewJetStream(context.Background(), js, cfg.Cache.Bucket, cfg.Cache.TTL, log)
	if err != nil {
		nc.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return nc.Drain()
		},
	})
	log.Info("shared cache connected", slog.String("url", cfg.Cache.NatsURL), slog.String("bucket", cfg.Cache.Bucket))
	return c, nil
}
