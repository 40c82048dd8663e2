package scheduler

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/records"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/config"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
)

var Module = fx.Module("scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(
		RegisterTasks,
		RegisterSchedulerLifecycle,
	),
)

type TaskParams struct {
	fx.In
	Scheduler *Scheduler
	Journal   records.Journal
	Updater   *graph.Updater
	Store     triplestore.Store
	Cfg       *config.Config
	Log       *slog.Logger
}

func RegisterTasks(p TaskParams) error {
	if !p.Cfg.Journal.SweepEnabled {
		p.Log.Info("journal sweeper disabled")
		return nil
	}
	sweep := NewJournalSweepTask(p.Journal, p.Updater, p.Store, p.Cfg.Journal.StaleAfter, p.Log)
	return p.Scheduler.AddIntervalTask("journal_sweep", p.Cfg.Journal.SweepInterval, sweep.Run)
}

func RegisterSchedulerLifecycle(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
