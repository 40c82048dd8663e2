package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/records"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
)

var sweeps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "osf_journal_sweeps_total",
	Help: "Staging cleanups performed by the journal sweeper, by outcome.",
}, []string{"outcome"})

// StagingClearer drops staging graphs.
type StagingClearer interface {
	ClearStaging(ctx context.Context, graphs []string) error
}

// GraphLister lists the named graphs that start with a prefix.
type GraphLister interface {
	Graphs(ctx context.Context, prefix string) ([]string, error)
}

// JournalStore is the part of records.Journal the sweeper uses.
type JournalStore interface {
	Open(ctx context.Context) ([]records.JournalEntry, error)
	Stale(ctx context.Context, before time.Time) ([]records.JournalEntry, error)
	Abandon(ctx context.Context, id uuid.UUID) error
}

// JournalSweepTask abandons updates that stopped making progress, drops the
// staging graphs they left, and drops staging graphs no open update owns.
type JournalSweepTask struct {
	journal    JournalStore
	clearer    StagingClearer
	graphs     GraphLister
	staleAfter time.Duration
	now        func() time.Time
	log        *slog.Logger
}

// NewJournalSweepTask returns a sweeper. A nil lister disables the orphan
// pass.
func NewJournalSweepTask(journal JournalStore, clearer StagingClearer, graphs GraphLister, staleAfter time.Duration, log *slog.Logger) *JournalSweepTask {
	return &JournalSweepTask{
		journal:    journal,
		clearer:    clearer,
		graphs:     graphs,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        log.With(logger.Scope("scheduler.journal_sweep")),
	}
}

// Run sweeps once. An entry whose graphs cannot be cleared stays open and
// is retried on the next run.
func (t *JournalSweepTask) Run(ctx context.Context) error {
	now := t.now()

	// Staging graphs are listed before the journal is read: any graph in
	// the listing belongs to an entry that is already open.
	var listed []string
	if t.graphs != nil {
		var err error
		if listed, err = t.graphs.Graphs(ctx, graph.TempGraphPrefix); err != nil {
			sweeps.WithLabelValues("error").Inc()
			return err
		}
	}

	open, err := t.journal.Open(ctx)
	if err != nil {
		sweeps.WithLabelValues("error").Inc()
		return err
	}
	owned := make(map[string]bool)
	for _, e := range open {
		for _, g := range e.TempGraphs {
			owned[g] = true
		}
	}

	stale, err := t.journal.Stale(ctx, now.Add(-t.staleAfter))
	if err != nil {
		sweeps.WithLabelValues("error").Inc()
		return err
	}
	abandoned := 0
	for _, e := range stale {
		if err := t.clearer.ClearStaging(ctx, e.TempGraphs); err != nil {
			sweeps.WithLabelValues("clear_failed").Inc()
			t.log.Warn("staging graphs not cleared",
				slog.String("journal_id", e.ID.String()),
				slog.String("dataset", e.Dataset),
				logger.Error(err),
			)
			continue
		}
		if err := t.journal.Abandon(ctx, e.ID); err != nil {
			sweeps.WithLabelValues("error").Inc()
			return err
		}
		sweeps.WithLabelValues("abandoned").Inc()
		abandoned++
	}

	var orphans []string
	for _, g := range listed {
		if !owned[g] {
			orphans = append(orphans, g)
		}
	}
	if len(orphans) > 0 {
		if err := t.clearer.ClearStaging(ctx, orphans); err != nil {
			sweeps.WithLabelValues("clear_failed").Inc()
			return err
		}
		sweeps.WithLabelValues("orphan").Add(float64(len(orphans)))
	}

	if abandoned > 0 || len(orphans) > 0 {
		t.log.Info("journal sweep",
			slog.Int("abandoned", abandoned),
			slog.Int("orphan_graphs", len(orphans)),
		)
	}
	return nil
}
