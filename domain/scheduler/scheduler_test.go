package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/records"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

func TestScheduler_AddAndRemove(t *testing.T) {
	s := NewScheduler(slog.Default())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddIntervalTask("b", time.Hour, noop))
	require.NoError(t, s.AddIntervalTask("a", time.Hour, noop))
	require.NoError(t, s.AddIntervalTask("a", time.Minute, noop))
	assert.Equal(t, []string{"a", "b"}, s.ListTasks())

	s.RemoveTask("b")
	assert.Equal(t, []string{"a"}, s.ListTasks())
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(slog.Default())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())

	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_RunTaskSurvivesErrors(t *testing.T) {
	s := NewScheduler(slog.Default())
	called := 0
	s.runTask("failing", func(context.Context) error {
		called++
		return errors.New("boom")
	})
	assert.Equal(t, 1, called)
}

type failingClearer struct{ err error }

func (f failingClearer) ClearStaging(context.Context, []string) error { return f.err }

func TestJournalSweep(t *testing.T) {
	ctx := context.Background()
	store := triplestore.NewMemoryStore()
	journal := records.NewMemoryJournal()

	tmp, tmpReif := graph.TempGraphs("http://ex.org/d/", []byte("doc"))
	d := rdf.Description{}
	d.Add("http://ex.org/d/r1", rdf.RDFSLabel, rdf.Literal("left over"))
	require.NoError(t, store.Insert(ctx, tmp, d))
	require.NoError(t, store.Insert(ctx, tmpReif, d))

	stuck := &records.JournalEntry{ID: uuid.New(), Dataset: "http://ex.org/d/", TempGraphs: []string{tmp, tmpReif}}
	done := &records.JournalEntry{ID: uuid.New(), Dataset: "http://ex.org/d/"}
	require.NoError(t, journal.Begin(ctx, stuck))
	require.NoError(t, journal.Begin(ctx, done))
	require.NoError(t, journal.Advance(ctx, done.ID, records.StageCompleted))

	task := NewJournalSweepTask(journal, graph.NewUpdater(store, slog.Default()), store, time.Minute, slog.Default())
	task.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, task.Run(ctx))

	assert.Nil(t, store.Graph(tmp))
	assert.Nil(t, store.Graph(tmpReif))

	got, err := journal.Get(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, records.StageAbandoned, got.Stage)
	got, err = journal.Get(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, records.StageCompleted, got.Stage)
}

func TestJournalSweep_FreshEntriesUntouched(t *testing.T) {
	ctx := context.Background()
	journal := records.NewMemoryJournal()
	entry := &records.JournalEntry{ID: uuid.New(), Dataset: "http://ex.org/d/"}
	require.NoError(t, journal.Begin(ctx, entry))

	task := NewJournalSweepTask(journal, failingClearer{}, nil, time.Hour, slog.Default())
	require.NoError(t, task.Run(ctx))

	got, err := journal.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, records.StageReceived, got.Stage)
}

func TestJournalSweep_ClearFailureKeepsEntryOpen(t *testing.T) {
	ctx := context.Background()
	journal := records.NewMemoryJournal()
	entry := &records.JournalEntry{ID: uuid.New(), Dataset: "http://ex.org/d/", TempGraphs: []string{"urn:osf:tmp:x"}}
	require.NoError(t, journal.Begin(ctx, entry))

	task := NewJournalSweepTask(journal, failingClearer{err: errors.New("store down")}, nil, time.Minute, slog.Default())
	task.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, task.Run(ctx))

	got, err := journal.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, records.StageReceived, got.Stage)
}

func TestJournalSweep_Orphans(t *testing.T) {
	ctx := context.Background()
	store := triplestore.NewMemoryStore()
	journal := records.NewMemoryJournal()

	d := rdf.Description{}
	d.Add("http://ex.org/d/r1", rdf.RDFSLabel, rdf.Literal("x"))

	orphan, _ := graph.TempGraphs("http://ex.org/d/", []byte("crashed before journaling"))
	inFlight, _ := graph.TempGraphs("http://ex.org/d/", []byte("running"))
	require.NoError(t, store.Insert(ctx, orphan, d))
	require.NoError(t, store.Insert(ctx, inFlight, d))
	require.NoError(t, store.Insert(ctx, "http://ex.org/d/", d))

	running := &records.JournalEntry{ID: uuid.New(), Dataset: "http://ex.org/d/", TempGraphs: []string{inFlight}}
	require.NoError(t, journal.Begin(ctx, running))

	task := NewJournalSweepTask(journal, graph.NewUpdater(store, slog.Default()), store, time.Hour, slog.Default())
	require.NoError(t, task.Run(ctx))

	assert.Nil(t, store.Graph(orphan))
	assert.NotNil(t, store.Graph(inFlight))
	assert.NotNil(t, store.Graph("http://ex.org/d/"))

	got, err := journal.Get(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, records.StageReceived, got.Stage)
}

func TestJournalSweep_ManyOpenEntriesKeepTheirGraphs(t *testing.T) {
	ctx := context.Background()
	store := triplestore.NewMemoryStore()
	journal := records.NewMemoryJournal()

	d := rdf.Description{}
	d.Add("http://ex.org/d/r1", rdf.RDFSLabel, rdf.Literal("x"))

	const inFlight = 600
	for i := 0; i < inFlight; i++ {
		tmp, _ := graph.TempGraphs("http://ex.org/d/", []byte(fmt.Sprintf("doc-%d", i)))
		require.NoError(t, store.Insert(ctx, tmp, d))
		require.NoError(t, journal.Begin(ctx, &records.JournalEntry{ID: uuid.New(), Dataset: "http://ex.org/d/", TempGraphs: []string{tmp}}))
	}

	task := NewJournalSweepTask(journal, graph.NewUpdater(store, slog.Default()), store, time.Hour, slog.Default())
	require.NoError(t, task.Run(ctx))

	graphs, err := store.Graphs(ctx, graph.TempGraphPrefix)
	require.NoError(t, err)
	assert.Len(t, graphs, inFlight, "no in-flight staging graph is treated as an orphan")
}
