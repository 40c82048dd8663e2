package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Stage is how far an update got.
type Stage string

const (
	StageReceived  Stage = "received"
	StageRevised   Stage = "revised"
	StageApplied   Stage = "applied"
	StageIndexed   Stage = "indexed"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
	StageAbandoned Stage = "abandoned"
)

// Open reports whether an entry in this stage may still be in flight.
func (s Stage) Open() bool {
	switch s {
	case StageCompleted, StageFailed, StageAbandoned:
		return false
	}
	return true
}

// ErrEntryNotFound is returned for unknown journal ids.
var ErrEntryNotFound = errors.New("journal entry not found")

// JournalEntry records one update call.
type JournalEntry struct {
	bun.BaseModel `bun:"table:kb.update_journal,alias:uj"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Dataset      string     `bun:"dataset,notnull" json:"dataset"`
	DocumentHash string     `bun:"document_hash,notnull" json:"document_hash"`
	Lifecycle    string     `bun:"lifecycle,notnull" json:"lifecycle"`
	Performer    string     `bun:"performer,notnull" json:"performer,omitempty"`
	Stage        Stage      `bun:"stage,notnull" json:"stage"`
	TempGraphs   []string   `bun:"temp_graphs,array,notnull" json:"temp_graphs"`
	Error        *string    `bun:"error" json:"error,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	CompletedAt  *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
}

// Journal persists update progress outside the dataset lock, so entries
// survive a failed or interrupted update.
type Journal interface {
	Begin(ctx context.Context, e *JournalEntry) error
	Advance(ctx context.Context, id uuid.UUID, stage Stage) error
	Fail(ctx context.Context, id uuid.UUID, cause error) error
	Abandon(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*JournalEntry, error)
	// Stale lists open entries not updated since before, oldest first, at
	// most staleBatch per call.
	Stale(ctx context.Context, before time.Time) ([]JournalEntry, error)
	// Open lists every open entry.
	Open(ctx context.Context) ([]JournalEntry, error)
}

// staleBatch caps one Stale call; the sweeper picks up the rest on its
// next run.
const staleBatch = 500

var closedStages = []Stage{StageCompleted, StageFailed, StageAbandoned}

// BunJournal stores entries in kb.update_journal.
type BunJournal struct {
	db bun.IDB
}

// NewBunJournal creates a Journal stored through db.
func NewBunJournal(db bun.IDB) *BunJournal {
	return &BunJournal{db: db}
}

func (j *BunJournal) Begin(ctx context.Context, e *JournalEntry) error {
	if e.Stage == "" {
		e.Stage = StageReceived
	}
	if e.TempGraphs == nil {
		e.TempGraphs = []string{}
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	if _, err := j.db.NewInsert().Model(e).Exec(ctx); err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

func (j *BunJournal) Advance(ctx context.Context, id uuid.UUID, stage Stage) error {
	q := j.db.NewUpdate().
		Model((*JournalEntry)(nil)).
		Set("stage = ?", stage).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id)
	if stage == StageCompleted {
		q = q.Set("completed_at = ?", time.Now())
	}
	return j.exec(ctx, q, id)
}

func (j *BunJournal) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	q := j.db.NewUpdate().
		Model((*JournalEntry)(nil)).
		Set("stage = ?", StageFailed).
		Set("error = ?", cause.Error()).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id)
	return j.exec(ctx, q, id)
}

func (j *BunJournal) Abandon(ctx context.Context, id uuid.UUID) error {
	q := j.db.NewUpdate().
		Model((*JournalEntry)(nil)).
		Set("stage = ?", StageAbandoned).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("stage NOT IN (?)", bun.In([]Stage{StageCompleted, StageFailed, StageAbandoned}))
	_, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("abandon journal entry %s: %w", id, err)
	}
	return nil
}

func (j *BunJournal) exec(ctx context.Context, q *bun.UpdateQuery, id uuid.UUID) error {
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update journal entry %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (j *BunJournal) Get(ctx context.Context, id uuid.UUID) (*JournalEntry, error) {
	var e JournalEntry
	err := j.db.NewSelect().Model(&e).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get journal entry %s: %w", id, err)
	}
	return &e, nil
}

func (j *BunJournal) Stale(ctx context.Context, before time.Time) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := j.db.NewSelect().
		Model(&entries).
		Where("stage NOT IN (?)", bun.In(closedStages)).
		Where("updated_at < ?", before).
		Order("updated_at ASC").
		Limit(staleBatch).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stale journal entries: %w", err)
	}
	return entries, nil
}

func (j *BunJournal) Open(ctx context.Context) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := j.db.NewSelect().
		Model(&entries).
		Where("stage NOT IN (?)", bun.In(closedStages)).
		Order("updated_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open journal entries: %w", err)
	}
	return entries, nil
}

// MemoryJournal is the journal used when no database is configured.
type MemoryJournal struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*JournalEntry
	now     func() time.Time
}

// NewMemoryJournal creates an empty in-memory Journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		entries: map[uuid.UUID]*JournalEntry{},
		now:     time.Now,
	}
}

func (j *MemoryJournal) Begin(_ context.Context, e *JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if e.Stage == "" {
		e.Stage = StageReceived
	}
	now := j.now()
	e.CreatedAt, e.UpdatedAt = now, now
	c := *e
	j.entries[e.ID] = &c
	return nil
}

func (j *MemoryJournal) update(id uuid.UUID, fn func(e *JournalEntry)) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	fn(e)
	e.UpdatedAt = j.now()
	return nil
}

func (j *MemoryJournal) Advance(_ context.Context, id uuid.UUID, stage Stage) error {
	return j.update(id, func(e *JournalEntry) {
		e.Stage = stage
		if stage == StageCompleted {
			t := j.now()
			e.CompletedAt = &t
		}
	})
}

func (j *MemoryJournal) Fail(_ context.Context, id uuid.UUID, cause error) error {
	return j.update(id, func(e *JournalEntry) {
		msg := cause.Error()
		e.Stage = StageFailed
		e.Error = &msg
	})
}

func (j *MemoryJournal) Abandon(_ context.Context, id uuid.UUID) error {
	return j.update(id, func(e *JournalEntry) {
		if e.Stage.Open() {
			e.Stage = StageAbandoned
		}
	})
}

func (j *MemoryJournal) Get(_ context.Context, id uuid.UUID) (*JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	c := *e
	return &c, nil
}

func (j *MemoryJournal) Stale(_ context.Context, before time.Time) ([]JournalEntry, error) {
	out := j.open(func(e *JournalEntry) bool { return e.UpdatedAt.Before(before) })
	if len(out) > staleBatch {
		out = out[:staleBatch]
	}
	return out, nil
}

func (j *MemoryJournal) Open(_ context.Context) ([]JournalEntry, error) {
	return j.open(func(*JournalEntry) bool { return true }), nil
}

func (j *MemoryJournal) open(keep func(*JournalEntry) bool) []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []JournalEntry
	for _, e := range j.entries {
		if e.Stage.Open() && keep(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.Before(out[b].UpdatedAt) })
	return out
}
