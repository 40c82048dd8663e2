package search

import (
	"context"
	"sort"
	"sync"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/solr"
)

// MemoryIndex is a schemaless in-process Index. Its field directory lists
// every field name it has been sent. It backs INDEX_BACKEND=memory and the
// tests.
type MemoryIndex struct {
	mu         sync.RWMutex
	pending    map[string]solr.Document
	deletes    map[string]bool
	docs       map[string]solr.Document
	fields     map[string]bool
	commits    int
	fieldReads int
	failures   map[string]error
}

func NewMemoryIndex(fields ...string) *MemoryIndex {
	m := &MemoryIndex{
		pending:  map[string]solr.Document{},
		deletes:  map[string]bool{},
		docs:     map[string]solr.Document{},
		fields:   map[string]bool{},
		failures: map[string]error{},
	}
	for _, f := range fields {
		m.fields[f] = true
	}
	return m
}

// FailOn makes op ("add", "commit", "delete", "fields" or "ping") return
// err until cleared with a nil err.
func (m *MemoryIndex) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *MemoryIndex) Add(_ context.Context, docs []solr.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["add"]; err != nil {
		return err
	}
	for _, d := range docs {
		ids := d[FieldID]
		if len(ids) == 0 {
			continue
		}
		id, _ := ids[0].(string)
		m.pending[id] = d
		delete(m.deletes, id)
		for name := range d {
			m.fields[name] = true
		}
	}
	return nil
}

func (m *MemoryIndex) DeleteByID(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["delete"]; err != nil {
		return err
	}
	for _, id := range ids {
		delete(m.pending, id)
		m.deletes[id] = true
	}
	return nil
}

// Commit makes pending adds and deletes visible.
func (m *MemoryIndex) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["commit"]; err != nil {
		return err
	}
	for id, d := range m.pending {
		m.docs[id] = d
	}
	for id := range m.deletes {
		delete(m.docs, id)
	}
	m.pending = map[string]solr.Document{}
	m.deletes = map[string]bool{}
	m.commits++
	return nil
}

func (m *MemoryIndex) Fields(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["fields"]; err != nil {
		return nil, err
	}
	m.fieldReads++
	out := make([]string, 0, len(m.fields))
	for f := range m.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryIndex) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures["ping"]
}

// Document returns the committed document with id, or nil.
func (m *MemoryIndex) Document(id string) solr.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[id]
}

// Len counts committed documents.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}

// FieldReads counts field directory reads.
func (m *MemoryIndex) FieldReads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fieldReads
}
