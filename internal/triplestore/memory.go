package triplestore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

// MemoryStore keeps every named graph in process. Ontology lookups read the
// union of all graphs, like a store whose default graph is the union graph.
// It backs TRIPLESTORE_BACKEND=memory and the package tests across the repo.
type MemoryStore struct {
	mu        sync.RWMutex
	graphs    map[string]rdf.Description
	failures  map[string]error
	mutations int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		graphs:   map[string]rdf.Description{},
		failures: map[string]error{},
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
// Ops are named after the methods in snake case, e.g. "replace_subjects".
func (m *MemoryStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Mutations counts successful mutating calls.
func (m *MemoryStore) Mutations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mutations
}

// Graph returns a copy of a named graph; nil if it does not exist.
func (m *MemoryStore) Graph(name string) rdf.Description {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.graphs[name]
	if !ok {
		return nil
	}
	return g.Clone()
}

func (m *MemoryStore) fail(op string) error {
	return m.failures[op]
}

func (m *MemoryStore) graph(name string) rdf.Description {
	g, ok := m.graphs[name]
	if !ok {
		g = rdf.Description{}
		m.graphs[name] = g
	}
	return g
}

func (m *MemoryStore) Insert(_ context.Context, graph string, d rdf.Description) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("insert"); err != nil {
		return err
	}
	if len(d) == 0 {
		return nil
	}
	m.graph(graph).Merge(d)
	m.mutations++
	return nil
}

func (m *MemoryStore) ReplaceSubjects(_ context.Context, live, temp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("replace_subjects"); err != nil {
		return err
	}
	staged := m.graphs[temp]
	g := m.graph(live)
	for s := range staged {
		delete(g, s)
	}
	g.Merge(staged)
	m.mutations++
	return nil
}

func (m *MemoryStore) ReplaceReifications(_ context.Context, reif, temp string, subjects []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("replace_reifications"); err != nil {
		return err
	}
	if len(subjects) == 0 {
		return nil
	}
	m.deleteReifications(reif, subjects)
	m.graph(reif).Merge(m.graphs[temp])
	m.mutations++
	return nil
}

func (m *MemoryStore) DeleteReifications(_ context.Context, reif string, subjects []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete_reifications"); err != nil {
		return err
	}
	if len(subjects) == 0 {
		return nil
	}
	m.deleteReifications(reif, subjects)
	m.mutations++
	return nil
}

func (m *MemoryStore) deleteReifications(reif string, subjects []string) {
	g := m.graphs[reif]
	for st := range reifiedBy(g, subjects) {
		delete(g, st)
	}
}

func reifiedBy(g rdf.Description, subjects []string) map[string]bool {
	want := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		want[s] = true
	}
	out := map[string]bool{}
	for st, res := range g {
		for _, v := range res[rdf.RDFSubject] {
			if want[v.Content] {
				out[st] = true
			}
		}
	}
	return out
}

func (m *MemoryStore) Clear(_ context.Context, graph string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("clear"); err != nil {
		return err
	}
	delete(m.graphs, graph)
	m.mutations++
	return nil
}

func (m *MemoryStore) LatestRevision(ctx context.Context, revGraph, subject string) (*RevisionHead, error) {
	heads, err := m.Revisions(ctx, revGraph, subject)
	if err != nil {
		return nil, err
	}
	if len(heads) == 0 {
		return nil, ErrNotFound
	}
	return &heads[0], nil
}

func (m *MemoryStore) Revisions(_ context.Context, revGraph, subject string) ([]RevisionHead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("revisions"); err != nil {
		return nil, err
	}
	var heads []RevisionHead
	for rev, res := range m.graphs[revGraph] {
		of, ok := res.First(rdf.WSFRevisionUri)
		if !ok || of.Content != subject {
			continue
		}
		head := RevisionHead{URI: rev, Subject: subject}
		if v, ok := res.First(rdf.WSFRevisionStatus); ok {
			head.Status = StatusName(v.Content)
		}
		if v, ok := res.First(rdf.WSFRevisionTime); ok {
			head.Time, _ = strconv.ParseInt(v.Content, 10, 64)
		}
		if v, ok := res.First(rdf.WSFPerformer); ok {
			head.Performer = v.Content
		}
		heads = append(heads, head)
	}
	sortHeads(heads)
	return heads, nil
}

func (m *MemoryStore) ArchivePublished(_ context.Context, revGraph string, subjects []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("archive_published"); err != nil {
		return err
	}
	want := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		want[s] = true
	}
	published := rdf.URI(StatusURI(StatusPublished))
	for _, res := range m.graphs[revGraph] {
		of, ok := res.First(rdf.WSFRevisionUri)
		if !ok || !want[of.Content] {
			continue
		}
		for i, v := range res[rdf.WSFRevisionStatus] {
			if v == published {
				res[rdf.WSFRevisionStatus][i] = rdf.URI(StatusURI(StatusArchive))
			}
		}
	}
	m.mutations++
	return nil
}

func (m *MemoryStore) Describe(_ context.Context, graph, subject string) (rdf.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("describe"); err != nil {
		return nil, err
	}
	res, ok := m.graphs[graph][subject]
	if !ok || len(res) == 0 {
		return nil, ErrNotFound
	}
	return res.Clone(), nil
}

func (m *MemoryStore) Reifications(_ context.Context, graph string, subjects []string) (rdf.Description, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("reifications"); err != nil {
		return nil, err
	}
	g := m.graphs[graph]
	out := rdf.Description{}
	for st := range reifiedBy(g, subjects) {
		out[st] = g[st].Clone()
	}
	return out, nil
}

func (m *MemoryStore) Labels(_ context.Context, subject string, predicates []string) ([]rdf.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("labels"); err != nil {
		return nil, err
	}
	var out []rdf.Value
	seen := map[rdf.Value]bool{}
	for _, p := range predicates {
		for _, name := range m.graphNames() {
			for _, v := range m.graphs[name][subject][p] {
				if v.IsLiteral() && !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) SuperClasses(_ context.Context, class string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("super_classes"); err != nil {
		return nil, err
	}
	var out []string
	seen := map[string]bool{}
	for _, name := range m.graphNames() {
		for _, v := range m.graphs[name][class][rdf.RDFSSubClassOf] {
			if v.IsURI() && !seen[v.Content] {
				seen[v.Content] = true
				out = append(out, v.Content)
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) Property(_ context.Context, property string) (*PropertyDecl, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("property"); err != nil {
		return nil, err
	}
	decl := &PropertyDecl{URI: property}
	found := false
	for _, name := range m.graphNames() {
		res := m.graphs[name][property]
		for _, v := range res[rdf.RDFType] {
			decl.Types = append(decl.Types, v.Content)
			found = true
		}
		for _, v := range res[rdf.RDFSRange] {
			decl.Ranges = append(decl.Ranges, v.Content)
			found = true
		}
		if v, ok := res.First(rdf.OWLCardinality); ok {
			if n, err := strconv.Atoi(v.Content); err == nil {
				decl.Cardinality = &n
				found = true
			}
		}
		if v, ok := res.First(rdf.OWLMaxCardinality); ok {
			if n, err := strconv.Atoi(v.Content); err == nil {
				decl.MaxCardinality = &n
				found = true
			}
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	return decl, nil
}

func (m *MemoryStore) Graphs(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, name := range m.graphNames() {
		if strings.HasPrefix(name, prefix) && len(m.graphs[name]) > 0 {
			out = append(out, name)
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return m.fail("ping")
}

func (m *MemoryStore) graphNames() []string {
	names := make([]string, 0, len(m.graphs))
	for n := range m.graphs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
