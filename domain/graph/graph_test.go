package graph

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/sparql"
)

const dataset = "http://ex.org/d/"

func doc(label string) rdf.Description {
	d := rdf.Description{}
	d.Add(dataset+"r1", rdf.RDFType, rdf.URI(rdf.NSFOAF+"Person"))
	d.Add(dataset+"r1", rdf.RDFSLabel, rdf.LangLiteral(label, "en"))
	return d
}

func withReification(d rdf.Description) rdf.Description {
	d.Add("_:st1", rdf.RDFType, rdf.URI(rdf.RDFStatement))
	d.Add("_:st1", rdf.RDFSubject, rdf.URI(dataset+"r1"))
	d.Add("_:st1", rdf.RDFPredicate, rdf.URI(rdf.RDFSLabel))
	d.Add("_:st1", rdf.RDFObject, rdf.LangLiteral("Alice", "en"))
	d.Add("_:st1", rdf.RDFSComment, rdf.Literal("from the census"))
	return d
}

func apply(t *testing.T, u *Updater, d rdf.Description, raw string) error {
	t.Helper()
	return u.Apply(context.Background(), ApplyRequest{
		Dataset:        dataset,
		Document:       []byte(raw),
		Description:    d,
		Classification: Classify(d),
	})
}

// =============================================================================
// Classification
// =============================================================================

func TestClassify(t *testing.T) {
	d := withReification(doc("Alice"))
	d.Add("_:b", rdf.RDFSLabel, rdf.Literal("nested"))

	c := Classify(d)
	assert.Equal(t, []string{"_:st1"}, c.Reifications)
	assert.Equal(t, []string{"_:b", dataset + "r1"}, c.Instances)
	assert.Equal(t, []string{dataset + "r1"}, c.Addressable())
}

func TestClassify_Empty(t *testing.T) {
	c := Classify(rdf.Description{})
	assert.Empty(t, c.Reifications)
	assert.Empty(t, c.Instances)
}

// =============================================================================
// Stage-then-diff
// =============================================================================

func TestApply_ReplacesSubjectAndClearsStaging(t *testing.T) {
	store := triplestore.NewMemoryStore()
	u := NewUpdater(store, slog.Default())

	old := rdf.Description{}
	old.Add(dataset+"r1", rdf.RDFSLabel, rdf.LangLiteral("Old", "en"))
	old.Add(dataset+"r1", rdf.RDFSComment, rdf.Literal("gone after update"))
	old.Add(dataset+"r2", rdf.RDFSLabel, rdf.Literal("other"))
	require.NoError(t, store.Insert(context.Background(), dataset, old))

	require.NoError(t, apply(t, u, doc("Alice"), "doc-1"))

	live := store.Graph(dataset)
	assert.Equal(t, doc("Alice")[dataset+"r1"], live[dataset+"r1"])
	assert.Contains(t, live, dataset+"r2")

	graphs, err := store.Graphs(context.Background(), TempGraphPrefix)
	require.NoError(t, err)
	assert.Empty(t, graphs)
}

func TestApply_Idempotent(t *testing.T) {
	store := triplestore.NewMemoryStore()
	u := NewUpdater(store, slog.Default())

	require.NoError(t, apply(t, u, doc("Alice"), "same"))
	first := store.Graph(dataset)
	require.NoError(t, apply(t, u, doc("Alice"), "same"))

	assert.Equal(t, first, store.Graph(dataset))
	assert.Equal(t, 2, store.Graph(dataset).Len())
}

func TestApply_Reifications(t *testing.T) {
	store := triplestore.NewMemoryStore()
	u := NewUpdater(store, slog.Default())
	reif := triplestore.ReificationGraph(dataset)

	unrelated := rdf.Description{}
	unrelated.Add("urn:st:other", rdf.RDFType, rdf.URI(rdf.RDFStatement))
	unrelated.Add("urn:st:other", rdf.RDFSubject, rdf.URI(dataset+"r9"))
	require.NoError(t, store.Insert(context.Background(), reif, unrelated))

	require.NoError(t, apply(t, u, withReification(doc("Alice")), "v1"))

	g := store.Graph(reif)
	assert.Len(t, g, 2)
	assert.Contains(t, g, "urn:st:other")
	assert.NotContains(t, store.Graph(dataset), "_:st1", "statements stay out of the live graph")

	// A later document without reification drops the stale statements
	// about r1 but keeps the unrelated one.
	require.NoError(t, apply(t, u, doc("Alice B."), "v2"))
	g = store.Graph(reif)
	assert.Equal(t, []string{"urn:st:other"}, g.Subjects())
}

func TestApply_StagingClearedOnFailure(t *testing.T) {
	store := triplestore.NewMemoryStore()
	u := NewUpdater(store, slog.Default())
	boom := errors.New("store went away")
	store.FailOn("replace_subjects", boom)

	err := apply(t, u, withReification(doc("Alice")), "failing")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	tmp, tmpReif := TempGraphs(dataset, []byte("failing"))
	assert.Nil(t, store.Graph(tmp))
	assert.Nil(t, store.Graph(tmpReif))
	assert.Nil(t, store.Graph(dataset), "live graph untouched")
}

func TestApply_ClearFailureIsReported(t *testing.T) {
	store := triplestore.NewMemoryStore()
	u := NewUpdater(store, slog.Default())
	store.FailOn("clear", errors.New("clear refused"))

	err := apply(t, u, doc("Alice"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear staging graph")
}

// updateRecorder captures the SPARQL updates a store sends.
type updateRecorder struct {
	updates []string
}

func (r *updateRecorder) Select(context.Context, string) ([]sparql.Binding, error) { return nil, nil }
func (r *updateRecorder) Load(context.Context, string, []byte) error             { return nil }
func (r *updateRecorder) Ping(context.Context) error                             { return nil }
func (r *updateRecorder) Update(_ context.Context, u string) error {
	r.updates = append(r.updates, u)
	return nil
}

func withAddress(d rdf.Description) rdf.Description {
	d.Add(dataset+"r1", "http://ex.org/ns#address", rdf.Blank("addr"))
	d.Add("_:addr", "http://ex.org/ns#city", rdf.Literal("Quebec"))
	return d
}

func TestApply_BlankNodesNeverReachTheStore(t *testing.T) {
	rec := &updateRecorder{}
	u := NewUpdater(triplestore.NewSPARQLStore(rec, false, slog.Default()), slog.Default())

	require.NoError(t, apply(t, u, withReification(withAddress(doc("Alice"))), "v1"))
	first := rec.updates
	require.NotEmpty(t, first)
	for _, q := range first {
		assert.NotContains(t, q, "_:", q)
	}

	rec.updates = nil
	require.NoError(t, apply(t, u, withReification(withAddress(doc("Alice"))), "v1"))
	assert.Equal(t, first, rec.updates, "re-applying a document sends the same terms")
}

func TestApply_BlankNodesIdempotent(t *testing.T) {
	store := triplestore.NewMemoryStore()
	u := NewUpdater(store, slog.Default())

	require.NoError(t, apply(t, u, withAddress(doc("Alice")), "same"))
	first := store.Graph(dataset)
	require.NoError(t, apply(t, u, withAddress(doc("Alice")), "same"))

	assert.Equal(t, first, store.Graph(dataset))
	assert.Len(t, store.Graph(dataset), 2)
	for _, s := range store.Graph(dataset).Subjects() {
		assert.False(t, strings.HasPrefix(s, "_:"), s)
	}
}

func TestTempGraphs(t *testing.T) {
	a1, r1 := TempGraphs(dataset, []byte("doc"))
	a2, _ := TempGraphs(dataset, []byte("doc"))
	b, _ := TempGraphs("http://ex.org/other/", []byte("doc"))

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b, "dataset is part of the name")
	assert.Equal(t, a1+":reification", r1)
	assert.Regexp(t, `^urn:osf:tmp:[0-9a-f]{40}$`, a1)
}

// =============================================================================
// Reader
// =============================================================================

func TestReader_Read(t *testing.T) {
	store := triplestore.NewMemoryStore()
	u := NewUpdater(store, slog.Default())
	require.NoError(t, apply(t, u, withReification(doc("Alice")), "v1"))

	_, skolems := rdf.Skolemize(dataset, withReification(doc("Alice")))

	r := NewReader(store)
	d, err := r.Read(context.Background(), dataset, dataset+"r1")
	require.NoError(t, err)
	assert.Equal(t, []string{skolems["_:st1"], dataset + "r1"}, d.Subjects())

	_, err = r.Read(context.Background(), dataset, dataset+"missing")
	assert.ErrorIs(t, err, triplestore.ErrNotFound)
}
