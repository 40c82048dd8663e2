package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/ontology"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/solr"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/sparql"
)

const (
	dataset  = "http://ex.org/d/"
	ontoG    = "http://ex.org/ontology/"
	born     = "http://ex.org/ns#born"
	age      = "http://ex.org/ns#age"
	height   = "http://ex.org/ns#height"
	nickname = "http://ex.org/ns#nickname"
	knows    = "http://ex.org/ns#knows"
	person   = rdf.NSFOAF + "Person"
	agent    = rdf.NSFOAF + "Agent"
)

type fixture struct {
	store     *triplestore.MemoryStore
	index     *MemoryIndex
	projector *Projector
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store := triplestore.NewMemoryStore()
	onto := rdf.Description{}
	onto.Add(person, rdf.RDFSSubClassOf, rdf.URI(agent))
	onto.Add(born, rdf.RDFSRange, rdf.URI(rdf.XSDDateTime))
	onto.Add(born, rdf.OWLMaxCardinality, rdf.TypedLiteral("1", rdf.XSDNonNeg))
	onto.Add(age, rdf.RDFSRange, rdf.URI(rdf.XSDInteger))
	onto.Add(height, rdf.RDFSRange, rdf.URI(rdf.XSDDouble))
	onto.Add(nickname, rdf.OWLCardinality, rdf.TypedLiteral("1", rdf.XSDNonNeg))
	require.NoError(t, store.Insert(context.Background(), ontoG, onto))

	cache, err := ontology.NewCache(store, nil, ontology.Options{RootType: rdf.OWLThing, LocalSize: 64}, slog.Default())
	require.NoError(t, err)

	index := NewMemoryIndex(FieldID, FieldURI, FieldDataset, FieldType, FieldInferredType, "*_attr_facets")
	return &fixture{
		store:     store,
		index:     index,
		projector: NewProjector(index, cache, store, graph.NewReader(store), opts, slog.Default()),
	}
}

func (f *fixture) project(t *testing.T, d rdf.Description) int {
	t.Helper()
	n, err := f.projector.Project(context.Background(), dataset, d, graph.Classify(d).Instances)
	require.NoError(t, err)
	return n
}

func (f *fixture) doc(t *testing.T, subject string) solr.Document {
	t.Helper()
	doc := f.index.Document(DocumentID(dataset, subject))
	require.NotNil(t, doc, "no document for %s", subject)
	return doc
}

// =============================================================================
// Field naming
// =============================================================================

func TestFieldName(t *testing.T) {
	tests := []struct {
		name string
		f    FieldName
		want string
	}{
		{"text", FieldName{Predicate: "http://ex.org/ns#p", Kind: TextKind("en")}, "http%3A%2F%2Fex.org%2Fns%23p_attr_en"},
		{"date single", FieldName{Predicate: "http://ex.org/ns#p", Kind: KindDate, SingleValued: true}, "http%3A%2F%2Fex.org%2Fns%23p_attr_date_single_valued"},
		{"object", FieldName{Predicate: "urn:p", Kind: ObjectKind("fr")}, "urn%3Ap_attr_obj_fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.String())
		})
	}
}

func TestLiteralKind(t *testing.T) {
	meta := func(ranges ...string) *ontology.PropertyMetadata {
		return &ontology.PropertyMetadata{Range: ranges}
	}
	assert.Equal(t, KindDate, literalKind(meta(rdf.XSDInteger, rdf.XSDDateTime), "en"))
	assert.Equal(t, KindInt, literalKind(meta(rdf.XSDDouble, rdf.XSDInt), "en"))
	assert.Equal(t, KindFloat, literalKind(meta(rdf.XSDDecimal), "en"))
	assert.Equal(t, "en", literalKind(meta(rdf.XSDString), "en"))
	assert.Equal(t, "fr", literalKind(nil, "fr"))
}

func TestDocumentID_Stable(t *testing.T) {
	assert.Equal(t, DocumentID(dataset, "a"), DocumentID(dataset, "a"))
	assert.NotEqual(t, DocumentID(dataset, "a"), DocumentID("http://ex.org/other/", "a"))
	assert.Len(t, DocumentID(dataset, "a"), 32)
}

func TestFieldDirectory_Patterns(t *testing.T) {
	var d fieldDirectory
	idx := NewMemoryIndex("uri", "*_attr_en", "prefLabel_*")
	require.NoError(t, d.ensure(context.Background(), idx))

	assert.True(t, d.known("uri"))
	assert.True(t, d.known("foo_attr_en"))
	assert.True(t, d.known("prefLabel_fr"))
	assert.False(t, d.known("foo_attr_date"))
}

// =============================================================================
// Projection
// =============================================================================

func TestProject_EndToEndExample(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	r1 := dataset + "r1"
	d := rdf.Description{}
	d.Add(r1, rdf.RDFType, rdf.URI(person))
	d.Add(r1, rdf.RDFSLabel, rdf.LangLiteral("Alice", "en"))

	assert.Equal(t, 1, f.project(t, d))

	doc := f.doc(t, r1)
	assert.Equal(t, []any{"Alice"}, doc[prefLabelField("en")])
	assert.Equal(t, []any{"Alice"}, doc[FieldPrefLabel])
	assert.Equal(t, []any{person}, doc[FieldType])
	assert.Contains(t, doc[FieldInferredType], person)
	assert.Contains(t, doc[FieldInferredType], agent)
	assert.Contains(t, doc[FieldInferredType], rdf.OWLThing)
	assert.Equal(t, []any{r1}, doc[FieldURI])
	assert.Equal(t, []any{dataset}, doc[FieldDataset])
	assert.Equal(t, 1, f.index.Commits())
}

func TestProject_Labels(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en", "fr"}})
	r := dataset + "r"
	d := rdf.Description{}
	d.Add(r, rdf.SKOSPrefLabel, rdf.LangLiteral("Paris", "en"))
	d.Add(r, rdf.RDFSLabel, rdf.Literal("City of Light"))
	d.Add(r, rdf.RDFSLabel, rdf.LangLiteral("Paname", "fr"))
	d.Add(r, rdf.SKOSAltLabel, rdf.LangLiteral("Lutèce", "fr"))
	d.Add(r, rdf.RDFSComment, rdf.LangLiteral("Capital of France", "en"))

	f.project(t, d)
	doc := f.doc(t, r)
	assert.Equal(t, []any{"Paris"}, doc[prefLabelField("en")])
	assert.Equal(t, []any{"City of Light"}, doc[altLabelField("en")])
	assert.Equal(t, []any{"Paname"}, doc[prefLabelField("fr")])
	assert.Equal(t, []any{"Lutèce"}, doc[altLabelField("fr")])
	assert.Equal(t, []any{"Capital of France"}, doc[descriptionField("en")])
	assert.NotContains(t, doc, FieldName{Predicate: rdf.RDFSLabel, Kind: "en"}.String())
}

func TestProject_SynthesizedLabel(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	r := dataset + "records/widget-42"
	d := rdf.Description{}
	d.Add(r, rdf.RDFType, rdf.URI(person))

	f.project(t, d)
	assert.Equal(t, []any{"widget-42"}, f.doc(t, r)[prefLabelField("en")])
}

func TestProject_TypedAndSingleValuedFields(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	r := dataset + "r"
	d := rdf.Description{}
	d.Add(r, rdf.RDFSLabel, rdf.Literal("R"))
	d.Add(r, born, rdf.TypedLiteral("1990-05-01T10:00:00Z", rdf.XSDDateTime))
	d.Add(r, age, rdf.Literal("34"))
	d.Add(r, height, rdf.Literal("1.72"))
	d.Add(r, nickname, rdf.Literal("Al"))
	d.Add(r, nickname, rdf.Literal("Ally"))
	d.Add(r, "http://ex.org/ns#unknown", rdf.Literal("free"))
	d.Add(r, "http://ex.org/ns#unknown", rdf.Literal("text"))

	f.project(t, d)
	doc := f.doc(t, r)

	assert.Equal(t, []any{"1990-05-01T10:00:00Z"}, doc[FieldName{Predicate: born, Kind: KindDate, SingleValued: true}.String()])
	assert.Equal(t, []any{int64(34)}, doc[FieldName{Predicate: age, Kind: KindInt}.String()])
	assert.Equal(t, []any{1.72}, doc[FieldName{Predicate: height, Kind: KindFloat}.String()])
	assert.Equal(t, []any{"Al"}, doc[FieldName{Predicate: nickname, Kind: "en", SingleValued: true}.String()])
	assert.Equal(t, []any{"free", "text"}, doc[FieldName{Predicate: "http://ex.org/ns#unknown", Kind: "en"}.String()])

	assert.ElementsMatch(t, []any{born, age, height, nickname, "http://ex.org/ns#unknown"}, doc[FieldAttribute])
	assert.Equal(t, []any{"Al", "Ally"}, doc[facetField(nickname)])
}

func TestProject_SingleValuedKeepsFirstValueAcrossLanguages(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en", "fr"}})
	r := dataset + "r"
	d := rdf.Description{}
	d.Add(r, nickname, rdf.LangLiteral("Al", "en"))
	d.Add(r, nickname, rdf.LangLiteral("Alain", "fr"))

	f.project(t, d)
	doc := f.doc(t, r)

	assert.Equal(t, []any{"Al"}, doc[FieldName{Predicate: nickname, Kind: "en", SingleValued: true}.String()])
	assert.NotContains(t, doc, FieldName{Predicate: nickname, Kind: "fr", SingleValued: true}.String())
	singles := 0
	for name := range doc {
		if strings.HasSuffix(name, "_single_valued") {
			singles++
		}
	}
	assert.Equal(t, 1, singles)
}

func TestProject_SingleValuedIgnoresLaterUnparseableValue(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	r := dataset + "r"
	d := rdf.Description{}
	d.Add(r, born, rdf.Literal("1990-05-01"))
	d.Add(r, born, rdf.Literal("sometime"))

	f.project(t, d)
	doc := f.doc(t, r)

	assert.Equal(t, []any{"1990-05-01T00:00:00Z"}, doc[FieldName{Predicate: born, Kind: KindDate, SingleValued: true}.String()])
	assert.NotContains(t, doc, FieldName{Predicate: born, Kind: "en", SingleValued: true}.String())
}

func TestProject_UnparseableTypedValueFallsBackToText(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	r := dataset + "r"
	d := rdf.Description{}
	d.Add(r, age, rdf.Literal("unknown"))

	f.project(t, d)
	assert.Equal(t, []any{"unknown"}, f.doc(t, r)[FieldName{Predicate: age, Kind: "en"}.String()])
}

func TestProject_ObjectLabels(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	bob := dataset + "bob"
	labelled := rdf.Description{}
	labelled.Add(bob, rdf.FOAFName, rdf.Literal("Bob"))
	require.NoError(t, f.store.Insert(context.Background(), dataset, labelled))

	r := dataset + "r"
	d := rdf.Description{}
	d.Add(r, knows, rdf.URI(bob))
	d.Add(r, knows, rdf.URI(dataset+"people/carol"))

	f.project(t, d)
	doc := f.doc(t, r)
	assert.Equal(t, []any{bob, dataset + "people/carol"}, doc[FieldName{Predicate: knows, Kind: KindObjURI}.String()])
	assert.Equal(t, []any{"Bob", "carol"}, doc[FieldName{Predicate: knows, Kind: ObjectKind("en")}.String()])
}

func TestProject_BlankObjectUsesDocumentLabels(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	r := dataset + "r"
	d, err := rdf.Parse("", []byte(
		"<"+r+"> <"+knows+"> _:friend .\n"+
			"_:friend <"+rdf.FOAFName+"> \"Dana\" .\n"), rdf.MediaNTriples)
	require.NoError(t, err)

	f.project(t, d)
	doc := f.doc(t, r)
	assert.Equal(t, []any{"Dana"}, doc[FieldName{Predicate: knows, Kind: ObjectKind("en")}.String()])
	assert.NotContains(t, doc, FieldName{Predicate: knows, Kind: KindObjURI}.String())
}

func TestProject_ReificationFields(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	r := dataset + "r"
	note := "http://ex.org/ns#note"
	d := rdf.Description{}
	d.Add(r, nickname, rdf.Literal("Al"))
	d.Add("_:st", rdf.RDFType, rdf.URI(rdf.RDFStatement))
	d.Add("_:st", rdf.RDFSubject, rdf.URI(r))
	d.Add("_:st", rdf.RDFPredicate, rdf.URI(nickname))
	d.Add("_:st", rdf.RDFObject, rdf.Literal("Al"))
	d.Add("_:st", note, rdf.LangLiteral("school name", "en"))

	n, err := f.projector.Project(context.Background(), dataset, d, graph.Classify(d).Addressable())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc := f.doc(t, r)
	assert.Equal(t, []any{nickname}, doc[reifyAttrField(note)])
	assert.Equal(t, []any{"Al"}, doc[reifyObjField(note)])
	assert.Equal(t, []any{"school name"}, doc[reifyValueField(note, "en")])
}

func TestProject_SkipsBlankSubjects(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	d := rdf.Description{}
	d.Add("_:b", rdf.RDFSLabel, rdf.Literal("anon"))
	d.Add(dataset+"r", rdf.RDFSLabel, rdf.Literal("named"))

	assert.Equal(t, 1, f.project(t, d))
	assert.Equal(t, 1, f.index.Len())
}

func TestProject_Geo(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}, GeoEnabled: true})
	r := dataset + "place"
	d := rdf.Description{}
	d.Add(r, rdf.GeoLat, rdf.Literal("48.85"))
	d.Add(r, rdf.GeoLong, rdf.Literal("2.35"))
	d.Add(r, rdf.GeoAlt, rdf.Literal("35"))
	d.Add(r, rdf.SCOPolygonCoordinates, rdf.Literal("1,2 3,4"))
	d.Add(r, rdf.SCOLocatedIn, rdf.URI(dataset+"france"))

	f.project(t, d)
	doc := f.doc(t, r)
	assert.Equal(t, []any{48.85, 1.0, 3.0}, doc[FieldLat])
	assert.Equal(t, []any{2.35, 2.0, 4.0}, doc[FieldLong])
	assert.Equal(t, []any{"48.85,2.35", "1,2", "3,4"}, doc[FieldGeohash])
	assert.Equal(t, []any{35.0}, doc[FieldAlt])
	assert.Equal(t, []any{"1,2 3,4"}, doc[FieldPolygon])
	assert.Equal(t, []any{dataset + "france"}, doc[FieldLocatedIn])
	assert.NotContains(t, doc[FieldAttribute], rdf.GeoLat)
}

func TestProject_GeoDisabledIndexesAsAttributes(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	r := dataset + "place"
	d := rdf.Description{}
	d.Add(r, rdf.GeoLat, rdf.Literal("48.85"))

	f.project(t, d)
	doc := f.doc(t, r)
	assert.NotContains(t, doc, FieldLat)
	assert.Contains(t, doc[FieldAttribute], rdf.GeoLat)
}

// =============================================================================
// Submission
// =============================================================================

func TestProject_FieldDirectoryRefreshedOncePerCall(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	d := rdf.Description{}
	for _, s := range []string{"a", "b", "c"} {
		d.Add(dataset+s, rdf.RDFSLabel, rdf.Literal(s))
	}

	f.project(t, d)
	assert.Equal(t, 2, f.index.FieldReads(), "initial load plus one refresh")

	f.project(t, d)
	assert.Equal(t, 2, f.index.FieldReads(), "no new fields, no refresh")
}

func TestProject_AutoCommitSkipsCommit(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}, AutoCommit: true})
	d := rdf.Description{}
	d.Add(dataset+"a", rdf.RDFSLabel, rdf.Literal("a"))

	f.project(t, d)
	assert.Zero(t, f.index.Commits())
}

func TestProject_IndexRejection(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	f.index.FailOn("add", errors.New("undefined field foo"))
	d := rdf.Description{}
	d.Add(dataset+"a", rdf.RDFSLabel, rdf.Literal("a"))

	_, err := f.projector.Project(context.Background(), dataset, d, []string{dataset + "a"})
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "add", ie.Op)
	assert.Contains(t, err.Error(), "undefined field foo")
}

func TestProject_OntologyDeniedIsUnknown(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	f.store.FailOn("property", sparql.ErrForbidden)
	d := rdf.Description{}
	d.Add(dataset+"a", age, rdf.Literal("34"))

	f.project(t, d)
	assert.Equal(t, []any{"34"}, f.doc(t, dataset+"a")[FieldName{Predicate: age, Kind: "en"}.String()])
}

// =============================================================================
// Reindex
// =============================================================================

func TestReindex(t *testing.T) {
	f := newFixture(t, Options{Languages: []string{"en"}})
	ctx := context.Background()
	live := rdf.Description{}
	live.Add(dataset+"a", rdf.RDFSLabel, rdf.Literal("A"))
	live.Add(dataset+"b", rdf.RDFSLabel, rdf.Literal("B"))
	require.NoError(t, f.store.Insert(ctx, dataset, live))
	f.project(t, live)
	require.Equal(t, 2, f.index.Len())

	require.NoError(t, f.store.Clear(ctx, dataset))
	fresh := rdf.Description{}
	fresh.Add(dataset+"a", rdf.RDFSLabel, rdf.Literal("A2"))
	require.NoError(t, f.store.Insert(ctx, dataset, fresh))

	indexed, deleted, err := f.projector.Reindex(ctx, dataset, []string{dataset + "a", dataset + "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, indexed)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, f.index.Len())
	assert.Equal(t, []any{"A2"}, f.doc(t, dataset+"a")[prefLabelField("en")])
}
