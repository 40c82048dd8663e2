package triplestore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/sparql"
)

// Client is the subset of *sparql.Client the store uses.
type Client interface {
	Select(ctx context.Context, query string) ([]sparql.Binding, error)
	Update(ctx context.Context, update string) error
	Load(ctx context.Context, graph string, turtle []byte) error
	Ping(ctx context.Context) error
}

// SPARQLStore implements Store over SPARQL 1.1 endpoints.
type SPARQLStore struct {
	client   Client
	bulkLoad bool
	log      *slog.Logger
}

var _ Store = (*SPARQLStore)(nil)

// NewSPARQLStore wraps client. With bulkLoad set, Insert posts one Turtle
// document through the graph store endpoint instead of batched updates.
func NewSPARQLStore(client Client, bulkLoad bool, log *slog.Logger) *SPARQLStore {
	return &SPARQLStore{
		client:   client,
		bulkLoad: bulkLoad,
		log:      log.With(logger.Scope("triplestore.sparql")),
	}
}

func (s *SPARQLStore) Insert(ctx context.Context, graph string, d rdf.Description) error {
	if len(d) == 0 {
		return nil
	}
	if s.bulkLoad {
		doc, err := rdf.SerializeTurtle(d)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", graph, err)
		}
		if err := s.client.Load(ctx, graph, doc); err != nil {
			return fmt.Errorf("bulk load into %s: %w", graph, err)
		}
		return nil
	}
	for i, batch := range Batches(d, BatchSize) {
		if err := s.client.Update(ctx, insertDataQuery(graph, batch)); err != nil {
			return fmt.Errorf("insert batch %d into %s: %w", i, graph, err)
		}
	}
	return nil
}

func (s *SPARQLStore) ReplaceSubjects(ctx context.Context, live, temp string) error {
	if err := s.client.Update(ctx, replaceSubjectsQuery(live, temp)); err != nil {
		return fmt.Errorf("replace subjects in %s: %w", live, err)
	}
	return nil
}

func (s *SPARQLStore) ReplaceReifications(ctx context.Context, reif, temp string, subjects []string) error {
	if len(subjects) == 0 {
		return nil
	}
	if err := s.client.Update(ctx, replaceReificationsQuery(reif, temp, subjects)); err != nil {
		return fmt.Errorf("replace reifications in %s: %w", reif, err)
	}
	return nil
}

func (s *SPARQLStore) DeleteReifications(ctx context.Context, reif string, subjects []string) error {
	if len(subjects) == 0 {
		return nil
	}
	if err := s.client.Update(ctx, deleteReificationsQuery(reif, subjects)); err != nil {
		return fmt.Errorf("delete reifications in %s: %w", reif, err)
	}
	return nil
}

func (s *SPARQLStore) Clear(ctx context.Context, graph string) error {
	if err := s.client.Update(ctx, clearQuery(graph)); err != nil {
		return fmt.Errorf("clear %s: %w", graph, err)
	}
	return nil
}

func (s *SPARQLStore) LatestRevision(ctx context.Context, revGraph, subject string) (*RevisionHead, error) {
	rows, err := s.client.Select(ctx, latestRevisionQuery(revGraph, subject))
	if err != nil {
		return nil, fmt.Errorf("latest revision of %s: %w", subject, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	head := headFromBinding(rows[0], subject)
	return &head, nil
}

func (s *SPARQLStore) Revisions(ctx context.Context, revGraph, subject string) ([]RevisionHead, error) {
	rows, err := s.client.Select(ctx, revisionsQuery(revGraph, subject))
	if err != nil {
		return nil, fmt.Errorf("revisions of %s: %w", subject, err)
	}
	heads := make([]RevisionHead, 0, len(rows))
	for _, row := range rows {
		heads = append(heads, headFromBinding(row, subject))
	}
	return heads, nil
}

func headFromBinding(b sparql.Binding, subject string) RevisionHead {
	t, _ := strconv.ParseInt(b.Get("time"), 10, 64)
	return RevisionHead{
		URI:       b.Get("revision"),
		Subject:   subject,
		Time:      t,
		Status:    StatusName(b.Get("status")),
		Performer: b.Get("performer"),
	}
}

func (s *SPARQLStore) ArchivePublished(ctx context.Context, revGraph string, subjects []string) error {
	if len(subjects) == 0 {
		return nil
	}
	if err := s.client.Update(ctx, archivePublishedQuery(revGraph, subjects)); err != nil {
		return fmt.Errorf("archive published revisions: %w", err)
	}
	return nil
}

func (s *SPARQLStore) Describe(ctx context.Context, graph, subject string) (rdf.Resource, error) {
	rows, err := s.client.Select(ctx, describeQuery(graph, subject))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", subject, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	d := rdf.Description{}
	for _, row := range rows {
		d.Add(subject, row.Get("p"), row["o"].RDF())
	}
	return d[subject], nil
}

func (s *SPARQLStore) Reifications(ctx context.Context, graph string, subjects []string) (rdf.Description, error) {
	d := rdf.Description{}
	if len(subjects) == 0 {
		return d, nil
	}
	rows, err := s.client.Select(ctx, reificationsQuery(graph, subjects))
	if err != nil {
		return nil, fmt.Errorf("reifications: %w", err)
	}
	for _, row := range rows {
		st := row["st"]
		key := st.Value
		if st.Type == "bnode" {
			key = "_:" + key
		}
		d.Add(key, row.Get("p"), row["o"].RDF())
	}
	return d, nil
}

func (s *SPARQLStore) Labels(ctx context.Context, subject string, predicates []string) ([]rdf.Value, error) {
	rows, err := s.client.Select(ctx, labelsQuery(subject, predicates))
	if err != nil {
		return nil, fmt.Errorf("labels of %s: %w", subject, err)
	}
	byPred := map[string][]rdf.Value{}
	for _, row := range rows {
		byPred[row.Get("p")] = append(byPred[row.Get("p")], row["label"].RDF())
	}
	var out []rdf.Value
	for _, p := range predicates {
		out = append(out, byPred[p]...)
	}
	return out, nil
}

func (s *SPARQLStore) SuperClasses(ctx context.Context, class string) ([]string, error) {
	rows, err := s.client.Select(ctx, superClassesQuery(class))
	if err != nil {
		return nil, fmt.Errorf("superclasses of %s: %w", class, err)
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Get("super"))
	}
	return out, nil
}

func (s *SPARQLStore) Property(ctx context.Context, property string) (*PropertyDecl, error) {
	rows, err := s.client.Select(ctx, propertyQuery(property))
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", property, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	decl := &PropertyDecl{URI: property}
	for _, row := range rows {
		if t := row.Get("type"); t != "" {
			decl.Types = append(decl.Types, t)
		}
		if r := row.Get("range"); r != "" {
			decl.Ranges = append(decl.Ranges, r)
		}
		if n, err := strconv.Atoi(row.Get("card")); err == nil {
			decl.Cardinality = &n
		}
		if n, err := strconv.Atoi(row.Get("max")); err == nil {
			decl.MaxCardinality = &n
		}
	}
	return decl, nil
}

func (s *SPARQLStore) Graphs(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.client.Select(ctx, graphsQuery(prefix))
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Get("g"))
	}
	return out, nil
}

func (s *SPARQLStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
