// Package revisions keeps the per-subject revision history of a dataset.
// Every update of a subject appends one revision record to the dataset's
// revision graph, and the first update of a subject without history first
// snapshots its pre-existing live state.
package revisions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

// Store is the subset of triplestore.Store the manager needs.
type Store interface {
	Insert(ctx context.Context, graph string, d rdf.Description) error
	LatestRevision(ctx context.Context, revGraph, subject string) (*triplestore.RevisionHead, error)
	Revisions(ctx context.Context, revGraph, subject string) ([]triplestore.RevisionHead, error)
	ArchivePublished(ctx context.Context, revGraph string, subjects []string) error
}

// RecordReader returns a subject's current live description together with
// the reification statements about it.
type RecordReader interface {
	Read(ctx context.Context, dataset, subject string) (rdf.Description, error)
}

// Request describes one incoming update to revise.
type Request struct {
	Dataset        string
	Description    rdf.Description
	Classification graph.Classification
	Lifecycle      Status
	Performer      string
}

// Revision is one record written by Revise.
type Revision struct {
	URI       string `json:"uri"`
	Subject   string `json:"subject"`
	Time      int64  `json:"time"`
	Status    Status `json:"status"`
	Bootstrap bool   `json:"bootstrap,omitempty"`
}

// Manager writes revision records.
type Manager struct {
	store  Store
	reader RecordReader
	clock  *Timestamper
	log    *slog.Logger
}

// NewManager creates a revision Manager.
func NewManager(store Store, reader RecordReader, clock *Timestamper, log *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		reader: reader,
		clock:  clock,
		log:    log.With(logger.Scope("revisions")),
	}
}

// Revise records one revision per addressable instance subject of the
// request. It checks every subject before writing anything: a published
// update over a subject whose latest revision is not published fails with
// a *ConflictError and the revision graph is untouched.
func (m *Manager) Revise(ctx context.Context, req Request) ([]Revision, error) {
	subjects := req.Classification.Addressable()
	if len(subjects) == 0 {
		return nil, nil
	}
	revGraph := triplestore.RevisionGraph(req.Dataset)

	var fresh []string
	for _, s := range subjects {
		head, err := m.store.LatestRevision(ctx, revGraph, s)
		if errors.Is(err, triplestore.ErrNotFound) {
			fresh = append(fresh, s)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("latest revision of %s: %w", s, err)
		}
		if req.Lifecycle == Published && Status(head.Status) != Published {
			return nil, &ConflictError{Subject: s, Revision: head.URI, Status: Status(head.Status)}
		}
	}

	existing := make(map[string]rdf.Description, len(fresh))
	for _, s := range fresh {
		d, err := m.reader.Read(ctx, req.Dataset, s)
		if err != nil {
			return nil, &BootstrapError{Subject: s, Err: err}
		}
		existing[s] = d
	}

	out := rdf.Description{}
	var written []Revision

	bootStatus := Published
	if req.Lifecycle == Published {
		bootStatus = Archive
	}
	for _, s := range fresh {
		rev := m.record(out, req.Dataset, s, existing[s], bootStatus, req.Performer)
		rev.Bootstrap = true
		written = append(written, rev)
	}

	for _, s := range subjects {
		written = append(written, m.record(out, req.Dataset, s, req.Description, req.Lifecycle, req.Performer))
	}

	if req.Lifecycle == Published {
		if err := m.store.ArchivePublished(ctx, revGraph, subjects); err != nil {
			return nil, fmt.Errorf("archive published revisions: %w", err)
		}
	}
	if err := m.store.Insert(ctx, revGraph, out); err != nil {
		return nil, fmt.Errorf("insert revisions: %w", err)
	}

	recorded.WithLabelValues("bootstrap").Add(float64(len(fresh)))
	recorded.WithLabelValues("update").Add(float64(len(subjects)))
	m.log.Debug("revisions recorded",
		slog.String("dataset", req.Dataset),
		slog.Int("subjects", len(subjects)),
		slog.Int("bootstrapped", len(fresh)),
		slog.String("lifecycle", string(req.Lifecycle)),
	)
	return written, nil
}

// record adds to out a revision of subject taken from src, plus copies of
// the reification statements in src whose rdf:subject is subject.
func (m *Manager) record(out rdf.Description, dataset, subject string, src rdf.Description, status Status, performer string) Revision {
	ts := m.clock.Next()
	uri := RevisionURI(dataset, ts)

	for p, vals := range src[subject] {
		for _, v := range vals {
			out.Add(uri, p, v)
		}
	}
	out.Add(uri, rdf.WSFRevisionUri, rdf.URI(subject))
	out.Add(uri, rdf.WSFFromDataset, rdf.URI(dataset))
	out.Add(uri, rdf.WSFRevisionTime, rdf.TypedLiteral(strconv.FormatInt(ts, 10), rdf.XSDLong))
	out.Add(uri, rdf.WSFRevisionStatus, rdf.URI(status.URI()))
	if performer != "" {
		out.Add(uri, rdf.WSFPerformer, rdf.URI(performer))
	}

	n := 0
	for _, stmt := range src.Subjects() {
		if stmt == subject || !src.HasType(stmt, rdf.RDFStatement) {
			continue
		}
		target, ok := src[stmt].First(rdf.RDFSubject)
		if !ok || target.Content != subject {
			continue
		}
		n++
		node := uri + "/reification/" + strconv.Itoa(n)
		for p, vals := range src[stmt] {
			if p == rdf.RDFSubject {
				continue
			}
			for _, v := range vals {
				out.Add(node, p, v)
			}
		}
		out.Add(node, rdf.RDFSubject, rdf.URI(uri))
	}

	return Revision{URI: uri, Subject: subject, Time: ts, Status: status}
}

// History lists subject's revisions, newest first.
func (m *Manager) History(ctx context.Context, dataset, subject string) ([]triplestore.RevisionHead, error) {
	return m.store.Revisions(ctx, triplestore.RevisionGraph(dataset), subject)
}

// RevisionURI names the revision recorded at ts in dataset.
func RevisionURI(dataset string, ts int64) string {
	return triplestore.RevisionGraph(dataset) + strconv.FormatInt(ts, 10)
}
