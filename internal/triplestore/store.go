// Package triplestore adapts a named-graph RDF store to the operations the
// update pipeline performs on it.
package triplestore

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

// ErrNotFound is returned when a subject, revision or property has no
// statements in the queried graph.
var ErrNotFound = errors.New("triplestore: not found")

// BatchSize bounds the number of subjects per INSERT DATA request.
const BatchSize = 25

// Revision statuses, stored as wsf: individuals.
const (
	StatusPublished    = "published"
	StatusArchive      = "archive"
	StatusExperimental = "experimental"
	StatusPreRelease   = "pre_release"
	StatusStaging      = "staging"
	StatusHarvesting   = "harvesting"
	StatusUnspecified  = "unspecified"
)

// StatusURI maps a status name to its individual.
func StatusURI(status string) string {
	return rdf.NSWSF + status
}

// StatusName maps an individual back to its status name.
func StatusName(uri string) string {
	return strings.TrimPrefix(uri, rdf.NSWSF)
}

// RevisionHead summarizes one revision record.
type RevisionHead struct {
	URI       string `json:"uri"`
	Subject   string `json:"subject"`
	Time      int64  `json:"time"`
	Status    string `json:"status"`
	Performer string `json:"performer,omitempty"`
}

// PropertyDecl is what the ontology graphs declare about a property.
type PropertyDecl struct {
	URI            string
	Types          []string
	Cardinality    *int
	MaxCardinality *int
	Ranges         []string
}

// Store is the full set of graph operations. SPARQLStore and MemoryStore
// implement it.
type Store interface {
	Insert(ctx context.Context, graph string, d rdf.Description) error
	ReplaceSubjects(ctx context.Context, live, temp string) error
	ReplaceReifications(ctx context.Context, reif, temp string, subjects []string) error
	DeleteReifications(ctx context.Context, reif string, subjects []string) error
	Clear(ctx context.Context, graph string) error

	LatestRevision(ctx context.Context, revGraph, subject string) (*RevisionHead, error)
	Revisions(ctx context.Context, revGraph, subject string) ([]RevisionHead, error)
	ArchivePublished(ctx context.Context, revGraph string, subjects []string) error

	Describe(ctx context.Context, graph, subject string) (rdf.Resource, error)
	Reifications(ctx context.Context, graph string, subjects []string) (rdf.Description, error)
	Labels(ctx context.Context, subject string, predicates []string) ([]rdf.Value, error)
	SuperClasses(ctx context.Context, class string) ([]string, error)
	Property(ctx context.Context, property string) (*PropertyDecl, error)

	Graphs(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
}

// DatasetBase normalizes a dataset URI so graph names can be appended.
func DatasetBase(dataset string) string {
	if strings.HasSuffix(dataset, "/") {
		return dataset
	}
	return dataset + "/"
}

// RevisionGraph is the named graph holding a dataset's revision records.
func RevisionGraph(dataset string) string {
	return DatasetBase(dataset) + "revisions/"
}

// ReificationGraph is the named graph holding a dataset's reification
// statements.
func ReificationGraph(dataset string) string {
	return DatasetBase(dataset) + "reification/"
}

// Batches splits d into chunks of at most size subjects, in subject order.
func Batches(d rdf.Description, size int) []rdf.Description {
	if size <= 0 {
		size = BatchSize
	}
	subjects := d.Subjects()
	var out []rdf.Description
	for start := 0; start < len(subjects); start += size {
		end := start + size
		if end > len(subjects) {
			end = len(subjects)
		}
		out = append(out, d.Subset(subjects[start:end]))
	}
	return out
}

func sortHeads(heads []RevisionHead) {
	sort.SliceStable(heads, func(i, j int) bool {
		return heads[i].Time > heads[j].Time
	})
}
