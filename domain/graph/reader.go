package graph

import (
	"context"
	"fmt"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

// ReadStore is the subset of triplestore.Store the record reader queries.
type ReadStore interface {
	Describe(ctx context.Context, graph, subject string) (rdf.Resource, error)
	Reifications(ctx context.Context, graph string, subjects []string) (rdf.Description, error)
}

// Reader reads a record's current published state.
type Reader struct {
	store ReadStore
}

// NewReader creates a Reader over store.
func NewReader(store ReadStore) *Reader {
	return &Reader{store: store}
}

// Read returns subject's live description plus the reification statements
// about it. It returns triplestore.ErrNotFound when the subject has no
// statements in the live graph.
func (r *Reader) Read(ctx context.Context, dataset, subject string) (rdf.Description, error) {
	res, err := r.store.Describe(ctx, dataset, subject)
	if err != nil {
		return nil, err
	}
	reifs, err := r.store.Reifications(ctx, triplestore.ReificationGraph(dataset), []string{subject})
	if err != nil {
		return nil, fmt.Errorf("read reifications of %s: %w", subject, err)
	}

	d := rdf.Description{subject: res}
	d.Merge(reifs)
	return d, nil
}

// ReadGraph returns subject's description from an arbitrary named graph,
// such as a revision record from the revision graph.
func (r *Reader) ReadGraph(ctx context.Context, graph, subject string) (rdf.Description, error) {
	res, err := r.store.Describe(ctx, graph, subject)
	if err != nil {
		return nil, err
	}
	return rdf.Description{subject: res}, nil
}
