// Package search projects live records into search-index documents.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/ontology"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/solr"
)

// Index is the search-index collaborator.
type Index interface {
	FieldLister
	Add(ctx context.Context, docs []solr.Document) error
	Commit(ctx context.Context) error
	DeleteByID(ctx context.Context, ids []string) error
	Ping(ctx context.Context) error
}

// RecordReader reads a subject's live description with its reification
// statements.
type RecordReader interface {
	Read(ctx context.Context, dataset, subject string) (rdf.Description, error)
}

// IndexError is returned when the index rejects a submission or commit.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// Options configure the projection.
type Options struct {
	// Languages are the supported languages; the first is the default.
	Languages  []string
	GeoEnabled bool
	AutoCommit bool
}

// Projector turns live records into index documents and submits them.
type Projector struct {
	index    Index
	ontology *ontology.Cache
	labels   LabelStore
	reader   RecordReader
	opts     Options
	fields   fieldDirectory
	log      *slog.Logger
}

// NewProjector creates a Projector writing documents to index.
func NewProjector(index Index, cache *ontology.Cache, labels LabelStore, reader RecordReader, opts Options, log *slog.Logger) *Projector {
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"en"}
	}
	return &Projector{
		index:    index,
		ontology: cache,
		labels:   labels,
		reader:   reader,
		opts:     opts,
		log:      log.With(logger.Scope("search.projector")),
	}
}

// Documents builds the index documents of the given subjects of d. Blank
// subjects are skipped.
func (p *Projector) Documents(ctx context.Context, dataset string, d rdf.Description, subjects []string) ([]solr.Document, error) {
	b := &builder{
		dataset:   dataset,
		d:         d,
		meta:      p.ontology.NewSession(),
		labels:    p.labels,
		languages: p.opts.Languages,
		geo:       p.opts.GeoEnabled,
		objLabels: map[string]string{},
	}
	docs := make([]solr.Document, 0, len(subjects))
	for _, s := range subjects {
		if rdf.IsBlankSubject(s) {
			continue
		}
		if _, ok := d[s]; !ok {
			continue
		}
		doc, err := b.document(ctx, s)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Project indexes the given subjects of d and returns the number of
// documents submitted.
func (p *Projector) Project(ctx context.Context, dataset string, d rdf.Description, subjects []string) (int, error) {
	docs, err := p.Documents(ctx, dataset, d, subjects)
	if err != nil {
		return 0, err
	}
	if err := p.submit(ctx, docs, nil); err != nil {
		return 0, err
	}
	p.log.Debug("documents indexed", slog.String("dataset", dataset), slog.Int("count", len(docs)))
	return len(docs), nil
}

// Reindex re-reads subjects from the live graph. Subjects that still exist
// are projected again; the documents of the others are deleted.
func (p *Projector) Reindex(ctx context.Context, dataset string, subjects []string) (indexed, deleted int, err error) {
	d := rdf.Description{}
	var present, gone []string
	for _, s := range subjects {
		rd, err := p.reader.Read(ctx, dataset, s)
		if errors.Is(err, triplestore.ErrNotFound) {
			gone = append(gone, DocumentID(dataset, s))
			continue
		}
		if err != nil {
			return 0, 0, fmt.Errorf("read %s: %w", s, err)
		}
		d.Merge(rd)
		present = append(present, s)
	}

	docs, err := p.Documents(ctx, dataset, d, present)
	if err != nil {
		return 0, 0, err
	}
	if err := p.submit(ctx, docs, gone); err != nil {
		return 0, 0, err
	}
	p.log.Info("dataset reindexed",
		slog.String("dataset", dataset),
		slog.Int("indexed", len(docs)),
		slog.Int("deleted", len(gone)),
	)
	return len(docs), len(gone), nil
}

// submit adds docs, deletes ids, refreshes the field directory once if any
// document introduced an unknown field, then commits.
func (p *Projector) submit(ctx context.Context, docs []solr.Document, deleteIDs []string) error {
	if len(docs) == 0 && len(deleteIDs) == 0 {
		return nil
	}
	if err := p.fields.ensure(ctx, p.index); err != nil {
		return &IndexError{Op: "fields", Err: err}
	}
	drift := false
	for _, doc := range docs {
		for name := range doc {
			if !p.fields.known(name) {
				drift = true
				break
			}
		}
		if drift {
			break
		}
	}

	if err := p.index.Add(ctx, docs); err != nil {
		return &IndexError{Op: "add", Err: err}
	}
	documentsIndexed.Add(float64(len(docs)))
	if len(deleteIDs) > 0 {
		if err := p.index.DeleteByID(ctx, deleteIDs); err != nil {
			return &IndexError{Op: "delete", Err: err}
		}
	}
	if drift {
		if err := p.fields.refresh(ctx, p.index); err != nil {
			return &IndexError{Op: "fields", Err: err}
		}
		schemaRefreshes.Inc()
	}
	if !p.opts.AutoCommit {
		if err := p.index.Commit(ctx); err != nil {
			return &IndexError{Op: "commit", Err: err}
		}
	}
	return nil
}
