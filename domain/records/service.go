// Package records runs the update pipeline of a dataset's records and
// serves reads of live records and their revisions.
package records

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/graph"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/revisions"
	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/apperror"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/kvcache"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/tracing"
)

// Cache namespaces invalidated after every update.
const (
	NamespaceRecordRead   = "record-read"
	NamespaceRevisionRead = "revision-read"
	NamespaceRevisionList = "revision-list"
	NamespaceSearch       = "search"
	NamespaceQuery        = "query"
)

var Namespaces = []string{
	NamespaceRecordRead,
	NamespaceRevisionRead,
	NamespaceRevisionList,
	NamespaceSearch,
	NamespaceQuery,
}

// Reviser records revisions.
type Reviser interface {
	Revise(ctx context.Context, req revisions.Request) ([]revisions.Revision, error)
	History(ctx context.Context, dataset, subject string) ([]triplestore.RevisionHead, error)
}

// Applier replaces subjects in the live and reification graphs.
type Applier interface {
	Apply(ctx context.Context, req graph.ApplyRequest) error
}

// Indexer projects records into the search index.
type Indexer interface {
	Project(ctx context.Context, dataset string, d rdf.Description, subjects []string) (int, error)
	Reindex(ctx context.Context, dataset string, subjects []string) (indexed, deleted int, err error)
}

// Reader reads live records and revision records.
type Reader interface {
	Read(ctx context.Context, dataset, subject string) (rdf.Description, error)
	ReadGraph(ctx context.Context, graph, subject string) (rdf.Description, error)
}

// UpdateRequest is one call of the update pipeline.
type UpdateRequest struct {
	Dataset        string
	Document       []byte
	MediaType      string
	Lifecycle      string
	CreateRevision bool
	Performer      string
}

// UpdateResult reports what an update wrote.
type UpdateResult struct {
	JournalID uuid.UUID            `json:"journal_id"`
	Revisions []revisions.Revision `json:"revisions"`
	Indexed   int                  `json:"indexed"`
}

// Options configure the service.
type Options struct {
	MaxDocumentSize int64
	CacheTTL        time.Duration
}

// Service runs the update pipeline and serves record reads.
type Service struct {
	revisions Reviser
	applier   Applier
	indexer   Indexer
	reader    Reader
	journal   Journal
	locker    Locker
	cache     kvcache.Cache
	opts      Options
	log       *slog.Logger
}

// NewService creates a Service from its collaborators.
func NewService(
	reviser Reviser,
	applier Applier,
	indexer Indexer,
	reader Reader,
	journal Journal,
	locker Locker,
	cache kvcache.Cache,
	opts Options,
	log *slog.Logger,
) *Service {
	return &Service{
		revisions: reviser,
		applier:   applier,
		indexer:   indexer,
		reader:    reader,
		journal:   journal,
		locker:    locker,
		cache:     cache,
		opts:      opts,
		log:       log.With(logger.Scope("records.svc")),
	}
}

// Update runs parse, classify, revise, apply, index and invalidate. The
// first failure stops the call; completed steps are not undone, and the
// journal entry records how far the call got.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (res *UpdateResult, err error) {
	ctx, span := tracing.Start(ctx, "records.update",
		attribute.String("osf.dataset", req.Dataset),
		attribute.String("osf.lifecycle", req.Lifecycle),
		attribute.Bool("osf.revision", req.CreateRevision),
	)
	defer span.End()

	lifecycleLabel := "invalid"
	defer func() {
		outcome := "ok"
		if err != nil {
			appErr := classify(err)
			err = appErr
			outcome = appErr.Code
			tracing.Fail(span, err)
		}
		updates.WithLabelValues(lifecycleLabel, outcome).Inc()
	}()

	if err := s.validate(req); err != nil {
		return nil, err
	}
	lifecycle, err := revisions.ParseStatus(req.Lifecycle)
	if err != nil {
		return nil, ErrLifecycleConflict.WithMessage(err.Error())
	}
	lifecycleLabel = string(lifecycle)

	d, err := rdf.Parse(req.Dataset, req.Document, req.MediaType)
	if err != nil {
		return nil, ErrMalformedInput.WithMessage("cannot parse document").WithInternal(err).WithDetails(map[string]any{"cause": err.Error()})
	}
	if len(d) == 0 {
		return nil, ErrMalformedInput.WithMessage("document has no statements")
	}
	class := graph.Classify(d)

	release, err := s.locker.Lock(ctx, req.Dataset)
	if err != nil {
		return nil, apperror.ErrDatabase.WithMessage("cannot lock dataset").WithInternal(err)
	}
	defer func() {
		if rerr := release(); rerr != nil {
			s.log.Warn("dataset lock release failed", slog.String("dataset", req.Dataset), logger.Error(rerr))
		}
	}()

	tmp, tmpReif := graph.TempGraphs(req.Dataset, req.Document)
	hash := sha256.Sum256(req.Document)
	entry := &JournalEntry{
		ID:           uuid.New(),
		Dataset:      req.Dataset,
		DocumentHash: hex.EncodeToString(hash[:]),
		Lifecycle:    string(lifecycle),
		Performer:    req.Performer,
		Stage:        StageReceived,
		TempGraphs:   []string{tmp, tmpReif},
	}
	if err := s.journal.Begin(ctx, entry); err != nil {
		return nil, apperror.ErrDatabase.WithMessage("cannot journal update").WithInternal(err)
	}
	defer func() {
		if err == nil {
			return
		}
		if jerr := s.journal.Fail(context.Background(), entry.ID, err); jerr != nil {
			s.log.Warn("journal entry not marked failed", slog.String("journal_id", entry.ID.String()), logger.Error(jerr))
		}
	}()

	res = &UpdateResult{JournalID: entry.ID, Revisions: []revisions.Revision{}}

	if req.CreateRevision {
		err := s.step(ctx, "revise", func(ctx context.Context) error {
			revs, err := s.revisions.Revise(ctx, revisions.Request{
				Dataset:        req.Dataset,
				Description:    d,
				Classification: class,
				Lifecycle:      lifecycle,
				Performer:      req.Performer,
			})
			res.Revisions = append(res.Revisions, revs...)
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := s.advance(ctx, entry.ID, StageRevised); err != nil {
			return nil, err
		}
	}

	if lifecycle == revisions.Published || !req.CreateRevision {
		err := s.step(ctx, "apply", func(ctx context.Context) error {
			return s.applier.Apply(ctx, graph.ApplyRequest{
				Dataset:        req.Dataset,
				Document:       req.Document,
				Description:    d,
				Classification: class,
			})
		})
		if err != nil {
			return nil, err
		}
		if err := s.advance(ctx, entry.ID, StageApplied); err != nil {
			return nil, err
		}

		err = s.step(ctx, "index", func(ctx context.Context) error {
			n, err := s.indexer.Project(ctx, req.Dataset, d, class.Addressable())
			res.Indexed = n
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := s.advance(ctx, entry.ID, StageIndexed); err != nil {
			return nil, err
		}
	}

	s.invalidate(ctx, Namespaces...)
	if err := s.advance(ctx, entry.ID, StageCompleted); err != nil {
		return nil, err
	}

	s.log.Info("records updated",
		slog.String("dataset", req.Dataset),
		slog.String("journal_id", entry.ID.String()),
		slog.String("lifecycle", string(lifecycle)),
		slog.Int("subjects", len(class.Instances)),
		slog.Int("revisions", len(res.Revisions)),
		slog.Int("indexed", res.Indexed),
	)
	return res, nil
}

func (s *Service) validate(req UpdateRequest) error {
	if req.Dataset == "" {
		return ErrMalformedInput.WithMessage("dataset is required")
	}
	if u, err := url.Parse(req.Dataset); err != nil || !u.IsAbs() {
		return ErrMalformedInput.WithMessage(fmt.Sprintf("dataset %q is not an absolute URI", req.Dataset))
	}
	if len(req.Document) == 0 {
		return ErrMalformedInput.WithMessage("document is required")
	}
	if s.opts.MaxDocumentSize > 0 && int64(len(req.Document)) > s.opts.MaxDocumentSize {
		return ErrMalformedInput.WithMessage(fmt.Sprintf("document exceeds %d bytes", s.opts.MaxDocumentSize))
	}
	return nil
}

func (s *Service) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.Start(ctx, "records."+name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	stepSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
	tracing.Fail(span, err)
	return err
}

func (s *Service) advance(ctx context.Context, id uuid.UUID, stage Stage) error {
	if err := s.journal.Advance(ctx, id, stage); err != nil {
		return apperror.ErrDatabase.WithMessage("cannot journal update").WithInternal(err)
	}
	return nil
}

// invalidate is best effort. Entries it fails to invalidate expire with
// their TTL.
func (s *Service) invalidate(ctx context.Context, namespaces ...string) {
	if err := kvcache.Invalidate(ctx, s.cache, namespaces...); err != nil {
		invalidationFailures.Inc()
		s.log.Warn("cache invalidation failed", slog.Any("namespaces", namespaces), logger.Error(err))
	}
}

// Read returns the N-Triples of a live record with its reification
// statements.
func (s *Service) Read(ctx context.Context, dataset, uri string) ([]byte, error) {
	return s.cached(ctx, NamespaceRecordRead, dataset, uri, func(ctx context.Context) ([]byte, error) {
		d, err := s.reader.Read(ctx, dataset, uri)
		if err != nil {
			return nil, err
		}
		return rdf.SerializeNTriples(d)
	})
}

// Revisions returns the JSON list of a record's revisions, newest first.
func (s *Service) Revisions(ctx context.Context, dataset, uri string) ([]byte, error) {
	return s.cached(ctx, NamespaceRevisionList, dataset, uri, func(ctx context.Context) ([]byte, error) {
		heads, err := s.revisions.History(ctx, dataset, uri)
		if err != nil {
			return nil, err
		}
		if len(heads) == 0 {
			return nil, triplestore.ErrNotFound
		}
		return json.Marshal(heads)
	})
}

// RevisionRead returns the N-Triples of one revision record.
func (s *Service) RevisionRead(ctx context.Context, dataset, revision string) ([]byte, error) {
	return s.cached(ctx, NamespaceRevisionRead, dataset, revision, func(ctx context.Context) ([]byte, error) {
		d, err := s.reader.ReadGraph(ctx, triplestore.RevisionGraph(dataset), revision)
		if err != nil {
			return nil, err
		}
		return rdf.SerializeNTriples(d)
	})
}

// Reindex re-projects subjects from the live graph.
func (s *Service) Reindex(ctx context.Context, dataset string, subjects []string) (indexed, deleted int, err error) {
	if dataset == "" || len(subjects) == 0 {
		return 0, 0, ErrMalformedInput.WithMessage("dataset and at least one uri are required")
	}
	indexed, deleted, err = s.indexer.Reindex(ctx, dataset, subjects)
	if err != nil {
		return 0, 0, classify(err)
	}
	s.invalidate(ctx, NamespaceSearch)
	return indexed, deleted, nil
}

// cached serves key from the namespace ns when present, else fills it. A
// cache that cannot be reached is bypassed.
func (s *Service) cached(ctx context.Context, ns, dataset, id string, fill func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if dataset == "" || id == "" {
		return nil, ErrMalformedInput.WithMessage("dataset and uri are required")
	}
	key, kerr := kvcache.NamespacedKey(ctx, s.cache, ns, dataset+"\x00"+id)
	if kerr == nil {
		if b, err := s.cache.Get(ctx, key); err == nil {
			return b, nil
		} else if !errors.Is(err, kvcache.ErrMiss) {
			s.log.Warn("cache read failed", slog.String("namespace", ns), logger.Error(err))
		}
	}

	b, err := fill(ctx)
	if errors.Is(err, triplestore.ErrNotFound) {
		return nil, apperror.NewNotFound("record", id)
	}
	if err != nil {
		return nil, classify(err)
	}

	if kerr == nil {
		if err := s.cache.Set(ctx, key, b, s.opts.CacheTTL); err != nil {
			s.log.Warn("cache write failed", slog.String("namespace", ns), logger.Error(err))
		}
	}
	return b, nil
}
