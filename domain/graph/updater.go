package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

// TempGraphPrefix starts the name of every staging graph.
const TempGraphPrefix = "urn:osf:tmp:"

// Store is the subset of triplestore.Store the updater mutates.
type Store interface {
	Insert(ctx context.Context, graph string, d rdf.Description) error
	ReplaceSubjects(ctx context.Context, live, temp string) error
	ReplaceReifications(ctx context.Context, reif, temp string, subjects []string) error
	DeleteReifications(ctx context.Context, reif string, subjects []string) error
	Clear(ctx context.Context, graph string) error
}

// TempGraphs names the staging graphs for one document applied to one
// dataset. The same input always yields the same names.
func TempGraphs(dataset string, document []byte) (instances, reifications string) {
	h := sha256.New()
	h.Write([]byte(dataset))
	h.Write([]byte{0})
	h.Write(document)
	base := TempGraphPrefix + hex.EncodeToString(h.Sum(nil))[:40]
	return base, base + ":reification"
}

// ApplyRequest is one replacement of the live state of some subjects.
type ApplyRequest struct {
	Dataset        string
	Document       []byte
	Description    rdf.Description
	Classification Classification
}

// Updater replaces subjects in the live graph by staging them in a temp
// graph and diff-applying the temp graph in one store mutation.
type Updater struct {
	store Store
	log   *slog.Logger
}

// NewUpdater creates an Updater writing through store.
func NewUpdater(store Store, log *slog.Logger) *Updater {
	return &Updater{
		store: store,
		log:   log.With(logger.Scope("graph.updater")),
	}
}

// Apply stages, diff-applies and then clears the staging graphs. The clear
// runs on every path once staging has begun. Blank nodes are skolemized
// before staging so a re-applied document matches its earlier triples.
func (u *Updater) Apply(ctx context.Context, req ApplyRequest) (err error) {
	tmp, tmpReif := TempGraphs(req.Dataset, req.Document)
	live := req.Dataset
	reifGraph := triplestore.ReificationGraph(req.Dataset)

	desc, skolems := rdf.Skolemize(req.Dataset, req.Description)
	instances := skolemized(req.Classification.Instances, skolems)
	reifications := skolemized(req.Classification.Reifications, skolems)

	defer func() {
		if cerr := u.clear(tmp, tmpReif, len(reifications) > 0); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := u.store.Insert(ctx, tmp, desc.Subset(instances)); err != nil {
		return fmt.Errorf("stage instances: %w", err)
	}
	if err := u.store.ReplaceSubjects(ctx, live, tmp); err != nil {
		return fmt.Errorf("apply instances: %w", err)
	}

	if len(reifications) == 0 {
		if err := u.store.DeleteReifications(ctx, reifGraph, instances); err != nil {
			return fmt.Errorf("drop stale reifications: %w", err)
		}
		return nil
	}

	if err := u.store.Insert(ctx, tmpReif, desc.Subset(reifications)); err != nil {
		return fmt.Errorf("stage reifications: %w", err)
	}
	if err := u.store.ReplaceReifications(ctx, reifGraph, tmpReif, instances); err != nil {
		return fmt.Errorf("apply reifications: %w", err)
	}

	u.log.Debug("live graph updated",
		slog.String("dataset", req.Dataset),
		slog.Int("subjects", len(instances)),
		slog.Int("reifications", len(reifications)),
	)
	return nil
}

func skolemized(subjects []string, skolems map[string]string) []string {
	out := make([]string, len(subjects))
	for i, s := range subjects {
		if iri, ok := skolems[s]; ok {
			s = iri
		}
		out[i] = s
	}
	return out
}

// clear ignores the caller's context so cancellation cannot leak a staging
// graph.
func (u *Updater) clear(tmp, tmpReif string, withReif bool) error {
	ctx := context.Background()
	var errs []error
	if err := u.store.Clear(ctx, tmp); err != nil {
		errs = append(errs, fmt.Errorf("clear staging graph: %w", err))
	}
	if withReif {
		if err := u.store.Clear(ctx, tmpReif); err != nil {
			errs = append(errs, fmt.Errorf("clear staging graph: %w", err))
		}
	}
	if len(errs) > 0 {
		u.log.Warn("staging graph left behind", slog.String("graph", tmp), logger.Error(errors.Join(errs...)))
	}
	return errors.Join(errs...)
}

// ClearStaging removes the staging graphs named for a document. The journal
// sweeper uses it for updates that never finished.
func (u *Updater) ClearStaging(ctx context.Context, graphs []string) error {
	var errs []error
	for _, g := range graphs {
		if err := u.store.Clear(ctx, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
