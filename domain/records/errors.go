package records

import (
	"errors"
	"net/http"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/revisions"
	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/search"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/apperror"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/solr"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/sparql"
)

var (
	ErrMalformedInput    = apperror.New(http.StatusBadRequest, "malformed_input", "The request or its document is malformed")
	ErrLifecycleConflict = apperror.New(http.StatusConflict, "lifecycle_conflict", "The lifecycle stage conflicts with the revision history")
	ErrBootstrapFailed   = apperror.New(http.StatusInternalServerError, "bootstrap_failed", "Cannot read the current state needed to start the revision history")
	ErrStore             = apperror.New(http.StatusBadGateway, "store_error", "The triple store rejected the operation")
	ErrIndex             = apperror.New(http.StatusBadGateway, "index_error", "The search index rejected the submission")
)

// classify maps a pipeline error onto one of the error kinds.
func classify(err error) *apperror.Error {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}

	var conflict *revisions.ConflictError
	if errors.As(err, &conflict) {
		return ErrLifecycleConflict.WithMessage(conflict.Error()).WithInternal(err).WithDetails(map[string]any{
			"subject":  conflict.Subject,
			"revision": conflict.Revision,
			"status":   string(conflict.Status),
		})
	}
	if errors.Is(err, revisions.ErrBootstrap) {
		return ErrBootstrapFailed.WithInternal(err).WithDetails(map[string]any{"cause": err.Error()})
	}

	var ie *search.IndexError
	if errors.As(err, &ie) {
		return ErrIndex.WithInternal(err).WithDetails(map[string]any{"cause": cause(ie.Err)})
	}
	return ErrStore.WithInternal(err).WithDetails(map[string]any{"cause": cause(err)})
}

// cause is the collaborator's own error text when there is one.
func cause(err error) string {
	var se *solr.Error
	if errors.As(err, &se) {
		return se.Msg
	}
	var qe *sparql.Error
	if errors.As(err, &qe) {
		return qe.Body
	}
	return err.Error()
}
