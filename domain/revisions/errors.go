package revisions

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict marks a published update over a newer unpublished
	// revision.
	ErrConflict = errors.New("a newer unpublished revision exists")
	// ErrBootstrap marks a subject whose pre-existing state could not be
	// read to seed its first revision.
	ErrBootstrap = errors.New("cannot bootstrap revision history")
)

// ConflictError names the subject and the status of its latest revision.
type ConflictError struct {
	Subject  string
	Revision string
	Status   Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: latest revision %s of %s is %s", ErrConflict, e.Revision, e.Subject, e.Status)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// BootstrapError names the subject whose live state could not be read.
type BootstrapError struct {
	Subject string
	Err     error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("%s for %s: %v", ErrBootstrap, e.Subject, e.Err)
}

func (e *BootstrapError) Unwrap() []error { return []error{ErrBootstrap, e.Err} }
