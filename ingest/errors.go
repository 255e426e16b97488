package ingest

import (
	"errors"
	"fmt"
)

// ErrorKind says what sort of failure stopped a stage, which tells
// the worker whether running the package again could help.
type ErrorKind string

const (
	// The package itself is bad: malformed, duplicate or dangling
	// ids, branches, lineage conflicts, fixity conflicts. Running it
	// again won't change anything.
	ErrValidation ErrorKind = "validation"

	// Something outside the package failed, such as an external
	// content server or a virus scanner. A later run may succeed.
	ErrTransient ErrorKind = "transient"

	// The archive and the index disagree, or a stored package
	// disagrees with what the archive holds. Needs an operator.
	ErrConsistency ErrorKind = "consistency"

	// The stage itself is misconfigured.
	ErrConfiguration ErrorKind = "configuration"
)

// IngestServiceError is returned by every stage that fails.
type IngestServiceError struct {
	Stage      string
	PackageRef string
	Kind       ErrorKind
	Message    string
	Err        error
}

func (err *IngestServiceError) Error() string {
	msg := fmt.Sprintf("%s failed for package %s: %s", err.Stage, err.PackageRef, err.Message)
	if err.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err.Err)
	}
	return msg
}

func (err *IngestServiceError) Unwrap() error {
	return err.Err
}

// Retry returns true if running the package through the pipeline
// again might succeed.
func (err *IngestServiceError) Retry() bool {
	return err.Kind == ErrTransient
}

func newError(stage, ref string, kind ErrorKind, cause error, format string, a ...interface{}) *IngestServiceError {
	return &IngestServiceError{
		Stage:      stage,
		PackageRef: ref,
		Kind:       kind,
		Message:    fmt.Sprintf(format, a...),
		Err:        cause,
	}
}

// AsIngestServiceError returns err as an *IngestServiceError, or nil
// if it isn't one.
func AsIngestServiceError(err error) *IngestServiceError {
	var ingestErr *IngestServiceError
	if errors.As(err, &ingestErr) {
		return ingestErr
	}
	return nil
}

// IsRetryable returns true for transient stage errors and for errors
// that aren't stage errors at all, which usually come from the local
// database or file system.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ingestErr := AsIngestServiceError(err); ingestErr != nil {
		return ingestErr.Retry()
	}
	return true
}
