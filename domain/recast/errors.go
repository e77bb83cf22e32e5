package recast

import (
	"errors"
	"fmt"
	"io/fs"
)

// Failure taxonomy of the CLs computation
var (
	// Malformed info file or cutflow: the analysis is skipped
	ErrParseFailure = errors.New("parse failure")
	// Info file or cutflow absent: the analysis is skipped
	ErrMissingFile = errors.New("missing file")
	// Info file or cutflow present but unreadable: the analysis is skipped
	ErrReadFailure = errors.New("read failure")
	// Toy sampling unavailable: CLs is skipped for the whole run
	ErrCapabilityUnavailable = errors.New("toy sampling capability unavailable")
	// Root finder could not bracket or converge: the region gets a -1 limit
	ErrSolverFailure = errors.New("solver failure")
)

// NewParseError reports a malformed input document
func NewParseError(source, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrParseFailure, source, reason)
}

// NewMissingFileError reports an input file that does not exist
func NewMissingFileError(kind, path string) error {
	return fmt.Errorf("%w: %s %s", ErrMissingFile, kind, path)
}

// NewReadError reports an input file that exists but cannot be read. The
// path is named once even when cause is a *fs.PathError.
func NewReadError(kind, path string, cause error) error {
	var pathErr *fs.PathError
	if errors.As(cause, &pathErr) {
		cause = pathErr.Err
	}
	return fmt.Errorf("%w: %s %s: %v", ErrReadFailure, kind, path, cause)
}

// NewSolverError reports a root-finding failure for a region
func NewSolverError(region, reason string) error {
	return fmt.Errorf("%w for region %s: %s", ErrSolverFailure, region, reason)
}

// IsSkippable reports whether err only invalidates the current analysis
func IsSkippable(err error) bool {
	return errors.Is(err, ErrParseFailure) ||
		errors.Is(err, ErrMissingFile) ||
		errors.Is(err, ErrReadFailure)
}

// IsCapabilityError reports whether err means toy sampling cannot run at all
func IsCapabilityError(err error) bool {
	return errors.Is(err, ErrCapabilityUnavailable)
}
