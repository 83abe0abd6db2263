package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout       = errors.New("operation timed out")
	ErrNavigation    = errors.New("navigation failed")
	ErrEmptyPage     = errors.New("page rendered no content")
	ErrNoDetailURL   = errors.New("card has no detail URL")
	ErrNotFound      = errors.New("not found")
	ErrUnknownSource = errors.New("unknown source")
	ErrRunInProgress = errors.New("a refresh run is already in progress")
	ErrInvalidRecord = errors.New("invalid product record")
)

// FetchError wraps errors that occur while loading a listing or detail page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ExtractError records the extraction state a source failed in.
type ExtractError struct {
	SourceID string
	State    string
	Err      error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract error for %s (state=%s): %v", e.SourceID, e.State, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur in a persistence backend.
// The orchestrator treats it as fatal for the whole run.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the processing pipeline.
type PipelineError struct {
	Stage string
	Item  *RawCandidate
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// IsStorageError reports whether err carries a StorageError anywhere in its chain.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
