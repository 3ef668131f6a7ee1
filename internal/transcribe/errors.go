package transcribe

import (
	"errors"
	"fmt"
)

// Kind classifies a failed run
type Kind string

const (
	// KindExtraction: the media could not be decoded. Retrying repeats extraction.
	KindExtraction Kind = "extraction"
	// KindInference: a chunk failed. Retrying resumes after the last committed chunk.
	KindInference Kind = "inference"
	// KindPersistence: progress or transcript could not be stored
	KindPersistence Kind = "persistence"
)

// Error is returned by Engine.Run for any job-level failure
type Error struct {
	Kind  Kind
	Path  string
	Chunk int // 1-based chunk number, 0 when not chunk-specific
	Total int
	Err   error
}

func (e *Error) Error() string {
	if e.Chunk > 0 {
		return fmt.Sprintf("%s failed on chunk %d/%d: %v", e.Kind, e.Chunk, e.Total, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
