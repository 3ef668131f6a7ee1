// Package transcribe drives one media file through extraction, chunking and
// sequential inference, committing each chunk before starting the next.
package transcribe

import "context"

// Engine transcribes a single file, resuming from its last committed chunk.
//
// Run sends fractional progress values in [0, 1] on progress (which may be
// nil) and returns the full transcript. The final value sent on success is 1.
// Engines are not reentrant.
type Engine interface {
	Run(ctx context.Context, path string, progress chan<- float64) (string, error)
}
