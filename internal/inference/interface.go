// Package inference turns chunks of normalized audio into text.
//
// Recognizers are not safe for concurrent use. The scheduler guarantees a
// single caller at a time.
package inference

import "context"

// Recognizer transcribes one bounded chunk of mono float32 samples
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32) (string, error)
}
