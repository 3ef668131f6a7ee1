package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Run transcribes path chunk by chunk, committing each before the next
func (e *implEngine) Run(ctx context.Context, path string, progress chan<- float64) (string, error) {
	startTime := time.Now()
	name := filepath.Base(path)

	// Step 1: Resume point
	offset, err := e.store.Load(path)
	if err != nil {
		return "", &Error{Kind: KindPersistence, Path: path, Err: fmt.Errorf("load progress: %w", err)}
	}

	// Step 2: Decode the whole file; this step is not checkpointed
	extractStart := time.Now()
	samples, err := e.extractor.Extract(ctx, path)
	if err != nil {
		return "", &Error{Kind: KindExtraction, Path: path, Err: err}
	}
	e.metrics.ExtractionDuration.Observe(time.Since(extractStart).Seconds())

	total := int64(len(samples))
	if offset > total {
		e.logger.Warn(ctx, "Saved offset %d is past the end of %s (%d samples), starting over", offset, name, total)
		offset = 0
	}
	if offset == 0 {
		if err := e.store.Reset(path); err != nil {
			return "", &Error{Kind: KindPersistence, Path: path, Err: fmt.Errorf("reset progress: %w", err)}
		}
	}

	// Step 3: Fixed-size chunk grid
	chunks := chunkCount(len(samples), e.chunkSamples)
	if chunks == 0 {
		e.logger.Info(ctx, "No audio in %s, nothing to transcribe", name)
		if err := e.store.MarkComplete(path); err != nil {
			return "", &Error{Kind: KindPersistence, Path: path, Err: err}
		}
		e.report(ctx, progress, 1)
		return "", nil
	}

	// Step 4: Sequential inference, one commit per chunk
	completed := 0
	resumed := offset == 0
	for i := 0; i < chunks; i++ {
		start := int64(i * e.chunkSamples)
		end := min(start+int64(e.chunkSamples), total)

		if end <= offset {
			completed++
			e.metrics.ChunksSkipped.Inc()
			continue
		}
		if start < offset {
			// Offset saved with a different chunk size; pick up mid-chunk
			start = offset
		}
		if !resumed {
			resumed = true
			e.logger.Info(ctx, "Resuming %s at chunk %d/%d (sample %d)", name, i+1, chunks, start)
			if completed > 0 {
				e.report(ctx, progress, float64(completed)/float64(chunks))
			}
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		inferStart := time.Now()
		text, err := e.recognizer.Transcribe(ctx, samples[start:end])
		e.metrics.InferenceDuration.Observe(time.Since(inferStart).Seconds())
		if err != nil {
			return "", &Error{Kind: KindInference, Path: path, Chunk: i + 1, Total: chunks, Err: err}
		}

		if err := e.store.Commit(path, segment(text), end); err != nil {
			return "", &Error{Kind: KindPersistence, Path: path, Chunk: i + 1, Total: chunks, Err: err}
		}
		e.metrics.ChunksTranscribed.Inc()

		completed++
		e.logger.Debug(ctx, "Chunk %d/%d of %s committed at sample %d", i+1, chunks, name, end)
		e.report(ctx, progress, float64(completed)/float64(chunks))
	}

	if !resumed {
		// Every chunk was already committed before a restart
		e.logger.Info(ctx, "All %d chunks of %s already committed", chunks, name)
		e.report(ctx, progress, 1)
	}

	// Step 5: Final transcript is whatever has been committed
	if err := e.store.MarkComplete(path); err != nil {
		return "", &Error{Kind: KindPersistence, Path: path, Err: err}
	}
	transcript, _, err := e.store.ReadTranscript(path)
	if err != nil {
		return "", &Error{Kind: KindPersistence, Path: path, Err: fmt.Errorf("read transcript: %w", err)}
	}

	e.logger.Info(ctx, "Transcribed %s: %d chunks in %s", name, chunks, time.Since(startTime).Round(time.Millisecond))
	return transcript, nil
}

func (e *implEngine) report(ctx context.Context, progress chan<- float64, value float64) {
	if progress == nil {
		return
	}
	select {
	case progress <- value:
	case <-ctx.Done():
	}
}

func chunkCount(samples, size int) int {
	return (samples + size - 1) / size
}

// segment is the stored form of one chunk's text: a trimmed line, or
// nothing when the chunk produced no speech.
func segment(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return text + "\n"
}
