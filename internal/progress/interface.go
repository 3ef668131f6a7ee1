// Package progress persists per-file transcription progress and transcript text.
//
// Layout under the state directory:
//
//	progress.json             offsets for every file, rewritten atomically
//	<name>.transcript.txt     append-only transcript text, one per file
//
// Each offset is stored together with the transcript length it was committed
// with. A transcript found longer than that length (the process died between
// the append and the offset write) is truncated back on Load, so the chunk is
// inferred again and its text is never stored twice.
package progress

// Store is the durable progress and transcript store.
// Only one writer per file is expected at a time.
type Store interface {
	// Load returns the last completed sample offset for path, 0 if none
	Load(path string) (int64, error)
	// Save records offset for path. Offsets never decrease short of Reset.
	Save(path string, offset int64) error
	// AppendTranscript durably appends text to the transcript of path
	AppendTranscript(path, text string) error
	// ReadTranscript returns the committed transcript of path, false if absent
	ReadTranscript(path string) (string, bool, error)
	// Commit appends text and then saves offset
	Commit(path, text string, offset int64) error
	// MarkComplete flags the transcript of path as finished
	MarkComplete(path string) error
	// Completed reports whether a finished transcript exists for path
	Completed(path string) (bool, error)
	// Reset drops the offset and transcript of path
	Reset(path string) error
	// TranscriptName is the file name, unique per path, under which the
	// transcript of path is or would be stored
	TranscriptName(path string) string
}
