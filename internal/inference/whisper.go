package inference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/pkg/executor"
)

// WhisperConfig configures the whisper.cpp command-line recognizer
type WhisperConfig struct {
	BinaryPath string
	ModelPath  string
	Language   string
	Prompt     string
	Threads    int
	SampleRate int
	TempDir    string
}

type implWhisper struct {
	cfg      WhisperConfig
	executor executor.Executor
	logger   logger.Logger
}

// NewWhisper creates a Recognizer that shells out to whisper.cpp per chunk
func NewWhisper(cfg WhisperConfig, exec executor.Executor, log logger.Logger) Recognizer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}
	if cfg.Language == "" {
		cfg.Language = "auto"
	}
	return &implWhisper{cfg: cfg, executor: exec, logger: log}
}

// Transcribe writes the chunk to a temporary WAV and runs whisper on it
func (w *implWhisper) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	wav, err := EncodeWAV(samples, w.cfg.SampleRate)
	if err != nil {
		return "", fmt.Errorf("encode chunk: %w", err)
	}

	tempDir, err := os.MkdirTemp(w.cfg.TempDir, "chunk-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	chunkPath := filepath.Join(tempDir, "chunk.wav")
	if err := os.WriteFile(chunkPath, wav, 0644); err != nil {
		return "", fmt.Errorf("write chunk: %w", err)
	}

	// -nt: no timestamps, plain text on stdout
	// -np: suppress everything except the result
	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", chunkPath,
		"-l", w.cfg.Language,
		"-t", strconv.Itoa(w.cfg.Threads),
		"-nt",
		"-np",
	}
	if w.cfg.Prompt != "" {
		args = append(args, "--prompt", w.cfg.Prompt)
	}

	out, err := w.executor.Execute(ctx, w.cfg.BinaryPath, args...)
	if err != nil {
		return "", fmt.Errorf("whisper transcribe: %w", err)
	}

	text := normalizeWhisperOutput(out)
	w.logger.Debug(ctx, "Whisper chunk (%d samples): %q", len(samples), text)
	return text, nil
}

// normalizeWhisperOutput joins whisper's per-segment lines into one line
// and drops the bracketed non-speech markers it emits for silence.
func normalizeWhisperOutput(out string) string {
	var parts []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "[BLANK_AUDIO]" || line == "[SILENCE]" {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}
