package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
)

const (
	progressFile  = "progress.json"
	formatVersion = 1
)

// TranscriptSuffix ends every transcript file name
const TranscriptSuffix = ".transcript.txt"

type record struct {
	Offset          int64  `json:"offset"`
	TranscriptBytes int64  `json:"transcript_bytes"`
	Transcript      string `json:"transcript"`
	Complete        bool   `json:"complete"`
}

type fileFormat struct {
	Version int                `json:"version"`
	Files   map[string]*record `json:"files"`
}

type implStore struct {
	dir     string
	logger  logger.Logger
	mu      sync.Mutex
	records map[string]*record
}

// New opens the store rooted at dir, creating it if needed
func New(dir string, log logger.Logger) (Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", dir, err)
	}

	s := &implStore{
		dir:     dir,
		logger:  log,
		records: make(map[string]*record),
	}

	data, err := os.ReadFile(filepath.Join(dir, progressFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug(context.Background(), "No progress file in %s, starting fresh", dir)
	case err != nil:
		return nil, fmt.Errorf("read progress file: %w", err)
	default:
		var ff fileFormat
		if err := json.Unmarshal(data, &ff); err != nil {
			return nil, fmt.Errorf("parse progress file: %w", err)
		}
		for path, rec := range ff.Files {
			if rec != nil {
				s.records[path] = rec
			}
		}
		log.Info(context.Background(), "Loaded progress for %d files from %s", len(s.records), dir)
	}

	return s, nil
}
