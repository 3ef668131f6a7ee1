package watcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/internal/metrics"
)

// Options tunes a Watcher
type Options struct {
	// SkipDir is a folder name under the root that is never scanned
	SkipDir string
	// SettleDelay coalesces bursts of events into one rescan
	SettleDelay time.Duration
}

type implWatcher struct {
	handler EventHandler
	logger  logger.Logger
	metrics *metrics.Metrics
	watcher *fsnotify.Watcher
	opts    Options

	// mu guards root, current, seen and watched
	mu      sync.Mutex
	root    string
	current map[string]bool
	seen    map[string]bool
	watched map[string]bool
}

// New creates a Watcher with no root. Call SetRoot before Start.
func New(handler EventHandler, log logger.Logger, m *metrics.Metrics, opts Options) (Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 500 * time.Millisecond
	}

	return &implWatcher{
		handler: handler,
		logger:  log,
		metrics: m,
		watcher: watcher,
		opts:    opts,
		current: make(map[string]bool),
		seen:    make(map[string]bool),
		watched: make(map[string]bool),
	}, nil
}
