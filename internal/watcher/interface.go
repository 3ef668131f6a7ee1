package watcher

import (
	"context"
	"errors"
)

// ErrDiscovery wraps failures to enumerate the watched tree
var ErrDiscovery = errors.New("discovery failed")

// Watcher reports each supported media file under a root exactly once
type Watcher interface {
	// SetRoot replaces the watched tree, forgetting every file seen so far,
	// and scans it immediately.
	SetRoot(ctx context.Context, root string) error
	// Files returns the supported media files currently under the root, sorted
	Files() []string
	// Start processes filesystem events until ctx is done
	Start(ctx context.Context) error
	// Stop closes the underlying filesystem watcher
	Stop() error
}

// EventHandler is called once per newly discovered file
type EventHandler func(ctx context.Context, filePath string) error
