package queue

import (
	"sync"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/internal/metrics"
	"github.com/nguyentantai21042004/folder-scribe/internal/progress"
	"github.com/nguyentantai21042004/folder-scribe/internal/transcribe"
)

type implScheduler struct {
	engine   transcribe.Engine
	store    progress.Store
	exporter Exporter
	metrics  *metrics.Metrics
	logger   logger.Logger

	// mu guards states, pending and subscribers
	mu          sync.Mutex
	states      map[string]*FileState
	pending     []Job
	subscribers map[int]chan Update
	nextSub     int

	wake chan struct{}
}

// New creates a Scheduler. exporter may be nil.
func New(engine transcribe.Engine, store progress.Store, exporter Exporter, m *metrics.Metrics, log logger.Logger) Scheduler {
	return &implScheduler{
		engine:      engine,
		store:       store,
		exporter:    exporter,
		metrics:     m,
		logger:      log,
		states:      make(map[string]*FileState),
		subscribers: make(map[int]chan Update),
		wake:        make(chan struct{}, 1),
	}
}
