package transcribe

import (
	"github.com/nguyentantai21042004/folder-scribe/internal/extract"
	"github.com/nguyentantai21042004/folder-scribe/internal/inference"
	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/internal/metrics"
	"github.com/nguyentantai21042004/folder-scribe/internal/progress"
)

// DefaultChunkSamples is five seconds of 16kHz audio
const DefaultChunkSamples = 5 * 16000

type implEngine struct {
	chunkSamples int
	extractor    extract.Extractor
	recognizer   inference.Recognizer
	store        progress.Store
	metrics      *metrics.Metrics
	logger       logger.Logger
}

// New creates an Engine splitting audio into chunks of chunkSamples samples
func New(chunkSamples int, ex extract.Extractor, rec inference.Recognizer, store progress.Store, m *metrics.Metrics, log logger.Logger) Engine {
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}
	return &implEngine{
		chunkSamples: chunkSamples,
		extractor:    ex,
		recognizer:   rec,
		store:        store,
		metrics:      m,
		logger:       log,
	}
}
