package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the pipeline
type Metrics struct {
	// Watcher
	FilesDiscovered prometheus.Counter
	ScanErrors      prometheus.Counter
	Scans           prometheus.Counter

	// Queue
	JobsSubmitted prometheus.Counter
	JobsFinished  *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	JobDuration   prometheus.Histogram

	// Engine
	ChunksTranscribed  prometheus.Counter
	ChunksSkipped      prometheus.Counter
	InferenceDuration  prometheus.Histogram
	ExtractionDuration prometheus.Histogram

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FilesDiscovered: f.NewCounter(prometheus.CounterOpts{
			Name: "scribe_files_discovered_total",
			Help: "Total number of media files discovered under the watched root",
		}),
		ScanErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "scribe_scan_errors_total",
			Help: "Total number of failed directory enumerations",
		}),
		Scans: f.NewCounter(prometheus.CounterOpts{
			Name: "scribe_scans_total",
			Help: "Total number of directory enumerations",
		}),

		JobsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "scribe_jobs_submitted_total",
			Help: "Total number of jobs accepted into the queue",
		}),
		JobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal phase",
		}, []string{"result"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "scribe_queue_depth",
			Help: "Current number of pending jobs",
		}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_job_duration_seconds",
			Help:    "Wall time of one transcription job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5h
		}),

		ChunksTranscribed: f.NewCounter(prometheus.CounterOpts{
			Name: "scribe_chunks_transcribed_total",
			Help: "Total number of chunks transcribed and committed",
		}),
		ChunksSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "scribe_chunks_skipped_total",
			Help: "Total number of chunks skipped because a saved offset covered them",
		}),
		InferenceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_inference_duration_seconds",
			Help:    "Time spent in one inference call",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}),
		ExtractionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_extraction_duration_seconds",
			Help:    "Time spent decoding one media file",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scribe_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordJob records the terminal result of a job and its duration
func (m *Metrics) RecordJob(result string, started time.Time) {
	m.JobsFinished.WithLabelValues(result).Inc()
	m.JobDuration.Observe(time.Since(started).Seconds())
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
