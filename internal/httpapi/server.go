package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/internal/media"
	"github.com/nguyentantai21042004/folder-scribe/internal/metrics"
	"github.com/nguyentantai21042004/folder-scribe/internal/queue"
)

// FileLister returns the media files currently discovered
type FileLister interface {
	Files() []string
}

// FileEntry is one row of the /files listing
type FileEntry struct {
	Path  string          `json:"path"`
	Name  string          `json:"name"`
	State queue.FileState `json:"state"`
}

// Server serves the observer endpoints
type Server struct {
	server    *http.Server
	scheduler queue.Scheduler
	files     FileLister
	gatherer  prometheus.Gatherer
	metrics   *metrics.Metrics
	logger    logger.Logger
	startTime time.Time
}

// New creates a Server listening on addr. files may be nil.
func New(addr string, sched queue.Scheduler, files FileLister, gatherer prometheus.Gatherer, m *metrics.Metrics, log logger.Logger) *Server {
	s := &Server{
		scheduler: sched,
		files:     files,
		gatherer:  gatherer,
		metrics:   m,
		logger:    log,
		startTime: time.Now(),
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/files", s.withMetrics("/files", s.handleFiles))
	mux.HandleFunc("/files/status", s.withMetrics("/files/status", s.handleStatus))
	mux.HandleFunc("/files/submit", s.withMetrics("/files/submit", s.handleSubmit))
	mux.HandleFunc("/queue/clear", s.withMetrics("/queue/clear", s.handleClear))
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start serves in the background until Stop
func (s *Server) Start(ctx context.Context) {
	s.logger.Info(ctx, "Starting HTTP server on %s", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "HTTP server error: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info(ctx, "Stopping HTTP server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)
		s.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), time.Since(started))
	}
}

// responseWriter captures the status code for metrics
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startTime).String(),
		"pending":   s.scheduler.Pending(),
	})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	states := s.scheduler.Snapshot()
	if s.files != nil {
		for _, path := range s.files.Files() {
			if _, ok := states[path]; !ok {
				states[path] = s.scheduler.Status(path)
			}
		}
	}

	entries := make([]FileEntry, 0, len(states))
	for path, st := range states {
		entries = append(entries, FileEntry{Path: path, Name: displayName(path), State: st})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"total":   len(entries),
		"pending": s.scheduler.Pending(),
		"files":   entries,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	s.writeJSON(w, r, http.StatusOK, s.scheduler.Status(path))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	if !media.IsSupported(path) {
		http.Error(w, "unsupported media type", http.StatusBadRequest)
		return
	}
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	st, err := s.scheduler.Submit(r.Context(), path)
	if err != nil {
		s.logger.Error(r.Context(), "Submit %s failed: %v", path, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, r, http.StatusAccepted, st)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.scheduler.Clear()
	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{"pending": s.scheduler.Pending()})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug(r.Context(), "Write response for %s failed: %v", r.URL.Path, err)
	}
}

func displayName(path string) string {
	if f, err := media.New(path); err == nil {
		return f.Name
	}
	return path
}
