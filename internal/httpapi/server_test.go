package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/internal/metrics"
	"github.com/nguyentantai21042004/folder-scribe/internal/progress"
	"github.com/nguyentantai21042004/folder-scribe/internal/queue"
)

type idleEngine struct{}

func (idleEngine) Run(ctx context.Context, path string, p chan<- float64) (string, error) {
	return "", nil
}

type staticFiles []string

func (f staticFiles) Files() []string { return f }

type fixture struct {
	handler http.Handler
	sched   queue.Scheduler
	dir     string
}

// newFixture builds a server whose scheduler has no worker running, so
// submitted files stay queued.
func newFixture(t *testing.T, files ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := progress.New(filepath.Join(dir, ".transcripts"), logger.Discard())
	if err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sched := queue.New(idleEngine{}, store, nil, m, logger.Discard())

	var listed staticFiles
	for _, name := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
			t.Fatal(err)
		}
		listed = append(listed, path)
	}

	srv := New("127.0.0.1:0", sched, listed, reg, m, logger.Discard())
	return &fixture{handler: srv.Handler(), sched: sched, dir: dir}
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) queue.FileState {
	t.Helper()
	var st queue.FileState
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return st
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	if rec := f.do(http.MethodPost, "/health"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health = %d, want 405", rec.Code)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, "talk.mp4", "notes.txt")

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"missing path", http.MethodPost, "/files/submit", http.StatusBadRequest},
		{"unsupported extension", http.MethodPost, "/files/submit?path=" + filepath.Join(f.dir, "notes.txt"), http.StatusBadRequest},
		{"file not found", http.MethodPost, "/files/submit?path=" + filepath.Join(f.dir, "gone.mp4"), http.StatusNotFound},
		{"wrong method", http.MethodGet, "/files/submit?path=" + filepath.Join(f.dir, "talk.mp4"), http.StatusMethodNotAllowed},
		{"accepted", http.MethodPost, "/files/submit?path=" + filepath.Join(f.dir, "talk.mp4"), http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(tt.method, tt.target); rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.target, rec.Code, tt.want)
			}
		})
	}
}

func TestSubmitThenStatus(t *testing.T) {
	f := newFixture(t, "talk.mp4")
	path := filepath.Join(f.dir, "talk.mp4")

	rec := f.do(http.MethodPost, "/files/submit?path="+path)
	if st := decodeState(t, rec); st.Phase != queue.PhaseQueued || st.JobID == "" {
		t.Fatalf("submit state = %+v, want queued with job id", st)
	}

	// A second submit is a no-op while queued
	f.do(http.MethodPost, "/files/submit?path="+path)
	if got := f.sched.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}

	rec = f.do(http.MethodGet, "/files/status?path="+path)
	if st := decodeState(t, rec); st.Phase != queue.PhaseQueued {
		t.Errorf("status phase = %s, want queued", st.Phase)
	}

	rec = f.do(http.MethodGet, "/files/status?path="+filepath.Join(f.dir, "unknown.mp4"))
	if st := decodeState(t, rec); st.Phase != queue.PhaseIdle {
		t.Errorf("unknown phase = %s, want idle", st.Phase)
	}

	if rec := f.do(http.MethodGet, "/files/status"); rec.Code != http.StatusBadRequest {
		t.Errorf("status without path = %d, want 400", rec.Code)
	}
}

func TestFilesListsDiscoveredAndSubmitted(t *testing.T) {
	f := newFixture(t, "a.mp3", "b.mkv")
	f.do(http.MethodPost, "/files/submit?path="+filepath.Join(f.dir, "b.mkv"))

	rec := f.do(http.MethodGet, "/files")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Total int         `json:"total"`
		Files []FileEntry `json:"files"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 2 || len(body.Files) != 2 {
		t.Fatalf("files = %+v, want 2 entries", body.Files)
	}
	if body.Files[0].Name != "a.mp3" || body.Files[0].State.Phase != queue.PhaseIdle {
		t.Errorf("files[0] = %+v, want idle a.mp3", body.Files[0])
	}
	if body.Files[1].Name != "b.mkv" || body.Files[1].State.Phase != queue.PhaseQueued {
		t.Errorf("files[1] = %+v, want queued b.mkv", body.Files[1])
	}
}

func TestClearQueue(t *testing.T) {
	f := newFixture(t, "a.mp3")
	path := filepath.Join(f.dir, "a.mp3")
	f.do(http.MethodPost, "/files/submit?path="+path)

	if rec := f.do(http.MethodGet, "/queue/clear"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /queue/clear = %d, want 405", rec.Code)
	}

	rec := f.do(http.MethodPost, "/queue/clear")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := f.sched.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
	if st := f.sched.Status(path); st.Phase != queue.PhaseIdle {
		t.Errorf("phase after clear = %s, want idle", st.Phase)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodGet, "/health")

	rec := f.do(http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `scribe_http_requests_total{endpoint="/health",method="GET",status_code="200"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", body)
	}
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	srv := New("127.0.0.1:0", nil, nil, reg, metrics.New(reg), logger.NewWithWriter(&buf, "debug"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.writeJSON(rec, req, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	if !strings.Contains(buf.String(), "Write response for /health failed") {
		t.Errorf("log = %q, want encode failure logged", buf.String())
	}
}
