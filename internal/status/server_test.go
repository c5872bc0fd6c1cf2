package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"synothumb/internal/media"
	"synothumb/internal/mediatypes"
	"synothumb/internal/pipeline"
)

type fakeSource struct {
	snap     pipeline.Snapshot
	failures []pipeline.Outcome
}

func (f *fakeSource) Snapshot() pipeline.Snapshot  { return f.snap }
func (f *fakeSource) Failures() []pipeline.Outcome { return f.failures }

func newTestSource() *fakeSource {
	return &fakeSource{
		snap: pipeline.Snapshot{
			Summary: pipeline.Summary{
				RunID:      "run-42",
				Success:    3,
				Skipped:    5,
				Failed:     1,
				Discovered: 12,
				Duration:   90 * time.Second,
			},
			Running:  true,
			Total:    8,
			Pending:  2,
			InFlight: 2,
		},
		failures: []pipeline.Outcome{{
			Path:   "/photos/bad.jpg",
			Kind:   mediatypes.KindImage,
			Status: pipeline.StatusFailed,
			Err: &pipeline.FileError{
				Class: pipeline.ClassDecode,
				Path:  "/photos/bad.jpg",
				Err:   fmt.Errorf("%w: truncated", media.ErrDecode),
			},
		}},
	}
}

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, http.NoBody))
	return rec
}

func TestProgress(t *testing.T) {
	h := New("127.0.0.1:0", "test", newTestSource()).Handler()

	rec := get(t, h, http.MethodGet, "/progress")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp ProgressResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RunID != "run-42" || !resp.Running {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Success != 3 || resp.Skipped != 5 || resp.Failed != 1 || resp.Pending != 2 {
		t.Errorf("counts = %+v", resp)
	}
	if resp.Percent != 50 {
		t.Errorf("Percent = %v, want 50", resp.Percent)
	}
	if resp.Elapsed != "1m30s" {
		t.Errorf("Elapsed = %q, want 1m30s", resp.Elapsed)
	}
}

func TestFailures(t *testing.T) {
	h := New("127.0.0.1:0", "test", newTestSource()).Handler()

	rec := get(t, h, http.MethodGet, "/failures")
	var resp []FailureResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("got %d failures, want 1", len(resp))
	}
	if resp[0].Class != "decode" || resp[0].Kind != "image" || resp[0].Path != "/photos/bad.jpg" {
		t.Errorf("failure = %+v", resp[0])
	}
	if !strings.Contains(resp[0].Error, "truncated") {
		t.Errorf("Error = %q", resp[0].Error)
	}
}

func TestFailuresEmpty(t *testing.T) {
	h := New("127.0.0.1:0", "test", &fakeSource{}).Handler()
	rec := get(t, h, http.MethodGet, "/failures")
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestHealth(t *testing.T) {
	h := New("127.0.0.1:0", "1.2.3", &fakeSource{}).Handler()

	rec := get(t, h, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.Version != "1.2.3" {
		t.Errorf("resp = %+v", resp)
	}

	head := get(t, h, http.MethodHead, "/healthz")
	if head.Code != http.StatusOK || head.Body.Len() != 0 {
		t.Errorf("HEAD /healthz = %d with %d bytes", head.Code, head.Body.Len())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := New("127.0.0.1:0", "test", &fakeSource{}).Handler()
	rec := get(t, h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "synothumb_") {
		t.Error("metrics output has no synothumb_ series")
	}
}

func TestRouting(t *testing.T) {
	h := New("127.0.0.1:0", "test", &fakeSource{}).Handler()

	if rec := get(t, h, http.MethodGet, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}
	if rec := get(t, h, http.MethodPost, "/progress"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /progress = %d, want 405", rec.Code)
	}
}

func TestServerStartShutdown(t *testing.T) {
	s := New("127.0.0.1:0", "test", newTestSource())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	if _, err := http.Get("http://" + s.Addr() + "/healthz"); err == nil {
		t.Error("server still answering after Shutdown")
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	s := New("127.0.0.1:0", "test", &fakeSource{})
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestStartAddressInUse(t *testing.T) {
	first := New("127.0.0.1:0", "test", &fakeSource{})
	if err := first.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Shutdown(context.Background())

	second := New(first.Addr(), "test", &fakeSource{})
	if err := second.Start(); err == nil {
		_ = second.Shutdown(context.Background())
		t.Fatal("Start() on a bound address should fail")
	}
}
