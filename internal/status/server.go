package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"synothumb/internal/logging"
	"synothumb/internal/middleware"
	"synothumb/internal/pipeline"
)

// Source exposes the state of the current run. pipeline.Scheduler
// satisfies it.
type Source interface {
	Snapshot() pipeline.Snapshot
	Failures() []pipeline.Outcome
}

// ProgressResponse is the /progress payload.
type ProgressResponse struct {
	RunID         string  `json:"runId"`
	Running       bool    `json:"running"`
	Interrupted   bool    `json:"interrupted"`
	Discovered    int     `json:"discovered"`
	Unsupported   int     `json:"unsupported"`
	Total         int     `json:"total"`
	Pending       int     `json:"pending"`
	InFlight      int     `json:"inFlight"`
	Success       int     `json:"success"`
	Skipped       int     `json:"skipped"`
	Failed        int     `json:"failed"`
	NotDispatched int     `json:"notDispatched"`
	Elapsed       string  `json:"elapsed"`
	Percent       float64 `json:"percent"`
}

// FailureResponse is one entry of the /failures payload.
type FailureResponse struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Class string `json:"class"`
	Error string `json:"error"`
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// Server is the optional status HTTP server.
type Server struct {
	source  Source
	version string
	started time.Time
	srv     *http.Server
	ln      net.Listener
	done    chan struct{}
}

// New creates a Server for source listening on addr.
func New(addr, version string, source Source) *Server {
	s := &Server{
		source:  source,
		version: version,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in logging and metrics
// middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/progress", s.progress).Methods(http.MethodGet)
	r.HandleFunc("/failures", s.failures).Methods(http.MethodGet)

	var h http.Handler = r
	h = middleware.Logger(middleware.DefaultLoggingConfig())(h)
	h = middleware.Metrics()(h)
	return h
}

// Start binds the listen address and serves in the background. Binding
// errors are returned.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	logging.Info("Status server listening on http://%s", ln.Addr())

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn("Status server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.ln == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	writeJSON(w, HealthResponse{
		Status:       "healthy",
		Version:      s.version,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	})
}

func (s *Server) progress(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Snapshot()

	resp := ProgressResponse{
		RunID:         snap.RunID,
		Running:       snap.Running,
		Interrupted:   snap.Interrupted,
		Discovered:    snap.Discovered,
		Unsupported:   snap.Unsupported,
		Total:         snap.Total,
		Pending:       snap.Pending,
		InFlight:      snap.InFlight,
		Success:       snap.Success,
		Skipped:       snap.Skipped,
		Failed:        snap.Failed,
		NotDispatched: snap.NotDispatched,
		Elapsed:       snap.Duration.Round(time.Second).String(),
	}
	if snap.Total > 0 {
		resp.Percent = float64(snap.Success+snap.Failed) * 100 / float64(snap.Total)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

func (s *Server) failures(w http.ResponseWriter, _ *http.Request) {
	outcomes := s.source.Failures()
	resp := make([]FailureResponse, 0, len(outcomes))
	for _, o := range outcomes {
		f := FailureResponse{
			Path:  o.Path,
			Kind:  o.Kind.String(),
			Class: pipeline.ClassOf(o.Err).String(),
		}
		if o.Err != nil {
			f.Error = o.Err.Error()
		}
		resp = append(resp, f)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// writeJSON encodes v as JSON. Encoding errors are logged since the
// header is already sent.
func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode JSON response: %v", err)
	}
}
