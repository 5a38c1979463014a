package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VeltarosLabs/powledger/internal/blockchain"
	"github.com/VeltarosLabs/powledger/pkg/version"
)

// Status is a point-in-time view of a chain, published by its owner.
type Status struct {
	Height         int       `json:"height"`
	Difficulty     int       `json:"difficulty"`
	Algorithm      string    `json:"algorithm"`
	TipFingerprint string    `json:"tipFingerprint"`
	TipNonce       uint64    `json:"tipNonce"`
	Valid          bool      `json:"valid"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Snapshot captures the status of c. It must run on the chain's owning
// goroutine.
func Snapshot(c *blockchain.Chain) Status {
	st := Status{
		Height:     c.Len() - 1,
		Difficulty: c.Difficulty(),
		Algorithm:  c.Algorithm().String(),
		Valid:      c.IsValid(),
		UpdatedAt:  time.Now().UTC(),
	}
	if tip, err := c.Latest(); err == nil {
		st.TipFingerprint = tip.Fingerprint
		st.TipNonce = tip.Nonce
	}
	return st
}

type Config struct {
	ListenAddr     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// Server exposes read-only status over HTTP. Handlers only read the last
// published Status, never the chain itself.
type Server struct {
	log       *slog.Logger
	startedAt time.Time
	status    atomic.Pointer[Status]
	handler   http.Handler
	srv       *http.Server
}

func New(cfg Config, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{log: log, startedAt: time.Now().UTC()}
	s.status.Store(&Status{})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, version.Get())
	})
	mux.HandleFunc("/status", s.handleStatus)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	s.handler = SecurityHeaders(cfg.AllowedOrigins, mux)

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// Publish replaces the status served by /status.
func (s *Server) Publish(st Status) {
	s.status.Store(&st)
}

func (s *Server) Status() Status {
	return *s.status.Load()
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.log.Info("api listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("api server error", "err", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"time":      time.Now().UTC().Format(time.RFC3339Nano),
		"uptimeSec": int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
