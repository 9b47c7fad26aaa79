// Package api is the engine's status/observability surface, trimmed hard
// from the teacher's multi-thousand-line dashboard down to the
// operationally necessary subset: health, current cycle state, cumulative
// accounting counters, per-leg positions, and a Prometheus /metrics
// endpoint. Route registration and server lifecycle are grounded on the
// teacher's internal/api/server.go.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoPolymarket/pairbot/internal/accounting"
)

// EngineState exposes the running Controller's state for the API layer.
// cmd/pairbot wraps cycle.Controller in an adapter that satisfies this, so
// package cycle never imports package api, keeping the dependency
// direction the same as the teacher's AppState contract.
type EngineState interface {
	Snapshot() CycleSnapshot
	Summary() accounting.Snapshot
	Positions(ctx context.Context) (map[string]PositionView, error)
}

// CycleSnapshot mirrors cycle.Snapshot without importing package cycle,
// avoiding an api->cycle->api import cycle.
type CycleSnapshot struct {
	CycleID        int64
	Direction      string
	Phase          string
	EntryTimestamp time.Time
}

// PositionView is one leg's reconciled position for /api/positions.
type PositionView struct {
	Ticker string
	Qty    string // decimal.Decimal.String(), signed
}

// Server is a lightweight HTTP API for the pair engine.
type Server struct {
	httpServer *http.Server
	engine     EngineState
	startedAt  time.Time
}

// NewServer creates a new API server bound to addr.
func NewServer(addr string, engine EngineState) *Server {
	s := &Server{engine: engine, startedAt: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	log.Printf("api server listening on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("api server: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GET /api/health — liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"ok":       true,
		"uptime_s": time.Since(s.startedAt).Seconds(),
	})
}

// GET /api/status — current cycle phase, id, and direction.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.engine.Snapshot()
	s.writeJSON(w, map[string]interface{}{
		"cycle_id":        snap.CycleID,
		"direction":       snap.Direction,
		"phase":           snap.Phase,
		"entry_timestamp": snap.EntryTimestamp,
	})
}

// GET /api/summary — cumulative PnL/fee counters.
func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.engine.Summary())
}

// GET /api/positions — current per-leg reconciled positions.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.engine.Positions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]interface{}{"positions": positions})
}
