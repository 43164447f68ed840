package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/you/livepulse/internal/core"
	"github.com/you/livepulse/internal/sink"
)

// Source provides the analytics state the REST endpoints and the stream
// attach sequence read from. The engine implements it.
type Source interface {
	AttachSnapshots(now time.Time) []core.Snapshot
	StatsSnapshot(now time.Time) core.Snapshot
	LeaderboardsSnapshot() core.Snapshot
	BotStatsSnapshot() core.Snapshot
	TimeseriesSnapshot() core.Snapshot
}

// Archive is the optional chat archive. Nil disables the /chatlog routes.
type Archive interface {
	Count(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]sink.ChatRow, error)
}

type Server struct {
	httpServer *http.Server
	source     Source
	archive    Archive
	opts       Options
	metrics    *Metrics
	limiter    *ipRateLimiter
	cors       *corsPolicy

	mu      sync.Mutex
	clients map[chan core.Snapshot]struct{}
	closed  bool
}

type Options struct {
	Addr        string
	CORSOrigins []string

	RateLimitRPS   int
	RateLimitBurst int

	EnableAccessLog bool

	Build BuildInfo

	// ConfigSummary, when set, is served verbatim on /config.
	ConfigSummary []byte
}

func New(source Source, archive Archive, opts Options) *Server {
	srv := &Server{
		source:  source,
		archive: archive,
		opts:    opts,
		metrics: newMetrics(),
		limiter: newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		cors:    newCORSPolicy(opts.CORSOrigins),
		clients: make(map[chan core.Snapshot]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.wrap("/healthz", srv.handleHealthz))
	mux.HandleFunc("/stats", srv.wrap("/stats", srv.handleStats))
	mux.HandleFunc("/leaderboards", srv.wrap("/leaderboards", srv.handleLeaderboards))
	mux.HandleFunc("/bots", srv.wrap("/bots", srv.handleBots))
	mux.HandleFunc("/timeseries", srv.wrap("/timeseries", srv.handleTimeseries))
	mux.HandleFunc("/info", srv.wrap("/info", srv.handleInfo))
	mux.HandleFunc("/config", srv.wrap("/config", srv.handleConfig))
	mux.HandleFunc("/chatlog", srv.wrap("/chatlog", srv.handleChatLog))
	mux.HandleFunc("/chatlog/count", srv.wrap("/chatlog/count", srv.handleChatLogCount))
	mux.HandleFunc("/stream", srv.wrap("/stream", srv.handleStream))
	mux.Handle("/metrics", srv.metrics.Handler())

	srv.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return srv
}

// Metrics exposes the collector bundle so the pipeline can record events
// and archive errors through the same registry.
func (s *Server) Metrics() *Metrics { return s.metrics }

// wrap applies rate limiting, CORS, access logging and gzip around a handler.
func (s *Server) wrap(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if !s.limiter.Allow(remoteIP(r)) {
			s.metrics.IncRateLimited()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			s.metrics.ObserveRequest(route, r.Method, http.StatusTooManyRequests, time.Since(start))
			return
		}

		if handled, status := s.cors.handlePreflight(w, r); handled {
			s.metrics.ObserveRequest(route, r.Method, status, time.Since(start))
			return
		}
		if !s.cors.applyHeaders(w, r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			s.metrics.ObserveRequest(route, r.Method, http.StatusForbidden, time.Since(start))
			return
		}

		rec := newResponseRecorder(w)
		if gz, ok := maybeGzip(rec, r); ok {
			defer gz.Close()
		}

		h(rec, r)

		dur := time.Since(start)
		s.metrics.ObserveRequest(route, r.Method, rec.Status(), dur)
		if s.opts.EnableAccessLog {
			log.Printf("http %s %s %d %dB %s %s", r.Method, r.URL.Path, rec.Status(), rec.bytes, dur, remoteIP(r))
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.source.StatsSnapshot(time.Now().UTC()).Payload)
}

func (s *Server) handleLeaderboards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.source.LeaderboardsSnapshot().Payload)
}

func (s *Server) handleBots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.source.BotStatsSnapshot().Payload)
}

func (s *Server) handleTimeseries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.source.TimeseriesSnapshot().Payload)
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	if len(s.opts.ConfigSummary) == 0 {
		http.Error(w, "config summary unavailable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(s.opts.ConfigSummary)
}

func (s *Server) handleChatLog(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "chat archive disabled", http.StatusNotFound)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	rows, err := s.archive.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleChatLogCount(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "chat archive disabled", http.StatusNotFound)
		return
	}

	count, err := s.archive.Count(r.Context())
	if err != nil {
		http.Error(w, "count error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"count": count})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	clientCh := make(chan core.Snapshot, 256)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.clients[clientCh] = struct{}{}
	s.mu.Unlock()

	s.metrics.IncSSEClients(1)
	defer func() {
		s.metrics.IncSSEClients(-1)
		s.mu.Lock()
		delete(s.clients, clientCh)
		s.mu.Unlock()
	}()

	fmt.Fprintf(w, ":ok\n\n")
	flusher.Flush()

	// New subscribers get the current state before live updates.
	for _, snap := range s.source.AttachSnapshots(time.Now().UTC()) {
		writeSnapshot(w, snap)
	}
	flusher.Flush()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ":ping\n\n")
			flusher.Flush()
		case snap, ok := <-clientCh:
			if !ok {
				return
			}
			if writeSnapshot(w, snap) {
				s.metrics.IncSnapshotsSent(snap.Type)
			}
			flusher.Flush()
		}
	}
}

func writeSnapshot(w http.ResponseWriter, snap core.Snapshot) bool {
	data, err := json.Marshal(snap.Payload)
	if err != nil {
		return false
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", snap.Type, data)
	return true
}

// Broadcast fans a snapshot out to every connected stream client. Slow
// clients lose updates rather than stalling the pipeline.
func (s *Server) Broadcast(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.clients {
		select {
		case ch <- snap:
		default:
			s.metrics.IncBroadcastDrops()
		}
	}
}

func (s *Server) Start() error {
	log.Printf("http api listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for ch := range s.clients {
		close(ch)
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}
