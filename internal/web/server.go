// Package web serves the trend engine over HTTP and streams stored decisions as SSE.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/trendsignal/internal/domain"
)

const (
	pollInterval      = 2 * time.Second
	heartbeatInterval = 30 * time.Second
	replayLimit       = 100
	defaultQuote      = "USD"
	maxBodyBytes      = 1 << 20
)

type decisionReader interface {
	EventsAfter(index uint64) ([]domain.DecisionEventRecord, error)
	Last(n int) ([]domain.DecisionEventRecord, error)
}

type decider interface {
	Decide(eth, btc, sol domain.AssetSeries) (domain.Decision, error)
}

// Server exposes the decision endpoint and the decision stream.
type Server struct {
	Addr string
	// Quote names the series of /decide requests (ETH/<Quote>), as the collector does.
	Quote string

	Engine        decider
	DecisionStore decisionReader
	logger        *zap.Logger
	// heartbeat and poll are overridden in tests
	heartbeat time.Duration
	poll      time.Duration
	// replay events sent to a client connecting without a last event id
	replay int
}

// NewServer creates a new web server instance. A nil store disables the stream.
func NewServer(addr, quote string, engine decider, decisions decisionReader, logger *zap.Logger) *Server {
	if quote == "" {
		quote = defaultQuote
	}
	return &Server{
		Addr:          addr,
		Quote:         quote,
		Engine:        engine,
		DecisionStore: decisions,
		logger:        logger,
		heartbeat:     heartbeatInterval,
		poll:          pollInterval,
		replay:        replayLimit,
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/decide", s.handleDecide)
	mux.HandleFunc("/decisions/stream", s.handleDecisionStream)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("web server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("http (acme) server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http (acme) server", zap.Error(err))
		}
	}()

	s.logger.Info("web server listening with auto TLS", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// decideRequest the three series, oldest period first.
type decideRequest struct {
	ETH []domain.Period `json:"eth"`
	BTC []domain.Period `json:"btc"`
	SOL []domain.Period `json:"sol"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req decideRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}

	eth := domain.AssetSeries{Symbol: s.symbol("ETH"), Periods: req.ETH}
	btc := domain.AssetSeries{Symbol: s.symbol("BTC"), Periods: req.BTC}
	sol := domain.AssetSeries{Symbol: s.symbol("SOL"), Periods: req.SOL}

	decision, err := s.Engine.Decide(eth, btc, sol)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("decide failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) symbol(base string) string {
	return domain.Pair{From: base, To: s.Quote}.Display()
}

func (s *Server) handleDecisionStream(w http.ResponseWriter, r *http.Request) {
	if s.DecisionStore == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "decision store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.poll)
	defer pollTicker.Stop()

	lastIndex := s.parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	sendDecisions := func(load func() ([]domain.DecisionEventRecord, error)) error {
		records, err := load()
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Event)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: decision\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	after := func() ([]domain.DecisionEventRecord, error) {
		return s.DecisionStore.EventsAfter(lastIndex)
	}

	initial := after
	if lastIndex == 0 {
		initial = func() ([]domain.DecisionEventRecord, error) {
			return s.DecisionStore.Last(s.replay)
		}
	}

	if err := sendDecisions(initial); err != nil {
		http.Error(w, "failed to load decisions", http.StatusInternalServerError)
		s.logger.Error("decision stream initial load", zap.Error(err))
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendDecisions(after); err != nil {
				s.logger.Warn("decision stream poll", zap.Error(err))
			}
		}
	}
}

// parseLastEventID extracts an SSE event ID from either the Last-Event-ID header or a query parameter.
// The header is preferred; the query parameter allows manual reconnects to resume from a known index.
func (s *Server) parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		s.logger.Debug("invalid last event id", zap.String("id", idStr), zap.Error(err))
		return 0
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
