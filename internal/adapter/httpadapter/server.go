package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/dashboard"
	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies on mutating routes.
const maxBodyBytes = 1 << 20

// Dashboard is the application surface served over HTTP. *dashboard.App
// implements it.
type Dashboard interface {
	Events(level string) dashboard.EventsView
	Ticker(ctx context.Context) dashboard.TickerView
	AdjustSpeed(ctx context.Context, action string) (int, error)
	Preferences() domain.Preferences
	WatchlistMentions(ctx context.Context) []dashboard.Mention
	SetWatchlist(ctx context.Context, entries []domain.WatchlistEntry) ([]domain.WatchlistEntry, error)
	LivePrices(ctx context.Context, refresh bool) []dashboard.PriceRow
	Thresholds() domain.Thresholds
	SetThresholds(ctx context.Context, th domain.Thresholds) error
	RSSFilters() domain.RSSFilters
	SetRSSFilters(ctx context.Context, f domain.RSSFilters) error
	Reload(ctx context.Context) (dashboard.LoadResult, error)
}

// Checks combines readiness checkers; all must pass.
type Checks []sharedobs.ReadinessChecker

func (c Checks) CheckReadiness(ctx context.Context) error {
	for _, check := range c {
		if err := check.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	app        Dashboard
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api routes and /healthz,
// /readyz, and /metrics.
func NewServer(addr string, app Dashboard, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		app:    app,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/ticker", s.handleTicker)
	mux.HandleFunc("POST /api/ticker/speed", s.handleSpeed)
	mux.HandleFunc("GET /api/watchlist", s.handleWatchlist)
	mux.HandleFunc("PUT /api/watchlist", s.handleSetWatchlist)
	mux.HandleFunc("GET /api/prices", s.handlePrices)
	mux.HandleFunc("GET /api/thresholds", s.handleThresholds)
	mux.HandleFunc("PUT /api/thresholds", s.handleSetThresholds)
	mux.HandleFunc("GET /api/rss-filters", s.handleRSSFilters)
	mux.HandleFunc("PUT /api/rss-filters", s.handleSetRSSFilters)
	mux.HandleFunc("POST /api/reload", s.handleReload)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	if !validLevel(level) {
		writeError(w, http.StatusBadRequest, "unknown level "+level)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.app.Events(level))
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.app.Ticker(r.Context()))
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := s.app.AdjustSpeed(r.Context(), body.Action)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]int{"duration": d})
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"entries":  s.app.Preferences().Watchlist,
		"mentions": s.app.WatchlistMentions(r.Context()),
	})
}

// handleSetWatchlist accepts either {value, type} objects or plain ticker strings.
func (s *Server) handleSetWatchlist(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	entries, ok := domain.NormalizeWatchlist(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "watchlist must be a JSON array")
		return
	}
	stored, err := s.app.SetWatchlist(r.Context(), entries)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"entries": stored})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh")
	rows := s.app.LivePrices(r.Context(), refresh == "1" || strings.EqualFold(refresh, "true"))
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"prices": rows})
}

func (s *Server) handleThresholds(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.app.Thresholds())
}

func (s *Server) handleSetThresholds(w http.ResponseWriter, r *http.Request) {
	th := s.app.Thresholds()
	if err := decodeBody(w, r, &th); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.app.SetThresholds(r.Context(), th); err != nil {
		s.writeAppError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, th)
}

func (s *Server) handleRSSFilters(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.app.RSSFilters())
}

// handleSetRSSFilters applies a partial update; absent keys keep their value.
func (s *Server) handleSetRSSFilters(w http.ResponseWriter, r *http.Request) {
	f := s.app.RSSFilters()
	if err := decodeBody(w, r, &f); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.app.SetRSSFilters(r.Context(), f); err != nil {
		s.writeAppError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, f)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Reload(r.Context())
	var unavailable *domain.FeedUnavailableError
	switch {
	case errors.As(err, &unavailable):
		s.logger.Warn("feed reload failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusBadGateway, map[string]any{
			"error":    unavailable.Error(),
			"attempts": unavailable.Attempts,
		})
	case err != nil:
		s.writeAppError(w, err)
	default:
		sharedobs.WriteJSON(w, http.StatusOK, res)
	}
}

func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	if errors.Is(err, dashboard.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func validLevel(level string) bool {
	switch strings.ToLower(level) {
	case "", "all", "critical", "high", "medium", "low":
		return true
	default:
		return false
	}
}
