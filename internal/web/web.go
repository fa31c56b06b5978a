package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"hackweb/internal/agenda"
	"hackweb/internal/config"
	"hackweb/internal/game"
	appLog "hackweb/internal/log"
	"hackweb/internal/store"
)

const maxBodyBytes = 1 << 20

// Server serves the site's JSON API and the embedded static pages.
type Server struct {
	mu     sync.RWMutex
	cfg    *config.Config
	loader *agenda.Loader

	store store.Store
	mux   *http.ServeMux

	// Events are cached between refreshes; arrangement is cheap and done
	// per request because it depends on the requested day.
	scheduleMu    sync.RWMutex
	scheduleCache *scheduleCache

	placer   *game.RandomPlacer
	submitRL *clientLimiter
	moveRL   *clientLimiter

	now func() time.Time
}

// embeddedStatic holds the public pages (schedule, game, announcements).
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st store.Store) *Server {
	s := &Server{
		cfg:    cfg,
		loader: agenda.NewLoader(cfg, filepath.Join(cfg.DataDir, "ics-cache")),
		store:  st,
		mux:    http.NewServeMux(),
		placer: game.NewRandomPlacer(time.Now().UnixNano(), cfg.Game.FourChance),
		now:    time.Now,
	}
	s.submitRL = newClientLimiter(perMinute(cfg.Leaderboard.SubmitPerMinute))
	s.moveRL = newClientLimiter(limits{every: time.Second / 30, burst: 60})
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ApplyConfig swaps in a reloaded config and drops the schedule cache.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.loader = agenda.NewLoader(cfg, filepath.Join(cfg.DataDir, "ics-cache"))
	s.mu.Unlock()

	s.submitRL.reset(perMinute(cfg.Leaderboard.SubmitPerMinute))

	s.scheduleMu.Lock()
	s.scheduleCache = nil
	s.scheduleMu.Unlock()
	appLog.Info("config applied", "events", len(cfg.Schedule.Events), "feeds", len(cfg.Schedule.ICS))
}

func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Start serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config()
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/schedule", s.handleSchedule)
	s.mux.HandleFunc("GET /api/schedule/days", s.handleScheduleDays)
	s.mux.HandleFunc("GET /api/schedule.ics", s.handleScheduleICS)

	s.mux.HandleFunc("GET /api/announcements", s.handleListAnnouncements)
	s.mux.HandleFunc("GET /api/announcements/{id}", s.handleGetAnnouncement)
	s.mux.Handle("POST /api/announcements", s.requireAuth(http.HandlerFunc(s.handleCreateAnnouncement)))
	s.mux.Handle("PUT /api/announcements/{id}", s.requireAuth(http.HandlerFunc(s.handleUpdateAnnouncement)))
	s.mux.Handle("DELETE /api/announcements/{id}", s.requireAuth(http.HandlerFunc(s.handleDeleteAnnouncement)))

	s.mux.HandleFunc("POST /api/game/new", s.handleNewGame)
	s.mux.HandleFunc("POST /api/game/move", s.handleMove)
	s.mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("POST /api/leaderboard", s.handleSubmitScore)

	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	// Everything else falls back to the embedded pages.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// requireAuth enforces HTTP Basic Auth when credentials are configured.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ba := s.config().BasicAuth
		if ba == nil || ba.Username == "" || ba.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, ba.Username) || !secureCompare(p, ba.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="hackweb", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Unknown /api/* paths must 404 as JSON, never fall through to HTML.
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

// handlePreview serves the last schedule snapshot written by the
// snapshot command (see internal/capture).
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	path := PreviewPath(s.config())
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	http.ServeFile(w, r, path)
}

// PreviewPath is where the schedule snapshot PNG lives.
func PreviewPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "preview.png")
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// storeError maps store errors to HTTP statuses.
func storeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("store operation failed", err, "op", op)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
