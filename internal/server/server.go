package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"folio/internal/config"
	"folio/internal/history"
	"folio/internal/logging"
	"folio/internal/snapshot"
)

// Generator runs synchronization passes on demand.
type Generator interface {
	Generate(ctx context.Context, trigger string) snapshot.Result
	InProgress() bool
}

// Invalidator drops cached CMS state before a forced pass.
type Invalidator interface {
	Invalidate()
}

// HistoryReader lists recorded passes.
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
}

// Schedule reports the scheduled passes of the running daemon.
type Schedule interface {
	NextSync() time.Time
	LastResult() *snapshot.Result
}

// Server is the HTTP front of the snapshot.
type Server struct {
	bind     string
	token    string
	mediaDir string
	logger   *slog.Logger
	store    *snapshot.Store
	gen      Generator
	cache    Invalidator
	history  HistoryReader
	metrics  http.Handler
	router   chi.Router

	schedMu  sync.RWMutex
	schedule Schedule

	mu       sync.Mutex
	baseCtx  context.Context
	listener net.Listener
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInvalidator registers the cache dropped by POST /api/sync-notion.
func WithInvalidator(cache Invalidator) Option {
	return func(s *Server) { s.cache = cache }
}

// WithHistory enables GET /api/sync-history.
func WithHistory(reader HistoryReader) Option {
	return func(s *Server) { s.history = reader }
}

// WithMetrics mounts handler at GET /metrics.
func WithMetrics(handler http.Handler) Option {
	return func(s *Server) { s.metrics = handler }
}

// New builds a server for cfg. Passes started by requests outlive the request
// but stop when the context given to Start is cancelled.
func New(cfg *config.Config, store *snapshot.Store, gen Generator, opts ...Option) *Server {
	s := &Server{
		bind:     strings.TrimSpace(cfg.Paths.APIBind),
		token:    strings.TrimSpace(cfg.Paths.APIToken),
		mediaDir: cfg.MediaDir(),
		logger:   logging.NewNop(),
		store:    store,
		gen:      gen,
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "http")
	s.router = s.routes()
	return s
}

// SetSchedule makes GET /api/health report the daemon's next and last pass.
func (s *Server) SetSchedule(schedule Schedule) {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	s.schedule = schedule
}

func (s *Server) currentSchedule() Schedule {
	s.schedMu.RLock()
	defer s.schedMu.RUnlock()
	return s.schedule
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/content/profileData.json", s.handleProfileData)
	r.Get("/content/media/*", s.handleMedia)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/static-status", s.handleStaticStatus)
		r.Get("/sync-history", s.handleSyncHistory)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(s.token))
			r.Post("/regenerate-static", s.handleRegenerate)
			r.Post("/sync-notion", s.handleSyncNotion)
			r.Post("/sync-images", s.handleSyncImages)
		})
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.baseCtx = ctx
	s.listener = listener
	s.server = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// passContext detaches a pass from the request so a disconnecting client does
// not abort it midway, while keeping it bound to the server lifetime.
func (s *Server) passContext(r *http.Request) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
