package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lumbrjx/codek7/streaming/internal/api"
	"github.com/lumbrjx/codek7/streaming/internal/middlewares"
	"github.com/lumbrjx/codek7/streaming/internal/storage"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

type Options struct {
	Port      string
	JWTSecret string
	// StaticDir is the LocalStore root served under /static/streaming-playlists/hls.
	StaticDir  string
	CORSOrigin string

	// RateLimiter guards POST /imports; nil disables the limit.
	RateLimiter      middlewares.Counter
	ImportRateLimit  int
	ImportRateWindow time.Duration
}

type Server struct {
	router *chi.Mux
	port   string
	api    *api.API
	opts   Options
}

// NewServer creates a new server instance
func NewServer(a *api.API, opts Options) *Server {
	if opts.Port == "" {
		opts.Port = "8080"
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}

	s := &Server{
		router: chi.NewRouter(),
		port:   opts.Port,
		api:    a,
		opts:   opts,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// setupMiddleware configures Chi middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, Range")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})
}

// requestLogger carries the chi request id into the logger context and logs the outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.LogHTTPRequest(ctx, r.Method, route, status, time.Since(start))
	})
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.api.HealthCheck)

	s.router.Route("/videos/{video_id}/hls", func(r chi.Router) {
		r.Use(middlewares.Auth(s.opts.JWTSecret))

		r.Post("/master", s.api.RebuildMaster)
		r.Post("/segments-sha256", s.api.RebuildSegmentsSha256)
		r.Post("/rebuild", s.api.RebuildAll)
	})

	s.router.Route("/imports", func(r chi.Router) {
		r.Use(middlewares.Auth(s.opts.JWTSecret))
		if s.opts.RateLimiter != nil {
			r.Use(middlewares.RateLimit(s.opts.RateLimiter, "imports", s.opts.ImportRateLimit, s.opts.ImportRateWindow))
		}
		r.Post("/", s.api.ImportPlaylist)
	})

	// Players fetch artifacts without credentials.
	if s.opts.StaticDir != "" {
		prefix := storage.StaticStreamingPlaylistsPath + "/"
		s.router.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(s.opts.StaticDir))))
	}
	s.router.Get("/hls/*", s.api.StreamObject)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:        ":" + s.port,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Imports and queued rebuilds run inside the request.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info("Server starting", "port", s.port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Logger.Error("Server failed to start", "error", err.Error())
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Logger.Info("Server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("Server forced to shutdown", "error", err.Error())
		return err
	}

	logger.Logger.Info("Server stopped")
	return nil
}
