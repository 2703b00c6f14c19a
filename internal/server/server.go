package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/folio-cms/folio/internal/handler"
	"github.com/folio-cms/folio/internal/mcp"
	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/server/middleware"
	"github.com/folio-cms/folio/internal/service"
	"github.com/folio-cms/folio/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	StaticDir       string
	EnableMetrics   bool
	MountMCP        bool
	Version         string

	// TrustProxy enables RealIP. Without it rate limits and visitor
	// identity use the connection's remote address.
	TrustProxy bool

	LoginRatePerMinute   int
	ContactRatePerMinute int
	RequireCaptcha       bool
	CaptchaTTL           time.Duration
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:                 "0.0.0.0",
		Port:                 8080,
		ShutdownTimeout:      30 * time.Second,
		CORSOrigins:          []string{"*"},
		MaxBodySize:          1 << 20, // 1MB
		EnableMetrics:        true,
		MountMCP:             true,
		Version:              "dev",
		LoginRatePerMinute:   10,
		ContactRatePerMinute: 5,
		RequireCaptcha:       true,
		CaptchaTTL:           10 * time.Minute,
	}
}

// Server is the top-level HTTP server for folio. It owns the Chi router, the
// store, the authentication service and the analytics recorder.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	recorder   *service.Recorder
	captcha    *service.CaptchaStore
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. The recorder must already be started. Call
// ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, authSvc *service.AuthService, rec *service.Recorder, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		authSvc:  authSvc,
		recorder: rec,
		logger:   logger,
	}
	if cfg.RequireCaptcha {
		s.captcha = service.NewCaptchaStore(cfg.CaptchaTTL)
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	if s.cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	if s.cfg.EnableMetrics {
		r.Use(middleware.Metrics)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.MaxBodySize(s.cfg.MaxBodySize))
	r.Use(chimw.Compress(5))

	// --- Health checks and metrics (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.cfg.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	requireAdmin := middleware.Authenticate(s.authSvc)

	// --- MCP over Streamable HTTP (admin only) ---
	if s.cfg.MountMCP {
		mcpHandler := mcp.NewMCPServer(s.store, s.recorder, s.cfg.Version, s.logger).Handler()
		r.With(requireAdmin).Handle("/mcp", mcpHandler)
	}

	// --- API routes ---
	r.Route("/api", func(r chi.Router) {
		r.NotFound(handler.NotFound)
		r.MethodNotAllowed(handler.MethodNotAllowed)

		r.Get("/openapi.json", handler.NewOpenAPIHandler(s.cfg.Version, s.logger).ServeSpec)

		r.Route("/auth", func(r chi.Router) {
			authHandler := handler.NewAuthHandler(s.authSvc, s.logger)

			r.With(middleware.RateLimit(s.cfg.LoginRatePerMinute)).Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/verify", authHandler.Verify)
				r.Post("/change-password", authHandler.ChangePassword)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/analytics", func(r chi.Router) {
			analyticsHandler := handler.NewAnalyticsHandler(s.recorder, s.store, s.logger)

			r.Post("/track", analyticsHandler.Track)
			r.With(middleware.OptionalAuth(s.authSvc)).Get("/stats", analyticsHandler.Stats)
		})

		r.Route("/contact", func(r chi.Router) {
			contactHandler := handler.NewContactHandler(s.store, s.captcha, s.logger)

			r.With(middleware.RateLimit(s.cfg.ContactRatePerMinute)).Post("/", contactHandler.Submit)
			r.Get("/captcha", contactHandler.Captcha)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/list", contactHandler.List)
				r.Patch("/{id}/read", contactHandler.MarkRead)
			})
		})

		r.Route("/content", func(r chi.Router) {
			contentHandler := handler.NewContentHandler(s.store, s.logger)

			r.Get("/all", contentHandler.All)
			r.Get("/personal-info", contentHandler.GetPersonalInfo)
			r.With(requireAdmin).Put("/personal-info", contentHandler.PutPersonalInfo)
			r.Get("/settings", contentHandler.GetSettings)
			r.With(requireAdmin).Put("/settings", contentHandler.PutSettings)

			mountCollection(r, "/projects", requireAdmin,
				handler.NewCollection[model.Project](s.store.Projects(),
					handler.CollectionOptions{ListKey: "projects", Param: "id"}, s.logger))
			mountCollection(r, "/skills", requireAdmin,
				handler.NewCollection[model.Skill](s.store.Skills(),
					handler.CollectionOptions{ListKey: "skills", Param: "category", Upsert: true}, s.logger))
			mountCollection(r, "/certifications", requireAdmin,
				handler.NewCollection[model.Certification](s.store.Certifications(),
					handler.CollectionOptions{ListKey: "certifications", Param: "name"}, s.logger))
			mountCollection(r, "/experience", requireAdmin,
				handler.NewCollection[model.ExperienceEntry](s.store.Experience(),
					handler.CollectionOptions{ListKey: "experience", Param: "id"}, s.logger))
			mountCollection(r, "/education", requireAdmin,
				handler.NewCollection[model.EducationEntry](s.store.Education(),
					handler.CollectionOptions{ListKey: "education", Param: "id"}, s.logger))
		})
	})

	// --- Optional frontend ---
	if s.cfg.StaticDir != "" {
		s.mountStatic(r, os.DirFS(s.cfg.StaticDir))
	}

	s.router = r
}

// mountCollection registers the public list route and the admin write routes
// of a content collection under prefix.
func mountCollection[T model.Entity](r chi.Router, prefix string, admin func(http.Handler) http.Handler, c *handler.Collection[T]) {
	param := c.Param()
	r.Get(prefix, c.List)
	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Post(prefix, c.Create)
		r.Put(prefix+"/{"+param+"}", c.Update)
		r.Delete(prefix+"/{"+param+"}", c.Delete)
	})
}

// mountStatic serves a built single-page frontend. Existing files are served
// as-is; every other GET falls back to index.html so client-side routes work.
func (s *Server) mountStatic(r chi.Router, root fs.FS) {
	fileServer := http.FileServer(http.FS(root))
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		name := strings.TrimPrefix(path.Clean(req.URL.Path), "/")
		if name != "" {
			if stat, err := fs.Stat(root, name); err == nil && !stat.IsDir() {
				fileServer.ServeHTTP(w, req)
				return
			}
		}
		f, err := root.Open("index.html")
		if err != nil {
			http.Error(w, "frontend not available", http.StatusNotFound)
			return
		}
		defer f.Close()
		stat, err := f.Stat()
		if err != nil {
			http.Error(w, "frontend not available", http.StatusNotFound)
			return
		}
		rs, ok := f.(io.ReadSeeker)
		if !ok {
			http.Error(w, "frontend not available", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeContent(w, req, "index.html", stat.ModTime(), rs)
	})
}

// handleHealthz is the liveness check. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is the readiness check. Returns 200 when the store answers a
// ping, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{"store": "ok"}

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then drains in-flight requests, flushes queued analytics
// events and closes the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.closeBackends(context.Background())
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.closeBackends(shutdownCtx)
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.closeBackends(shutdownCtx)
	s.logger.Info("server stopped")
	return nil
}

// closeBackends flushes the recorder and closes the store, in that order.
func (s *Server) closeBackends(ctx context.Context) {
	if err := s.recorder.Shutdown(ctx); err != nil {
		s.logger.Error("analytics recorder shutdown", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("close store", "error", err)
	}
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
