package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"drive-go/internal/auth"
	"drive-go/internal/drive"
	"drive-go/internal/metrics"
	"drive-go/internal/model"
)

// HealthFunc reports the reachability of the database and the blob store.
type HealthFunc func(ctx context.Context) (database, storage error)

// AuthenticateFunc checks a user's credentials.
type AuthenticateFunc func(ctx context.Context, email, password string) (*model.User, error)

// Options configures a Server. Zero values disable the optional parts.
type Options struct {
	Logger        drive.Logger
	Metrics       *metrics.Collector
	Health        HealthFunc
	MaxUploadSize int64 // body limit for uploads; defaults to the service limit
	CORSOrigins   []string

	// Tokens switches the API to bearer-token auth. Authenticate backs the
	// token endpoint and is required with it.
	Tokens       *auth.Tokens
	Authenticate AuthenticateFunc
}

// Server exposes DriveService over HTTP.
type Server struct {
	svc     *drive.DriveService
	logger  drive.Logger
	metrics *metrics.Collector
	health  HealthFunc
	maxBody int64
	origins []string
	tokens  *auth.Tokens
	authn   AuthenticateFunc
}

// NewServer creates a Server for svc.
func NewServer(svc *drive.DriveService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = drive.NewNopLogger()
	}
	maxBody := opts.MaxUploadSize
	if maxBody <= 0 {
		maxBody = svc.Options().MaxUploadSize
	}
	return &Server{
		svc:     svc,
		logger:  logger,
		metrics: opts.Metrics,
		health:  opts.Health,
		maxBody: maxBody,
		origins: opts.CORSOrigins,
		tokens:  opts.Tokens,
		authn:   opts.Authenticate,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", UserHeader, "X-Request-ID"},
			ExposedHeaders: []string{"Content-Disposition", "Retry-After"},
			MaxAge:         300,
		}))
	}
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/health", s.handleHealth)

	if s.tokens != nil && s.authn != nil {
		r.Post("/api/auth/token", s.handleToken)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", s.handleUpload)
			r.Get("/list", s.handleListFiles)
			r.Get("/search", s.handleSearch)
			r.Get("/download/{fileID}", s.handleDownloadLink)
			r.Get("/{fileID}", s.handleGetFile)
			r.Get("/{fileID}/content", s.handleFileContent)
			r.Put("/{fileID}/rename", s.handleRenameFile)
			r.Delete("/{fileID}", s.handleDeleteFile)
		})

		r.Route("/folders", func(r chi.Router) {
			r.Post("/create", s.handleCreateFolder)
			r.Get("/list", s.handleListFolders)
			r.Get("/{folderID}", s.handleGetFolder)
			r.Get("/{folderID}/children", s.handleListChildren)
			r.Get("/{folderID}/path", s.handleResolvePath)
			r.Put("/{folderID}/rename", s.handleRenameFolder)
			r.Put("/{folderID}/move", s.handleMoveFolder)
			r.Delete("/{folderID}", s.handleDeleteFolder)
		})
	})

	return r
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Database: "ok", Storage: "ok"}
	if s.health == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	dbErr, storageErr := s.health(r.Context())
	if dbErr != nil {
		resp.Database = "unavailable"
		s.logger.Warn("health check: database", "error", dbErr)
	}
	if storageErr != nil {
		resp.Storage = "unavailable"
		s.logger.Warn("health check: storage", "error", storageErr)
	}
	status := http.StatusOK
	if dbErr != nil || storageErr != nil {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// ServeConfig controls the listener.
type ServeConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg ServeConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
