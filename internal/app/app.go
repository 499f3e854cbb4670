package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"drive-go/internal/auth"
	"drive-go/internal/blob"
	"drive-go/internal/config"
	"drive-go/internal/database"
	"drive-go/internal/drive"
	"drive-go/internal/embedding"
	"drive-go/internal/metrics"
	"drive-go/internal/model"
)

// DriveApp is the application layer between the CLI or HTTP server and
// DriveService. It constructs every process-wide dependency from config,
// owns their lifecycle, and releases them on Close.
type DriveApp struct {
	cfg      *config.Config
	db       database.Store
	blobs    drive.BlobStore
	embedder drive.Embedder
	metrics  *metrics.Collector
	service  *drive.DriveService
	logger   *slog.Logger
	run      *Run
	logFile  *os.File
	clock    drive.Clock
	idgen    drive.IDGenerator
}

// NewDriveApp creates a fully wired DriveApp from the given config.
// command identifies the CLI command being run (e.g. "serve", "upload").
// The caller must call Close when done.
func NewDriveApp(ctx context.Context, cfg *config.Config, command string) (*DriveApp, error) {
	clock := drive.RealClock{}
	run := NewRun(command, clock.Now())

	logger, logFile, err := newLogger(cfg.LogDir, run.ID, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(ctx, cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	blobs, err := blob.NewBlobStoreFromConfig(ctx, cfg.Blob)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	embedder, err := embedding.NewEmbedderFromConfig(cfg.Embedding, &slogAdapter{l: logger})
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	if embedder == nil {
		logger.Warn("no embedder configured, uploads will be stored without embeddings")
	}

	collector := metrics.NewCollector("drive")
	idgen := drive.UUIDGenerator{}
	svc := drive.NewDriveService(db, blobs, embedder, &slogAdapter{l: logger}, clock, idgen, serviceOptions(cfg)).
		WithMetrics(collector)

	logger.Debug("app started", "command", command, "database", cfg.Database.Type, "blob", cfg.Blob.Type, "embedding", cfg.Embedding.Type)

	return &DriveApp{
		cfg:      cfg,
		db:       db,
		blobs:    blobs,
		embedder: embedder,
		metrics:  collector,
		service:  svc,
		logger:   logger,
		run:      run,
		logFile:  logFile,
		clock:    clock,
		idgen:    idgen,
	}, nil
}

// serviceOptions maps config sections onto service options.
func serviceOptions(cfg *config.Config) drive.Options {
	return drive.Options{
		MaxDepth:       cfg.Namespace.MaxDepth,
		MaxUploadSize:  cfg.Ingest.MaxSize,
		EmbedTextLimit: cfg.Ingest.EmbedTextLimit,
		BlobTimeout:    cfg.Timeouts.Blob,
		EmbedTimeout:   cfg.Timeouts.Embedding,
		DownloadTTL:    cfg.Ingest.DownloadTTL,
		Ranking: drive.Ranking{
			NameWeight:       cfg.Search.NameWeight,
			SimilarityWeight: cfg.Search.SimilarityWeight,
			MinScore:         cfg.Search.MinScore,
			Limit:            cfg.Search.Limit,
		},
	}
}

// Migrate opens the configured database and applies all pending migrations.
func Migrate(ctx context.Context, cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

func (a *DriveApp) Service() *drive.DriveService { return a.service }

func (a *DriveApp) Metrics() *metrics.Collector { return a.metrics }

func (a *DriveApp) Config() *config.Config { return a.cfg }

// Logger returns the structured logger for transport layers.
func (a *DriveApp) Logger() drive.Logger { return &slogAdapter{l: a.logger} }

// Blobs exposes the blob store, e.g. to serve filesystem download links.

// HealthStatus reports the reachability of each backing store.
type HealthStatus struct {
	Database error
	Storage  error
}

// OK reports whether every store is reachable.
func (h HealthStatus) OK() bool {
	return h.Database == nil && h.Storage == nil
}

// Health pings the database and validates the blob store concurrently.
func (a *DriveApp) Health(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var h HealthStatus
	var g errgroup.Group
	g.Go(func() error {
		h.Database = a.db.Ping(ctx)
		return nil
	})
	g.Go(func() error {
		h.Storage = a.blobs.ValidateSetup(ctx)
		return nil
	})
	g.Wait()
	return h
}

// DefaultAuthSecretEnv is read when server.auth_secret_env is not configured.
const DefaultAuthSecretEnv = "DRIVE_AUTH_SECRET"

// Tokens returns the bearer token issuer for server.auth = "jwt", or nil in
// header mode.
func (a *DriveApp) Tokens() (*auth.Tokens, error) {
	if a.cfg.Server.Auth != "jwt" {
		return nil, nil
	}
	env := a.cfg.Server.AuthSecretEnv
	if env == "" {
		env = DefaultAuthSecretEnv
	}
	ttl := a.cfg.Server.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	tokens, err := auth.NewTokens(os.Getenv(env), ttl)
	if err != nil {
		return nil, fmt.Errorf("%w (secret read from $%s)", err, env)
	}
	return tokens, nil
}

// CreateUser registers a user, storing a bcrypt hash of password.
func (a *DriveApp) CreateUser(ctx context.Context, email, displayName, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address %q", email)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &model.User{
		ID:             a.idgen.New(),
		Email:          email,
		CredentialHash: string(hash),
		DisplayName:    strings.TrimSpace(displayName),
		CreatedAt:      a.clock.Now(),
	}
	if err := a.db.CreateUser(ctx, u); err != nil {
		if errors.Is(err, drive.ErrUniqueViolation) {
			return nil, fmt.Errorf("email %s is already registered", email)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	a.logger.Info("user created", "user", u.ID)
	return u, nil
}

// VerifyUser checks password against the stored hash for email.
func (a *DriveApp) VerifyUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := a.db.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.CredentialHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid email or password")
	}
	return u, nil
}

// FindUser resolves a user by id or, failing that, by email.
func (a *DriveApp) FindUser(ctx context.Context, ref string) (*model.User, error) {
	u, err := a.db.FindUserByID(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if u == nil && strings.Contains(ref, "@") {
		u, err = a.db.FindUserByEmail(ctx, strings.ToLower(ref))
		if err != nil {
			return nil, fmt.Errorf("finding user: %w", err)
		}
	}
	if u == nil {
		return nil, fmt.Errorf("user %s not found", ref)
	}
	return u, nil
}

// BackupDatabase writes a consistent snapshot of the metadata database to dest.
func (a *DriveApp) BackupDatabase(ctx context.Context, dest string) error {
	if err := a.db.BackupTo(ctx, dest); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	a.logger.Info("database backed up", "dest", dest)
	return nil
}

// Close closes the database and the log file. status is recorded with the
// run duration; pass nil for success.
func (a *DriveApp) Close(status error) error {
	a.run.Finish(status, a.clock.Now())
	if status != nil {
		a.logger.Error("run finished", "command", a.run.Command, "duration", a.run.Duration(), "error", status)
	} else {
		a.logger.Debug("run finished", "command", a.run.Command, "duration", a.run.Duration())
	}

	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
