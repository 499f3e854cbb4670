package drive

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Ranking controls how search scores are blended.
type Ranking struct {
	NameWeight       float64 // weight of the filename match signal
	SimilarityWeight float64 // weight of cosine similarity
	MinScore         float64 // results scoring below this are dropped
	Limit            int     // max results; 0 means unlimited
}

// Options tunes the service. Zero fields fall back to DefaultOptions.
type Options struct {
	MaxDepth       int           // bound on ancestor walks
	MaxUploadSize  int64         // largest accepted upload in bytes
	EmbedTextLimit int           // bytes of textual content fed to the embedder
	BlobTimeout    time.Duration // per blob store call
	EmbedTimeout   time.Duration // per embedding call
	DownloadTTL    time.Duration // lifetime of presigned download URLs
	Ranking        Ranking
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxDepth:       64,
		MaxUploadSize:  100 << 20,
		EmbedTextLimit: 8 << 10,
		BlobTimeout:    30 * time.Second,
		EmbedTimeout:   10 * time.Second,
		DownloadTTL:    30 * time.Minute,
		Ranking: Ranking{
			NameWeight:       1.0,
			SimilarityWeight: 1.0,
			MinScore:         0.0,
		},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.MaxUploadSize <= 0 {
		o.MaxUploadSize = d.MaxUploadSize
	}
	if o.EmbedTextLimit <= 0 {
		o.EmbedTextLimit = d.EmbedTextLimit
	}
	if o.BlobTimeout <= 0 {
		o.BlobTimeout = d.BlobTimeout
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = d.EmbedTimeout
	}
	if o.DownloadTTL <= 0 {
		o.DownloadTTL = d.DownloadTTL
	}
	if o.Ranking.NameWeight == 0 && o.Ranking.SimilarityWeight == 0 {
		o.Ranking.NameWeight = d.Ranking.NameWeight
		o.Ranking.SimilarityWeight = d.Ranking.SimilarityWeight
	}
	return o
}

// DriveService is the orchestration layer behind every user-facing
// operation: the namespace manager, the ingestion pipeline and the search
// engine. It holds no per-request state; all collaborators are injected and
// owned by the caller.
type DriveService struct {
	database Database
	blobs    BlobStore
	embedder Embedder
	tagger   Tagger
	metrics  Metrics
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	opts     Options
}

// NewDriveService creates a DriveService with the provided dependencies.
// logger, clock and idgen may be nil, in which case silent, real-time and
// UUID implementations are used.
func NewDriveService(database Database, blobs BlobStore, embedder Embedder, logger Logger, clock Clock, idgen IDGenerator, opts Options) *DriveService {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	return &DriveService{
		database: database,
		blobs:    blobs,
		embedder: embedder,
		tagger:   RuleTagger{},
		metrics:  NopMetrics{},
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		opts:     opts.withDefaults(),
	}
}

// WithTagger replaces the default RuleTagger.
func (s *DriveService) WithTagger(t Tagger) *DriveService {
	s.tagger = t
	return s
}

// WithMetrics installs a metrics sink.
func (s *DriveService) WithMetrics(m Metrics) *DriveService {
	s.metrics = m
	return s
}

// Options returns the effective options.
func (s *DriveService) Options() Options {
	return s.opts
}

// CheckUser returns UnknownUser unless owner has a user record.
func (s *DriveService) CheckUser(ctx context.Context, owner string) error {
	u, err := s.database.FindUserByID(ctx, owner)
	if err != nil {
		return fmt.Errorf("finding user: %w", err)
	}
	if u == nil {
		return newError(KindUnknownUser, "user is not registered", nil)
	}
	return nil
}

// storageFailure classifies a blob store error: timeouts and cancellations
// are retryable, anything else is a hard storage error.
func storageFailure(msg string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(KindStorageUnavailable, msg, err)
	}
	return newError(KindStorageError, msg, err)
}
