package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for drive.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	LogLevel  string          `toml:"log_level" validate:"omitempty,oneof=debug info warn error"` // debug, info, warn, error
	Database  DatabaseConfig  `toml:"database"`
	Blob      BlobConfig      `toml:"blob"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Search    SearchConfig    `toml:"search"`
	Ingest    IngestConfig    `toml:"ingest"`
	Namespace NamespaceConfig `toml:"namespace"`
	Timeouts  TimeoutsConfig  `toml:"timeouts"`
	Server    ServerConfig    `toml:"server"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type" validate:"oneof=sqlite memory postgres"`

	// SQLite-specific fields (only used when Type == "sqlite")
	DataDir string `toml:"data_dir,omitempty" validate:"required_if=Type sqlite"`

	// Postgres-specific fields (only used when Type == "postgres")
	DSN    string `toml:"dsn,omitempty"`     // connection string; prefer dsn_env for credentials
	DSNEnv string `toml:"dsn_env,omitempty"` // env var holding the connection string (default DATABASE_URL)
}

// BlobConfig represents configuration for the blob store holding file content.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobConfig struct {
	Type string `toml:"type" validate:"oneof=memory filesystem s3"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot       string `toml:"fs_root,omitempty" validate:"required_if=Type filesystem"`
	FSSigningKey string `toml:"fs_signing_key,omitempty"` // HMAC key for presigned file:// links

	// S3-specific fields (only used when Type == "s3")
	S3Bucket       string `toml:"s3_bucket,omitempty" validate:"required_if=Type s3"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty" validate:"omitempty,url"` // custom endpoint, e.g. MinIO
	S3UsePathStyle bool   `toml:"s3_use_path_style,omitempty"`                    // required by most S3-compatible servers
	S3AccessKeyID  string `toml:"s3_access_key_id,omitempty"`
	S3SecretKey    string `toml:"s3_secret_key,omitempty"`
}

// EmbeddingConfig selects the embedding model.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type EmbeddingConfig struct {
	Type      string `toml:"type" validate:"oneof=hashing openai none"`
	Dimension int    `toml:"dimension" validate:"required_unless=Type none,gte=0"` // vector length; must match the model

	// BreakerFailures consecutive failures open the circuit around the
	// embedder for BreakerCooldown; 0 disables the breaker.
	BreakerFailures uint32        `toml:"breaker_failures"`
	BreakerCooldown time.Duration `toml:"breaker_cooldown"`

	// OpenAI-specific fields (only used when Type == "openai")
	Model     string `toml:"model,omitempty"`
	APIKeyEnv string `toml:"api_key_env,omitempty"`                       // environment variable holding the key
	BaseURL   string `toml:"base_url,omitempty" validate:"omitempty,url"` // for OpenAI-compatible servers
}

// SearchConfig tunes result ranking.
type SearchConfig struct {
	NameWeight       float64 `toml:"name_weight" validate:"gte=0"`
	SimilarityWeight float64 `toml:"similarity_weight" validate:"gte=0"`
	MinScore         float64 `toml:"min_score"`
	Limit            int     `toml:"limit" validate:"gte=0"` // 0 = unlimited
}

// IngestConfig bounds uploads.
type IngestConfig struct {
	MaxSize        int64         `toml:"max_size" validate:"gte=0"`         // bytes
	EmbedTextLimit int           `toml:"embed_text_limit" validate:"gte=0"` // bytes of text content fed to the embedder
	DownloadTTL    time.Duration `toml:"download_ttl"`
}

// NamespaceConfig bounds the folder hierarchy.
type NamespaceConfig struct {
	MaxDepth int `toml:"max_depth" validate:"gte=0"`
}

// TimeoutsConfig bounds calls to external collaborators.
type TimeoutsConfig struct {
	Blob      time.Duration `toml:"blob"`
	Embedding time.Duration `toml:"embedding"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	CORSOrigins     []string      `toml:"cors_origins,omitempty"`

	// Auth selects how requests are attributed to a user: "header" trusts
	// X-User-ID from an upstream proxy, "jwt" requires a bearer token issued
	// by POST /api/auth/token and signed with the secret in AuthSecretEnv.
	Auth          string        `toml:"auth" validate:"omitempty,oneof=header jwt"`
	AuthSecretEnv string        `toml:"auth_secret_env,omitempty"`
	TokenTTL      time.Duration `toml:"token_ttl,omitempty"`
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Blob: BlobConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "blobs"),
		},
		Embedding: EmbeddingConfig{
			Type:            "hashing",
			Dimension:       256,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Search: SearchConfig{
			NameWeight:       1.0,
			SimilarityWeight: 1.0,
		},
		Ingest: IngestConfig{
			MaxSize:        100 << 20,
			EmbedTextLimit: 8 << 10,
			DownloadTTL:    30 * time.Minute,
		},
		Namespace: NamespaceConfig{MaxDepth: 64},
		Timeouts: TimeoutsConfig{
			Blob:      30 * time.Second,
			Embedding: 10 * time.Second,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     time.Minute,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			Auth:            "header",
			AuthSecretEnv:   "DRIVE_AUTH_SECRET",
			TokenTTL:        24 * time.Hour,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold S3 credentials.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. It fails if the file exists.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
