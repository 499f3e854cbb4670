package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"drive-go/internal/config"
	"drive-go/internal/drive"
)

// DefaultDSNEnv names the variable holding the postgres connection string
// when the config sets neither dsn nor dsn_env.
const DefaultDSNEnv = "DATABASE_URL"

// Store is a metadata database together with its schema maintenance.
type Store interface {
	drive.Database

	// CheckMigrations returns nil only if the schema is at the latest version.
	CheckMigrations() error

	// Migrate applies pending schema migrations.
	Migrate() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(ctx context.Context, destPath string) error
}

// NewDatabaseFromConfig opens the metadata database selected by cfg.Type.
// An in-memory database is migrated on open; file and postgres databases
// must be migrated explicitly and are checked by the caller.
func NewDatabaseFromConfig(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		db, err := NewSQLiteDatabase(filepath.Join(cfg.DataDir, "drive.db"))
		if err != nil {
			return nil, err
		}
		return db, nil
	case "memory":
		db, err := NewSQLiteDatabase(":memory:")
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating in-memory database: %w", err)
		}
		return db, nil
	case "postgres":
		dsn := postgresDSN(cfg)
		if dsn == "" {
			return nil, fmt.Errorf("postgres database requires dsn or a connection string in $%s", dsnEnv(cfg))
		}
		db, err := NewPostgresDatabase(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

func postgresDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return os.Getenv(dsnEnv(cfg))
}

func dsnEnv(cfg config.DatabaseConfig) string {
	if cfg.DSNEnv != "" {
		return cfg.DSNEnv
	}
	return DefaultDSNEnv
}

var (
	_ Store = (*SQLiteDatabase)(nil)
	_ Store = (*PostgresDatabase)(nil)
)
