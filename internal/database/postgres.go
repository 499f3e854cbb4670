package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"drive-go/internal/database/migrations"
	"drive-go/internal/drive"
	"drive-go/internal/model"
)

// ErrBackupUnsupported is returned by PostgresDatabase.BackupTo. Postgres
// backups belong to pg_dump or the hosting platform.
var ErrBackupUnsupported = errors.New("backup is not supported for postgres databases (use pg_dump)")

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// pgxDBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxDBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDatabase implements the drive.Database interface on a pgx pool.
type PostgresDatabase struct {
	pool *pgxpool.Pool
}

// NewPostgresDatabase connects to the database at dsn and verifies the
// connection.
func NewPostgresDatabase(ctx context.Context, dsn string) (*PostgresDatabase, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &PostgresDatabase{pool: pool}, nil
}

// Pool exposes the underlying pool for tests.
func (s *PostgresDatabase) Pool() *pgxpool.Pool {
	return s.pool
}

// User operations

const pgUserColumns = `id, email, credential_hash, display_name, created_at`

func (s *PostgresDatabase) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+pgUserColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.CredentialHash, u.DisplayName, u.CreatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (s *PostgresDatabase) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id)
	u, err := scanPgUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return u, nil
}

func (s *PostgresDatabase) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE email = $1`, email)
	u, err := scanPgUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
	return u, nil
}

func scanPgUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.CredentialHash, &u.DisplayName, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Folder operations

func (s *PostgresDatabase) InsertFolder(ctx context.Context, f *model.Folder) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO folders (`+folderColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.Name, f.OwnerID, f.ParentID, f.CreatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("inserting folder: %w", err)
	}
	return nil
}

func (s *PostgresDatabase) FindFolder(ctx context.Context, owner, id string) (*model.Folder, error) {
	f, err := getPgFolder(ctx, s.pool, owner, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	return f, nil
}

func (s *PostgresDatabase) ListFolders(ctx context.Context, owner string, parentID *string) ([]*model.Folder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2 ORDER BY name, id`,
		owner, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	folders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Folder, error) {
		return scanPgFolder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return folders, nil
}

func (s *PostgresDatabase) RenameFolder(ctx context.Context, owner, id, name string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE folders SET name = $1 WHERE owner_id = $2 AND id = $3`, name, owner, id)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("renaming folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return drive.ErrRecordNotFound
	}
	return nil
}

// MoveFolder reparents a folder. Moves for one owner are serialized by a
// transaction-scoped advisory lock, so the ancestor walk and the update see
// the same tree.
func (s *PostgresDatabase) MoveFolder(ctx context.Context, owner, id string, parentID *string, maxDepth int) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, owner); err != nil {
			return fmt.Errorf("locking owner tree: %w", err)
		}
		if _, err := getPgFolder(ctx, tx, owner, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return drive.ErrRecordNotFound
			}
			return fmt.Errorf("finding folder: %w", err)
		}

		if parentID != nil {
			cur := *parentID
			for depth := 0; ; depth++ {
				if cur == id || depth >= maxDepth {
					return drive.ErrHierarchyCycle
				}
				p, err := getPgFolder(ctx, tx, owner, cur)
				if errors.Is(err, pgx.ErrNoRows) {
					return drive.ErrRecordNotFound
				}
				if err != nil {
					return fmt.Errorf("walking ancestors: %w", err)
				}
				if p.ParentID == nil {
					break
				}
				cur = *p.ParentID
			}
		}

		tag, err := tx.Exec(ctx, `UPDATE folders SET parent_id = $1 WHERE owner_id = $2 AND id = $3`, parentID, owner, id)
		if err != nil {
			if pgCode(err) == pgUniqueViolation {
				return drive.ErrUniqueViolation
			}
			return fmt.Errorf("updating parent: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return drive.ErrRecordNotFound
		}
		return nil
	})
}

func (s *PostgresDatabase) DeleteEmptyFolder(ctx context.Context, owner, id string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var children int64
		err := tx.QueryRow(ctx, `
			SELECT (SELECT COUNT(*) FROM folders WHERE owner_id = $1 AND parent_id = $2)
			     + (SELECT COUNT(*) FROM files WHERE owner_id = $1 AND folder_id = $2)`,
			owner, id).Scan(&children)
		if err != nil {
			return fmt.Errorf("counting children: %w", err)
		}
		if children > 0 {
			return drive.ErrFolderHasChildren
		}

		tag, err := tx.Exec(ctx, `DELETE FROM folders WHERE owner_id = $1 AND id = $2`, owner, id)
		if err != nil {
			if pgCode(err) == pgForeignKeyViolation {
				return drive.ErrFolderHasChildren
			}
			return fmt.Errorf("deleting folder: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return drive.ErrRecordNotFound
		}
		return nil
	})
}

func getPgFolder(ctx context.Context, db pgxDBTX, owner, id string) (*model.Folder, error) {
	row := db.QueryRow(ctx, `SELECT `+folderColumns+` FROM folders WHERE owner_id = $1 AND id = $2`, owner, id)
	return scanPgFolder(row)
}

func scanPgFolder(row pgx.Row) (*model.Folder, error) {
	var f model.Folder
	if err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &f.ParentID, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// File operations

func (s *PostgresDatabase) InsertFile(ctx context.Context, f *model.File) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO files (`+fileColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		f.ID, f.Name, f.StoragePath, f.MimeType, f.Size, f.OwnerID, f.FolderID,
		f.CreatedAt, f.UpdatedAt, pgTags(f.Tags), pgEmbedding(f.Embedding))
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

func (s *PostgresDatabase) FindFile(ctx context.Context, owner, id string) (*model.File, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE owner_id = $1 AND id = $2`, owner, id)
	f, err := scanPgFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return f, nil
}

func (s *PostgresDatabase) FindFileByName(ctx context.Context, owner string, folderID *string, name string) (*model.File, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = $1 AND folder_id IS NOT DISTINCT FROM $2 AND name = $3`,
		owner, folderID, name)
	f, err := scanPgFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding file by name: %w", err)
	}
	return f, nil
}

func (s *PostgresDatabase) ListFiles(ctx context.Context, owner string, folderID *string) ([]*model.File, error) {
	files, err := s.listFiles(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = $1 AND folder_id IS NOT DISTINCT FROM $2 ORDER BY name, id`,
		owner, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

func (s *PostgresDatabase) ListFilesByOwner(ctx context.Context, owner string) ([]*model.File, error) {
	files, err := s.listFiles(ctx,
		`SELECT `+fileColumns+` FROM files WHERE owner_id = $1 ORDER BY created_at DESC, id`,
		owner)
	if err != nil {
		return nil, fmt.Errorf("listing files by owner: %w", err)
	}
	return files, nil
}

func (s *PostgresDatabase) listFiles(ctx context.Context, query string, args ...any) ([]*model.File, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.File, error) {
		return scanPgFile(row)
	})
}

func (s *PostgresDatabase) RenameFile(ctx context.Context, owner, id, name string, updatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE files SET name = $1, updated_at = $2 WHERE owner_id = $3 AND id = $4`,
		name, updatedAt, owner, id)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("renaming file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return drive.ErrRecordNotFound
	}
	return nil
}

func (s *PostgresDatabase) UpdateFileTags(ctx context.Context, owner, id string, tags []string, updatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE files SET tags = $1, updated_at = $2 WHERE owner_id = $3 AND id = $4`,
		pgTags(tags), updatedAt, owner, id)
	if err != nil {
		return fmt.Errorf("updating file tags: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return drive.ErrRecordNotFound
	}
	return nil
}

func (s *PostgresDatabase) DeleteFile(ctx context.Context, owner, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM files WHERE owner_id = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return drive.ErrRecordNotFound
	}
	return nil
}

func scanPgFile(row pgx.Row) (*model.File, error) {
	var f model.File
	err := row.Scan(&f.ID, &f.Name, &f.StoragePath, &f.MimeType, &f.Size, &f.OwnerID, &f.FolderID,
		&f.CreatedAt, &f.UpdatedAt, &f.Tags, &f.Embedding)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Maintenance

func (s *PostgresDatabase) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *PostgresDatabase) CheckMigrations() error {
	db := stdlib.OpenDBFromPool(s.pool)
	return migrations.CheckDBMigrationStatus(db, migrations.Postgres)
}

// Migrate applies pending schema migrations.
func (s *PostgresDatabase) Migrate() error {
	db := stdlib.OpenDBFromPool(s.pool)
	return migrations.MigrateUp(db, migrations.Postgres)
}

func (s *PostgresDatabase) BackupTo(ctx context.Context, destPath string) error {
	return ErrBackupUnsupported
}

func (s *PostgresDatabase) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresDatabase) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// pgTags keeps the NOT NULL column populated for files without tags.
func pgTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// pgEmbedding stores an empty vector as NULL, matching the sqlite store.
func pgEmbedding(vec []float32) []float32 {
	if len(vec) == 0 {
		return nil
	}
	return vec
}

var _ drive.Database = (*PostgresDatabase)(nil)
