package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"drive-go/internal/database/migrations"
	"drive-go/internal/drive"
	"drive-go/internal/model"
)

// SQLiteDatabase implements the drive.Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *Queries
	path    string
}

// NewSQLiteDatabase opens a SQLite database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, queries: NewQueries(db), path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection opened with OpenConnection.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db, queries: NewQueries(db)}
}

// OpenConnection opens a SQLite connection pool with foreign keys enforced on
// every connection and write transactions taking the lock up front.
// path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	const params = "_foreign_keys=on&_txlock=immediate&_busy_timeout=5000"

	dsn := "file:" + path + "?" + params
	memory := path == ":memory:"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// DB exposes the underlying pool for migrations and tests.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// User operations

func (s *SQLiteDatabase) CreateUser(ctx context.Context, user *model.User) error {
	if err := s.queries.InsertUser(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.queries.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return u, nil
}

func (s *SQLiteDatabase) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
	return u, nil
}

// Folder operations

func (s *SQLiteDatabase) InsertFolder(ctx context.Context, folder *model.Folder) error {
	if err := s.queries.InsertFolder(ctx, folder); err != nil {
		if isUniqueViolation(err) {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("inserting folder: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindFolder(ctx context.Context, owner, id string) (*model.Folder, error) {
	f, err := s.queries.GetFolder(ctx, owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	return f, nil
}

func (s *SQLiteDatabase) ListFolders(ctx context.Context, owner string, parentID *string) ([]*model.Folder, error) {
	folders, err := s.queries.ListFoldersByParent(ctx, owner, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return folders, nil
}

func (s *SQLiteDatabase) RenameFolder(ctx context.Context, owner, id, name string) error {
	n, err := s.queries.UpdateFolderName(ctx, owner, id, name)
	if err != nil {
		if isUniqueViolation(err) {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("renaming folder: %w", err)
	}
	if n == 0 {
		return drive.ErrRecordNotFound
	}
	return nil
}

// MoveFolder reparents a folder. The ancestor walk from the new parent and the
// update share one immediate transaction, so no concurrent move can slip a
// cycle in between the check and the write.
func (s *SQLiteDatabase) MoveFolder(ctx context.Context, owner, id string, parentID *string, maxDepth int) error {
	return s.inTx(ctx, func(q *Queries) error {
		if _, err := q.GetFolder(ctx, owner, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
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
				p, err := q.GetFolder(ctx, owner, cur)
				if errors.Is(err, sql.ErrNoRows) {
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

		n, err := q.UpdateFolderParent(ctx, owner, id, parentID)
		if err != nil {
			if isUniqueViolation(err) {
				return drive.ErrUniqueViolation
			}
			return fmt.Errorf("updating parent: %w", err)
		}
		if n == 0 {
			return drive.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteEmptyFolder checks for children and deletes in one transaction. The
// RESTRICT foreign keys back the check up.
func (s *SQLiteDatabase) DeleteEmptyFolder(ctx context.Context, owner, id string) error {
	return s.inTx(ctx, func(q *Queries) error {
		children, err := q.CountFolderChildren(ctx, owner, id)
		if err != nil {
			return fmt.Errorf("counting children: %w", err)
		}
		if children > 0 {
			return drive.ErrFolderHasChildren
		}

		n, err := q.DeleteFolder(ctx, owner, id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return drive.ErrFolderHasChildren
			}
			return fmt.Errorf("deleting folder: %w", err)
		}
		if n == 0 {
			return drive.ErrRecordNotFound
		}
		return nil
	})
}

// File operations

func (s *SQLiteDatabase) InsertFile(ctx context.Context, file *model.File) error {
	if err := s.queries.InsertFile(ctx, file); err != nil {
		if isUniqueViolation(err) {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindFile(ctx context.Context, owner, id string) (*model.File, error) {
	f, err := s.queries.GetFile(ctx, owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return f, nil
}

func (s *SQLiteDatabase) FindFileByName(ctx context.Context, owner string, folderID *string, name string) (*model.File, error) {
	f, err := s.queries.GetFileByName(ctx, owner, folderID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding file by name: %w", err)
	}
	return f, nil
}

func (s *SQLiteDatabase) ListFiles(ctx context.Context, owner string, folderID *string) ([]*model.File, error) {
	files, err := s.queries.ListFilesByFolder(ctx, owner, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

func (s *SQLiteDatabase) ListFilesByOwner(ctx context.Context, owner string) ([]*model.File, error) {
	files, err := s.queries.ListFilesByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing files by owner: %w", err)
	}
	return files, nil
}

func (s *SQLiteDatabase) RenameFile(ctx context.Context, owner, id, name string, updatedAt time.Time) error {
	n, err := s.queries.UpdateFileName(ctx, owner, id, name, updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return drive.ErrUniqueViolation
		}
		return fmt.Errorf("renaming file: %w", err)
	}
	if n == 0 {
		return drive.ErrRecordNotFound
	}
	return nil
}

func (s *SQLiteDatabase) UpdateFileTags(ctx context.Context, owner, id string, tags []string, updatedAt time.Time) error {
	n, err := s.queries.UpdateFileTags(ctx, owner, id, tags, updatedAt)
	if err != nil {
		return fmt.Errorf("updating file tags: %w", err)
	}
	if n == 0 {
		return drive.ErrRecordNotFound
	}
	return nil
}

func (s *SQLiteDatabase) DeleteFile(ctx context.Context, owner, id string) error {
	n, err := s.queries.DeleteFile(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	if n == 0 {
		return drive.ErrRecordNotFound
	}
	return nil
}

// Maintenance

func (s *SQLiteDatabase) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, migrations.SQLite)
}

// Migrate applies pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db, migrations.SQLite)
}

// BackupTo writes a consistent copy of the database to destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

var _ drive.Database = (*SQLiteDatabase)(nil)
