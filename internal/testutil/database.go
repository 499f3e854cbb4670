package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"drive-go/internal/database"
	"drive-go/internal/drive"
	"drive-go/internal/model"
)

// NewTestDatabase creates a new in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// CreateTestUser inserts a user with the given id and a derived email.
func CreateTestUser(t *testing.T, db drive.Database, id string) *model.User {
	t.Helper()

	u := &model.User{
		ID:             id,
		Email:          id + "@example.com",
		CredentialHash: "x",
		DisplayName:    id,
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user %s: %v", id, err)
	}
	return u
}

// FaultyDatabase wraps a Database and fails selected calls.
type FaultyDatabase struct {
	drive.Database

	mu            sync.Mutex
	insertFileErr error
	beforeInsert  func()
	listErr       error
}

func NewFaultyDatabase(inner drive.Database) *FaultyDatabase {
	return &FaultyDatabase{Database: inner}
}

// FailInsertFile makes every InsertFile call return err.
func (d *FaultyDatabase) FailInsertFile(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.insertFileErr = err
}

// BeforeInsertFile runs fn at the start of every InsertFile call.
func (d *FaultyDatabase) BeforeInsertFile(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.beforeInsert = fn
}

// FailListFilesByOwner makes every ListFilesByOwner call return err.
func (d *FaultyDatabase) FailListFilesByOwner(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listErr = err
}

func (d *FaultyDatabase) InsertFile(ctx context.Context, file *model.File) error {
	d.mu.Lock()
	err, hook := d.insertFileErr, d.beforeInsert
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return err
	}
	return d.Database.InsertFile(ctx, file)
}

func (d *FaultyDatabase) ListFilesByOwner(ctx context.Context, owner string) ([]*model.File, error) {
	d.mu.Lock()
	err := d.listErr
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return d.Database.ListFilesByOwner(ctx, owner)
}
