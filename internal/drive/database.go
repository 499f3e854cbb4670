package drive

import (
	"context"
	"time"

	"drive-go/internal/model"
)

// Database provides an interface for metadata storage operations.
// Every method is a single transaction. Lookups by id are always scoped to an
// owner; a record owned by someone else is indistinguishable from a missing one.
// Find methods return (nil, nil) when nothing matches.
type Database interface {
	// User operations

	// CreateUser inserts a new user. Returns ErrUniqueViolation if the email is taken.
	CreateUser(ctx context.Context, user *model.User) error

	// FindUserByID returns the user with the given id.
	FindUserByID(ctx context.Context, id string) (*model.User, error)

	// FindUserByEmail returns the user registered with the given email.
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)

	// Folder operations

	// InsertFolder creates a folder. Returns ErrUniqueViolation if a sibling
	// with the same name exists under (owner, parent).
	InsertFolder(ctx context.Context, folder *model.Folder) error

	// FindFolder returns a folder owned by owner.
	FindFolder(ctx context.Context, owner, id string) (*model.Folder, error)

	// ListFolders returns the direct child folders of parentID (nil = root), name ascending.
	ListFolders(ctx context.Context, owner string, parentID *string) ([]*model.Folder, error)

	// RenameFolder changes a folder's name in place.
	// Returns ErrRecordNotFound or ErrUniqueViolation.
	RenameFolder(ctx context.Context, owner, id, name string) error

	// MoveFolder reparents a folder. Within the same transaction it walks from
	// the new parent towards the root and returns ErrHierarchyCycle if the walk
	// reaches the folder itself or exceeds maxDepth.
	// Returns ErrRecordNotFound, ErrUniqueViolation or ErrHierarchyCycle.
	MoveFolder(ctx context.Context, owner, id string, parentID *string, maxDepth int) error

	// DeleteEmptyFolder removes a folder that has no child folders and no files.
	// Returns ErrRecordNotFound or ErrFolderHasChildren.
	DeleteEmptyFolder(ctx context.Context, owner, id string) error

	// File operations

	// InsertFile creates a file record. Returns ErrUniqueViolation if a sibling
	// file has the same name or the storage path is already used.
	InsertFile(ctx context.Context, file *model.File) error

	// FindFile returns a file owned by owner.
	FindFile(ctx context.Context, owner, id string) (*model.File, error)

	// FindFileByName returns the file named name directly under folderID (nil = root).
	FindFileByName(ctx context.Context, owner string, folderID *string, name string) (*model.File, error)

	// ListFiles returns the files directly under folderID (nil = root), name ascending.
	ListFiles(ctx context.Context, owner string, folderID *string) ([]*model.File, error)

	// ListFilesByOwner returns every file owned by owner regardless of folder.
	ListFilesByOwner(ctx context.Context, owner string) ([]*model.File, error)

	// RenameFile changes a file's display name.
	// Returns ErrRecordNotFound or ErrUniqueViolation.
	RenameFile(ctx context.Context, owner, id, name string, updatedAt time.Time) error

	// UpdateFileTags replaces a file's tag list.
	UpdateFileTags(ctx context.Context, owner, id string, tags []string, updatedAt time.Time) error

	// DeleteFile removes a file record. Returns ErrRecordNotFound.
	DeleteFile(ctx context.Context, owner, id string) error

	// Ping verifies the database connection.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
