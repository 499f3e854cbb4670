package model

import "time"

// User is the identity anchor that owns folders and files.
type User struct {
	ID             string // UUID
	Email          string // unique
	CredentialHash string // bcrypt hash
	DisplayName    string
	CreatedAt      time.Time
}

// Folder is a namespace node. A nil ParentID places the folder at the owner's root.
type Folder struct {
	ID        string // UUID
	Name      string // unique among siblings of the same (owner, parent)
	OwnerID   string // Foreign key to User
	ParentID  *string
	CreatedAt time.Time
}

// File is a leaf namespace node whose bytes live in the blob store.
type File struct {
	ID          string // UUID
	Name        string // display name, unique among sibling files
	StoragePath string // opaque blob store key, unique
	MimeType    string // sniffed from content
	Size        int64
	OwnerID     string  // Foreign key to User
	FolderID    *string // nil => root
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        []string
	Embedding   []float32 // nil when the embedding service was unavailable at upload
}

// HasEmbedding reports whether the file carries a semantic vector.
func (f *File) HasEmbedding() bool {
	return len(f.Embedding) > 0
}

// SameParent reports whether two optional parent references point at the same folder.
func SameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
