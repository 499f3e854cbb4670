package blob

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newFSStore(t *testing.T) *FileSystemStore {
	t.Helper()
	s, err := NewFileSystemStore(filepath.Join(t.TempDir(), "blobs"), "test-key")
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	return s
}

func TestNewFileSystemStore(t *testing.T) {
	t.Run("creates root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "a", "b")
		s, err := NewFileSystemStore(root, "")
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
		if info, err := os.Stat(s.Root()); err != nil || !info.IsDir() {
			t.Errorf("root not created: %v", err)
		}
	})

	t.Run("random key when none configured", func(t *testing.T) {
		s, err := NewFileSystemStore(t.TempDir(), "")
		if err != nil {
			t.Fatalf("NewFileSystemStore() error = %v", err)
		}
		if len(s.key) != 32 {
			t.Errorf("len(key) = %d, want 32", len(s.key))
		}
	})
}

func TestFileSystemStore_Layout(t *testing.T) {
	ctx := context.Background()
	s := newFSStore(t)

	if err := s.Put(ctx, "u1/f1/a.txt", strings.NewReader("hi"), 2, "text/plain"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.Root(), "u1", "f1", "a.txt"))
	if err != nil || string(data) != "hi" {
		t.Fatalf("blob file = %q, %v", data, err)
	}

	entries, _ := os.ReadDir(filepath.Join(s.Root(), "u1", "f1"))
	if len(entries) != 1 {
		t.Errorf("blob directory has %d entries, want 1 (temp files left behind?)", len(entries))
	}

	if err := s.Delete(ctx, "u1/f1/a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "u1")); !os.IsNotExist(err) {
		t.Errorf("empty owner directory not pruned: %v", err)
	}
	if _, err := os.Stat(s.Root()); err != nil {
		t.Errorf("root removed by Delete: %v", err)
	}
}

func TestFileSystemStore_RejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	s := newFSStore(t)

	for _, p := range []string{"", "../outside", "u1/../../outside", "/etc/passwd"} {
		t.Run(p, func(t *testing.T) {
			if err := s.Put(ctx, p, strings.NewReader("x"), 1, ""); err == nil {
				t.Errorf("Put(%q) succeeded, want error", p)
			}
		})
	}
}

func TestFileSystemStore_PresignedLinks(t *testing.T) {
	ctx := context.Background()
	s := newFSStore(t)
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Put(ctx, "u1/f1/a.txt", strings.NewReader("hi"), 2, "text/plain")
	link, err := s.PresignGet(ctx, "u1/f1/a.txt", 30*time.Minute)
	if err != nil {
		t.Fatalf("PresignGet() error = %v", err)
	}
	if !strings.HasPrefix(link, "file://") {
		t.Errorf("PresignGet() = %q, want file:// URL", link)
	}

	t.Run("valid link", func(t *testing.T) {
		got, err := s.VerifyLink(link)
		if err != nil {
			t.Fatalf("VerifyLink() error = %v", err)
		}
		if got != filepath.Join(s.Root(), "u1", "f1", "a.txt") {
			t.Errorf("VerifyLink() = %q", got)
		}
	})

	t.Run("tampered path", func(t *testing.T) {
		u, _ := url.Parse(link)
		u.Path = strings.Replace(u.Path, "a.txt", "b.txt", 1)
		if _, err := s.VerifyLink(u.String()); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("VerifyLink() error = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("tampered expiry", func(t *testing.T) {
		u, _ := url.Parse(link)
		q := u.Query()
		q.Set("expires", "9999999999")
		u.RawQuery = q.Encode()
		if _, err := s.VerifyLink(u.String()); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("VerifyLink() error = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		now = now.Add(31 * time.Minute)
		defer func() { now = now.Add(-31 * time.Minute) }()
		if _, err := s.VerifyLink(link); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("VerifyLink() error = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("other key", func(t *testing.T) {
		other, _ := NewFileSystemStore(s.Root(), "other-key")
		if _, err := other.VerifyLink(link); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("VerifyLink() error = %v, want ErrInvalidSignature", err)
		}
	})
}
