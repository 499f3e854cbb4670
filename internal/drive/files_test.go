package drive_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"drive-go/internal/drive"
)

func TestDriveService_ListFiles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drive.Options{})
	h.upload(t, u1, nil, "b.txt", "b")
	h.upload(t, u1, nil, "a.txt", "a")
	h.upload(t, u2, nil, "c.txt", "c")

	files, err := h.svc.ListFiles(ctx, u1, nil)
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 || files[0].Name != "a.txt" || files[1].Name != "b.txt" {
		t.Fatalf("ListFiles() returned %d files, want a.txt, b.txt", len(files))
	}

	_, err = h.svc.ListFiles(ctx, u1, ptr("missing"))
	requireKind(t, err, drive.KindNotFound)
}

func TestDriveService_GetFile_Scoped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drive.Options{})
	res := h.upload(t, u1, nil, "a.txt", "hello")

	_, err := h.svc.GetFile(ctx, u2, res.FileID)
	requireKind(t, err, drive.KindNotFound)
}

func TestDriveService_DownloadLink(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drive.Options{DownloadTTL: 5 * time.Minute})
	res := h.upload(t, u1, nil, "a.txt", "hello")

	link, err := h.svc.DownloadLink(ctx, u1, res.FileID)
	if err != nil {
		t.Fatalf("DownloadLink() error = %v", err)
	}
	if link.ExpiresIn != 5*time.Minute {
		t.Errorf("ExpiresIn = %v, want 5m", link.ExpiresIn)
	}
	if !strings.Contains(link.URL, res.FileID) {
		t.Errorf("URL = %q, want it to reference the blob", link.URL)
	}

	_, err = h.svc.DownloadLink(ctx, u2, res.FileID)
	requireKind(t, err, drive.KindNotFound)
}

func TestDriveService_DownloadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("streams content", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u1, nil, "a.txt", "hello world")

		var buf bytes.Buffer
		file, err := h.svc.DownloadFile(ctx, u1, res.FileID, &buf)
		if err != nil {
			t.Fatalf("DownloadFile() error = %v", err)
		}
		if buf.String() != "hello world" {
			t.Errorf("content = %q", buf.String())
		}
		if file.Name != "a.txt" {
			t.Errorf("Name = %q", file.Name)
		}
	})

	t.Run("missing blob is a storage error", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u1, nil, "a.txt", "hello")
		if err := h.blobs.MemoryStore.Delete(ctx, drive.StoragePath(u1, res.FileID, "a.txt")); err != nil {
			t.Fatalf("removing blob: %v", err)
		}
		_, err := h.svc.DownloadFile(ctx, u1, res.FileID, &bytes.Buffer{})
		requireKind(t, err, drive.KindStorageError)
	})

	t.Run("timeout is retryable", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u1, nil, "a.txt", "hello")
		h.blobs.FailGet(context.DeadlineExceeded)
		_, err := h.svc.DownloadFile(ctx, u1, res.FileID, &bytes.Buffer{})
		requireKind(t, err, drive.KindStorageUnavailable)
	})
}

func TestDriveService_DeleteFile(t *testing.T) {
	ctx := context.Background()

	t.Run("removes blob and record", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u1, nil, "a.txt", "hello")

		if err := h.svc.DeleteFile(ctx, u1, res.FileID); err != nil {
			t.Fatalf("DeleteFile() error = %v", err)
		}
		if len(h.blobs.Paths()) != 0 {
			t.Error("blob not removed")
		}
		_, err := h.svc.GetFile(ctx, u1, res.FileID)
		requireKind(t, err, drive.KindNotFound)
	})

	t.Run("blob failure keeps record", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u1, nil, "a.txt", "hello")
		h.blobs.FailDelete(errors.New("access denied"))

		requireKind(t, h.svc.DeleteFile(ctx, u1, res.FileID), drive.KindStorageError)
		if _, err := h.svc.GetFile(ctx, u1, res.FileID); err != nil {
			t.Errorf("record removed despite blob failure: %v", err)
		}
	})

	t.Run("already missing blob", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u1, nil, "a.txt", "hello")
		h.blobs.MemoryStore.Delete(ctx, drive.StoragePath(u1, res.FileID, "a.txt"))

		if err := h.svc.DeleteFile(ctx, u1, res.FileID); err != nil {
			t.Fatalf("DeleteFile() error = %v", err)
		}
	})

	t.Run("not owned", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u2, nil, "a.txt", "hello")
		requireKind(t, h.svc.DeleteFile(ctx, u1, res.FileID), drive.KindNotFound)
		if len(h.blobs.Paths()) != 1 {
			t.Error("blob of other owner was removed")
		}
	})
}

func TestDriveService_RenameFile(t *testing.T) {
	ctx := context.Background()

	t.Run("renames and bumps updated_at", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u1, nil, "a.txt", "hello")
		h.clock.Advance(time.Hour)

		file, err := h.svc.RenameFile(ctx, u1, res.FileID, "b.txt")
		if err != nil {
			t.Fatalf("RenameFile() error = %v", err)
		}
		if file.Name != "b.txt" {
			t.Errorf("Name = %q", file.Name)
		}
		if !file.UpdatedAt.Equal(h.clock.Now()) {
			t.Errorf("UpdatedAt = %v, want %v", file.UpdatedAt, h.clock.Now())
		}
		if file.StoragePath != drive.StoragePath(u1, res.FileID, "a.txt") {
			t.Errorf("StoragePath changed to %q", file.StoragePath)
		}
	})

	t.Run("conflict with sibling", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u1, nil, "a.txt", "hello")
		h.upload(t, u1, nil, "b.txt", "world")

		_, err := h.svc.RenameFile(ctx, u1, res.FileID, "b.txt")
		requireKind(t, err, drive.KindNameConflict)
	})
}

func TestDriveService_RetagFile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drive.Options{})
	res := h.upload(t, u1, nil, "a.txt", "hello")
	h.svc.WithTagger(fixedTagger{"custom"})

	file, err := h.svc.RetagFile(ctx, u1, res.FileID)
	if err != nil {
		t.Fatalf("RetagFile() error = %v", err)
	}
	stored, _ := h.svc.GetFile(ctx, u1, res.FileID)
	if len(file.Tags) != 1 || len(stored.Tags) != 1 || stored.Tags[0] != "custom" {
		t.Errorf("Tags = %v, stored %v", file.Tags, stored.Tags)
	}
}

type fixedTagger []string

func (f fixedTagger) Tags(string, string) []string { return f }
