package drive_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"drive-go/internal/drive"
	"drive-go/internal/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestDriveService_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores blob and metadata", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res := h.upload(t, u1, nil, "report.txt", "quarterly report figures")

		if res.MimeType != "text/plain" {
			t.Errorf("MimeType = %q, want text/plain", res.MimeType)
		}
		if res.Size != int64(len("quarterly report figures")) {
			t.Errorf("Size = %d", res.Size)
		}
		if res.Degraded {
			t.Error("Degraded = true, want false")
		}
		if want := []string{"text", "document", "txt"}; !reflect.DeepEqual(res.Tags, want) {
			t.Errorf("Tags = %v, want %v", res.Tags, want)
		}

		file, err := h.svc.GetFile(ctx, u1, res.FileID)
		if err != nil {
			t.Fatalf("GetFile() error = %v", err)
		}
		wantPath := drive.StoragePath(u1, res.FileID, "report.txt")
		if file.StoragePath != wantPath {
			t.Errorf("StoragePath = %q, want %q", file.StoragePath, wantPath)
		}
		if !file.HasEmbedding() || len(file.Embedding) != 4 {
			t.Errorf("Embedding = %v, want 4 dimensions", file.Embedding)
		}
		if paths := h.blobs.Paths(); len(paths) != 1 || paths[0] != wantPath {
			t.Errorf("blob paths = %v", paths)
		}
		if ct := h.blobs.ContentType(wantPath); ct != "text/plain" {
			t.Errorf("blob content type = %q", ct)
		}
		if h.metrics.Uploads != 1 {
			t.Errorf("Uploads metric = %d, want 1", h.metrics.Uploads)
		}
	})

	t.Run("embeds filename and text content", func(t *testing.T) {
		h := newHarness(t, drive.Options{EmbedTextLimit: 5})
		h.upload(t, u1, nil, "notes.md", "abcdefghij")
		calls := h.embedder.Calls()
		if len(calls) != 1 || calls[0] != "notes.md\nabcde" {
			t.Errorf("embedder input = %q, want filename plus truncated content", calls)
		}
	})

	t.Run("binary content embeds filename only", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res, err := h.svc.Upload(ctx, u1, nil, "holiday.png", pngHeader)
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if res.MimeType != "image/png" {
			t.Errorf("MimeType = %q, want image/png", res.MimeType)
		}
		if want := []string{"image", "photo", "png"}; !reflect.DeepEqual(res.Tags, want) {
			t.Errorf("Tags = %v, want %v", res.Tags, want)
		}
		if calls := h.embedder.Calls(); len(calls) != 1 || calls[0] != "holiday.png" {
			t.Errorf("embedder input = %q", calls)
		}
	})

	t.Run("sniffs content regardless of extension", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res, err := h.svc.Upload(ctx, u1, nil, "fake.txt", pngHeader)
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if res.MimeType != "image/png" {
			t.Errorf("MimeType = %q, want image/png", res.MimeType)
		}
	})

	t.Run("into folder", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		docs := h.mkdir(t, u1, nil, "Docs")
		h.upload(t, u1, &docs, "a.txt", "hello")

		files, err := h.svc.ListFiles(ctx, u1, &docs)
		if err != nil {
			t.Fatalf("ListFiles() error = %v", err)
		}
		if len(files) != 1 || files[0].FolderID == nil || *files[0].FolderID != docs {
			t.Errorf("files in folder = %d", len(files))
		}
		root, _ := h.svc.ListFiles(ctx, u1, nil)
		if len(root) != 0 {
			t.Errorf("root files = %d, want 0", len(root))
		}
	})

	t.Run("missing folder", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		_, err := h.svc.Upload(ctx, u1, ptr("missing"), "a.txt", []byte("x"))
		requireKind(t, err, drive.KindInvalidParent)
		if len(h.blobs.Paths()) != 0 {
			t.Error("blob written for rejected upload")
		}
	})

	t.Run("folder owned by someone else", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		theirs := h.mkdir(t, u2, nil, "Theirs")
		_, err := h.svc.Upload(ctx, u1, &theirs, "a.txt", []byte("x"))
		requireKind(t, err, drive.KindInvalidParent)
	})

	t.Run("duplicate name in same folder", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		h.upload(t, u1, nil, "a.txt", "first")
		_, err := h.svc.Upload(ctx, u1, nil, "a.txt", []byte("second"))
		requireKind(t, err, drive.KindNameConflict)
		if n := len(h.blobs.Paths()); n != 1 {
			t.Errorf("blob count = %d, want 1", n)
		}
		if h.metrics.Failures[drive.KindNameConflict] != 1 {
			t.Errorf("failure metrics = %v", h.metrics.Failures)
		}
	})

	t.Run("same name for another owner", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		h.upload(t, u1, nil, "a.txt", "mine")
		h.upload(t, u2, nil, "a.txt", "theirs")
	})

	t.Run("too large", func(t *testing.T) {
		h := newHarness(t, drive.Options{MaxUploadSize: 4})
		_, err := h.svc.Upload(ctx, u1, nil, "a.txt", []byte("12345"))
		requireKind(t, err, drive.KindInvalidArgument)
	})

	t.Run("invalid name", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		_, err := h.svc.Upload(ctx, u1, nil, "../etc/passwd", []byte("x"))
		requireKind(t, err, drive.KindInvalidName)
	})

	t.Run("empty file", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		res, err := h.svc.Upload(ctx, u1, nil, "empty.txt", nil)
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if res.Size != 0 {
			t.Errorf("Size = %d, want 0", res.Size)
		}
	})
}

func TestDriveService_Upload_Degraded(t *testing.T) {
	ctx := context.Background()

	t.Run("embedder failure stores file without embedding", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		h.embedder.Fail(testutil.ErrEmbedderDown)

		res := h.upload(t, u1, nil, "report.txt", "quarterly")
		if !res.Degraded {
			t.Error("Degraded = false, want true")
		}
		file, err := h.svc.GetFile(ctx, u1, res.FileID)
		if err != nil {
			t.Fatalf("GetFile() error = %v", err)
		}
		if file.HasEmbedding() {
			t.Errorf("Embedding = %v, want none", file.Embedding)
		}
		if h.metrics.Degraded != 1 {
			t.Errorf("Degraded metric = %d, want 1", h.metrics.Degraded)
		}
	})

	t.Run("no embedder configured", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		testutil.CreateTestUser(t, db, u1)
		svc := drive.NewDriveService(db, testutil.NewTestBlobStore(), nil, nil, nil, nil, drive.Options{})

		res, err := svc.Upload(ctx, u1, nil, "a.txt", []byte("hello"))
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if !res.Degraded {
			t.Error("Degraded = false, want true")
		}
	})
}

func TestDriveService_Upload_Consistency(t *testing.T) {
	ctx := context.Background()

	t.Run("unregistered owner is rejected before the blob write", func(t *testing.T) {
		h := newHarness(t, drive.Options{})

		_, err := h.svc.Upload(ctx, "ghost", nil, "a.txt", []byte("hello"))
		requireKind(t, err, drive.KindUnknownUser)
		if len(h.blobs.Paths()) != 0 || len(h.blobs.Deletes()) != 0 {
			t.Errorf("blob store touched: paths %v, deletes %v", h.blobs.Paths(), h.blobs.Deletes())
		}
	})

	t.Run("blob store failure writes no metadata", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		h.blobs.FailPut(errors.New("connection refused"))

		_, err := h.svc.Upload(ctx, u1, nil, "a.txt", []byte("hello"))
		requireKind(t, err, drive.KindStorageUnavailable)
		if !drive.ErrStorageUnavailable.Retryable() {
			t.Error("StorageUnavailable should be retryable")
		}

		files, _ := h.svc.ListFiles(ctx, u1, nil)
		if len(files) != 0 {
			t.Errorf("files after failed upload = %d, want 0", len(files))
		}
	})

	t.Run("metadata failure deletes blob", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		h.db.FailInsertFile(errors.New("disk I/O error"))

		_, err := h.svc.Upload(ctx, u1, nil, "a.txt", []byte("hello"))
		requireKind(t, err, drive.KindStorageError)

		if paths := h.blobs.Paths(); len(paths) != 0 {
			t.Errorf("blobs after compensation = %v, want none", paths)
		}
		if deletes := h.blobs.Deletes(); len(deletes) != 1 {
			t.Errorf("compensating deletes = %v, want 1", deletes)
		}
		if h.metrics.Compensations[true] != 1 {
			t.Errorf("compensation metrics = %v", h.metrics.Compensations)
		}
	})

	t.Run("unique violation at insert is a name conflict", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		h.db.FailInsertFile(drive.ErrUniqueViolation)

		_, err := h.svc.Upload(ctx, u1, nil, "a.txt", []byte("hello"))
		requireKind(t, err, drive.KindNameConflict)
		if len(h.blobs.Paths()) != 0 {
			t.Error("blob left behind after conflicting insert")
		}
	})

	t.Run("failed compensation is recorded", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		h.db.FailInsertFile(errors.New("disk I/O error"))
		h.blobs.FailDelete(errors.New("timeout"))

		_, err := h.svc.Upload(ctx, u1, nil, "a.txt", []byte("hello"))
		requireKind(t, err, drive.KindStorageError)
		if h.metrics.Compensations[false] != 1 {
			t.Errorf("compensation metrics = %v", h.metrics.Compensations)
		}
		files, _ := h.svc.ListFiles(ctx, u1, nil)
		if len(files) != 0 {
			t.Error("orphaned blob must not surface as a file")
		}
	})

	t.Run("compensation runs after request cancellation", func(t *testing.T) {
		h := newHarness(t, drive.Options{})
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		h.db.BeforeInsertFile(cancel)
		h.db.FailInsertFile(context.Canceled)

		_, err := h.svc.Upload(cctx, u1, nil, "a.txt", []byte("hello"))
		if err == nil {
			t.Fatal("expected error")
		}
		if len(h.blobs.Paths()) != 0 {
			t.Error("blob not compensated")
		}
	})
}
