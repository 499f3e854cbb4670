package drive_test

import (
	"context"
	"errors"
	"testing"

	"drive-go/internal/drive"
	"drive-go/internal/testutil"
)

// harness bundles a DriveService with the doubles behind it.
type harness struct {
	svc      *drive.DriveService
	db       *testutil.FaultyDatabase
	blobs    *testutil.FaultyBlobStore
	embedder *testutil.StubEmbedder
	metrics  *testutil.RecordingMetrics
	clock    *testutil.StubClock
}

const (
	u1 = "u1"
	u2 = "u2"
)

func newHarness(t *testing.T, opts drive.Options) *harness {
	t.Helper()

	sqlDB := testutil.NewTestDatabase(t)
	testutil.CreateTestUser(t, sqlDB, u1)
	testutil.CreateTestUser(t, sqlDB, u2)

	h := &harness{
		db:       testutil.NewFaultyDatabase(sqlDB),
		blobs:    testutil.NewFaultyBlobStore(),
		embedder: testutil.NewStubEmbedder(4),
		metrics:  testutil.NewRecordingMetrics(),
		clock:    testutil.FixedClock(),
	}
	h.embedder.
		Map("report", 1, 0, 0, 0).
		Map("invoice", 0, 1, 0, 0).
		Map("holiday", 0, 0, 1, 0)

	h.svc = drive.NewDriveService(h.db, h.blobs, h.embedder, nil, h.clock, testutil.NewStubIDGenerator(), opts).
		WithMetrics(h.metrics)
	return h
}

func (h *harness) upload(t *testing.T, owner string, folderID *string, name, content string) *drive.UploadResult {
	t.Helper()
	res, err := h.svc.Upload(context.Background(), owner, folderID, name, []byte(content))
	if err != nil {
		t.Fatalf("Upload(%q) error = %v", name, err)
	}
	return res
}

func (h *harness) mkdir(t *testing.T, owner string, parentID *string, name string) string {
	t.Helper()
	f, err := h.svc.CreateFolder(context.Background(), owner, parentID, name)
	if err != nil {
		t.Fatalf("CreateFolder(%q) error = %v", name, err)
	}
	return f.ID
}

func requireKind(t *testing.T, err error, want drive.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := drive.KindOf(err); got != want {
		t.Fatalf("error kind = %s, want %s (err: %v)", got, want, err)
	}
}

func ptr(s string) *string { return &s }

func TestError_Is(t *testing.T) {
	err := &drive.Error{Kind: drive.KindNotFound, Message: "folder not found"}
	if !errors.Is(err, drive.ErrNotFound) {
		t.Error("errors.Is should match by kind")
	}
	if errors.Is(err, drive.ErrNameConflict) {
		t.Error("errors.Is should not match a different kind")
	}

	wrapped := errors.Join(errors.New("context"), err)
	if drive.KindOf(wrapped) != drive.KindNotFound {
		t.Errorf("KindOf(wrapped) = %s", drive.KindOf(wrapped))
	}
	if drive.KindOf(errors.New("boom")) != drive.KindInternal {
		t.Error("KindOf(plain error) should be internal")
	}
}

func TestError_Retryable(t *testing.T) {
	tests := []struct {
		kind drive.Kind
		want bool
	}{
		{drive.KindStorageUnavailable, true},
		{drive.KindStorageError, false},
		{drive.KindNotFound, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := &drive.Error{Kind: tt.kind}
			if e.Retryable() != tt.want {
				t.Errorf("Retryable() = %v, want %v", e.Retryable(), tt.want)
			}
		})
	}
}

func TestDefaultOptions_Applied(t *testing.T) {
	h := newHarness(t, drive.Options{})
	got := h.svc.Options()
	want := drive.DefaultOptions()
	if got.MaxDepth != want.MaxDepth || got.MaxUploadSize != want.MaxUploadSize || got.DownloadTTL != want.DownloadTTL {
		t.Errorf("Options() = %+v, want defaults %+v", got, want)
	}
	if got.Ranking.NameWeight != 1 || got.Ranking.SimilarityWeight != 1 {
		t.Errorf("Ranking = %+v, want 1/1", got.Ranking)
	}
}
