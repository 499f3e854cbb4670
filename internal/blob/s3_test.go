package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/smithy-go"

	"drive-go/internal/drive"
)

// fakeS3 serves the handful of path-style S3 calls S3Store makes.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != f.bucket {
		http.Error(w, "", http.StatusNotFound)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]

	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if key == "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(obj)))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(obj)))
		w.WriteHeader(http.StatusOK)
		w.Write(obj)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent/aws/config")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent/aws/credentials")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	fake := &fakeS3{bucket: "test-bucket", objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3Store(context.Background(), S3Options{
		Bucket:       "test-bucket",
		Prefix:       "drive",
		Region:       "us-east-1",
		Endpoint:     srv.URL,
		UsePathStyle: true,
		AccessKeyID:  "test",
		SecretKey:    "test",
	})
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}
	return s, fake
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Options{Region: "us-east-1"}); err == nil {
		t.Error("NewS3Store() without bucket should fail")
	}
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestS3Store(t)

	if err := s.Put(ctx, "u1/f1/a.txt", strings.NewReader("hello world"), 11, "text/plain"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if got := string(fake.objects["drive/u1/f1/a.txt"]); got != "hello world" {
		t.Errorf("stored object = %q, want %q", got, "hello world")
	}

	var buf bytes.Buffer
	if err := s.Get(ctx, "u1/f1/a.txt", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != "hello world" {
		t.Errorf("Get() = %q", buf.String())
	}

	if err := s.Delete(ctx, "u1/f1/a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := fake.objects["drive/u1/f1/a.txt"]; ok {
		t.Error("object still present after Delete")
	}
}

func TestS3Store_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestS3Store(t)

	if err := s.Get(ctx, "u1/missing", &bytes.Buffer{}); !errors.Is(err, drive.ErrBlobNotFound) {
		t.Errorf("Get() error = %v, want ErrBlobNotFound", err)
	}
	if err := s.Delete(ctx, "u1/missing"); !errors.Is(err, drive.ErrBlobNotFound) {
		t.Errorf("Delete() error = %v, want ErrBlobNotFound", err)
	}
}

func TestS3Store_ValidateSetup(t *testing.T) {
	s, _ := newTestS3Store(t)
	if err := s.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}

func TestS3Store_PresignGet(t *testing.T) {
	s, _ := newTestS3Store(t)

	url, err := s.PresignGet(context.Background(), "u1/f1/a.txt", 15*time.Minute)
	if err != nil {
		t.Fatalf("PresignGet() error = %v", err)
	}
	if !strings.Contains(url, "/test-bucket/drive/u1/f1/a.txt") {
		t.Errorf("PresignGet() = %q, want path-style key", url)
	}
	if !strings.Contains(url, "X-Amz-Expires=900") {
		t.Errorf("PresignGet() = %q, want 900s expiry", url)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"head 404", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"wrapped", fmt.Errorf("op: %w", &smithy.GenericAPIError{Code: "NoSuchKey"}), true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestS3Store_Key(t *testing.T) {
	if got := (&S3Store{}).key("u1/f1/a.txt"); got != "u1/f1/a.txt" {
		t.Errorf("key() without prefix = %q", got)
	}
	if got := (&S3Store{prefix: "drive/"}).key("u1/f1/a.txt"); got != "drive/u1/f1/a.txt" {
		t.Errorf("key() with prefix = %q", got)
	}
}
