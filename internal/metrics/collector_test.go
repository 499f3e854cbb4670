package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"drive-go/internal/drive"
)

func TestCollector_ServiceEvents(t *testing.T) {
	c := NewCollector("drive")

	c.UploadCompleted(false)
	c.UploadCompleted(true)
	c.UploadCompleted(true)
	c.UploadFailed(drive.KindNameConflict)
	c.BlobCompensated(true)
	c.BlobCompensated(false)
	c.SearchServed(3, 20*time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"uploads degraded", testutil.ToFloat64(c.uploads.WithLabelValues("true")), 2},
		{"uploads healthy", testutil.ToFloat64(c.uploads.WithLabelValues("false")), 1},
		{"failures", testutil.ToFloat64(c.uploadErrors.WithLabelValues("name_conflict")), 1},
		{"compensation deleted", testutil.ToFloat64(c.compensations.WithLabelValues("deleted")), 1},
		{"compensation orphaned", testutil.ToFloat64(c.compensations.WithLabelValues("orphaned")), 1},
		{"searches", testutil.ToFloat64(c.searches), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollector_Middleware(t *testing.T) {
	c := NewCollector("drive")

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/folders/{folderID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/folders/a", "/api/folders/b", "/ok"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/folders/{folderID}", "404")); got != 2 {
		t.Errorf("folder requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/ok", "200")); got != 1 {
		t.Errorf("ok requests = %v, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("drive")
	c.UploadCompleted(false)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `drive_uploads_total{degraded="false"} 1`) {
		t.Errorf("exposition missing upload counter:\n%s", rec.Body.String())
	}
}
