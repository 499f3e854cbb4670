package drive

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"report.txt", "report.txt", false},
		{"  spaced  ", "spaced", false},
		{"", "", true},
		{"..", "", true},
		{"a/b", "", true},
		{"nul\x00byte", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cleanName(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("cleanName(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("cleanName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNameMatch(t *testing.T) {
	tests := []struct {
		query, name string
		want        float64
	}{
		{"report.txt", "Report.TXT", 1},
		{"report", "report.txt", 1},
		{"port", "report.txt", 0.5},
		{"invoice", "report.txt", 0},
	}
	for _, tt := range tests {
		if got := nameMatch(tt.query, tt.name); got != tt.want {
			t.Errorf("nameMatch(%q, %q) = %v, want %v", tt.query, tt.name, got, tt.want)
		}
	}
}

func TestCosine(t *testing.T) {
	if got := cosine([]float32{1, 0}, []float32{2, 0}); got != 1 {
		t.Errorf("parallel = %v, want 1", got)
	}
	if got := cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal = %v, want 0", got)
	}
	if got := cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector = %v, want 0", got)
	}
	if got := cosine([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("length mismatch = %v, want 0", got)
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"plain text", []byte("hello world"), "text/plain"},
		{"pdf", []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"), "application/pdf"},
		{"json", []byte(`{"a": 1}`), "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMimeType(tt.content); got != tt.want {
				t.Errorf("DetectMimeType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmbeddingInput(t *testing.T) {
	if got := embeddingInput("a.txt", "text/plain", []byte("hello"), 3); got != "a.txt\nhel" {
		t.Errorf("text = %q", got)
	}
	if got := embeddingInput("a.bin", "application/octet-stream", []byte("hello"), 3); got != "a.bin" {
		t.Errorf("binary = %q", got)
	}
	// Truncation inside a multi-byte rune drops the partial rune.
	if got := embeddingInput("a.txt", "text/plain", []byte("héllo"), 2); got != "a.txt\nh" {
		t.Errorf("utf-8 = %q", got)
	}
}

func TestRuleTagger(t *testing.T) {
	tests := []struct {
		name, mime string
		want       []string
	}{
		{"a.txt", "text/plain", []string{"text", "document", "txt"}},
		{"report.PDF", "application/pdf", []string{"document", "pdf"}},
		{"beach.jpg", "image/jpeg", []string{"image", "photo", "jpg"}},
		{"song.mp3", "audio/mpeg", []string{"audio", "media", "mp3"}},
		{"data.csv", "text/csv", []string{"text", "spreadsheet", "csv"}},
		{"backup.zip", "application/zip", []string{"archive", "zip"}},
		{"blob", "application/octet-stream", []string{"binary"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (RuleTagger{}).Tags(tt.name, tt.mime); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tags(%q, %q) = %v, want %v", tt.name, tt.mime, got, tt.want)
			}
		})
	}
}

type sizedEmbedder struct {
	dim int
	out []float32
	err error
}

func (e sizedEmbedder) Name() string   { return "sized" }
func (e sizedEmbedder) Dimension() int { return e.dim }
func (e sizedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.out, e.err
}

func TestDriveService_embed(t *testing.T) {
	tests := []struct {
		name     string
		embedder Embedder
		wantErr  bool
	}{
		{"ok", sizedEmbedder{dim: 2, out: []float32{1, 0}}, false},
		{"nil embedder", nil, true},
		{"error", sizedEmbedder{dim: 2, err: errors.New("down")}, true},
		{"empty vector", sizedEmbedder{dim: 2}, true},
		{"wrong dimension", sizedEmbedder{dim: 3, out: []float32{1, 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &DriveService{embedder: tt.embedder, opts: DefaultOptions()}
			_, err := s.embed(context.Background(), "text")
			if (err != nil) != tt.wantErr {
				t.Fatalf("embed() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && KindOf(err) != KindEmbeddingDegraded {
				t.Errorf("kind = %s, want embedding_degraded", KindOf(err))
			}
		})
	}
}
