package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"drive-go/internal/drive"
)

// ErrEmbedderDown is returned by a StubEmbedder after Fail is called.
var ErrEmbedderDown = errors.New("embedder unavailable")

// StubEmbedder maps text to vectors through a keyword table. Every keyword
// found in the lowercased input adds its vector; text with no keyword gets
// the fallback vector. Safe for concurrent use.
type StubEmbedder struct {
	mu       sync.Mutex
	dim      int
	keywords map[string][]float32
	fallback []float32
	err      error
	calls    []string
}

// NewStubEmbedder creates a StubEmbedder producing vectors of length dim.
func NewStubEmbedder(dim int) *StubEmbedder {
	fb := make([]float32, dim)
	fb[dim-1] = 1
	return &StubEmbedder{dim: dim, keywords: map[string][]float32{}, fallback: fb}
}

// Map associates keyword with vec.
func (e *StubEmbedder) Map(keyword string, vec ...float32) *StubEmbedder {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keywords[strings.ToLower(keyword)] = vec
	return e
}

// Fail makes subsequent Embed calls return err. A nil err restores service.
func (e *StubEmbedder) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Calls returns the texts Embed was called with.
func (e *StubEmbedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *StubEmbedder) Name() string { return "stub" }

func (e *StubEmbedder) Dimension() int { return e.dim }

func (e *StubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}

	lower := strings.ToLower(text)
	out := make([]float32, e.dim)
	hit := false
	for kw, vec := range e.keywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		hit = true
		for i := range out {
			if i < len(vec) {
				out[i] += vec[i]
			}
		}
	}
	if !hit {
		copy(out, e.fallback)
	}
	return out, nil
}

var _ drive.Embedder = (*StubEmbedder)(nil)
