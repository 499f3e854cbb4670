package drive

import "context"

// Embedder converts free text into a fixed-length vector.
// Identical input must yield an identical vector for a given model version.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}
