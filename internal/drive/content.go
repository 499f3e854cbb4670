package drive

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMimeType sniffs the media type of content from its bytes. Client
// supplied content types are never consulted. Parameters such as charset are
// dropped, so UTF-8 text is reported as "text/plain".
func DetectMimeType(content []byte) string {
	detected := mimetype.Detect(content).String()
	base, _, _ := strings.Cut(detected, ";")
	return strings.TrimSpace(base)
}

// isTextual reports whether content of this media type can be fed to the
// embedder as text.
func isTextual(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/javascript", "application/x-sh":
		return true
	}
	return false
}

// embeddingInput builds the text proxy for a file: the filename, followed by
// up to limit bytes of its content when the content is textual.
func embeddingInput(name, mimeType string, content []byte, limit int) string {
	if !isTextual(mimeType) || len(content) == 0 {
		return name
	}
	if len(content) > limit {
		content = content[:limit]
	}
	return name + "\n" + strings.ToValidUTF8(string(content), "")
}

// embed calls the embedder under the configured timeout and checks the
// vector's dimensionality. Every failure is reported as EmbeddingDegraded.
func (s *DriveService) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, newError(KindEmbeddingDegraded, "no embedding service configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, newError(KindEmbeddingDegraded, "embedding service failed", err)
	}
	if len(vec) == 0 {
		return nil, newError(KindEmbeddingDegraded, "embedding service returned an empty vector", nil)
	}
	if dim := s.embedder.Dimension(); dim > 0 && len(vec) != dim {
		return nil, newError(KindEmbeddingDegraded, fmt.Sprintf("embedding has %d dimensions, want %d", len(vec), dim), nil)
	}
	return vec, nil
}
