package embedding

import (
	"testing"

	"drive-go/internal/config"
)

func TestNewEmbedderFromConfig(t *testing.T) {
	t.Run("hashing", func(t *testing.T) {
		e, err := NewEmbedderFromConfig(config.EmbeddingConfig{Type: "hashing", Dimension: 64}, nil)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if e.Name() != "hashing" || e.Dimension() != 64 {
			t.Errorf("got %s/%d", e.Name(), e.Dimension())
		}
	})

	t.Run("none", func(t *testing.T) {
		e, err := NewEmbedderFromConfig(config.EmbeddingConfig{Type: "none"}, nil)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if e != nil {
			t.Errorf("expected nil embedder, got %T", e)
		}
	})

	t.Run("openai reads key from env", func(t *testing.T) {
		t.Setenv("DRIVE_TEST_OPENAI_KEY", "sk-test")
		e, err := NewEmbedderFromConfig(config.EmbeddingConfig{
			Type: "openai", Dimension: 16, APIKeyEnv: "DRIVE_TEST_OPENAI_KEY",
		}, nil)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if e.Dimension() != 16 {
			t.Errorf("Dimension() = %d, want 16", e.Dimension())
		}
		if _, ok := e.(*OpenAIEmbedder); !ok {
			t.Errorf("got %T, want unwrapped *OpenAIEmbedder", e)
		}
	})

	t.Run("openai behind breaker", func(t *testing.T) {
		t.Setenv("DRIVE_TEST_OPENAI_KEY", "sk-test")
		e, err := NewEmbedderFromConfig(config.EmbeddingConfig{
			Type: "openai", Dimension: 16, APIKeyEnv: "DRIVE_TEST_OPENAI_KEY", BreakerFailures: 3,
		}, nil)
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if _, ok := e.(*BreakerEmbedder); !ok {
			t.Errorf("got %T, want *BreakerEmbedder", e)
		}
	})

	t.Run("openai without key", func(t *testing.T) {
		t.Setenv("DRIVE_TEST_EMPTY_KEY", "")
		if _, err := NewEmbedderFromConfig(config.EmbeddingConfig{
			Type: "openai", Dimension: 16, APIKeyEnv: "DRIVE_TEST_EMPTY_KEY",
		}, nil); err == nil {
			t.Fatal("expected error for missing key")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := NewEmbedderFromConfig(config.EmbeddingConfig{Type: "bert"}, nil); err == nil {
			t.Fatal("expected error for unknown type")
		}
	})
}
