package embedding

import (
	"fmt"
	"os"
	"time"

	"drive-go/internal/config"
	"drive-go/internal/drive"
)

// DefaultAPIKeyEnv is read when api_key_env is not configured.
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

// NewEmbedderFromConfig creates an Embedder based on the embedding config type.
// Type "none" returns a nil Embedder; every upload is then stored degraded
// and search ranks by name only. Remote embedders are wrapped in a circuit
// breaker unless breaker_failures is 0. logger may be nil.
func NewEmbedderFromConfig(cfg config.EmbeddingConfig, logger drive.Logger) (drive.Embedder, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "hashing":
		e, err := NewHashingEmbedder(cfg.Dimension)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "openai":
		env := cfg.APIKeyEnv
		if env == "" {
			env = DefaultAPIKeyEnv
		}
		e, err := NewOpenAIEmbedder(os.Getenv(env), cfg.BaseURL, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, fmt.Errorf("%w (key read from $%s)", err, env)
		}
		if cfg.BreakerFailures > 0 {
			cooldown := cfg.BreakerCooldown
			if cooldown <= 0 {
				cooldown = 30 * time.Second
			}
			return NewBreakerEmbedder(e, cfg.BreakerFailures, cooldown, logger), nil
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding type: %s", cfg.Type)
	}
}
