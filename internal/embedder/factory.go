package embedder

import (
	"fmt"

	"github.com/contextlab/codectx/internal/config"
)

// NewProvider constructs the provider named by the configuration. Construction
// failures (missing API key, unknown provider or model) are returned to the
// caller; runtime call failures are degraded by the Service instead.
func NewProvider(cfg config.EmbedderConfig) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cfg.Model)
	case ProviderLocal:
		return NewLocalProvider()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, cfg.Provider)
	}
}
