package embedding

import (
	"fmt"

	"github.com/Harshitk-cp/engram/internal/domain"
)

// Provider name constants, selected via EMBEDDING_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewClient builds a domain.EmbeddingProvider for the named provider.
func NewClient(provider, apiKey string) (domain.EmbeddingProvider, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(apiKey), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, mock)", provider)
	}
}
