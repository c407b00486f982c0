package embedding

import (
	"context"
	"hash/fnv"
)

// mockDimension matches the OpenAI text-embedding-3-small dimension so a
// deployment can swap providers without changing the schema's vector column
// width.
const mockDimension = 1536

// MockClient is a deterministic domain.EmbeddingProvider for tests: the same
// text always hashes to the same vector, with no network calls.
type MockClient struct {
	Err error
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, mockDimension)
	state := seed
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float32(state>>40) / float32(1<<24)
	}
	return vec, nil
}
