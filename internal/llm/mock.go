package llm

import "context"

// MockClient is a configurable domain.LLMProvider for tests: set Response
// to control what Generate returns, or Err to force a failure.
type MockClient struct {
	Response string
	Err      error

	Calls []struct{ Prompt, System string }
}

func NewMockClient() *MockClient {
	return &MockClient{Response: "Mock summary"}
}

func (c *MockClient) Generate(ctx context.Context, prompt, system string) (string, error) {
	c.Calls = append(c.Calls, struct{ Prompt, System string }{prompt, system})
	if c.Err != nil {
		return "", c.Err
	}
	return c.Response, nil
}

// Reset clears recorded calls and restores the default response.
func (c *MockClient) Reset() {
	c.Response = "Mock summary"
	c.Err = nil
	c.Calls = nil
}
