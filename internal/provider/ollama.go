package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultOllamaBaseURL is used when a team/agent config names the
// ollama provider without an explicit base URL.
const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaClient wraps OpenAIClient against Ollama's OpenAI-compatible
// /v1/chat/completions endpoint (grounded on pkg/devclaw/copilot/llm.go's
// detectProvider Ollama branch) and adds the one place Ollama's wire
// format genuinely diverges: local model discovery via /api/tags
// instead of a hosted models endpoint.
type OllamaClient struct {
	*OpenAIClient
	baseURL string
	http    *http.Client
}

// NewOllamaClient builds a client against baseURL (default
// "http://localhost:11434"). Ollama needs no API key.
func NewOllamaClient(baseURL string) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaClient{
		OpenAIClient: NewOpenAIClient("", baseURL+"/v1"),
		baseURL:      baseURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// ListModels queries Ollama's local model registry via /api/tags — the
// one Ollama-specific endpoint with no OpenAI-compatible equivalent.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	names := make([]string, len(parsed.Models))
	for i, m := range parsed.Models {
		names[i] = m.Name
	}
	return names, nil
}
