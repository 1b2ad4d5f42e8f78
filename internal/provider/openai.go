package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIClient speaks the OpenAI chat-completions wire dialect, shared
// verbatim by xAI, Groq, and (via ollama.go) Ollama's OpenAI-compatible
// endpoint. Grounded on pkg/devclaw/copilot/llm.go's chatMessage/
// tool_calls handling and lowkaihon-cli-coding-agent/llm/openai_chat_types.go.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewOpenAIClient builds a client against baseURL (e.g.
// "https://api.x.ai/v1" for xAI, "https://api.groq.com/openai/v1" for
// Groq). apiKey may be empty for providers that don't require one.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

type openAIChatRequest struct {
	Model     string           `json:"model"`
	Messages  []Message        `json:"messages"`
	Tools     []openAIToolDef  `json:"tools,omitempty"`
	MaxTokens int              `json:"max_tokens,omitempty"`
}

type openAIToolDef struct {
	Type     string             `json:"type"`
	Function openAIFunctionSpec `json:"function"`
}

type openAIFunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type openAIChatResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

type openAIChoice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func toOpenAITools(tools []ToolDefinition) []openAIToolDef {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openAIToolDef, len(tools))
	for i, t := range tools {
		out[i] = openAIToolDef{
			Type: "function",
			Function: openAIFunctionSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

// SendMessage issues one non-streaming chat-completions request.
func (c *OpenAIClient) SendMessage(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(openAIChatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		Tools:     toOpenAITools(req.Tools),
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := doWithRetry(ctx, defaultRetryConfig(), func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return c.http.Do(httpReq)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var apiResp openAIChatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := apiResp.Choices[0]
	return &Response{
		Message:      choice.Message,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		},
	}, nil
}
