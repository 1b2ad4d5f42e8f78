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

// AnthropicClient speaks the Anthropic Messages API dialect. Grounded
// on lowkaihon-cli-coding-agent/llm/anthropic.go — content-block list
// of text/tool_use, tool_result blocks keyed by tool_use_id.
type AnthropicClient struct {
	apiKey    string
	baseURL   string
	maxTokens int
	http      *http.Client
}

// NewAnthropicClient builds a client against baseURL (default
// "https://api.anthropic.com/v1"). maxTokens is the request's required
// max_tokens field when the caller doesn't set Request.MaxTokens.
func NewAnthropicClient(apiKey, baseURL string, maxTokens int) *AnthropicClient {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicClient{
		apiKey:    apiKey,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		http:      &http.Client{Timeout: 120 * time.Second},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicToolDef `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []anthropicContentBlock
}

type anthropicContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// convertToAnthropicMessages extracts the system prompt and converts
// the rest to Anthropic's role/content-block shape, merging consecutive
// tool results into one user message the way the API requires.
func convertToAnthropicMessages(messages []Message) (string, []anthropicMessage) {
	var system string
	var result []anthropicMessage

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = msg.ContentString()
		case "user":
			result = append(result, anthropicMessage{Role: "user", Content: msg.ContentString()})
		case "assistant":
			result = append(result, anthropicMessage{Role: "assistant", Content: buildAssistantBlocks(msg)})
		case "tool":
			block := anthropicContentBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.ContentString()}
			if len(result) > 0 && result[len(result)-1].Role == "user" {
				if blocks, ok := result[len(result)-1].Content.([]anthropicContentBlock); ok {
					result[len(result)-1].Content = append(blocks, block)
					continue
				}
			}
			result = append(result, anthropicMessage{Role: "user", Content: []anthropicContentBlock{block}})
		}
	}
	return system, result
}

func buildAssistantBlocks(msg Message) []anthropicContentBlock {
	var blocks []anthropicContentBlock
	if msg.Content != nil && *msg.Content != "" {
		blocks = append(blocks, anthropicContentBlock{Type: "text", Text: *msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, anthropicContentBlock{
			Type: "tool_use", ID: tc.ID, Name: tc.Function.Name,
			Input: json.RawMessage(tc.Function.Arguments),
		})
	}
	if len(blocks) == 0 {
		blocks = append(blocks, anthropicContentBlock{Type: "text", Text: ""})
	}
	return blocks
}

func toAnthropicTools(tools []ToolDefinition) []anthropicToolDef {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropicToolDef, len(tools))
	for i, t := range tools {
		out[i] = anthropicToolDef{Name: t.Name, Description: t.Description, InputSchema: t.Parameters}
	}
	return out
}

// SendMessage issues one non-streaming Anthropic Messages API call.
func (c *AnthropicClient) SendMessage(ctx context.Context, req Request) (*Response, error) {
	system, msgs := convertToAnthropicMessages(req.Messages)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  msgs,
		Tools:     toAnthropicTools(req.Tools),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := doWithRetry(ctx, defaultRetryConfig(), func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", "2023-06-01")
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

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return convertAnthropicResponse(apiResp), nil
}

func convertAnthropicResponse(resp anthropicResponse) *Response {
	var content string
	var toolCalls []ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content += block.Text
		case "tool_use":
			args := []byte(block.Input)
			if len(args) == 0 {
				args = []byte("{}")
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      block.Name,
					Arguments: string(args),
				},
			})
		}
	}

	var contentPtr *string
	if content != "" {
		contentPtr = &content
	}

	finishReason := "stop"
	switch resp.StopReason {
	case "tool_use":
		finishReason = "tool_calls"
	case "max_tokens":
		finishReason = "length"
	}

	return &Response{
		Message:      Message{Role: "assistant", Content: contentPtr, ToolCalls: toolCalls},
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}
