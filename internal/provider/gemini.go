package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GeminiClient speaks Google's generateContent REST dialect. Gemini is
// a single-pass provider per spec.md's capability table: SendMessage
// still accepts tool definitions (Gemini does support function
// calling), but the agent runtime never relies on multi-round tool use
// for it — see internal/agentrt's capability check.
type GeminiClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewGeminiClient builds a client against baseURL (default
// "https://generativelanguage.googleapis.com/v1beta").
func NewGeminiClient(apiKey, baseURL string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// NormalizeGeminiModelID expands short model aliases to the full API
// name, grounded on pkg/devclaw/copilot/llm.go's normalizeGeminiModelID.
func NormalizeGeminiModelID(model string) string {
	if !strings.HasPrefix(model, "gemini-") {
		return model
	}
	switch model {
	case "gemini-3.1-pro":
		return "gemini-3.1-pro-preview"
	case "gemini-3.1-flash":
		return "gemini-3.1-flash-preview"
	case "gemini-3-pro":
		return "gemini-3-pro-preview"
	case "gemini-3-flash":
		return "gemini-3-flash-preview"
	default:
		return model
	}
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Tools            []geminiTool      `json:"tools,omitempty"`
	GenerationConfig geminiGenConfig   `json:"generationConfig"`
}

type geminiGenConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFuncResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type geminiFuncResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage    `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// convertToGeminiContents maps our Message list onto Gemini's
// user/model role pair, folding system messages into systemInstruction
// and tool results into functionResponse parts (Gemini has no separate
// "tool" role — it reuses "user" for function responses).
func convertToGeminiContents(messages []Message) (*geminiContent, []geminiContent) {
	var system *geminiContent
	var out []geminiContent

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = &geminiContent{Parts: []geminiPart{{Text: msg.ContentString()}}}
		case "user":
			out = append(out, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.ContentString()}}})
		case "assistant":
			var parts []geminiPart
			if msg.Content != nil && *msg.Content != "" {
				parts = append(parts, geminiPart{Text: *msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{
					Name: tc.Function.Name,
					Args: json.RawMessage(tc.Function.Arguments),
				}})
			}
			out = append(out, geminiContent{Role: "model", Parts: parts})
		case "tool":
			out = append(out, geminiContent{Role: "user", Parts: []geminiPart{{
				FunctionResponse: &geminiFuncResponse{
					Name:     msg.ToolCallID,
					Response: json.RawMessage(fmt.Sprintf(`{"result":%q}`, msg.ContentString())),
				},
			}}})
		}
	}
	return system, out
}

func toGeminiTools(tools []ToolDefinition) []geminiTool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]geminiFunctionDecl, len(tools))
	for i, t := range tools {
		decls[i] = geminiFunctionDecl{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
	}
	return []geminiTool{{FunctionDeclarations: decls}}
}

// SendMessage issues one non-streaming generateContent call.
func (c *GeminiClient) SendMessage(ctx context.Context, req Request) (*Response, error) {
	system, contents := convertToGeminiContents(req.Messages)

	body, err := json.Marshal(geminiRequest{
		Contents:          contents,
		SystemInstruction: system,
		Tools:             toGeminiTools(req.Tools),
		GenerationConfig:  geminiGenConfig{MaxOutputTokens: req.MaxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	model := NormalizeGeminiModelID(req.Model)
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	resp, err := doWithRetry(ctx, defaultRetryConfig(), func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
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

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	return convertGeminiResponse(apiResp), nil
}

func convertGeminiResponse(resp geminiResponse) *Response {
	candidate := resp.Candidates[0]
	var content string
	var toolCalls []ToolCall

	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			content += part.Text
		}
		if part.FunctionCall != nil {
			args := []byte(part.FunctionCall.Args)
			if len(args) == 0 {
				args = []byte("{}")
			}
			toolCalls = append(toolCalls, ToolCall{
				Type: "function",
				Function: FunctionCall{
					Name:      part.FunctionCall.Name,
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
	switch candidate.FinishReason {
	case "MAX_TOKENS":
		finishReason = "length"
	}
	if len(toolCalls) > 0 {
		finishReason = "tool_calls"
	}

	return &Response{
		Message:      Message{Role: "assistant", Content: contentPtr, ToolCalls: toolCalls},
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}
}
