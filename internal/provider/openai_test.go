package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClient_SendMessage(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth header")
		}
		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-test" {
			t.Errorf("got model %q", req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAIChatResponse{
			Choices: []openAIChoice{{
				Message:      TextMessage("assistant", "hi there"),
				FinishReason: "stop",
			}},
			Usage: openAIUsage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL)
	resp, err := client.SendMessage(context.Background(), Request{
		Model:    "gpt-test",
		Messages: []Message{TextMessage("user", "hello")},
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.Message.ContentString() != "hi there" {
		t.Errorf("got content %q", resp.Message.ContentString())
	}
	if resp.Usage.TotalTokens != 8 {
		t.Errorf("got usage %+v", resp.Usage)
	}
}

func TestOpenAIClient_ToolCallResponse(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAIChatResponse{
			Choices: []openAIChoice{{
				Message: Message{
					Role: "assistant",
					ToolCalls: []ToolCall{{
						ID:   "call_1",
						Type: "function",
						Function: FunctionCall{Name: "bash", Arguments: `{"command":"ls"}`},
					}},
				},
				FinishReason: "tool_calls",
			}},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient("", server.URL)
	resp, err := client.SendMessage(context.Background(), Request{
		Model:    "gpt-test",
		Messages: []Message{TextMessage("user", "list files")},
		Tools:    []ToolDefinition{{Name: "bash", Description: "run a command"}},
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.FinishReason != "tool_calls" || len(resp.Message.ToolCalls) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Message.ToolCalls[0].Function.Name != "bash" {
		t.Errorf("got tool call %+v", resp.Message.ToolCalls[0])
	}
}
