package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiClient_SendMessage(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-test") {
			t.Errorf("expected model in path, got %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{{
				Content:      geminiContent{Role: "model", Parts: []geminiPart{{Text: "hi from gemini"}}},
				FinishReason: "STOP",
			}},
			UsageMetadata: geminiUsage{PromptTokenCount: 6, CandidatesTokenCount: 2, TotalTokenCount: 8},
		})
	}))
	defer server.Close()

	client := NewGeminiClient("key", server.URL)
	resp, err := client.SendMessage(context.Background(), Request{
		Model:    "gemini-test",
		Messages: []Message{TextMessage("user", "hello")},
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if resp.Message.ContentString() != "hi from gemini" {
		t.Errorf("got %q", resp.Message.ContentString())
	}
	if resp.Usage.TotalTokens != 8 {
		t.Errorf("got usage %+v", resp.Usage)
	}
}

func TestNormalizeGeminiModelID(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"gemini-3.1-pro":   "gemini-3.1-pro-preview",
		"gemini-3-flash":   "gemini-3-flash-preview",
		"gemini-custom-id": "gemini-custom-id",
		"gpt-4":            "gpt-4",
	}
	for in, want := range cases {
		if got := NormalizeGeminiModelID(in); got != want {
			t.Errorf("NormalizeGeminiModelID(%q) = %q, want %q", in, got, want)
		}
	}
}
