package provider

import "testing"

func TestNew_DispatchesByProviderTag(t *testing.T) {
	t.Parallel()
	cases := []struct {
		tag  string
		want interface{}
	}{
		{"claude", &AnthropicClient{}},
		{"gemini", &GeminiClient{}},
		{"ollama", &OllamaClient{}},
		{"grok", &OpenAIClient{}},
		{"groq", &OpenAIClient{}},
		{"unknown-host", &OpenAIClient{}},
	}
	for _, c := range cases {
		client, err := New(c.tag, "key", "")
		if err != nil {
			t.Fatalf("New(%q): %v", c.tag, err)
		}
		switch c.want.(type) {
		case *AnthropicClient:
			if _, ok := client.(*AnthropicClient); !ok {
				t.Errorf("tag %q: expected *AnthropicClient, got %T", c.tag, client)
			}
		case *GeminiClient:
			if _, ok := client.(*GeminiClient); !ok {
				t.Errorf("tag %q: expected *GeminiClient, got %T", c.tag, client)
			}
		case *OllamaClient:
			if _, ok := client.(*OllamaClient); !ok {
				t.Errorf("tag %q: expected *OllamaClient, got %T", c.tag, client)
			}
		case *OpenAIClient:
			if _, ok := client.(*OpenAIClient); !ok {
				t.Errorf("tag %q: expected *OpenAIClient, got %T", c.tag, client)
			}
		}
	}
}

func TestCapabilityFor(t *testing.T) {
	t.Parallel()
	if !CapabilityFor("claude").SupportsTools {
		t.Error("expected claude to support tools")
	}
	if !CapabilityFor("grok").SupportsTools {
		t.Error("expected grok to support tools")
	}
	if !CapabilityFor("ollama").SupportsTools {
		t.Error("expected ollama to support tools")
	}
	if CapabilityFor("gemini").SupportsTools {
		t.Error("expected gemini to be single-pass per spec's capability table")
	}
	if CapabilityFor("groq").SupportsTools {
		t.Error("expected groq to be single-pass per spec's capability table")
	}
	if !CapabilityFor("some-custom-gateway").SupportsTools {
		t.Error("expected unknown providers to default to tool-capable")
	}
}

func TestGetProviderKeyName(t *testing.T) {
	t.Parallel()
	if got := GetProviderKeyName("claude"); got != "CLAUDE_API_KEY" {
		t.Errorf("got %q", got)
	}
	if got := GetProviderKeyName("grok"); got != "GROK_API_KEY" {
		t.Errorf("got %q", got)
	}
	if got := GetProviderKeyName("totally-unknown"); got != "API_KEY" {
		t.Errorf("got %q", got)
	}
}
