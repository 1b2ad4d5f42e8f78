package provider

import "strings"

// ProviderKeyNames maps the five provider tags spec.md §6 names
// ("grok"|"groq"|"gemini"|"claude"|"ollama") to their standard API key
// environment variable names — exactly the set spec.md §6's
// "Environment variables consumed" lists. Grounded on
// pkg/devclaw/copilot/config.go's ProviderKeyNames map shape, retagged
// to this system's fixed five-provider roster rather than the
// teacher's open-ended provider list.
var ProviderKeyNames = map[string]string{
	"grok":   "GROK_API_KEY",
	"groq":   "GROQ_API_KEY",
	"gemini": "GEMINI_API_KEY",
	"claude": "CLAUDE_API_KEY",
	"ollama": "", // no key required
}

// GetProviderKeyName returns the env var name for provider, or
// "API_KEY" for anything not in the table.
func GetProviderKeyName(providerTag string) string {
	if name, ok := ProviderKeyNames[strings.ToLower(providerTag)]; ok {
		return name
	}
	return "API_KEY"
}

// defaultBaseURLs gives each known provider tag its default endpoint.
// "grok" defaults to GROK_BASE_URL's documented default when unset by
// config (internal/config wires that env var; this is the fallback).
var defaultBaseURLs = map[string]string{
	"grok":   "https://api.x.ai/v1",
	"groq":   "https://api.groq.com/openai/v1",
	"gemini": "https://generativelanguage.googleapis.com/v1beta",
	"claude": "https://api.anthropic.com/v1",
	"ollama": defaultOllamaBaseURL,
}

// capabilities records which providers support multi-round tool use,
// per spec.md §4.2's capability table: xAI, Anthropic, and Ollama (in
// OpenAI mode) are tool-capable; Groq and Gemini are single-pass.
var capabilities = map[string]Capability{
	"grok":   {SupportsTools: true},
	"claude": {SupportsTools: true},
	"ollama": {SupportsTools: true},
	"groq":   {SupportsTools: false},
	"gemini": {SupportsTools: false},
}

// CapabilityFor reports what providerTag supports, defaulting to
// tool-capable for unrecognized tags (an OpenAI-compatible host the
// operator pointed a custom base URL at).
func CapabilityFor(providerTag string) Capability {
	if c, ok := capabilities[strings.ToLower(providerTag)]; ok {
		return c
	}
	return Capability{SupportsTools: true}
}

// New builds a Client for providerTag ("grok"|"groq"|"gemini"|"claude"|"ollama").
// baseURL overrides the default when non-empty (grok's GROK_BASE_URL
// override, or a self-hosted Ollama instance). Grounded on
// pkg/devclaw/copilot/llm.go's detectProvider + NewLLMClient dispatch,
// collapsed into one factory function since this package has no
// long-lived client-selection state to carry.
func New(providerTag, apiKey, baseURL string) (Client, error) {
	tag := strings.ToLower(providerTag)
	if baseURL == "" {
		baseURL = defaultBaseURLs[tag]
	}

	switch tag {
	case "claude":
		return NewAnthropicClient(apiKey, baseURL, 4096), nil
	case "gemini":
		return NewGeminiClient(apiKey, baseURL), nil
	case "ollama":
		return NewOllamaClient(baseURL), nil
	case "grok", "groq", "":
		return NewOpenAIClient(apiKey, baseURL), nil
	default:
		// Unknown tag: assume an OpenAI-compatible host, matching the
		// teacher's detectProvider default branch.
		return NewOpenAIClient(apiKey, baseURL), nil
	}
}
