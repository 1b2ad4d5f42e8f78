package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home) // harmless on non-Windows, keeps os.UserHomeDir consistent
	return home
}

func TestDir_CreatesAppDirUnderHome(t *testing.T) {
	home := withHome(t)
	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if dir != filepath.Join(home, ".crewcode") {
		t.Errorf("unexpected dir: %q", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected %s to exist as a directory", dir)
	}
}

func TestTeamsDir_IsSubdirOfConfigDir(t *testing.T) {
	home := withHome(t)
	dir, err := TeamsDir()
	if err != nil {
		t.Fatalf("TeamsDir: %v", err)
	}
	if dir != filepath.Join(home, ".crewcode", "teams") {
		t.Errorf("unexpected teams dir: %q", dir)
	}
}

func TestLoad_NoFileYet_ReturnsDefaults(t *testing.T) {
	withHome(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultProvider != "claude" || cfg.LogLevel != "info" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestSaveLoad_RoundTripsProviderDefaults(t *testing.T) {
	withHome(t)
	cfg := Default()
	cfg.Providers["grok"] = ProviderDefault{APIKey: "grok-secret", BaseURL: "https://custom.example/v1"}
	cfg.LogLevel = "debug"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("expected logLevel to round-trip, got %q", loaded.LogLevel)
	}
	if loaded.Providers["grok"].APIKey != "grok-secret" {
		t.Errorf("expected grok key to round-trip, got %+v", loaded.Providers["grok"])
	}
}

func TestResolveKey_FallsBackToEnvVarWhenNoStoredDefault(t *testing.T) {
	withHome(t)
	t.Setenv("CLAUDE_API_KEY", "env-key-value")
	cfg := Default()
	if got := cfg.ResolveKey("claude"); got != "env-key-value" {
		t.Errorf("ResolveKey(claude) = %q, want env var value", got)
	}
}

func TestResolveKey_PrefersStoredConfigOverEnvVar(t *testing.T) {
	withHome(t)
	t.Setenv("CLAUDE_API_KEY", "env-key-value")
	cfg := Default()
	cfg.Providers["claude"] = ProviderDefault{APIKey: "config-key-value"}
	if got := cfg.ResolveKey("claude"); got != "config-key-value" {
		t.Errorf("ResolveKey(claude) = %q, want stored config value", got)
	}
}

func TestResolveKey_OllamaNeedsNoKey(t *testing.T) {
	withHome(t)
	cfg := Default()
	if got := cfg.ResolveKey("ollama"); got != "" {
		t.Errorf("ResolveKey(ollama) = %q, want empty", got)
	}
}

func TestResolveBaseURL_GrokFallsBackToEnvVar(t *testing.T) {
	withHome(t)
	t.Setenv("GROK_BASE_URL", "https://grok.example/v1")
	cfg := Default()
	if got := cfg.ResolveBaseURL("grok"); got != "https://grok.example/v1" {
		t.Errorf("ResolveBaseURL(grok) = %q", got)
	}
}

func TestSandboxPolicy_OnlyOverridesNonzeroFields(t *testing.T) {
	withHome(t)
	cfg := Default()
	cfg.Sandbox.MaxRounds = 3
	root := t.TempDir()
	policy, err := cfg.SandboxPolicy(root)
	if err != nil {
		t.Fatalf("SandboxPolicy: %v", err)
	}
	if policy.MaxRounds != 3 {
		t.Errorf("expected overridden MaxRounds=3, got %d", policy.MaxRounds)
	}
	if policy.MaxToolCallsPerRound != 10 {
		t.Errorf("expected default MaxToolCallsPerRound=10 preserved, got %d", policy.MaxToolCallsPerRound)
	}
	if policy.ProjectRoot != root {
		t.Errorf("expected project root set, got %q", policy.ProjectRoot)
	}
}

func TestLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	withHome(t)
	cfg := Default()
	cfg.LogLevel = "nonsense"
	l := cfg.Logger()
	if l == nil {
		t.Fatalf("expected a logger even for an unknown level")
	}
	if !l.Enabled(context.Background(), slog.LevelInfo) || l.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("expected an unknown level to log at info")
	}
}
