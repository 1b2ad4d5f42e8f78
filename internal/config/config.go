// Package config loads and persists the process-wide configuration:
// per-provider default API keys/base URLs, the sandbox policy overlay,
// logging, and the on-disk layout roots spec.md §6 names
// (~/.crewcode/config.json, ~/.crewcode/teams/). Nothing here reads or
// writes ~/.crewcode/todos.json.
//
// Grounded on pkg/devclaw/copilot/config.go's Config struct and
// loader.go's env/file precedence, trimmed to the fields this spec's
// external interface actually names — the teacher's Config carries
// dozens of unrelated subsystems (channels, media, webui, scheduler)
// that have no home in this module.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/jholhewres/crewcode/internal/provider"
	"github.com/jholhewres/crewcode/internal/sandbox"
)

const appName = "crewcode"

// keyringService namespaces this app's secrets in the OS keyring.
const keyringService = "crewcode"

// ProviderDefault holds the process-wide default for one provider tag:
// the API key agents fall back to when their AgentConfig uses the
// "__config__" sentinel, plus an optional base URL override.
type ProviderDefault struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
}

// Config is the process-wide configuration (spec.md §6's config.json).
type Config struct {
	// DefaultProvider/DefaultModel seed a new agent's AgentConfig when
	// the user doesn't specify one.
	DefaultProvider string `json:"defaultProvider"`
	DefaultModel    string `json:"defaultModel"`

	// Providers maps provider tag -> its stored default key/base URL.
	Providers map[string]ProviderDefault `json:"providers"`

	// LogLevel is "debug" | "info" | "warn" | "error" (default "info").
	LogLevel string `json:"logLevel"`

	// Sandbox carries a policy overlay merged onto sandbox.DefaultPolicy
	// for the active project root — only the fields a user actually set
	// override the default (zero-valued fields are left alone).
	Sandbox sandbox.Policy `json:"sandbox"`

	// ProviderRates maps provider tag -> per-million-token pricing, so
	// the usage footer's cost line (spec.md §4.2) can be kept current
	// without a code change when a vendor reprices — the known
	// staleness hazard of a compile-time cost table (spec.md §9).
	ProviderRates map[string]provider.Rates `json:"providerRates,omitempty"`
}

// Default returns a Config with sane defaults: no stored keys, info
// logging, and a zero-value sandbox overlay (the caller merges it onto
// sandbox.DefaultPolicy, which supplies every numeric default).
func Default() *Config {
	return &Config{
		DefaultProvider: "claude",
		LogLevel:        "info",
		Providers:       map[string]ProviderDefault{},
	}
}

// Dir returns ~/.crewcode, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	dir := filepath.Join(home, "."+appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: create %s: %w", dir, err)
	}
	return dir, nil
}

// TeamsDir returns ~/.crewcode/teams, creating it if necessary.
func TeamsDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	teamsDir := filepath.Join(dir, "teams")
	if err := os.MkdirAll(teamsDir, 0o755); err != nil {
		return "", fmt.Errorf("config: create %s: %w", teamsDir, err)
	}
	return teamsDir, nil
}

// path returns ~/.crewcode/config.json.
func path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads ~/.crewcode/config.json, loads .env/.env.local over the
// process environment (godotenv never overwrites an already-set var),
// and returns Default() untouched if no config file exists yet — first
// run is not an error.
func Load() (*Config, error) {
	loadEnvFiles()

	cfg := Default()
	p, err := path()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", p, err)
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", p, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderDefault{}
	}
	return cfg, nil
}

// Save writes cfg to ~/.crewcode/config.json with owner-only
// permissions, since it may contain plaintext API keys.
func (c *Config) Save() error {
	p, err := path()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(p, raw, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", p, err)
	}
	return nil
}

// ResolveKey returns the effective API key for providerTag, per the
// priority chain: OS keyring entry for this provider, then the stored
// config default, then the provider's environment variable (spec.md
// §6's GROK_API_KEY/GROQ_API_KEY/GEMINI_API_KEY/CLAUDE_API_KEY), in
// that order. Ollama needs no key and always resolves to "".
func (c *Config) ResolveKey(providerTag string) string {
	tag := strings.ToLower(providerTag)
	if tag == "ollama" {
		return ""
	}
	if val, err := keyring.Get(keyringService, tag); err == nil && val != "" {
		return val
	}
	if d, ok := c.Providers[tag]; ok && d.APIKey != "" {
		return d.APIKey
	}
	if envName := provider.GetProviderKeyName(tag); envName != "" {
		if val := os.Getenv(envName); val != "" {
			return val
		}
	}
	return ""
}

// ResolveBaseURL returns the configured base URL override for
// providerTag, or "" if none was set (the caller falls back to
// provider.New's built-in default, or GROK_BASE_URL for grok per
// spec.md §6).
func (c *Config) ResolveBaseURL(providerTag string) string {
	tag := strings.ToLower(providerTag)
	if d, ok := c.Providers[tag]; ok && d.BaseURL != "" {
		return d.BaseURL
	}
	if tag == "grok" {
		return os.Getenv("GROK_BASE_URL")
	}
	return ""
}

// RatesFor returns the configured cost table for providerTag, or a
// zero Rates (cost tracking disabled) if none is configured.
func (c *Config) RatesFor(providerTag string) provider.Rates {
	return c.ProviderRates[strings.ToLower(providerTag)]
}

// StoreKeyInKeyring saves apiKey to the OS keyring under providerTag,
// for hosts that prefer not to keep plaintext keys in config.json.
func StoreKeyInKeyring(providerTag, apiKey string) error {
	return keyring.Set(keyringService, strings.ToLower(providerTag), apiKey)
}

// DeleteKeyInKeyring removes providerTag's stored key from the OS
// keyring.
func DeleteKeyInKeyring(providerTag string) error {
	return keyring.Delete(keyringService, strings.ToLower(providerTag))
}

// Logger builds the process-wide slog.Logger at cfg.LogLevel, writing
// structured text to stderr — grounded on the teacher's LoggingConfig
// but trimmed to the one field this spec's logging surface needs.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// SandboxPolicy merges c.Sandbox's nonzero overrides onto
// sandbox.DefaultPolicy(projectRoot) and validates the result.
func (c *Config) SandboxPolicy(projectRoot string) (sandbox.Policy, error) {
	policy := sandbox.DefaultPolicy(projectRoot)
	overlay := c.Sandbox

	if overlay.SafeMode {
		policy.SafeMode = true
	}
	if overlay.MaxRounds > 0 {
		policy.MaxRounds = overlay.MaxRounds
	}
	if overlay.MaxToolCallsPerRound > 0 {
		policy.MaxToolCallsPerRound = overlay.MaxToolCallsPerRound
	}
	if overlay.BashTimeout > 0 {
		policy.BashTimeout = overlay.BashTimeout
	}
	if overlay.HardBashTimeout > 0 {
		policy.HardBashTimeout = overlay.HardBashTimeout
	}
	if overlay.WebfetchTimeout > 0 {
		policy.WebfetchTimeout = overlay.WebfetchTimeout
	}
	if overlay.HardWebfetchTimeout > 0 {
		policy.HardWebfetchTimeout = overlay.HardWebfetchTimeout
	}
	if overlay.MaxResultBytes > 0 {
		policy.MaxResultBytes = overlay.MaxResultBytes
	}
	if len(overlay.AllowedPathPrefixes) > 0 {
		policy.AllowedPathPrefixes = overlay.AllowedPathPrefixes
	}
	if len(overlay.BlockedBashPatterns) > 0 {
		policy.BlockedBashPatterns = overlay.BlockedBashPatterns
	}
	if len(overlay.BlockedHostPatterns) > 0 {
		policy.BlockedHostPatterns = overlay.BlockedHostPatterns
	}

	if err := policy.Validate(); err != nil {
		return sandbox.Policy{}, err
	}
	return policy, nil
}

// LoadSandboxOverlay reads an optional YAML sandbox-policy override
// file (e.g. a project-local .crewcode.yaml), for hosts that want the
// sandbox policy versioned alongside the project rather than in the
// global config.json. Grounded on loader.go's yaml.v3 parsing path —
// this is the one place in the module a YAML file, rather than JSON,
// is the natural fit, since it's meant to be hand-edited and checked
// into a repo.
func LoadSandboxOverlay(path string) (sandbox.Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sandbox.Policy{}, fmt.Errorf("config: read sandbox overlay %s: %w", path, err)
	}
	var overlay sandbox.Policy
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return sandbox.Policy{}, fmt.Errorf("config: parse sandbox overlay %s: %w", path, err)
	}
	return overlay, nil
}

// loadEnvFiles loads .env and .env.local from the working directory,
// without overwriting variables already set in the environment.
func loadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}
