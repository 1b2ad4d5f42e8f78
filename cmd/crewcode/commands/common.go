package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jholhewres/crewcode/internal/agentrt"
	"github.com/jholhewres/crewcode/internal/config"
	"github.com/jholhewres/crewcode/internal/permission"
	"github.com/jholhewres/crewcode/internal/provider"
	"github.com/jholhewres/crewcode/internal/sandbox"
)

// tracingOnce registers an in-process SDK TracerProvider exactly once
// per run, giving internal/agentrt's spans (otherwise the global no-op)
// somewhere to go. No exporter is attached — this is the "attach any
// TracerProvider for latency visibility" hook SPEC_FULL.md names, not a
// telemetry backend; a host wanting OTLP export registers its own
// provider before the CLI runs instead of going through this one.
var tracingOnce sync.Once

func initTracing() {
	tracingOnce.Do(func() {
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
	})
}

// defaultRates is the fallback cost table used when a provider has no
// entry in cfg.ProviderRates (spec.md §9's acknowledged staleness
// hazard: pricing is surfaced as config, not baked into the adapter).
var defaultRates = provider.Rates{PromptPerMillionUSD: 3.0, CompletionPerMillionUSD: 15.0}

// loadEnv resolves the shared dependencies every chat-ish command
// needs: the process-wide config, its logger, the project root
// (persistent --dir flag), and a ready-to-dispatch Sandbox.
func loadEnv(cmd *cobra.Command) (*config.Config, *slog.Logger, string, *sandbox.Sandbox, error) {
	initTracing()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, "", nil, fmt.Errorf("load config: %w", err)
	}

	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	if verbose {
		cfg.LogLevel = "debug"
	}
	logger := cfg.Logger()

	dirFlag, _ := cmd.Root().PersistentFlags().GetString("dir")
	dir, err := filepath.Abs(dirFlag)
	if err != nil {
		return nil, nil, "", nil, fmt.Errorf("resolve project root: %w", err)
	}

	policy, err := cfg.SandboxPolicy(dir)
	if err != nil {
		return nil, nil, "", nil, fmt.Errorf("build sandbox policy: %w", err)
	}
	sb, err := sandbox.New(policy, nil, logger)
	if err != nil {
		return nil, nil, "", nil, fmt.Errorf("build sandbox: %w", err)
	}

	return cfg, logger, dir, sb, nil
}

// gatewayFor returns the interactive or auto-allow Permission Gateway
// depending on the --yes flag (spec.md §4.6). When stdin isn't a TTY
// (piped input, a non-interactive CI run), huh.Confirm has nothing to
// render, so gatewayFor falls back to AutoAllow rather than hanging.
func gatewayFor(cmd *cobra.Command) permission.Gateway {
	auto, _ := cmd.Root().PersistentFlags().GetBool("yes")
	if auto || !term.IsTerminal(int(os.Stdin.Fd())) {
		return permission.AutoAllow
	}
	return permission.Interactive(cmd.OutOrStdout())
}

// buildAgent constructs the provider client for acfg.Provider/APIKey and
// wraps it in an agentrt.Agent bound to sb. apiKey is expected already
// resolved (the "__config__" sentinel handling belongs to internal/team
// and internal/config, not here). baseURL is cfg's effective override
// for this provider, or "" to use the adapter's built-in default.
func buildAgent(cfg *config.Config, acfg agentrt.Config, baseURL string, sb *sandbox.Sandbox, logger *slog.Logger) (*agentrt.Agent, error) {
	if acfg.APIKey == "" && acfg.Provider != "ollama" {
		return nil, fmt.Errorf("no API key configured for provider %q (set %s or run `crewcode config set-key`)",
			acfg.Provider, provider.GetProviderKeyName(acfg.Provider))
	}
	if acfg.Provider == "ollama" && acfg.OllamaBaseURL != "" {
		baseURL = acfg.OllamaBaseURL
	}
	client, err := provider.New(acfg.Provider, acfg.APIKey, baseURL)
	if err != nil {
		return nil, fmt.Errorf("build provider client: %w", err)
	}
	rates := cfg.RatesFor(acfg.Provider)
	if rates == (provider.Rates{}) {
		rates = defaultRates
	}
	return agentrt.New(acfg, client, sb, rates, logger), nil
}
