// Package sandbox implements the single chokepoint every tool call passes
// through: path jail, command deny-list, URL SSRF filter, result
// truncation, and the per-request round/call counters.
//
// Never trust the model. Every tool call, for every agent, in every mode,
// is validated here before it touches the filesystem, a subprocess, or the
// network.
package sandbox

import (
	"fmt"
	"regexp"
	"time"
)

// Policy is the process-scoped configuration for the tool sandbox.
// It is shared by every agent; the sandbox itself holds no agent state
// beyond the tool-call log.
type Policy struct {
	// ProjectRoot is the absolute path every file tool is jailed to.
	ProjectRoot string `yaml:"project_root"`

	// SafeMode additionally forbids network utilities and package
	// installers in bash, and non-standard ports in webfetch.
	SafeMode bool `yaml:"safe_mode"`

	// MaxRounds bounds the number of tool-use cycles per agent request.
	MaxRounds int `yaml:"max_rounds"`

	// MaxToolCallsPerRound bounds individual invocations within one round.
	MaxToolCallsPerRound int `yaml:"max_tool_calls_per_round"`

	// BashTimeout is the default bash timeout; HardBashTimeout is the cap
	// a caller-supplied timeout may not exceed.
	BashTimeout     time.Duration `yaml:"bash_timeout"`
	HardBashTimeout time.Duration `yaml:"hard_bash_timeout"`

	// WebfetchTimeout is the timeout of every webfetch call. Webfetch
	// takes no per-call timeout, so HardWebfetchTimeout, the cap a
	// per-call timeout would be clamped to, is not applied.
	WebfetchTimeout     time.Duration `yaml:"webfetch_timeout"`
	HardWebfetchTimeout time.Duration `yaml:"hard_webfetch_timeout"`

	// MaxResultBytes is the mandatory truncation cap applied to every
	// tool result (spec.md L1).
	MaxResultBytes int `yaml:"max_result_bytes"`

	// AllowedPathPrefixes is the path jail allow-list. Defaults to
	// {ProjectRoot}.
	AllowedPathPrefixes []string `yaml:"allowed_path_prefixes"`

	// BlockedBashPatterns are additional deny regexes, appended to the
	// built-in defaults (never replacing them).
	BlockedBashPatterns []string `yaml:"blocked_bash_patterns"`

	// BlockedHostPatterns are additional SSRF deny regexes for webfetch,
	// appended to the built-in private/loopback/metadata checks.
	BlockedHostPatterns []string `yaml:"blocked_host_patterns"`
}

// DefaultPolicy returns a Policy with the defaults named throughout
// spec.md §3-4: 10s/120s bash timeout, 30s/120s webfetch timeout, a
// ~10 KiB result cap, and a 2000-line default read limit (enforced in
// fsops.go, not here — it is a per-call default, not a policy field).
func DefaultPolicy(projectRoot string) Policy {
	return Policy{
		ProjectRoot:          projectRoot,
		SafeMode:             false,
		MaxRounds:            10,
		MaxToolCallsPerRound: 10,
		BashTimeout:          10 * time.Second,
		HardBashTimeout:      120 * time.Second,
		WebfetchTimeout:      30 * time.Second,
		HardWebfetchTimeout:  120 * time.Second,
		MaxResultBytes:       10 * 1024,
		AllowedPathPrefixes:  []string{projectRoot},
	}
}

// Validate rejects an obviously broken policy before it is used to build
// a sandbox — invalid regexes surface here instead of at call time.
func (p *Policy) Validate() error {
	if p.ProjectRoot == "" {
		return fmt.Errorf("sandbox: project root must not be empty")
	}
	if p.MaxRounds <= 0 || p.MaxToolCallsPerRound <= 0 {
		return fmt.Errorf("sandbox: max rounds and max tool calls per round must be positive")
	}
	if p.MaxResultBytes <= 0 {
		return fmt.Errorf("sandbox: max result bytes must be positive")
	}
	for _, pat := range p.BlockedBashPatterns {
		if _, err := regexp.Compile(pat); err != nil {
			return fmt.Errorf("sandbox: invalid blocked bash pattern %q: %w", pat, err)
		}
	}
	return nil
}

// clampDuration returns d if it is within (0, hard], the hard cap if d
// exceeds it, and def if d is zero or negative.
func clampDuration(d, def, hard time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	if d > hard {
		return hard
	}
	return d
}

// defaultBashPatterns are always compiled, regardless of policy config.
// Mirrors tool_guard.go's compileDangerousPatterns, trimmed to the
// commands spec.md §4.1 names explicitly.
var defaultBashPatterns = []string{
	`\brm\s+(-[a-zA-Z]*r[a-zA-Z]*f[a-zA-Z]*|-[a-zA-Z]*f[a-zA-Z]*r[a-zA-Z]*)\s+(/\s*$|/\s|~(\s|$)|\$HOME)`,
	`\brm\s+-[a-zA-Z]*f[a-zA-Z]*\s+/(\s|$)`,
	`\bmkfs\b`,
	`\bdd\s+.*of=/dev/`,
	`>\s*/dev/sd`,
	`\bchmod\s+(-R\s+)?[0-7]*777\s+/`,
	`\bchown\s+(-R\s+)?\S+\s+/(\s|$)`,
	`\b(shutdown|reboot|halt|poweroff)\b`,
	`:\(\)\{\s*:\|:&\s*\};:`,
	`\bnc\s+-l`,
	`\bncat\s+-l`,
	`\bsudo\b`,
	`\bsu\s+-`,
	`curl[^|&;]*\|\s*(sh|bash)\b`,
	`wget[^|&;]*\|\s*(sh|bash)\b`,
}

// defaultSafeModeBashPatterns are added on top of defaultBashPatterns
// when the policy's SafeMode flag is set: network utilities and package
// installers, per spec.md §4.1.
var defaultSafeModeBashPatterns = []string{
	`\b(curl|wget|nc|ncat|ssh|scp|sftp)\b`,
	`\b(npm|pip|pip3|apt|apt-get|yum|brew)\s+install\b`,
}
