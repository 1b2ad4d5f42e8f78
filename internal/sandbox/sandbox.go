package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jholhewres/crewcode/internal/security"
)

// ErrToolLimitReached is returned (as the sentinel string, per spec.md
// §4.1) in place of a tool call beyond the per-round call ceiling,
// instead of executing the tool. Exhausting the round ceiling is
// reported by the agent loop with its own note, not this string.
const ErrToolLimitReached = "[Tool limit reached: max tool calls exceeded]"

// blockedError marks a sandbox validation rejection (path jail, bash
// deny-list, SSRF filter) as distinct from an execution failure.
// Per spec.md §7 item 3, these are "not errors": Dispatch unwraps them
// into a normal "Blocked: <reason>" tool result instead of propagating
// a Go error to the caller.
type blockedError struct{ reason string }

func (e *blockedError) Error() string { return e.reason }

func blocked(format string, a ...any) error {
	return &blockedError{reason: fmt.Sprintf(format, a...)}
}

// Sandbox is the single chokepoint every tool call passes through. One
// Sandbox is shared by every agent in a team; it holds no per-agent
// state beyond request-scoped counters handed out by NewRequestCounter.
type Sandbox struct {
	policy Policy
	bash   *bashGuard
	ssrf   *security.SSRFGuard
	log    ToolCallLog
	logger *slog.Logger
}

// New builds a Sandbox from policy, compiling its deny patterns once.
// Grounded on tool_guard.go's NewToolGuard, which likewise compiles
// every pattern up front rather than per call.
func New(policy Policy, log ToolCallLog, logger *slog.Logger) (*Sandbox, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	guard, err := newBashGuard(policy)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = NewMemoryLog(10000)
	}

	ssrfCfg := security.SSRFConfig{
		BlockedHostPatterns: policy.BlockedHostPatterns,
		SafeMode:            policy.SafeMode,
	}
	return &Sandbox{
		policy: policy,
		bash:   guard,
		ssrf:   security.NewSSRFGuard(ssrfCfg, logger),
		log:    log,
		logger: logger.With("component", "sandbox"),
	}, nil
}

// RequestCounter tracks the round/tool-call ceilings for one agent
// request (spec.md §4.1: MaxRounds rounds, MaxToolCallsPerRound calls
// each). Its methods lock a mutex; counters are not shared across
// agents — each agent's tool-call loop owns its own counter.
type RequestCounter struct {
	mu         sync.Mutex
	policy     Policy
	round      int
	callsInRow int
}

// NewRequestCounter starts a fresh round/call budget for one agent
// request.
func (s *Sandbox) NewRequestCounter() *RequestCounter {
	return &RequestCounter{policy: s.policy}
}

// StartRound advances to the next tool-use round, resetting the
// per-round call count. Returns false once MaxRounds is exhausted.
func (c *RequestCounter) StartRound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.round++
	c.callsInRow = 0
	return c.round <= c.policy.MaxRounds
}

// Allow reports whether one more tool call is permitted in the current
// round, incrementing the count if so.
func (c *RequestCounter) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callsInRow >= c.policy.MaxToolCallsPerRound {
		return false
	}
	c.callsInRow++
	return true
}

// ToolCall is one validated-and-dispatched invocation: the tool name
// plus its already-decoded arguments.
type ToolCall struct {
	AgentID string
	Tool    string
	Args    map[string]any
}

// Dispatch routes a tool call to its implementation, recording the
// outcome to the ToolCallLog regardless of success or failure. Counter
// accounting (round/call ceilings) is the caller's responsibility via
// RequestCounter — Dispatch only executes and logs.
func (s *Sandbox) Dispatch(ctx context.Context, call ToolCall) (string, error) {
	start := time.Now()
	result, err := s.run(ctx, call)

	var be *blockedError
	if errors.As(err, &be) {
		result = "Blocked: " + be.reason
		err = nil
	}
	result = truncate(result, s.policy.MaxResultBytes)

	duration := time.Since(start)

	s.log.Append(LogEntry{
		CallID:        newCallID(),
		Timestamp:     start,
		AgentID:       call.AgentID,
		Tool:          call.Tool,
		ArgsPreview:   sanitizeArgs(call.Args),
		ResultPreview: previewFor(result),
		Success:       err == nil,
		Duration:      duration,
	})

	return result, err
}

func (s *Sandbox) run(ctx context.Context, call ToolCall) (string, error) {
	switch call.Tool {
	case "bash":
		req := BashRequest{
			Command: str(call.Args, "command"),
			Workdir: str(call.Args, "workdir"),
			Timeout: durationSeconds(call.Args, "timeout"),
		}
		res, err := s.Bash(ctx, req)
		if err != nil {
			return "", err
		}
		return res.Output, nil

	case "read":
		return s.Read(ReadRequest{
			Path:   str(call.Args, "path"),
			Offset: intArg(call.Args, "offset"),
			Limit:  intArg(call.Args, "limit"),
		})

	case "write":
		return s.Write(WriteRequest{
			Path:    str(call.Args, "path"),
			Content: str(call.Args, "content"),
		})

	case "edit":
		return s.Edit(EditRequest{
			Path:       str(call.Args, "path"),
			Old:        str(call.Args, "old"),
			New:        str(call.Args, "new"),
			ReplaceAll: boolArg(call.Args, "replaceAll"),
		})

	case "glob":
		return s.Glob(GlobRequest{
			Pattern: str(call.Args, "pattern"),
			Path:    str(call.Args, "path"),
		})

	case "grep":
		return s.Grep(GrepRequest{
			Pattern: str(call.Args, "pattern"),
			Path:    str(call.Args, "path"),
			Include: str(call.Args, "include"),
		})

	case "webfetch":
		return s.Webfetch(ctx, WebfetchRequest{
			URL:    str(call.Args, "url"),
			Format: str(call.Args, "format"),
		})

	default:
		return "", fmt.Errorf("unknown tool %q", call.Tool)
	}
}

// Stats exposes the aggregated ToolCallLog statistics (spec.md's
// `stats` query), keyed by tool name.
func (s *Sandbox) Stats() []Stats {
	return s.log.Stats()
}

// Log returns the underlying ToolCallLog, for hosts that want to
// inspect raw entries (e.g. a `/audit` command).
func (s *Sandbox) Log() ToolCallLog {
	return s.log
}

func str(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func durationSeconds(args map[string]any, key string) time.Duration {
	switch v := args[key].(type) {
	case float64:
		return time.Duration(v) * time.Second
	case int:
		return time.Duration(v) * time.Second
	default:
		return 0
	}
}
