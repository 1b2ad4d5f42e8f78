// Package agentrt implements the Agent Runtime (spec.md §4.3): one
// configured LLM persona, its private DM history, and the bounded
// tool-call loop it runs against the Provider Adapter and Tool Sandbox.
package agentrt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jholhewres/crewcode/internal/provider"
	"github.com/jholhewres/crewcode/internal/sandbox"
)

// Config is the serializable identity of one agent (spec.md's
// AgentConfig). APIKey may be the literal sentinel "__config__", which
// internal/team resolves to the process-wide config key on load — this
// package only ever sees an already-resolved key.
type Config struct {
	ID            string
	Name          string
	Role          string
	SystemPrompt  string
	Provider      string
	Model         string
	APIKey        string
	OllamaBaseURL string

	// UsesConfigDefault records whether APIKey was resolved from the
	// process-wide config default rather than set explicitly for this
	// agent. internal/team consults this (not a value comparison) to
	// decide whether to serialize the "__config__" sentinel on save.
	UsesConfigDefault bool
}

// SendOptions parameterizes one sendMessage call, per spec.md §4.3's
// signature sendMessage(text, {directory, mode, includeHistory, callbacks}).
type SendOptions struct {
	// Directory is the default bash workdir when a tool call omits one.
	Directory string
	// Mode is a host-supplied label ("single" | "team"); SendMessage does
	// not read it, so the loop's behavior does not branch on it.
	Mode string
	// IncludeHistory, when true, prepends the agent's private DM history
	// to the working messages and appends this turn to it on success.
	// The team broadcast path always passes false (spec.md §4.4).
	IncludeHistory bool
	Callbacks      Callbacks
}

// Agent owns one provider-bound persona: its config, DM history, and
// current Status. Grounded on pkg/devclaw/copilot/agent.go's AgentRun,
// generalized from one OpenAI-shaped client to the provider-agnostic
// Client interface and bounded by a hard round/call ceiling instead of
// the teacher's wall-clock run timeout.
type Agent struct {
	Config     Config
	client     provider.Client
	sb         *sandbox.Sandbox
	capability provider.Capability
	rates      provider.Rates
	logger     *slog.Logger

	mu      sync.Mutex
	history []provider.Message
	status  Status
}

// New builds an Agent bound to client (already constructed for
// cfg.Provider/APIKey/OllamaBaseURL by the caller — cmd/crewcode's
// buildAgent owns that wiring) and sb, the shared Tool Sandbox.
func New(cfg Config, client provider.Client, sb *sandbox.Sandbox, rates provider.Rates, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		Config:     cfg,
		client:     client,
		sb:         sb,
		capability: provider.CapabilityFor(cfg.Provider),
		rates:      rates,
		logger:     logger.With("agent", cfg.ID, "role", cfg.Role),
	}
}

// Status returns the agent's current lifecycle state.
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *Agent) setStatus(s Status, cb Callbacks) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
	cb.statusChange(a.Config.ID, s)
}

// History returns a copy of the agent's private DM log.
func (a *Agent) History() []provider.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]provider.Message, len(a.history))
	copy(out, a.history)
	return out
}

// SendMessage runs the bounded tool-call loop of spec.md §4.3 and
// returns the agent's accumulated reply text (including the trailing
// usage footer). Tool validation failures and execution failures are
// captured inside the loop as ordinary tool results; only a provider
// transport error or an uncaught programming fault returns a non-nil
// error, matching the taxonomy in spec.md §7.
func (a *Agent) SendMessage(ctx context.Context, text string, opts SendOptions) (reply string, err error) {
	ctx, span := startSendSpan(ctx, a)
	defer func() { endSpanWithError(span, err) }()

	cb := opts.Callbacks
	a.setStatus(StatusThinking, cb)

	messages := a.buildMessages(text, opts.IncludeHistory)

	var tools []provider.ToolDefinition
	if a.capability.SupportsTools {
		tools = toolDefinitions()
	}

	counter := a.sb.NewRequestCounter()
	var segments []string
	var lastUsage provider.Usage

	defer func() {
		if err != nil {
			a.setStatus(StatusError, cb)
		}
	}()

	for {
		if !counter.StartRound() {
			segments = append(segments, "[Tool limit: max rounds reached]")
			break
		}

		resp, sendErr := a.client.SendMessage(ctx, provider.Request{
			Model:    a.Config.Model,
			Messages: messages,
			Tools:    tools,
		})
		if sendErr != nil {
			return "", fmt.Errorf("API Error: %w", sendErr)
		}
		lastUsage = resp.Usage
		messages = append(messages, resp.Message)

		if t := resp.Message.ContentString(); t != "" {
			segments = append(segments, t)
		}

		if len(resp.Message.ToolCalls) == 0 || !a.capability.SupportsTools {
			break
		}

		a.setStatus(StatusTool, cb)
		messages = a.runToolCalls(ctx, resp.Message.ToolCalls, counter, opts, messages)
		a.setStatus(StatusThinking, cb)
	}

	reply = strings.Join(segments, "\n\n") + provider.FormatFooter(lastUsage, provider.EstimateCostUSD(lastUsage, a.rates))

	if opts.IncludeHistory {
		a.mu.Lock()
		a.history = append(a.history, provider.TextMessage("user", text), provider.TextMessage("assistant", reply))
		a.mu.Unlock()
	}

	a.setStatus(StatusIdle, cb)
	return reply, nil
}

// buildMessages assembles the working message list for one sendMessage
// call: system prompt, optional DM history, then the new user turn.
func (a *Agent) buildMessages(text string, includeHistory bool) []provider.Message {
	var messages []provider.Message
	if a.Config.SystemPrompt != "" {
		messages = append(messages, provider.TextMessage("system", a.Config.SystemPrompt))
	}
	if includeHistory {
		messages = append(messages, a.History()...)
	}
	messages = append(messages, provider.TextMessage("user", text))
	return messages
}

// runToolCalls executes one assistant turn's tool calls in emission
// order (spec.md §5: sequential even within one round) and returns the
// messages slice with every tool result appended.
func (a *Agent) runToolCalls(ctx context.Context, calls []provider.ToolCall, counter *sandbox.RequestCounter, opts SendOptions, messages []provider.Message) []provider.Message {
	cb := opts.Callbacks

	for _, tc := range calls {
		if !counter.Allow() {
			messages = append(messages, provider.ToolResultMessage(tc.ID, sandbox.ErrToolLimitReached))
			continue
		}

		args := decodeArgs(tc.Function.Arguments)
		if tc.Function.Name == "bash" && str(args, "workdir") == "" && opts.Directory != "" {
			args["workdir"] = opts.Directory
		}

		cb.toolCall(a.Config.ID, sandbox.ToolCall{AgentID: a.Config.ID, Tool: tc.Function.Name, Args: args})

		if !cb.permit(a.Config.ID, tc.Function.Name, permissionDetails(tc.Function.Name, args)) {
			result := fmt.Sprintf("Permission denied by user for %s", tc.Function.Name)
			cb.toolResult(a.Config.ID, tc.Function.Name, result, nil)
			messages = append(messages, provider.ToolResultMessage(tc.ID, result))
			continue
		}

		toolCtx, toolSpan := startToolSpan(ctx, a.Config.ID, tc.Function.Name)
		result, dispatchErr := a.sb.Dispatch(toolCtx, sandbox.ToolCall{AgentID: a.Config.ID, Tool: tc.Function.Name, Args: args})
		endSpanWithError(toolSpan, dispatchErr)
		if dispatchErr != nil {
			result = fmt.Sprintf("Error: %s", dispatchErr.Error())
		}
		cb.toolResult(a.Config.ID, tc.Function.Name, result, dispatchErr)
		messages = append(messages, provider.ToolResultMessage(tc.ID, result))
	}

	return messages
}

// permissionDetails renders the short summary the interactive
// Permission Gateway shows the user, per spec.md §4.6.
func permissionDetails(tool string, args map[string]any) string {
	switch tool {
	case "bash":
		cmd, workdir := str(args, "command"), str(args, "workdir")
		if workdir != "" {
			return fmt.Sprintf("%s (in %s)", cmd, workdir)
		}
		return cmd
	case "write", "edit":
		return str(args, "path")
	case "webfetch":
		return str(args, "url")
	default:
		return ""
	}
}

func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	_ = json.Unmarshal([]byte(raw), &args)
	return args
}

func str(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
