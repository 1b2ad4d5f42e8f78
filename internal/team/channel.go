package team

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jholhewres/crewcode/internal/agentrt"
	"github.com/jholhewres/crewcode/internal/permission"
)

// transcriptKCap bounds how much of the shared transcript is replayed
// into a teammate's prompt (spec.md §4.4: "the last K of the
// transcript"); spec.md's open question #2 leaves this fixed rather
// than configurable.
const transcriptKCap = 50

// Events is the Team Channel's UI subscription surface (spec.md §4.4).
// All fields are optional; the core broadcast loop never depends on a
// subscriber being present.
type Events struct {
	OnAgentThinking   func(agentID string)
	OnAgentToolCall   func(agentID, tool string, args map[string]any)
	OnAgentToolResult func(agentID, tool string, ok bool)
	OnAgentResponded  func(agentID, reply string)
	OnAgentError      func(agentID string, err error)
}

func (e Events) thinking(agentID string) {
	if e.OnAgentThinking != nil {
		e.OnAgentThinking(agentID)
	}
}

func (e Events) toolCall(agentID, tool string, args map[string]any) {
	if e.OnAgentToolCall != nil {
		e.OnAgentToolCall(agentID, tool, args)
	}
}

func (e Events) toolResult(agentID, tool string, ok bool) {
	if e.OnAgentToolResult != nil {
		e.OnAgentToolResult(agentID, tool, ok)
	}
}

func (e Events) responded(agentID, reply string) {
	if e.OnAgentResponded != nil {
		e.OnAgentResponded(agentID, reply)
	}
}

func (e Events) errored(agentID string, err error) {
	if e.OnAgentError != nil {
		e.OnAgentError(agentID, err)
	}
}

// Channel broadcasts one user message across a Team's agents in order.
// Grounded on team_manager.go's BuildAgentSystemPrompt for the
// labeled-section prompt-building idiom, adapted from the teacher's
// persistent always-on-duty agents to spec.md §4.4's turn-scoped,
// strictly sequential handoff: the contract is that agent i's context
// contains the user message plus every earlier agent's reply in this
// broadcast, and nothing from agents after it. An "Error: …" entry left
// by a failed or uninitialized agent is replayed to every later agent
// under TEAMMATE RESPONSES, like any other teammate entry.
type Channel struct {
	Transcript *SharedTranscript
}

// NewChannel builds a Channel over a fresh (or existing) shared
// transcript.
func NewChannel(transcript *SharedTranscript) *Channel {
	if transcript == nil {
		transcript = &SharedTranscript{}
	}
	return &Channel{Transcript: transcript}
}

// Broadcast runs spec.md §4.4's shared-transcript update rules: appends
// the user entry, then invokes each agent in team order with
// includeHistory=false, appending its reply (or an "Error: …" entry on
// failure) before moving to the next agent. Failures never abort the
// broadcast. Returns the entries this call appended, in order.
func (c *Channel) Broadcast(ctx context.Context, team *Team, agents map[string]*agentrt.Agent, message string, ev Events) []TranscriptEntry {
	c.Transcript.Append(TranscriptEntry{Role: "user", Content: message, Timestamp: time.Now()})

	var produced []TranscriptEntry
	for i, cfg := range team.Agents {
		agent := agents[cfg.ID]
		if agent == nil {
			entry := TranscriptEntry{AuthorID: cfg.ID, Name: cfg.Name, Role: cfg.Role, Content: "Error: agent not initialized", Timestamp: time.Now()}
			c.Transcript.Append(entry)
			produced = append(produced, entry)
			ev.errored(cfg.ID, fmt.Errorf("agent %s not initialized", cfg.ID))
			continue
		}

		ev.thinking(cfg.ID)
		prompt := buildAgentPrompt(cfg, i, message, c.Transcript)

		cb := agentrt.Callbacks{
			OnToolCall: func(agentID, tool string, args map[string]any) {
				ev.toolCall(agentID, tool, args)
			},
			OnToolResult: func(agentID, tool, result string, err error) {
				ev.toolResult(agentID, tool, err == nil)
			},
			// Team responses auto-allow: a per-call interactive prompt
			// would deadlock a sequential broadcast (spec.md §4.6).
			OnPermissionRequired: func(agentID, tool, details string) bool {
				return permission.AutoAllow(tool, details)
			},
		}

		reply, err := agent.SendMessage(ctx, prompt, agentrt.SendOptions{Mode: "team", IncludeHistory: false, Callbacks: cb})
		if err != nil {
			entry := TranscriptEntry{AuthorID: cfg.ID, Name: cfg.Name, Role: cfg.Role, Content: "Error: " + err.Error(), Timestamp: time.Now()}
			c.Transcript.Append(entry)
			produced = append(produced, entry)
			ev.errored(cfg.ID, err)
			continue
		}

		entry := TranscriptEntry{AuthorID: cfg.ID, Name: cfg.Name, Role: cfg.Role, Content: reply, Timestamp: time.Now()}
		c.Transcript.Append(entry)
		produced = append(produced, entry)
		ev.responded(cfg.ID, reply)
	}

	return produced
}

// buildAgentPrompt assembles the three labeled sections of spec.md
// §4.4 for the agent at position index in the team order.
func buildAgentPrompt(cfg agentrt.Config, index int, message string, transcript *SharedTranscript) string {
	var sb strings.Builder

	sb.WriteString("== USER REQUEST ==\n")
	sb.WriteString(message)
	sb.WriteString("\n\n")

	if index > 0 {
		sb.WriteString("== TEAMMATE RESPONSES ==\n")
		for _, e := range transcript.LastK(transcriptKCap) {
			if e.AuthorID == "" {
				continue // the user turn itself, not a teammate response
			}
			fmt.Fprintf(&sb, "--- %s (%s) ---\n%s\n", e.Name, e.Role, e.Content)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("== YOUR ASSIGNMENT ==\n")
	fmt.Fprintf(&sb, "You are %s, the %s.\n", cfg.Name, cfg.Role)
	if index == 0 {
		sb.WriteString("You go first: produce a detailed plan.\n")
	} else {
		sb.WriteString("Teammates above have already responded; build on their work, do not repeat it.\n")
	}
	sb.WriteString("Use your tools (bash, read, write, edit, glob, grep, webfetch) as needed to complete your part.\n")

	return sb.String()
}
