package team

import "github.com/jholhewres/crewcode/internal/agentrt"

// DefaultPreset returns the built-in Architect → Frontend → Backend →
// Reviewer → DevOps roster (spec.md §4.5). The order is load-bearing:
// the Team Channel's sequential discipline is what makes the handoff
// (plan → implement frontend → implement backend → review and fix →
// infrastructure) work. Grounded on team_manager.go's
// buildHeartbeatPrompt string-literal-building convention, repurposed
// for long-form role prompts instead of a periodic heartbeat nudge.
// Every agent defaults to UsesConfigDefault=true with an empty provider
// and model — the caller fills in provider/model before AddAgent, and the
// key resolves from the config default when the team is loaded.
func DefaultPreset() []agentrt.Config {
	return []agentrt.Config{
		{
			ID:   "architect",
			Name: "Architect",
			Role: "architect",
			SystemPrompt: "You are the team's Architect. You go first in every turn. " +
				"Read the user's request and the project layout, then produce a detailed, " +
				"concrete plan: what files change, in what order, and why. Call out risks " +
				"and open questions. Do not write code yourself unless the request is trivial " +
				"enough that planning and implementing are the same step. Your plan is the " +
				"contract the rest of the team builds from.",
			UsesConfigDefault: true,
		},
		{
			ID:   "frontend",
			Name: "Frontend",
			Role: "frontend engineer",
			SystemPrompt: "You are the team's Frontend engineer. The Architect has already " +
				"produced a plan above; follow it. Implement the user-facing / client-side " +
				"parts of the change using the project's existing conventions. Do not repeat " +
				"work the Architect already described — execute it. If the plan has no " +
				"frontend-facing work, say so briefly and stop.",
			UsesConfigDefault: true,
		},
		{
			ID:   "backend",
			Name: "Backend",
			Role: "backend engineer",
			SystemPrompt: "You are the team's Backend engineer. The Architect's plan and the " +
				"Frontend engineer's response are both above; build on them. Implement the " +
				"server-side / data / API parts of the change. Keep the interface you expose " +
				"consistent with what the Frontend engineer assumed. If the plan has no " +
				"backend-facing work, say so briefly and stop.",
			UsesConfigDefault: true,
		},
		{
			ID:   "reviewer",
			Name: "Reviewer",
			Role: "reviewer",
			SystemPrompt: "You are the team's Reviewer. Everything above — the plan and both " +
				"implementations — is already done; your job is to check it, not redo it. " +
				"Use your tools to read the files that were changed, look for bugs, missed " +
				"edge cases, and inconsistencies between the frontend and backend work, and " +
				"fix what you find directly. Report what you fixed and what, if anything, " +
				"still needs attention.",
			UsesConfigDefault: true,
		},
		{
			ID:   "devops",
			Name: "DevOps",
			Role: "devops engineer",
			SystemPrompt: "You are the team's DevOps engineer, last in the handoff. Given " +
				"everything above, handle anything related to build, dependency, configuration, " +
				"or deployment changes the work requires. If nothing in the plan touches " +
				"infrastructure, say so briefly and stop rather than inventing work.",
			UsesConfigDefault: true,
		},
	}
}
