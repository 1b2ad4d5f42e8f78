// Package permission implements the Permission Gateway (spec.md §4.6):
// a function (toolName, details) → bool consulted by the Agent Runtime
// before dangerous tools run. Grounded on tool_guard.go's
// AutoApprove/RequireConfirmation lists and its confirmation-requester
// callback, reshaped into the spec's plain function-type contract —
// this package has no notion of access levels or destructive-call rate
// limiting, both out of scope for SPEC_FULL.md's gateway.
package permission

import (
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
)

// Gateway is the function shape spec.md §4.6 and §6 name: given a tool
// name and a short detail summary, report whether the call may proceed.
type Gateway func(toolName, details string) bool

// AutoAllow is the standard non-interactive gateway: unconditionally
// true. Used by the Team Channel (spec.md §4.6: "team responses would
// deadlock on per-call prompts") and by any host that disables
// confirmation entirely.
func AutoAllow(toolName, details string) bool { return true }

// Interactive builds a gateway that prompts the user with a Y/N modal
// via huh.Confirm, escape defaulting to deny. out receives a plain-text
// fallback line when the form can't render (non-interactive stdin),
// matching huh's own behavior of erroring out of a non-TTY run — in
// that case Interactive denies rather than hanging.
func Interactive(out io.Writer) Gateway {
	return func(toolName, details string) bool {
		var allow bool
		title := fmt.Sprintf("Allow %s?", toolName)
		description := details
		if description == "" {
			description = "(no further detail)"
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(title).
					Description(description).
					Affirmative("Allow").
					Negative("Deny").
					Value(&allow),
			),
		)

		if err := form.Run(); err != nil {
			fmt.Fprintf(out, "permission prompt unavailable (%v); denying %s\n", err, toolName)
			return false
		}
		return allow
	}
}
