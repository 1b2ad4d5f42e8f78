// Package commands implements crewcode's CLI subcommands using cobra.
// Grounded on cmd/devclaw/commands/root.go's root-command shape, trimmed
// to the chat/team/config subset this spec keeps in scope (no serve,
// mcp, oauth, or messaging-channel commands).
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "crewcode",
		Short: "crewcode - terminal multi-agent coding assistant",
		Long: `crewcode runs one or more LLM agents against a sandboxed project
directory from the terminal, with tool use (bash, read, write, edit,
glob, grep, webfetch) gated by a path jail, a command deny-list, and an
interactive permission prompt for dangerous actions.

Examples:
  crewcode chat "add error handling to main.go"
  crewcode team create "Squad" --preset
  crewcode team chat "Squad" "implement the login page"`,
		Version: version,
	}

	rootCmd.AddCommand(
		newChatCmd(),
		newTeamCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("dir", "d", ".", "project root the tool sandbox is jailed to")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "auto-approve dangerous tool calls instead of prompting")

	return rootCmd
}
