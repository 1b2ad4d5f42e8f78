// Command crewcode is the terminal entry point for the multi-agent
// coding assistant: single-agent chat, team chat, and config/team
// management subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/jholhewres/crewcode/cmd/crewcode/commands"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	rootCmd := commands.NewRootCmd(version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
