package commands

import (
	"context"
	"fmt"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jholhewres/crewcode/internal/agentrt"
)

// newChatCmd creates the `crewcode chat` command: a single configured
// agent, chatting directly with the user. Grounded on
// cmd/copilot/commands/chat.go's single-message/REPL split, generalized
// from the teacher's one fixed assistant persona to this module's
// provider-tagged AgentConfig.
func newChatCmd() *cobra.Command {
	var provider, model, systemPrompt string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with a single agent in the terminal",
		Long: `Start a conversation with one agent directly in the terminal.
Pass a message as an argument for a single response, or run without
arguments for an interactive REPL.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, args, provider, model, systemPrompt)
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "claude", "provider tag: grok|groq|gemini|claude|ollama")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model name")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "override the agent's system prompt")
	return cmd
}

func runChat(cmd *cobra.Command, args []string, providerTag, model, systemPrompt string) error {
	cfg, logger, dir, sb, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("provider") && cfg.DefaultProvider != "" {
		providerTag = cfg.DefaultProvider
	}
	if model == "" {
		model = cfg.DefaultModel
	}

	acfg := agentrt.Config{
		ID:                "cli",
		Name:              "Agent",
		Role:              "assistant",
		SystemPrompt:      systemPrompt,
		Provider:          providerTag,
		Model:             model,
		APIKey:            cfg.ResolveKey(providerTag),
		UsesConfigDefault: true,
	}
	agent, err := buildAgent(cfg, acfg, cfg.ResolveBaseURL(providerTag), sb, logger)
	if err != nil {
		return err
	}

	callbacks := agentrt.Callbacks{
		OnToolCall: func(agentID, tool string, args map[string]any) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  [%s] %s\n", tool, argsPreview(args))
		},
		OnPermissionRequired: gatewayFor(cmd),
	}
	opts := agentrt.SendOptions{Directory: dir, Mode: "single", IncludeHistory: true, Callbacks: callbacks}

	if len(args) > 0 {
		reply, err := agent.SendMessage(context.Background(), args[0], opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	}

	return runChatREPL(cmd, agent, opts)
}

// runChatREPL runs an interactive line-editing session against one
// agent, using chzyer/readline for history and line editing — a direct
// go.mod dependency the teacher never actually calls from anywhere in
// its own source, given its first real home here.
func runChatREPL(cmd *cobra.Command, agent *agentrt.Agent, opts agentrt.SendOptions) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "you> ",
	})
	if err != nil {
		return fmt.Errorf("start chat REPL: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(cmd.OutOrStdout(), "Type your message and press Enter. /quit to exit.")

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF (Ctrl+D) or readline.ErrInterrupt (Ctrl+C)
			return nil
		}
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		reply, err := agent.SendMessage(context.Background(), line, opts)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
	}
}

func argsPreview(args map[string]any) string {
	if cmd, ok := args["command"].(string); ok {
		return cmd
	}
	if path, ok := args["path"].(string); ok {
		return path
	}
	if url, ok := args["url"].(string); ok {
		return url
	}
	return ""
}
