package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jholhewres/crewcode/internal/agentrt"
	"github.com/jholhewres/crewcode/internal/config"
	"github.com/jholhewres/crewcode/internal/sandbox"
	"github.com/jholhewres/crewcode/internal/team"
)

// newTeamCmd creates the `crewcode team` command group: create (optionally
// from the default preset), list, delete, and chat, which broadcasts a
// message to a team's agents in order. Grounded on team_manager.go's CRUD-style CLI surface
// (create/list/delete), narrowed to spec.md §4.4/§4.5's turn-scoped
// sequential broadcast instead of the teacher's always-on group chat.
func newTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage and chat with multi-agent teams",
	}
	cmd.AddCommand(
		newTeamCreateCmd(),
		newTeamListCmd(),
		newTeamDeleteCmd(),
		newTeamChatCmd(),
	)
	return cmd
}

func newTeamManager(cmd *cobra.Command) (*team.Manager, *config.Config, *slog.Logger, *sandbox.Sandbox, error) {
	cfg, logger, _, sb, err := loadEnv(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	teamsDir, err := config.TeamsDir()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	m, err := team.NewManager(teamsDir, cfg.ResolveKey, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return m, cfg, logger, sb, nil
}

func newTeamCreateCmd() *cobra.Command {
	var usePreset bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new team, optionally seeded with the default preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, _, _, err := newTeamManager(cmd)
			if err != nil {
				return err
			}
			m.Create(args[0])
			if usePreset {
				for _, acfg := range team.DefaultPreset() {
					acfg.Provider = cfg.DefaultProvider
					acfg.Model = cfg.DefaultModel
					if err := m.AddAgent(acfg); err != nil {
						return err
					}
				}
			}
			if err := m.Save(""); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created team %q with %d agent(s)\n", args[0], len(m.Current().Agents))
			return nil
		},
	}
	cmd.Flags().BoolVar(&usePreset, "preset", false, "seed with the Architect/Frontend/Backend/Reviewer/DevOps preset")
	return cmd
}

func newTeamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved teams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, _, _, err := newTeamManager(cmd)
			if err != nil {
				return err
			}
			summaries, err := m.List()
			if err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d agent(s)\tupdated %s\n", s.Name, s.AgentCount, s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newTeamDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, _, _, err := newTeamManager(cmd)
			if err != nil {
				return err
			}
			if err := m.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted team %q\n", args[0])
			return nil
		},
	}
}

func newTeamChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <name> <message>",
		Short: "Broadcast one message to a team's agents, in order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, message := args[0], args[1]

			m, cfg, logger, sb, err := newTeamManager(cmd)
			if err != nil {
				return err
			}
			t, err := m.Load(name)
			if err != nil {
				return err
			}

			agents, err := buildTeamAgents(cfg, t, sb, logger)
			if err != nil {
				return err
			}

			ch := team.NewChannel(nil)
			ev := team.Events{
				OnAgentThinking: func(agentID string) {
					fmt.Fprintf(cmd.ErrOrStderr(), "  [%s thinking...]\n", agentID)
				},
				OnAgentError: func(agentID string, err error) {
					fmt.Fprintf(cmd.ErrOrStderr(), "  [%s error: %v]\n", agentID, err)
				},
			}

			produced := ch.Broadcast(context.Background(), t, agents, message, ev)
			for _, entry := range produced {
				fmt.Fprintf(cmd.OutOrStdout(), "\n--- %s (%s) ---\n%s\n", entry.Name, entry.Role, entry.Content)
			}
			return nil
		},
	}
}

// buildTeamAgents constructs one agentrt.Agent per AgentConfig in t,
// all sharing sb and auto-allowing dangerous tool calls (spec.md §4.6:
// a per-call interactive prompt would deadlock a sequential broadcast).
func buildTeamAgents(cfg *config.Config, t *team.Team, sb *sandbox.Sandbox, logger *slog.Logger) (map[string]*agentrt.Agent, error) {
	agents := map[string]*agentrt.Agent{}
	for _, acfg := range t.Agents {
		agent, err := buildAgent(cfg, acfg, cfg.ResolveBaseURL(acfg.Provider), sb, logger)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", acfg.ID, err)
		}
		agents[acfg.ID] = agent
	}
	return agents, nil
}
