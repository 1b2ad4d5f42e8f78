package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/jholhewres/crewcode/internal/config"
	"github.com/jholhewres/crewcode/internal/provider"
)

// newConfigCmd creates the `crewcode config` command. Grounded on
// cmd/copilot/commands/config.go's init/show/set-key/key-status shape,
// narrowed to this module's provider/key/sandbox surface — the
// teacher's vault-init/vault-set/vault-change-password family has no
// home here (spec.md's Non-goals exclude cryptographic sandbox
// isolation, and the teacher's vault secures message-channel secrets
// this spec doesn't have).
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage crewcode configuration",
		Long: `Manage crewcode's process-wide configuration (~/.crewcode/config.json).

Examples:
  crewcode config init
  crewcode config show
  crewcode config set-key claude
  crewcode config key-status claude`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigSetKeyCmd(),
		newConfigDeleteKeyCmd(),
		newConfigKeyStatusCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default config.json",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			target := dir + "/config.json"
			if _, err := os.Stat(target); err == nil {
				return fmt.Errorf("%s already exists, remove it first or edit it directly", target)
			}

			cfg := config.Default()
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Printf("Created %s with default configuration.\n", target)
			fmt.Println("\nNext steps:")
			fmt.Println("  1. Run: crewcode config set-key claude")
			fmt.Println("  2. Run: crewcode chat \"hello\"")
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// newConfigSetKeyCmd stores a provider's API key in the OS keyring,
// the first link in config.Config.ResolveKey's priority chain.
func newConfigSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <provider>",
		Short: "Store a provider's API key in the OS keyring (encrypted)",
		Long: `Securely stores a provider's API key in the operating system's
native keyring. This is checked first, before config.json or an
environment variable.

Linux:   GNOME Keyring / KDE Wallet / Secret Service
macOS:   Keychain
Windows: Credential Manager`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := strings.ToLower(args[0])

			fmt.Fprint(cmd.OutOrStdout(), "Enter API key: ")
			reader := bufio.NewReader(cmd.InOrStdin())
			key, _ := reader.ReadString('\n')
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("no key provided")
			}

			if err := config.StoreKeyInKeyring(tag, key); err != nil {
				return fmt.Errorf("store key in keyring: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored API key for %q in the OS keyring.\n", tag)
			return nil
		},
	}
}

func newConfigDeleteKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key <provider>",
		Short: "Remove a provider's API key from the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := strings.ToLower(args[0])
			if err := config.DeleteKeyInKeyring(tag); err != nil {
				return fmt.Errorf("clear key in keyring: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared keyring entry for %q.\n", tag)
			return nil
		},
	}
}

// newConfigKeyStatusCmd shows where a provider's key will resolve
// from, in priority order, without ever printing the key itself.
func newConfigKeyStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key-status <provider>",
		Short: "Show where a provider's API key is loaded from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := strings.ToLower(args[0])
			if tag == "ollama" {
				fmt.Fprintln(cmd.OutOrStdout(), "ollama needs no API key.")
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API key resolution order for %q:\n\n", tag)

			resolved := cfg.ResolveKey(tag)
			envName := provider.GetProviderKeyName(tag)

			keyringVal, keyringErr := keyring.Get("crewcode", tag)
			fmt.Fprintf(out, "  1. OS keyring:       %s\n", statusLine(keyringErr == nil && keyringVal != ""))
			_, stored := cfg.Providers[tag]
			fmt.Fprintf(out, "  2. config.json:      %s\n", statusLine(stored && cfg.Providers[tag].APIKey != ""))
			fmt.Fprintf(out, "  3. %-18s %s\n", envName+":", statusLine(envName != "" && os.Getenv(envName) != ""))

			if resolved == "" {
				fmt.Fprintln(out, "\nNo key resolved. Run `crewcode config set-key "+tag+"`.")
			} else {
				fmt.Fprintln(out, "\nA key is resolved for this provider.")
			}
			return nil
		},
	}
}

func statusLine(ok bool) string {
	if ok {
		return "[OK] set"
	}
	return "[--] not set"
}
