package cli

import (
	"os"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string

	cmd := &cobra.Command{
		Use:          "aura",
		Short:        "Aura: hypermarket ops engine with a live dashboard",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithHome(cmd.Context(), home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override Aura home directory (default: ~/.aura, env: AURA_HOME)")

	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDemoCmd())

	cmd.AddCommand(newProductsCmd())
	cmd.AddCommand(newQueriesCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newOpsCmd())
	cmd.AddCommand(newAICmd())

	cmd.AddCommand(newApikeyCmd())
	cmd.AddCommand(newResetCmd())

	// Hidden internal subcommand used by `aura start` for background mode.
	cmd.AddCommand(newDaemonCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
