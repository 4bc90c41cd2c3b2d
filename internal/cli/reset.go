package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/charbel-alt28/aura-retail-ai/internal/daemon"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var (
		yes      bool
		keepConf bool
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all Aura state under AURA_HOME (database, backups, logs)",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())

			if st, err := daemon.Status(cmd.Context(), home); err == nil && st.Running {
				return fmt.Errorf("aura is running (pid %d); run `aura stop` first", st.PID)
			}

			if !yes {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "WARNING: this will permanently delete all Aura data.")
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Directory: %s\n", home)
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), `Type "delete everything" to confirm:`)

				in := bufio.NewReader(cmd.InOrStdin())
				line, err := in.ReadString('\n')
				if err != nil && !strings.Contains(err.Error(), "EOF") {
					return err
				}
				if strings.TrimSpace(line) != "delete everything" {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			target := home
			if keepConf {
				target = config.ProtectedDir(home)
			}
			if err := os.RemoveAll(target); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&keepConf, "keep-config", false, "Keep config.yaml and only delete the database and runtime files")
	return cmd
}
