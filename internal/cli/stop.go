package cli

import (
	"fmt"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/charbel-alt28/aura-retail-ai/internal/daemon"
	"github.com/spf13/cobra"
)

// newStopCmd terminates the daemon recorded in <home>/protected/daemon.pid.
// A scenario in flight is aborted and the store is closed on the way out.
func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background Aura daemon for this home",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := daemon.Status(cmd.Context(), home)
			if err != nil {
				return err
			}
			stopped, err := daemon.Stop(cmd.Context(), home)
			if err != nil {
				return fmt.Errorf("stop daemon (pid %d): %w", st.PID, err)
			}
			if !stopped {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Aura is not running (home %s)\n", home)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stopped Aura daemon (pid %d, %s)\n", st.PID, st.Addr)
			return nil
		},
	}
}
