package cli

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/charbel-alt28/aura-retail-ai/internal/daemon"
	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var rf remoteFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is up, plus a snapshot of the store floor",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := daemon.Status(cmd.Context(), home)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !st.Running {
				_, _ = fmt.Fprintln(out, "Aura not running")
				return nil
			}
			_, _ = fmt.Fprintf(out, "Aura running (pid %d, addr %s)\n", st.PID, st.Addr)

			if rf.addr == "" {
				if _, port, err := net.SplitHostPort(st.Addr); err == nil {
					rf.addr = "http://localhost:" + port
				}
			}
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			defer cancel()
			m, err := c.Monitoring(ctx)
			if err != nil {
				_, _ = fmt.Fprintf(out, "  api unreachable: %v\n", err)
				return nil
			}
			_, _ = fmt.Fprintf(out, "  products=%d critical=%d stock_health=%d%% revenue=%s\n",
				m.Products, m.CriticalItems, m.StockHealth, pricing.FormatPrice(m.Revenue))
			_, _ = fmt.Fprintf(out, "  queries pending=%d resolved=%d simulating=%t\n",
				m.PendingQueries, m.ResolvedQueries, m.Simulating)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}
