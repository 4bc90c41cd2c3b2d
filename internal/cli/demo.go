package cli

import (
	"fmt"
	"sync"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/charbel-alt28/aura-retail-ai/internal/daemon"
	"github.com/charbel-alt28/aura-retail-ai/internal/httpapi"
	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/spf13/cobra"
)

// newDemoCmd runs the demo scenario in-process against a fresh, unpersisted
// market and prints the audit tape as it is written.
func newDemoCmd() *cobra.Command {
	var fast bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the demo scenario in-process and print the audit tape",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			if fast {
				cfg.Scenario.Fast = true
			}
			opts, err := daemon.ServerOptionsFromConfig(home, cfg)
			if err != nil {
				return err
			}
			opts.InMemory = true
			app, err := httpapi.NewApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			unsub := app.Market.Subscribe(func(ev market.Event) {
				if ev.Log == nil {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				l := ev.Log
				_, _ = fmt.Fprintf(out, "%s  %-9s %-22s %s\n", l.Timestamp.Local().Format("15:04:05"), l.Agent, l.Action, l.Details)
			})
			defer unsub()

			sum, err := app.RunScenario(cmd.Context())
			if err != nil {
				return err
			}

			m := app.Ops.Metrics()
			mu.Lock()
			defer mu.Unlock()
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintf(out, "Restocked: %d  Prices adjusted: %d  Queries resolved: %d\n", sum.Restocked, sum.PricesAdjusted, sum.QueriesResolved)
			_, _ = fmt.Fprintf(out, "Revenue: %s  Stock health: %d%%  Critical items: %d\n", pricing.FormatPrice(m.Revenue), m.StockHealth, m.CriticalItems)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fast, "fast", false, "Skip the pauses between steps")
	return cmd
}
