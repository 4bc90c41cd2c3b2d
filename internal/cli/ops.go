package cli

import (
	"context"
	"fmt"

	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/charbel-alt28/aura-retail-ai/pkg/client"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/spf13/cobra"
)

func newOpsCmd() *cobra.Command {
	var rf remoteFlags
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Run warehouse, pricing and database operations on a running server",
	}
	rf.register(cmd)

	listOp := func(use, short string, fn func(*client.Client, context.Context) ([]models.Product, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := rf.client(cmd)
				if err != nil {
					return err
				}
				products, err := fn(c, cmd.Context())
				if err != nil {
					return err
				}
				printProducts(cmd.OutOrStdout(), products)
				return nil
			},
		}
	}
	cmd.AddCommand(listOp("low-stock", "List products below their reorder level", (*client.Client).LowStock))
	cmd.AddCommand(listOp("slow-movers", "List low-demand products holding excess stock", (*client.Client).SlowMovers))
	cmd.AddCommand(listOp("low-margin", "List products with a thin estimated margin", (*client.Client).LowMargin))
	cmd.AddCommand(listOp("scan", "Run a warehouse scan", (*client.Client).Scan))

	countOp := func(use, short, verb string, fn func(*client.Client, context.Context) (int, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := rf.client(cmd)
				if err != nil {
					return err
				}
				n, err := fn(c, cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d product(s)\n", verb, n)
				return nil
			},
		}
	}
	cmd.AddCommand(countOp("auto-reorder", "Restock every low-stock product", "Reordered", (*client.Client).AutoReorder))
	cmd.AddCommand(countOp("optimize", "Reprice products still at base price", "Adjusted", (*client.Client).OptimizePrices))

	var percent float64
	promo := countOp("promotion", "Discount every low-demand product", "Discounted",
		func(c *client.Client, ctx context.Context) (int, error) {
			return c.LaunchPromotion(ctx, percent)
		})
	promo.Flags().Float64Var(&percent, "percent", 15, "Discount percent (0-100)")
	cmd.AddCommand(promo)

	cmd.AddCommand(&cobra.Command{
		Use:   "monitor",
		Short: "Show dashboard metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			m, err := c.Monitoring(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Products: %d\nCritical items: %d\nRevenue: %s\nStock health: %d%%\n", m.Products, m.CriticalItems, pricing.FormatPrice(m.Revenue), m.StockHealth)
			_, _ = fmt.Fprintf(out, "Queries: %d pending, %d resolved\nSimulating: %t\n", m.PendingQueries, m.ResolvedQueries, m.Simulating)
			return nil
		},
	})

	var wait bool
	scenario := &cobra.Command{
		Use:   "scenario",
		Short: "Run the demo scenario on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			if !wait {
				ms, err := c.StartScenario(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scenario started (about %.1fs)\n", float64(ms)/1000)
				return nil
			}
			sum, err := c.RunScenario(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Restocked: %d  Prices adjusted: %d  Queries resolved: %d\n", sum.Restocked, sum.PricesAdjusted, sum.QueriesResolved)
			return nil
		},
	}
	scenario.Flags().BoolVar(&wait, "wait", false, "Block until the scenario finishes and print its summary")
	cmd.AddCommand(scenario)

	cmd.AddCommand(&cobra.Command{
		Use:   "simulate",
		Short: "Toggle the simulation flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			on, err := c.ToggleSimulation(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Simulating: %t\n", on)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "backup",
		Short: "Snapshot the market into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			b, err := c.Backup(cmd.Context())
			if err != nil {
				return err
			}
			printBackup(cmd, *b)
			return nil
		},
	})

	var limit int
	backups := &cobra.Command{
		Use:   "backups",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			list, err := c.Backups(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No backups.")
				return nil
			}
			for _, b := range list {
				printBackup(cmd, b)
			}
			return nil
		},
	}
	backups.Flags().IntVar(&limit, "limit", 0, "Maximum snapshots to list")
	cmd.AddCommand(backups)

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Write the whole market to the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			if err := c.Sync(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Synced.")
			return nil
		},
	})

	return cmd
}

func printBackup(cmd *cobra.Command, b models.Backup) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "- %s %s products=%d queries=%d logs=%d\n",
		b.ID, b.CreatedAt.Local().Format("2006-01-02 15:04:05"), b.ProductCount, b.QueryCount, b.LogCount)
}
