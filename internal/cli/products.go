package cli

import (
	"fmt"
	"strconv"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/spf13/cobra"
)

func newProductsCmd() *cobra.Command {
	var rf remoteFlags
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect and change the catalog on a running server",
	}
	rf.register(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List products in catalog order",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			products, err := c.Products(cmd.Context())
			if err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), products)
			return nil
		},
	})

	cmd.AddCommand(productAction("get ID", "Show one product", 1,
		func(cmd *cobra.Command, args []string) (*models.Product, error) {
			c, err := rf.client(cmd)
			if err != nil {
				return nil, err
			}
			return c.Product(cmd.Context(), args[0])
		}))

	var quantity int
	reorder := productAction("reorder ID", "Add stock to a product", 1,
		func(cmd *cobra.Command, args []string) (*models.Product, error) {
			c, err := rf.client(cmd)
			if err != nil {
				return nil, err
			}
			return c.Reorder(cmd.Context(), args[0], quantity)
		})
	reorder.Flags().IntVar(&quantity, "quantity", 0, "Units to add")
	_ = reorder.MarkFlagRequired("quantity")
	cmd.AddCommand(reorder)

	var demand string
	adjust := productAction("adjust ID", "Reprice a product from its base price for a demand level", 1,
		func(cmd *cobra.Command, args []string) (*models.Product, error) {
			c, err := rf.client(cmd)
			if err != nil {
				return nil, err
			}
			return c.AdjustPrice(cmd.Context(), args[0], demand)
		})
	adjust.Flags().StringVar(&demand, "demand", "", "Demand level: high, medium or low")
	_ = adjust.MarkFlagRequired("demand")
	cmd.AddCommand(adjust)

	cmd.AddCommand(productAction("price ID PRICE", "Set the current price", 2,
		func(cmd *cobra.Command, args []string) (*models.Product, error) {
			price, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid price %q", args[1])
			}
			c, err := rf.client(cmd)
			if err != nil {
				return nil, err
			}
			return c.SetPrice(cmd.Context(), args[0], price)
		}))

	var percent float64
	promote := productAction("promote ID", "Discount one product", 1,
		func(cmd *cobra.Command, args []string) (*models.Product, error) {
			c, err := rf.client(cmd)
			if err != nil {
				return nil, err
			}
			return c.ApplyPromotion(cmd.Context(), args[0], percent)
		})
	promote.Flags().Float64Var(&percent, "percent", 15, "Discount percent (0-100)")
	cmd.AddCommand(promote)

	cmd.AddCommand(productAction("stock ID COUNT", "Overwrite the stock count", 2,
		func(cmd *cobra.Command, args []string) (*models.Product, error) {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return nil, fmt.Errorf("invalid stock %q", args[1])
			}
			c, err := rf.client(cmd)
			if err != nil {
				return nil, err
			}
			return c.UpdateStock(cmd.Context(), args[0], n)
		}))

	return cmd
}

func productAction(use, short string, nargs int, fn func(*cobra.Command, []string) (*models.Product, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := fn(cmd, args)
			if err != nil {
				return err
			}
			printProduct(cmd.OutOrStdout(), *p)
			return nil
		},
	}
}
