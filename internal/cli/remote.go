package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/charbel-alt28/aura-retail-ai/internal/pricing"
	"github.com/charbel-alt28/aura-retail-ai/pkg/client"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/spf13/cobra"
)

// remoteFlags are shared by the commands that talk to a running server.
type remoteFlags struct {
	addr   string
	apiKey string
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.addr, "addr", "", "Server URL (default: http://localhost:<server.port>)")
	cmd.PersistentFlags().StringVar(&f.apiKey, "api-key", "", "API key (default: env AURA_API_KEY)")
}

// client resolves the server address and key from flags, then config.
func (f *remoteFlags) client(cmd *cobra.Command) (*client.Client, error) {
	addr, key := f.addr, f.apiKey
	if key == "" {
		key = os.Getenv("AURA_API_KEY")
	}
	if addr == "" || key == "" {
		cfg, err := config.Load(config.MustHomeFrom(cmd.Context()))
		if err != nil {
			return nil, err
		}
		if addr == "" {
			addr = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		}
		if key == "" {
			key = cfg.Server.APIKey
		}
	}
	return client.New(strings.TrimRight(addr, "/"), key), nil
}

func printProducts(w io.Writer, products []models.Product) {
	if len(products) == 0 {
		_, _ = fmt.Fprintln(w, "No products.")
		return
	}
	for _, p := range products {
		printProduct(w, p)
	}
}

func printProduct(w io.Writer, p models.Product) {
	flag := ""
	if p.BelowThreshold() {
		flag = " LOW"
	}
	_, _ = fmt.Fprintf(w, "- %s %s (%s) stock=%d/%d price=%s base=%s demand=%s%s\n",
		p.ID, p.Name, p.Category, p.Stock, p.ReorderLevel,
		pricing.FormatPrice(p.CurrentPrice), pricing.FormatPrice(p.BasePrice), p.DemandLevel, flag)
}

func printQuery(w io.Writer, q models.CustomerQuery) {
	_, _ = fmt.Fprintf(w, "- %s [%s] %s (%s): %s\n    -> %s\n", q.ID, q.Status, q.CustomerName, q.QueryType, q.Query, q.Response)
}

func printLog(w io.Writer, l models.AgentLog) {
	_, _ = fmt.Fprintf(w, "%s  %-9s %-22s %-8s %s\n", l.Timestamp.Local().Format("2006-01-02 15:04:05"), l.Agent, l.Action, l.Status, l.Details)
}
