package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/charbel-alt28/aura-retail-ai/internal/daemon"
	"github.com/charbel-alt28/aura-retail-ai/internal/store"
	"github.com/charbel-alt28/aura-retail-ai/internal/store/postgres"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify configuration, database and AI provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			out := cmd.OutOrStdout()

			var problems []string

			cfg, err := config.Load(home)
			if err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "config: "+err.Error())
				return errors.New("doctor checks failed")
			}
			_, _ = fmt.Fprintf(out, "config: %s\n", config.Path(home))

			if err := checkDatabase(cmd.Context(), home, cfg.Database); err != nil {
				problems = append(problems, "database: "+err.Error())
			} else {
				_, _ = fmt.Fprintf(out, "database: %s ok\n", driverName(cfg.Database.Driver))
			}

			if gw, err := daemon.NewGateway(cfg.AI); err != nil {
				problems = append(problems, "ai: "+err.Error())
			} else {
				_, _ = fmt.Fprintf(out, "ai: %s\n", gw.Name())
			}

			if _, err := daemon.ServerOptionsFromConfig(home, cfg); err != nil {
				problems = append(problems, "catalog: "+err.Error())
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "ok")
			return nil
		},
	}
	return cmd
}

func driverName(d string) string {
	if d == "" {
		return "sqlite"
	}
	return d
}

func checkDatabase(ctx context.Context, home string, db config.DatabaseConfig) error {
	var (
		st  store.Store
		err error
	)
	if db.Driver == "postgres" {
		st, err = postgres.Open(db.URL)
	} else {
		st, err = store.Open(home)
	}
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return st.Ping(ctx)
}
