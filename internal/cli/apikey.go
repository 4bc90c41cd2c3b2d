package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/spf13/cobra"
)

func newApikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the key that guards the API when the daemon listens beyond localhost",
	}
	cmd.AddCommand(newApikeyGenerateCmd(), newApikeyShowCmd())
	return cmd
}

func newApikeyGenerateCmd() *cobra.Command {
	var (
		envFile string
		save    bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a random 256-bit key",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := make([]byte, 32)
			if _, err := rand.Read(raw); err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			key := hex.EncodeToString(raw)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "New API key:\n\n  %s\n\n", key)

			switch {
			case save:
				home := config.MustHomeFrom(cmd.Context())
				cfg, err := config.LoadFile(home)
				if err != nil {
					return err
				}
				cfg.Server.APIKey = key
				if err := config.Save(home, cfg); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Saved as server.api_key in %s; restart the daemon to apply.\n", config.Path(home))
			case envFile != "":
				if err := appendEnv(envFile, "AURA_API_KEY", key); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Appended AURA_API_KEY to %s; run: aura start --env-file %s\n", envFile, envFile)
			default:
				_, _ = fmt.Fprintln(out, "Export it on the server as AURA_API_KEY, or rerun with --save.")
			}
			_, _ = fmt.Fprintln(out, "Clients send it as the X-API-Key header (or ?api_key= for the event stream).")
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env", "", "Append AURA_API_KEY to this env file")
	cmd.Flags().BoolVar(&save, "save", false, "Write the key to config.yaml")
	cmd.MarkFlagsMutuallyExclusive("env", "save")
	return cmd
}

func newApikeyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Report whether a key is configured, and where it comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Server.APIKey == "" {
				_, _ = fmt.Fprintln(out, "no api key configured; the API is open to anyone who can reach it")
				return nil
			}
			source := config.Path(home)
			if os.Getenv("AURA_API_KEY") != "" {
				source = "AURA_API_KEY"
			}
			_, _ = fmt.Fprintf(out, "api key %s (from %s)\n", maskKey(cfg.Server.APIKey), source)
			return nil
		},
	}
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:4] + "..." + k[len(k)-4:]
}

func appendEnv(path, name, value string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "%s=%s\n", name, value); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
