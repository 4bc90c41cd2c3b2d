package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newAICmd() *cobra.Command {
	var (
		rf      remoteFlags
		asJSON  bool
		actions = make([]string, 0, len(aigateway.Actions))
	)
	for _, a := range aigateway.Actions {
		actions = append(actions, string(a))
	}
	cmd := &cobra.Command{
		Use:       "ai ACTION",
		Short:     "Run an AI analysis of the live catalog (" + strings.Join(actions, ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: actions,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := aigateway.ParseAction(args[0]); err != nil {
				return err
			}
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			resp, err := c.AI(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			var b []byte
			if asJSON {
				b, err = json.MarshalIndent(resp.Result, "", "  ")
				b = append(b, '\n')
			} else {
				b, err = yaml.Marshal(resp.Result)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON result instead of YAML")
	return cmd
}
