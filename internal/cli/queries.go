package cli

import (
	"errors"
	"fmt"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"github.com/spf13/cobra"
)

func newQueriesCmd() *cobra.Command {
	var rf remoteFlags
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "List, submit and resolve customer queries",
	}
	rf.register(cmd)

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List queries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			qs, err := c.Queries(cmd.Context(), status)
			if err != nil {
				return err
			}
			if len(qs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No queries.")
				return nil
			}
			for _, q := range qs {
				printQuery(cmd.OutOrStdout(), q)
			}
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "Filter by status: "+models.QueryPending+" or "+models.QueryResolved)
	cmd.AddCommand(list)

	var name string
	ask := &cobra.Command{
		Use:   "ask TEXT",
		Short: "Submit a customer question and print the generated answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			q, err := c.SubmitQuery(cmd.Context(), name, args[0])
			if err != nil {
				return err
			}
			printQuery(cmd.OutOrStdout(), *q)
			return nil
		},
	}
	ask.Flags().StringVar(&name, "name", "", "Customer name")
	cmd.AddCommand(ask)

	cmd.AddCommand(&cobra.Command{
		Use:   "resolve ID",
		Short: "Mark a query resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			q, err := c.ResolveQuery(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printQuery(cmd.OutOrStdout(), *q)
			return nil
		},
	})
	return cmd
}

func newLogsCmd() *cobra.Command {
	var (
		rf    remoteFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the audit tape, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.client(cmd)
			if err != nil {
				return err
			}
			logs, err := c.Logs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, l := range logs {
				printLog(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "Entries to print (0 = all retained)")
	return cmd
}
