package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/guichet/internal/backend"
	"github.com/DukeRupert/guichet/internal/export"
	"github.com/DukeRupert/guichet/internal/session"
)

var listQuery string

// listCmd prints a collection as a table
var listCmd = &cobra.Command{
	Use:   "list <entity>",
	Short: "Print an entity's records",
	Long: `Print the records of an entity with the columns of its list screen.

Without --query the whole collection is fetched (findall); with it the
backend search is paged until exhausted.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Search query")
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	source, err := findSource(client, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := operationContext(cmd)
	defer cancel()

	sess := session.Context{Token: token, User: user}
	table, err := source.Table(ctx, backend.Call{Token: token}, listQuery, sess)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", source.Entity(), err)
	}
	return printTable(cmd.OutOrStdout(), table)
}

func printTable(w io.Writer, table *export.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(table.Headers, "\t"))
	for _, row := range table.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d enregistrement(s)\n", len(table.Rows))
	return err
}
