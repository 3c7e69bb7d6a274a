package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/guichet/internal/catalog"
)

// entitiesCmd lists the entity screens
var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List the entities served by the back-office",
	Args:  cobra.NoArgs,
	RunE:  runEntities,
}

func runEntities(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tTITLE")
	for _, e := range catalog.Entries() {
		fmt.Fprintf(tw, "%s\t%s\n", e.Path, e.Title)
	}
	return tw.Flush()
}
