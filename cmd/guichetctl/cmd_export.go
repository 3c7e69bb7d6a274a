package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/guichet/internal/backend"
	"github.com/DukeRupert/guichet/internal/domain"
	"github.com/DukeRupert/guichet/internal/export"
	"github.com/DukeRupert/guichet/internal/session"
)

var (
	exportFormat string
	exportQuery  string
	exportOut    string
)

// exportCmd writes a collection as CSV, PDF or printable HTML
var exportCmd = &cobra.Command{
	Use:   "export <entity>",
	Short: "Export an entity's records to a file",
	Long: `Export the records of an entity in the format of the screens' export
buttons. The file is written to --out, or to a dated file name in the
current directory when --out is empty. Use --out - for stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Export format: csv, pdf or html")
	exportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "Search query")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file")
}

func runExport(cmd *cobra.Command, args []string) error {
	format := domain.ExportFormat(exportFormat)
	gen, err := export.New(format)
	if err != nil {
		return err
	}

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
	table, err := source.Table(ctx, backend.Call{Token: token}, exportQuery, sess)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", source.Entity(), err)
	}

	if exportOut == "-" {
		_, err := gen.Generate(ctx, table, cmd.OutOrStdout())
		return err
	}

	out := exportOut
	if out == "" {
		out = export.Filename(source.Entity(), format, table.GeneratedAt)
	}
	f, err := os.Create(filepath.Clean(out))
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	n, err := gen.Generate(ctx, table, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d lignes, %d octets\n", out, len(table.Rows), n)
	return nil
}
