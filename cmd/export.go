package cmd

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"shipload/internal/config"
	"shipload/internal/export"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the loaded tables to JSON or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		path, err := export.Perform(ctx, st, cfg.ExportPath, exportFormat)
		if err != nil {
			return err
		}

		color.Green("Export written to %s", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format (json or csv)")
}
