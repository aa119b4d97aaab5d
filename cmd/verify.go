package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"shipload/internal/config"
	"shipload/internal/report"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Print the loaded tables for inspection",
	Long: `Run read-only join queries against an existing store and print
shipments with resolved location and driver names plus a sample of line
items. The store is not rebuilt.`,
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

		return report.Print(ctx, st, cfg.Report.SampleLimit)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
