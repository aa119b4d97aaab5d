package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"shipload/internal/config"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Rebuild the database and load the shipment spreadsheets",
	Long: `Delete any existing store, create the schema and run the full
population pass without printing the verification report.`,
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

		return runLoad(ctx, cfg, st)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
