package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shipload/internal/config"
	"shipload/internal/ingest"
	"shipload/internal/report"
	"shipload/internal/store"
)

var (
	cfgFile string
	Version = "1.0.0"
)

var rootCmd = &cobra.Command{
	Use:   "shipload",
	Short: "Load shipment spreadsheets into a normalized SQL database",
	Long: `Shipload ingests three shipment spreadsheets (dispatch records, line
items and the shipment manifest), resolves products, locations and drivers
into deduplicated entity tables, and loads shipments and line items with
consistent foreign keys.

Running with no arguments rebuilds the database from scratch and prints a
verification report. Use the subcommands to run the phases separately.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		showVersion, _ := cmd.Flags().GetBool("version")
		if showVersion {
			fmt.Printf("shipload version %s\n", Version)
			return nil
		}

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

		if err := runLoad(ctx, cfg, st); err != nil {
			return err
		}
		return report.Print(ctx, st, cfg.Report.SampleLimit)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	dbURL, err := cfg.GetDatabaseURL()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Database.Provider, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return st, nil
}

// runLoad is the whole write path: rebuild the store, create the schema and
// run the population pass.
func runLoad(ctx context.Context, cfg *config.Config, st *store.Store) error {
	if err := st.Reset(ctx); err != nil {
		return err
	}
	if err := st.InitSchema(ctx); err != nil {
		return err
	}
	color.Green("Schema ready.")

	in, err := ingest.ReadInputs(cfg.DispatchPath(), cfg.LineItemPath(), cfg.ManifestPath())
	if err != nil {
		return err
	}

	stats, err := ingest.NewLoader(st).Load(ctx, in)
	if err != nil {
		return err
	}

	color.Green("Loaded %d products, %d locations, %d drivers, %d shipments, %d line items",
		stats.Products, stats.Locations, stats.Drivers, stats.Shipments, stats.LineItems)
	if stats.RowErrors > 0 {
		color.Yellow("%d rows skipped due to errors (see log above)", stats.RowErrors)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./shipload.config.json)")
	rootCmd.Flags().BoolP("version", "v", false, "Show version")
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		godotenv.Load(".env.local")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("json")
		viper.SetConfigName("shipload.config")
	}

	viper.AutomaticEnv()

	// Missing config file is fine; defaults cover everything.
	viper.ReadInConfig()
}
