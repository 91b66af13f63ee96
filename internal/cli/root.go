// Package cli implements the stagectl command line: sample data generation,
// one-off ingestion and warehouse bootstrap.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stageloader/internal/config"
	"github.com/JonMunkholm/stageloader/internal/core"
	_ "github.com/JonMunkholm/stageloader/internal/core/entities" // register payments and orders
	"github.com/JonMunkholm/stageloader/internal/logging"
	"github.com/JonMunkholm/stageloader/internal/warehouse"
)

var rootCmd = &cobra.Command{
	Use:   "stagectl",
	Short: "Operate the CSV staging loader",
	Long: `stagectl drives the staging loader outside of the event receiver.

It generates sample payments and orders files, runs a single ingestion for
an object as if a storage notification had arrived, and creates the staging
datasets and tables.

Configuration comes from the environment (and a .env file if present), the
same variables the server reads.`,
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context; a run in flight still drops its temp table.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// loadConfig reads .env and the environment, then sets up logging.
// --verbose forces debug level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// .env is optional
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logging.Setup(level, cfg.Logging.Format)

	return cfg, nil
}

// openPipeline builds the warehouse named by cfg and a pipeline over it.
func openPipeline(ctx context.Context, cfg *config.Config) (*core.Pipeline, func(), error) {
	wh, closeFn, err := warehouse.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open warehouse: %w", err)
	}
	slog.Debug("entities registered", "entities", core.Names())
	return core.NewPipeline(wh, cfg), closeFn, nil
}
