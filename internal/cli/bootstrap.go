package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stageloader/internal/core"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the staging datasets and tables",
	Long: `Create the staging and temp datasets and one staging table per registered
entity, if they do not exist. Existing tables are never altered.`,
	Args: cobra.NoArgs,
	RunE: runBootstrap,
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, closeFn, err := openPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := p.Bootstrap(ctx); err != nil {
		return err
	}

	for _, def := range core.All() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s.%s\n", def.Name, cfg.Warehouse.StagingDataset, def.Table)
	}
	return nil
}
