package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stageloader/internal/core"
	"github.com/JonMunkholm/stageloader/internal/objstore"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <scheme://bucket/object>",
	Short: "Run one ingestion for an object",
	Long: `Run the full staging flow for one object, as if its storage notification
had just arrived: resolve the entity, load into a temp table, append into the
staging table and drop the temp table.

The URI scheme selects where the object is read from (gs or file) and
overrides STORAGE_SCHEME. The run result is printed as JSON.`,
	Example: `  stagectl ingest gs://raw-bucket/2025/payments.csv
  STORAGE_LOCAL_ROOT=. WAREHOUSE_BACKEND=postgres stagectl ingest file://raw/orders.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	loc, err := objstore.ParseURI(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Storage.Scheme = loc.Scheme
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	p, closeFn, err := openPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	res, runErr := p.Handle(ctx, core.Event{Bucket: loc.Bucket, Name: loc.Name})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("%s: %w", core.FormatUserError(runErr), runErr)
	}
	return nil
}
