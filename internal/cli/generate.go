package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stageloader/internal/sample"
)

var generateFlags struct {
	out         string
	providers   int
	maxPayments int
	maxOrders   int
	seed        uint64
	start       string
	end         string
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write sample payments.csv and orders.csv",
	Long: `Generate synthetic payments and orders for a range of providers.

Files are written to <out>/payments.csv and <out>/orders.csv. The same seed
always produces the same files.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	defaults := sample.DefaultOptions()
	f := generateCmd.Flags()
	f.StringVarP(&generateFlags.out, "out", "o", "raw", "Output directory")
	f.IntVar(&generateFlags.providers, "providers", defaults.Providers, "Number of providers")
	f.IntVar(&generateFlags.maxPayments, "max-payments", defaults.MaxPayments, "Maximum payments per provider")
	f.IntVar(&generateFlags.maxOrders, "max-orders", defaults.MaxOrders, "Maximum orders per provider")
	f.Uint64Var(&generateFlags.seed, "seed", defaults.Seed, "Random seed")
	f.StringVar(&generateFlags.start, "start", defaults.Start.Format(time.DateOnly), "First possible date (YYYY-MM-DD)")
	f.StringVar(&generateFlags.end, "end", defaults.End.Format(time.DateOnly), "Dates fall before this day (YYYY-MM-DD)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	opts := sample.DefaultOptions()
	opts.Providers = generateFlags.providers
	opts.MaxPayments = generateFlags.maxPayments
	opts.MaxOrders = generateFlags.maxOrders
	opts.Seed = generateFlags.seed

	var err error
	if opts.Start, err = time.Parse(time.DateOnly, generateFlags.start); err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	if opts.End, err = time.Parse(time.DateOnly, generateFlags.end); err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	ds, err := sample.Generate(opts)
	if err != nil {
		return err
	}

	paymentsPath, ordersPath, err := ds.WriteFiles(generateFlags.out)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generated %d payments records and %d orders records.\n", len(ds.Payments), len(ds.Orders))
	fmt.Fprintf(out, "Saved to %s and %s\n", paymentsPath, ordersPath)
	return nil
}
