package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the contact ledger",
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print contacted-lead counts by source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("ledger"); err != nil {
			return err
		}
		led, err := ledger.Open(ctx, cfg.Ledger)
		if err != nil {
			return err
		}
		defer led.Close()

		if err := led.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate ledger")
		}

		stats, err := led.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "ledger stats")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	ledgerCmd.AddCommand(ledgerStatsCmd)
	rootCmd.AddCommand(ledgerCmd)
}
