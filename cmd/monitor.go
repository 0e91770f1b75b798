package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	monitorQuery    string
	monitorDiscover bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Discover post engagers via search and run the funnel over them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "monitor")
		if err != nil {
			return err
		}
		defer env.Close()

		refs, err := env.Pipeline.Monitor(ctx, monitorQuery)
		if err != nil {
			return eris.Wrap(err, "discovery")
		}
		if len(refs) == 0 {
			zap.L().Info("no candidates discovered", zap.String("query", monitorQuery))
			return nil
		}

		if monitorDiscover {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(refs)
		}

		result, err := env.Pipeline.Run(ctx, refs)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}
		return emitRunResult(result)
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorQuery, "query", "", "search query for posts (required)")
	monitorCmd.Flags().BoolVar(&monitorDiscover, "discover-only", false, "print discovered candidates as JSON without running the funnel")
	_ = monitorCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(monitorCmd)
}
