package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
)

var (
	runInput string
	runJSON  bool
)

// candidateInput is one row of the run command's input file.
type candidateInput struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the funnel over a file of candidate profile URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(runInput)
		if err != nil {
			return eris.Wrap(err, "read input file")
		}
		var rows []candidateInput
		if err := json.Unmarshal(data, &rows); err != nil {
			return eris.Wrap(err, "parse input file")
		}

		refs := make([]model.CandidateRef, 0, len(rows))
		for _, row := range rows {
			source := row.Source
			if source == "" {
				source = "import"
			}
			refs = append(refs, model.NewCandidateRef(row.URL, row.Name, row.Snippet, source))
		}
		zap.L().Info("loaded candidates", zap.String("file", runInput), zap.Int("count", len(refs)))

		result, err := env.Pipeline.Run(ctx, refs)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		return emitRunResult(result)
	},
}

// emitRunResult prints the run outcome and writes the mirror if enabled.
func emitRunResult(result *pipeline.RunResult) error {
	if cfg.Mirror.Enabled && len(result.Committed) > 0 {
		if err := pipeline.WriteMirror(cfg.Mirror.Path, result.Committed); err != nil {
			zap.L().Warn("mirror write failed", zap.Error(err))
		} else {
			zap.L().Info("mirror written",
				zap.String("path", cfg.Mirror.Path),
				zap.Int("leads", len(result.Committed)))
		}
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Print(pipeline.RenderReport(result))
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "JSON file of candidates: [{url, name, snippet, source}] (required)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full run result as JSON")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
