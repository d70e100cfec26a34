package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	writeMD      bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fact-check many texts from a file in parallel",
	Long: `Batch checks every line of a file as a separate input:
- One text per line; blank lines and lines starting with # are skipped
- Inputs run in parallel with a configurable worker count
- Each input gets its own JSON report in the output directory

Example:
  claimcheck batch claims.txt
  claimcheck batch claims.txt --concurrency 8 --output-dir ./reports --md`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./claimcheck-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&writeMD, "md", false, "also write a Markdown report per input")
	addOverrideFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	applyOverrides(cfg)

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n%s\n  claimcheck Batch Processing\n%s\n\n", rule, rule)
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return eris.Wrap(err, "create output directory")
	}

	graph, err := pipeline.New(cfg, pipeline.Options{})
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(graph, concurrency)

	fmt.Fprintf(stderr, "⚙️  Checking inputs with %d workers...\n\n", concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return eris.Wrap(err, "process file")
	}

	successCount := 0
	failureCount := 0
	for i, result := range results {
		label := preview(result.Input, 60)
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: %v\n", label, result.Error)
			continue
		}

		stem := fmt.Sprintf("%03d-%s", i+1, sanitizeFilename(result.Input))
		jsonPath := filepath.Join(outputDir, stem+".json")
		if err := writeFile(jsonPath, func(w io.Writer) error { return writeJSON(w, result.Report) }); err != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: failed to write JSON: %v\n", label, err)
			continue
		}
		if writeMD {
			mdPath := filepath.Join(outputDir, stem+".md")
			err := writeFile(mdPath, func(w io.Writer) error {
				renderMarkdown(w, result.Report)
				return nil
			})
			if err != nil {
				failureCount++
				fmt.Fprintf(stderr, "✗ %s: failed to write Markdown: %v\n", label, err)
				continue
			}
		}

		successCount++
		fmt.Fprintf(stderr, "✓ %s (%d claims, %.1f%% supported)\n",
			label, len(result.Report.VerifiedClaims), result.Report.Stats.Supported)
	}

	fmt.Fprintf(stderr, "\n%s\n  Batch Complete\n%s\n\n", rule, rule)
	fmt.Fprintf(stderr, "  Total:     %d inputs\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(stderr, "  Output:    %s\n\n", outputDir)

	return nil
}

// preview shortens s to at most n runes for one-line display
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
