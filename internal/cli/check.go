package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/config"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/util"
)

var (
	fromURL      string
	jsonOut      bool
	outJSON      string
	outMD        string
	checkTimeout time.Duration
	maxBytes     int64

	// Overrides shared by check, batch and serve
	llmProvider    string
	llmModel       string
	searchList     []string
	disambiguation string
	noCache        bool
)

// ErrNoReport is returned after the failure panel has been shown
var ErrNoReport = errors.New("no complete report")

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [text|-]",
	Short: "Fact-check a piece of text",
	Long: `Check runs the full pipeline over one input:
- Split the text into sentences and keep those worth checking
- Extract atomic claims and discard malformed or duplicate ones
- Retrieve evidence and classify every claim
- Print the report with a summary and per-category shares

The text is taken from the argument, from stdin when the argument is "-",
or from a web page with --url.

Example:
  claimcheck check "The Eiffel Tower is in Paris. It was completed in 1889."
  echo "Water boils at 100 C at sea level." | claimcheck check -
  claimcheck check --url https://example.com/article --md report.md
  claimcheck check --json "The Moon orbits the Earth."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&fromURL, "url", "", "fetch the text to check from this URL")
	checkCmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	checkCmd.Flags().StringVar(&outJSON, "out", "", "also write the JSON report to this file")
	checkCmd.Flags().StringVar(&outMD, "md", "", "also write a Markdown report to this file")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Minute, "timeout for the whole check")
	checkCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "maximum input size in bytes for stdin or --url")
	addOverrideFlags(checkCmd)
}

// addOverrideFlags registers the config overrides on cmd
func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama); overrides config")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name; overrides config")
	cmd.Flags().StringSliceVar(&searchList, "search", nil, "evidence retrievers (jina, wikipedia, duckduckgo); overrides config")
	cmd.Flags().StringVar(&disambiguation, "disambiguation", "", "disambiguation mode (passthrough, llm); overrides config")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable response caches")
}

// applyOverrides copies the set override flags onto c
func applyOverrides(c *config.Config) {
	if llmProvider != "" {
		c.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		c.LLM.Model = llmModel
	}
	if len(searchList) > 0 {
		c.Search.Providers = searchList
	}
	if disambiguation != "" {
		c.Pipeline.Disambiguation = disambiguation
	}
	if noCache {
		c.Cache.Enabled = false
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	applyOverrides(cfg)

	text, err := readInput(ctx, cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	graph, err := pipeline.New(cfg, pipeline.Options{})
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "⚙️  Checking %d characters of text...\n", len(text))

	report, err := graph.Check(ctx, text)
	if err != nil {
		zap.L().Error("check failed", zap.Error(err))
		renderFailure(stderr)
		return ErrNoReport
	}

	if err := writeOutputs(report); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return writeJSON(out, report)
	}

	if len(report.VerifiedClaims) == 0 {
		renderFailure(stderr)
		return nil
	}
	renderText(out, report)
	return nil
}

// readInput resolves the text to check from --url, stdin or the argument
func readInput(ctx context.Context, stdin io.Reader, args []string) (string, error) {
	if fromURL != "" {
		if len(args) > 0 {
			return "", eris.New("pass either text or --url, not both")
		}
		return fetchPage(ctx, fromURL)
	}

	if len(args) == 0 {
		return "", eris.New("no text given (pass it as an argument, use - for stdin, or --url)")
	}

	if args[0] == "-" {
		data, err := io.ReadAll(io.LimitReader(stdin, maxBytes+1))
		if err != nil {
			return "", eris.Wrap(err, "read stdin")
		}
		if int64(len(data)) > maxBytes {
			return "", eris.Errorf("stdin input exceeds %d bytes (raise --max-bytes)", maxBytes)
		}
		return string(data), nil
	}
	return args[0], nil
}

func fetchPage(ctx context.Context, rawURL string) (string, error) {
	timeout := time.Duration(cfg.Search.TimeoutSecs) * time.Second
	proxy := util.ProxyConfig{
		HTTPProxy:  cfg.LLM.HTTPProxy,
		HTTPSProxy: cfg.LLM.HTTPSProxy,
		NoProxy:    cfg.LLM.NoProxy,
	}
	robots := util.NewRobotsChecker(cfg.Search.UserAgent, util.NewHTTPClient(timeout, proxy))
	fetcher := pipeline.NewFetcher(timeout, cfg.Search.UserAgent, maxBytes, proxy, robots)

	fmt.Fprintf(os.Stderr, "⚙️  Fetching %s...\n", rawURL)
	page, err := fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetch %s", rawURL)
	}

	if strings.TrimSpace(page.Body) == "" {
		return "", eris.Errorf("fetch %s: empty page", rawURL)
	}
	return page.Body, nil
}

// writeOutputs writes the optional report files
func writeOutputs(report *model.FinalReport) error {
	if outJSON != "" {
		if err := writeFile(outJSON, func(w io.Writer) error { return writeJSON(w, report) }); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ JSON report: %s\n", outJSON)
	}
	if outMD != "" {
		err := writeFile(outMD, func(w io.Writer) error {
			renderMarkdown(w, report)
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report: %s\n", outMD)
	}
	return nil
}
