package cli

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/config"
)

// Version is set at build time via -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimcheck",
	Short: "claimcheck - verify the factual claims in a piece of text",
	Long: `claimcheck splits text into sentences, extracts the atomic factual
claims they make, discards malformed or duplicate claims, and classifies
each remaining claim against retrieved evidence as Supported, Refuted,
Insufficient Information or Conflicting.

The result is a report with per-claim reasoning and sources, a summary,
and the share of claims in each category.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = zap.L().Sync() }()
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "claimcheck %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.claimcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and environment, then installs the global logger
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		loaded.Log.Level = "debug"
	}

	if err := config.InitLogger(loaded.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}

	cfg = loaded
	zap.L().Debug("config loaded",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Strings("search_providers", cfg.Search.Providers),
	)
	return nil
}
