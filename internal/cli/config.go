package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/claimcheck/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage claimcheck configuration",
	Long: `Manage claimcheck configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CLAIMCHECK_*)
3. Config file (~/.claimcheck/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		yamlData, err := yaml.Marshal(redacted(cfg))
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}

		fmt.Fprintln(out, rule)
		fmt.Fprintln(out, "  Current Configuration")
		fmt.Fprintln(out, rule)
		fmt.Fprintln(out)
		fmt.Fprintln(out, string(yamlData))
		fmt.Fprintln(out, rule)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Configuration hierarchy (highest to lowest priority):")
		fmt.Fprintln(out, "  1. CLI flags")
		fmt.Fprintln(out, "  2. Environment variables (CLAIMCHECK_*, OPENAI_API_KEY, ANTHROPIC_API_KEY, JINA_API_KEY)")
		fmt.Fprintln(out, "  3. Config file (~/.claimcheck/config.yaml)")
		fmt.Fprintln(out, "  4. Defaults")
		return nil
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Long:  `Create a default configuration file (default: ~/.claimcheck/config.yaml).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var configPath string
		if len(args) == 1 {
			configPath = args[0]
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return eris.Wrap(err, "find home directory")
			}
			configPath = filepath.Join(home, ".claimcheck", "config.yaml")
		}

		if _, err := os.Stat(configPath); err == nil && !configInitForce {
			return eris.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		yamlData, err := yaml.Marshal(config.Default())
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}

		err = writeFile(configPath, func(w io.Writer) error {
			if _, err := fmt.Fprint(w, configHeader); err != nil {
				return err
			}
			if _, err := w.Write(yamlData); err != nil {
				return err
			}
			_, err := fmt.Fprint(w, configFooter)
			return err
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", configPath)
		return nil
	},
}

const configHeader = `# claimcheck configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (CLAIMCHECK_*, e.g. CLAIMCHECK_LLM_PROVIDER)
#   3. This config file
#   4. Built-in defaults

`

const configFooter = `
# API keys (recommended to use environment variables instead):
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...
#   export JINA_API_KEY=jina_...
#   export OLLAMA_BASE_URL=http://localhost:11434
`

// redacted returns a copy of c with secrets masked
func redacted(c *config.Config) config.Config {
	out := *c
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "***"
	}
	if out.Search.JinaKey != "" {
		out.Search.JinaKey = "***"
	}
	return out
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
