package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Display the effective bloggera configuration after .bloggera.yaml,
.env and BLOGGERA_* environment variables are applied.

Examples:
  bloggera config              # Show all config
  bloggera config --path       # Show config file path
  bloggera config -o yaml      # Output as YAML`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("path", false, "show config file path")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if showPath, _ := cmd.Flags().GetBool("path"); showPath {
		if cfgFile == "" {
			printer.Print(".bloggera.yaml (current directory or $HOME/.config/bloggera)")
		} else {
			printer.Print("%s", cfgFile)
		}
		printer.Print("session: %s", cfg.Session.Path)
		return nil
	}

	if ok, err := printer.Encode(cfg); ok {
		return err
	}

	printer.Header("Current Configuration")

	table := printer.NewTable("KEY", "VALUE")
	table.AddRow("api.base_url", cfg.API.BaseURL)
	table.AddRow("api.timeout", cfg.API.Timeout.String())
	table.AddRow("api.rate_limit", strconv.FormatFloat(cfg.API.RateLimit, 'f', -1, 64))
	table.AddRow("breaker.failure_threshold", strconv.Itoa(cfg.Breaker.FailureThreshold))
	table.AddRow("breaker.open_timeout", cfg.Breaker.OpenTimeout.String())
	table.AddRow("session.path", cfg.Session.Path)
	table.AddRow("feed.sample", strconv.Itoa(cfg.Feed.Sample))
	table.AddRow("feed.max_excluded", strconv.Itoa(cfg.Feed.MaxExcluded))
	table.AddRow("compose.max_image_bytes", strconv.FormatInt(cfg.Compose.MaxImageBytes, 10))
	table.AddRow("cache.categories_ttl", cfg.Cache.CategoriesTTL.String())
	table.AddRow("serve.addr", cfg.Serve.Addr)
	table.AddRow("logging.level", cfg.Logging.Level)
	table.AddRow("logging.format", cfg.Logging.Format)
	table.AddRow("output.format", cfg.Output.Format)
	table.AddRow("output.colors", fmt.Sprintf("%v", cfg.Output.Colors))
	table.AddRow("tracing.enabled", fmt.Sprintf("%v", cfg.Tracing.Enabled))
	table.AddRow("tracing.endpoint", cfg.Tracing.Endpoint)
	return table.Render()
}
