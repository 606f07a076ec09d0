package cmd

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/stockwatch/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for the bot.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

The bot token is never stored in a config file. Set TOKEN in the
environment or in the env file.

Examples:
  stockwatch config init -o stockwatch.yaml
  stockwatch config validate -f stockwatch.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  stockwatch config init -o stockwatch.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  stockwatch config validate -f stockwatch.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "stockwatch.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nSet TOKEN in the environment and run with:")
	fmt.Fprintf(out, "  stockwatch serve --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	mode := "polling"
	if cfg.Bot.WebhookURL != "" {
		mode = "webhook " + cfg.Bot.WebhookURL
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Representatives: %s (%d trades per request)\n", strings.Join(cfg.Bot.Representatives, ", "), cfg.Bot.TradesPerRequest)
	fmt.Fprintf(out, "  Feed: %s (cache %s)\n", cfg.Data.URL, cfg.Data.CacheTTL)
	fmt.Fprintf(out, "  Malformed dates: %s\n", cfg.Query.MalformedPolicy)
	fmt.Fprintf(out, "  Updates: %s, port %s\n", mode, cfg.Server.Port)
	return nil
}
