package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/stockwatch/config"
	"github.com/rustyeddy/stockwatch/housewatch"
	"github.com/rustyeddy/stockwatch/internal/logging"
	"github.com/rustyeddy/stockwatch/metrics"
	"github.com/rustyeddy/stockwatch/query"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "stockwatch",
	Short: "Telegram bot for US Representatives' stock trades",
	Long: `Stockwatch serves the stock transactions disclosed by members of the US
House of Representatives to Telegram chats.

It provides tools for:
  - Running the bot with a health and metrics server
  - Querying the latest trades of a representative from the terminal
  - Exporting snapshots of the feed to CSV or SQLite
  - Generating and validating configuration files`,
	SilenceUsage: true,
}

var (
	cfgFile string
	envFile string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read for TOKEN and other settings")
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// dataStack is the feed client, its cache and the query engine on top.
type dataStack struct {
	client *housewatch.Client
	cache  *query.Cache
	engine *query.Engine
}

func newDataStack(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*dataStack, error) {
	timeout, err := cfg.Data.TimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("data.timeout: %w", err)
	}
	ttl, err := cfg.Data.TTL()
	if err != nil {
		return nil, fmt.Errorf("data.cache_ttl: %w", err)
	}
	policy, err := query.ParsePolicy(cfg.Query.MalformedPolicy)
	if err != nil {
		return nil, err
	}

	client := housewatch.NewClient(
		housewatch.WithURL(cfg.Data.URL),
		housewatch.WithTimeout(timeout),
		housewatch.WithLogger(log.Named("housewatch")),
	)
	cache := query.NewCache(client,
		query.WithTTL(ttl),
		query.WithCacheLogger(log.Named("cache")),
		query.WithCacheMetrics(m),
	)
	engine := query.NewEngine(cache,
		query.WithPolicy(policy),
		query.WithLogger(log.Named("query")),
		query.WithMetrics(m),
	)
	return &dataStack{client: client, cache: cache, engine: engine}, nil
}

func since(t time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(t))
}
