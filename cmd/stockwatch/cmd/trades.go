package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/stockwatch/query"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tradesCmd = &cobra.Command{
	Use:   "trades [representative]",
	Short: "Print the latest trades of a representative",
	Long: `Fetch the feed once and print the most recent trades whose representative
name contains the given text, ignoring case. With no argument the latest
trades of anyone are printed.

Examples:
  stockwatch trades pelosi
  stockwatch trades crenshaw --limit 5 --json
  stockwatch trades --limit 1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrades,
}

var (
	tradesLimit  int
	tradesJSON   bool
	tradesPolicy string
	tradesURL    string
)

func init() {
	rootCmd.AddCommand(tradesCmd)

	tradesCmd.Flags().IntVarP(&tradesLimit, "limit", "n", 0, "number of trades (default from config)")
	tradesCmd.Flags().BoolVar(&tradesJSON, "json", false, "print JSON instead of text")
	tradesCmd.Flags().StringVar(&tradesPolicy, "policy", "", "malformed date policy: abort or skip (default from config)")
	tradesCmd.Flags().StringVar(&tradesURL, "url", "", "feed URL (default from config)")
}

type tradesOutput struct {
	Representative string                 `json:"representative,omitempty"`
	Matched        int                    `json:"matched"`
	Skipped        int                    `json:"skipped"`
	Trades         []query.FormattedTrade `json:"trades"`
}

func runTrades(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if tradesURL != "" {
		cfg.Data.URL = tradesURL
	}
	if tradesPolicy != "" {
		cfg.Query.MalformedPolicy = tradesPolicy
	}
	limit := tradesLimit
	if limit == 0 {
		limit = cfg.Bot.TradesPerRequest
	}

	stack, err := newDataStack(cfg, log, nil)
	if err != nil {
		return err
	}

	var rep string
	if len(args) == 1 {
		rep = args[0]
	}

	start := time.Now()
	res, err := stack.engine.Query(cmd.Context(), query.Request{Representative: rep, Limit: limit})
	if err != nil {
		if errors.Is(err, query.ErrInvalidLimit) {
			return fmt.Errorf("--limit must be at least 1")
		}
		return err
	}
	log.Debug("trades query", zap.Int("returned", len(res.Trades)), since(start))

	if tradesJSON {
		return writeTradesJSON(cmd.OutOrStdout(), rep, res)
	}
	return writeTradesText(cmd.OutOrStdout(), rep, res)
}

func writeTradesJSON(w io.Writer, rep string, res query.Result) error {
	out := tradesOutput{
		Representative: rep,
		Matched:        res.Matched,
		Skipped:        res.Skipped,
		Trades:         res.Trades,
	}
	if out.Trades == nil {
		out.Trades = []query.FormattedTrade{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeTradesText(w io.Writer, rep string, res query.Result) error {
	who := rep
	if who == "" {
		who = "anyone"
	}
	if len(res.Trades) == 0 {
		_, err := fmt.Fprintf(w, "No trades found for %s.\n", who)
		return err
	}

	if _, err := fmt.Fprintf(w, "Latest %d of %d trades for %s:\n\n", len(res.Trades), res.Matched, who); err != nil {
		return err
	}
	for _, t := range res.Trades {
		if _, err := fmt.Fprintf(w, "%s\n\n", t); err != nil {
			return err
		}
	}
	if res.Skipped > 0 {
		_, err := fmt.Fprintf(w, "(%d records with unreadable dates skipped)\n", res.Skipped)
		return err
	}
	return nil
}
