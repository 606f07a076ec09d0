package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `[
	{"representative": "Hon. Nancy Pelosi", "transaction_date": "2024-01-10", "ticker": "NVDA", "type": "purchase", "amount": "$1,001 - $15,000", "asset_description": "Options"},
	{"representative": "Hon. Nancy Pelosi", "transaction_date": "2024-02-01", "ticker": "AAPL", "type": "sale_full", "amount": "$50,001 -", "asset_description": "Common stock. Total loss of $500"},
	{"representative": "Hon. Dan Crenshaw", "transaction_date": "2024-03-05", "ticker": "XOM", "type": "purchase", "amount": "$1,001 - $15,000", "asset_description": "Exxon"}
]`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feed))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the root command with flag variables reset, since cobra
// keeps parsed values between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, envFile = "", filepath.Join(t.TempDir(), "missing.env")
	tradesLimit, tradesJSON, tradesPolicy, tradesURL = 0, false, "", ""
	exportFormat, exportOut, exportURL = "sqlite", "./stockwatch.sqlite", ""
	configInitOutput, configValidatePath = "stockwatch.yaml", ""

	for _, key := range []string{"DATA_URL", "LOG_LEVEL", "CACHE_TTL", "MALFORMED_POLICY", "PORT", "WEBHOOK_URL", "PUBLIC_URL"} {
		t.Setenv(key, "")
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stockwatch version "+version)
}

func TestTradesText(t *testing.T) {
	srv := feedServer(t)

	out, err := execute(t, "trades", "pelosi", "--url", srv.URL, "--limit", "1", "--env-file", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)

	assert.Contains(t, out, "Latest 1 of 2 trades for pelosi:")
	assert.Contains(t, out, "👤 Representative: Hon. Nancy Pelosi")
	assert.Contains(t, out, "🏷️ Ticker: AAPL")
	assert.Contains(t, out, "💸 Total Loss: $500")
	assert.NotContains(t, out, "NVDA")
}

func TestTradesJSON(t *testing.T) {
	srv := feedServer(t)

	out, err := execute(t, "trades", "--url", srv.URL, "--limit", "5", "--json")
	require.NoError(t, err)

	var got struct {
		Matched int `json:"matched"`
		Trades  []struct {
			Ticker   string `json:"ticker"`
			Category string `json:"category"`
		} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.Matched)
	require.Len(t, got.Trades, 3)
	assert.Equal(t, []string{"XOM", "AAPL", "NVDA"}, []string{got.Trades[0].Ticker, got.Trades[1].Ticker, got.Trades[2].Ticker})
	assert.Equal(t, "PURCHASE", got.Trades[0].Category)
}

func TestTradesNoMatch(t *testing.T) {
	srv := feedServer(t)

	out, err := execute(t, "trades", "tuberville", "--url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "No trades found for tuberville.\n", out)
}

func TestTradesFeedDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := execute(t, "trades", "pelosi", "--url", srv.URL)
	assert.Error(t, err)
}

func TestTradesBadLimit(t *testing.T) {
	srv := feedServer(t)

	_, err := execute(t, "trades", "pelosi", "--url", srv.URL, "--limit", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit")
}

func TestExportSQLite(t *testing.T) {
	srv := feedServer(t)
	path := filepath.Join(t.TempDir(), "out.sqlite")

	out, err := execute(t, "export", "--url", srv.URL, "--format", "sqlite", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 records written to "+path)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestExportCSV(t *testing.T) {
	srv := feedServer(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	_, err := execute(t, "export", "--url", srv.URL, "--format", "csv", "--out", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "snapshot_id,fetched_at,seq,representative"))
}

func TestExportUnknownFormat(t *testing.T) {
	srv := feedServer(t)

	_, err := execute(t, "export", "--url", srv.URL, "--format", "parquet", "--out", filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown export format")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockwatch.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Pelosi, Crenshaw, Tuberville")
	assert.Contains(t, out, "Updates: polling, port 10000")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bot:\n  trades_per_request: 0\n"), 0644))

	_, err := execute(t, "config", "validate", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestServeRequiresToken(t *testing.T) {
	t.Setenv("TOKEN", "")

	_, err := execute(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN")
}
