// Package journal writes snapshots of the trade feed to CSV or SQLite for
// offline analysis.
package journal

import (
	"context"
	"time"

	"github.com/rustyeddy/stockwatch/housewatch"
)

// Snapshot is one download of the feed.
type Snapshot struct {
	ID        string
	FetchedAt time.Time
	Source    string
	Trades    []housewatch.Trade
}

// SnapshotInfo describes a stored snapshot without its trades.
type SnapshotInfo struct {
	ID          string
	FetchedAt   time.Time
	Source      string
	RecordCount int
}

type Journal interface {
	WriteSnapshot(ctx context.Context, s Snapshot) error
	Close() error
}

// Columns is the field order shared by the CSV and SQLite writers.
var Columns = []string{
	"representative",
	"transaction_date",
	"disclosure_date",
	"ticker",
	"type",
	"amount",
	"asset_description",
	"owner",
	"district",
	"ptr_link",
}

func fields(t housewatch.Trade) []housewatch.Text {
	return []housewatch.Text{
		t.Representative,
		t.TransactionDate,
		t.DisclosureDate,
		t.Ticker,
		t.Type,
		t.Amount,
		t.AssetDescription,
		t.Owner,
		t.District,
		t.PTRLink,
	}
}
