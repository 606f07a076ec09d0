package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/stockwatch/housewatch"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

var insertTrade = fmt.Sprintf(
	"INSERT INTO trades (snapshot_id, seq, %s) VALUES (?, ?%s)",
	strings.Join(Columns, ", "),
	strings.Repeat(", ?", len(Columns)),
)

// WriteSnapshot stores the snapshot and its trades in one transaction.
func (j *SQLiteJournal) WriteSnapshot(ctx context.Context, s Snapshot) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, fetched_at, source, record_count)
		VALUES (?, ?, ?, ?)`,
		s.ID, s.FetchedAt.UTC(), s.Source, len(s.Trades),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertTrade)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range s.Trades {
		args := []any{s.ID, i}
		for _, v := range fields(t) {
			args = append(args, nullable(v))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert trade %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListSnapshots returns stored snapshots, newest first.
func (j *SQLiteJournal) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, fetched_at, source, record_count
		FROM snapshots
		ORDER BY fetched_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var s SnapshotInfo
		if err := rows.Scan(&s.ID, &s.FetchedAt, &s.Source, &s.RecordCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Trades loads the trades of one snapshot in feed order.
func (j *SQLiteJournal) Trades(ctx context.Context, snapshotID string) ([]housewatch.Trade, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT "+strings.Join(Columns, ", ")+" FROM trades WHERE snapshot_id = ? ORDER BY seq ASC",
		snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []housewatch.Trade
	for rows.Next() {
		cols := make([]sql.NullString, len(Columns))
		dest := make([]any, len(cols))
		for i := range cols {
			dest[i] = &cols[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		var t housewatch.Trade
		targets := []*housewatch.Text{
			&t.Representative,
			&t.TransactionDate,
			&t.DisclosureDate,
			&t.Ticker,
			&t.Type,
			&t.Amount,
			&t.AssetDescription,
			&t.Owner,
			&t.District,
			&t.PTRLink,
		}
		for i, c := range cols {
			*targets[i] = housewatch.Text{Value: c.String, Valid: c.Valid}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func nullable(t housewatch.Text) sql.NullString {
	return sql.NullString{String: t.Value, Valid: t.Valid}
}
