package journal

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVJournal writes one row per trade, prefixed with the snapshot id,
// fetch time and position in the feed. Absent fields are empty cells.
type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	header := append([]string{"snapshot_id", "fetched_at", "seq"}, Columns...)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}

	return &CSVJournal{w: w, f: f}, nil
}

func (j *CSVJournal) WriteSnapshot(ctx context.Context, s Snapshot) error {
	fetched := s.FetchedAt.UTC().Format(time.RFC3339)
	for i, t := range s.Trades {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{s.ID, fetched, strconv.Itoa(i)}
		for _, v := range fields(t) {
			row = append(row, v.Value)
		}
		if err := j.w.Write(row); err != nil {
			return err
		}
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}
