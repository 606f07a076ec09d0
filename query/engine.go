// Package query filters, orders and formats House trade disclosures on top
// of a cached copy of the feed.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rustyeddy/stockwatch/housewatch"
	"github.com/rustyeddy/stockwatch/metrics"
	"go.uber.org/zap"
)

// DateLayout is the only accepted transaction date format.
const DateLayout = "2006-01-02"

// MalformedPolicy decides what a query does with a record whose date cannot
// be parsed.
type MalformedPolicy int

const (
	// PolicyAbort fails the whole query with a *MalformedRecordError.
	PolicyAbort MalformedPolicy = iota
	// PolicySkip drops the record and counts it in Result.Skipped.
	PolicySkip
)

func (p MalformedPolicy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "abort"
}

// ParsePolicy maps "abort" or "skip" to a policy.
func ParsePolicy(s string) (MalformedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return PolicyAbort, nil
	case "skip":
		return PolicySkip, nil
	default:
		return PolicyAbort, fmt.Errorf("unknown malformed-record policy %q", s)
	}
}

// DatasetProvider is satisfied by *Cache.
type DatasetProvider interface {
	Dataset(ctx context.Context) ([]housewatch.Trade, error)
}

// Request selects trades. An empty Representative matches every record.
type Request struct {
	Representative string
	Limit          int
}

// Result is the outcome of a successful query. An empty Trades slice means
// the feed was read but nothing matched.
type Result struct {
	Trades  []FormattedTrade
	Matched int
	Skipped int
}

type Engine struct {
	data    DatasetProvider
	policy  MalformedPolicy
	log     *zap.Logger
	metrics *metrics.Metrics
}

type EngineOption func(*Engine)

func WithPolicy(p MalformedPolicy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(data DatasetProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		data:   data,
		policy: PolicyAbort,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the configured malformed-record policy.
func (e *Engine) Policy() MalformedPolicy {
	return e.policy
}

// Query returns at most req.Limit trades, most recent first.
func (e *Engine) Query(ctx context.Context, req Request) (Result, error) {
	log := e.log.With(zap.String("representative", req.Representative), zap.Int("limit", req.Limit))

	if req.Limit < 1 {
		e.metrics.ObserveQuery("invalid")
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidLimit, req.Limit)
	}

	ds, err := e.data.Dataset(ctx)
	if err != nil {
		e.metrics.ObserveQuery("no_data")
		log.Warn("query has no data", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrNoData, err)
	}

	matched := Filter(ds, req.Representative)
	ordered, skipped, err := Order(matched, e.policy)
	if err != nil {
		e.metrics.ObserveQuery("malformed")
		log.Warn("query aborted on malformed record", zap.Error(err))
		return Result{}, err
	}
	if skipped > 0 {
		log.Info("skipped malformed records", zap.Int("skipped", skipped))
	}

	n := min(req.Limit, len(ordered))
	out := make([]FormattedTrade, 0, n)
	for _, t := range ordered[:n] {
		out = append(out, Format(t))
	}

	if len(out) == 0 {
		e.metrics.ObserveQuery("no_match")
	} else {
		e.metrics.ObserveQuery("ok")
	}
	log.Debug("query done", zap.Int("matched", len(ordered)), zap.Int("returned", len(out)))

	return Result{Trades: out, Matched: len(ordered), Skipped: skipped}, nil
}

// Filter keeps records whose representative contains token, ignoring case.
// A blank token keeps everything. The input is never modified.
func Filter(ds []housewatch.Trade, token string) []housewatch.Trade {
	token = strings.ToLower(strings.TrimSpace(token))
	out := make([]housewatch.Trade, 0, len(ds))
	for _, t := range ds {
		if token != "" {
			if !t.Representative.Valid || !strings.Contains(strings.ToLower(t.Representative.Value), token) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// ParseDate reads a transaction date strictly as YYYY-MM-DD.
func ParseDate(t housewatch.Text) (time.Time, error) {
	if !t.Valid {
		return time.Time{}, ErrMissingDate
	}
	return time.Parse(DateLayout, t.Value)
}

type dated struct {
	trade housewatch.Trade
	date  time.Time
}

// Order sorts trades by transaction date, newest first. Records with equal
// dates keep their feed order.
func Order(trades []housewatch.Trade, policy MalformedPolicy) ([]housewatch.Trade, int, error) {
	items := make([]dated, 0, len(trades))
	skipped := 0
	for i, t := range trades {
		d, err := ParseDate(t.TransactionDate)
		if err != nil {
			if policy == PolicySkip {
				skipped++
				continue
			}
			return nil, 0, &MalformedRecordError{
				Index:          i,
				Representative: t.Representative.Or(NotAvailable),
				Date:           t.TransactionDate.Or(""),
				Err:            err,
			}
		}
		items = append(items, dated{trade: t, date: d})
	}

	slices.SortStableFunc(items, func(a, b dated) int {
		return b.date.Compare(a.date)
	})

	out := make([]housewatch.Trade, len(items))
	for i, it := range items {
		out[i] = it.trade
	}
	return out, skipped, nil
}

// IsNoData reports whether err means the feed could not be read.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}
