package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// UpdateSource long-polls Telegram. *tgbotapi.BotAPI implements it.
type UpdateSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// HandleFunc processes one update.
type HandleFunc func(ctx context.Context, u tgbotapi.Update)

// Poller pulls updates and hands each one to a goroutine. Failed polls,
// including 409 conflicts with another instance, are retried with
// exponential backoff until the context ends.
type Poller struct {
	src        UpdateSource
	handle     HandleFunc
	timeout    int
	newBackOff func() backoff.BackOff
	log        *zap.Logger
}

type PollerOption func(*Poller)

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) PollerOption {
	return func(p *Poller) {
		p.timeout = seconds
	}
}

// WithBackOff replaces the retry policy.
func WithBackOff(f func() backoff.BackOff) PollerOption {
	return func(p *Poller) {
		if f != nil {
			p.newBackOff = f
		}
	}
}

func WithPollerLogger(l *zap.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

func NewPoller(src UpdateSource, handle HandleFunc, opts ...PollerOption) *Poller {
	p := &Poller{
		src:     src,
		handle:  handle,
		timeout: 30,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = time.Minute
			return b
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is done and waits for in-flight handlers before
// returning. It only fails when Telegram rejects the token.
func (p *Poller) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout

	p.log.Info("polling for updates", zap.Int("timeout", p.timeout))
	for ctx.Err() == nil {
		updates, err := backoff.Retry(ctx, func() ([]tgbotapi.Update, error) {
			return p.poll(cfg)
		},
			backoff.WithBackOff(p.newBackOff()),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(p.notify),
		)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("poll updates: %w", err)
		}

		for _, u := range updates {
			if u.UpdateID >= cfg.Offset {
				cfg.Offset = u.UpdateID + 1
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				p.handle(ctx, u)
			}(u)
		}
	}

	p.log.Info("polling stopped")
	return nil
}

func (p *Poller) poll(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	updates, err := p.src.GetUpdates(cfg)
	if err == nil {
		return updates, nil
	}
	if IsUnauthorized(err) {
		return nil, backoff.Permanent(err)
	}
	if secs, ok := retryAfter(err); ok {
		return nil, backoff.RetryAfter(secs)
	}
	return nil, err
}

func (p *Poller) notify(err error, next time.Duration) {
	if IsConflict(err) {
		p.log.Warn("another instance is receiving updates, backing off",
			zap.Error(err), zap.Duration("next", next))
		return
	}
	p.log.Warn("poll failed, retrying", zap.Error(err), zap.Duration("next", next))
}
