// Package bot is the Telegram front end: it turns button presses and
// commands into trade queries and renders the replies.
package bot

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the handler needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Connect logs in with token, retrying transient failures. A rejected token
// fails immediately.
func Connect(ctx context.Context, token string, log *zap.Logger) (*tgbotapi.BotAPI, error) {
	op := func() (*tgbotapi.BotAPI, error) {
		api, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			if IsUnauthorized(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return api, nil
	}

	api, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(6),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("telegram login failed, retrying", zap.Error(err), zap.Duration("next", next))
		}),
	)
	if err != nil {
		return nil, err
	}
	log.Info("logged in to telegram", zap.String("username", api.Self.UserName))
	return api, nil
}

// IsConflict reports a 409 from Telegram, which means another process is
// polling with the same token or a webhook is still registered.
func IsConflict(err error) bool {
	return apiCode(err) == http.StatusConflict
}

// IsUnauthorized reports a rejected bot token.
func IsUnauthorized(err error) bool {
	return apiCode(err) == http.StatusUnauthorized
}

func apiCode(err error) int {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// retryAfter returns the server-requested pause for a 429, if any.
func retryAfter(err error) (int, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	return 0, false
}
