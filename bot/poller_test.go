package bot

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pollStep struct {
	updates []tgbotapi.Update
	err     error
}

type scriptedSource struct {
	mu      sync.Mutex
	steps   []pollStep
	offsets []int
	cancel  context.CancelFunc
}

func (s *scriptedSource) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offsets = append(s.offsets, cfg.Offset)
	if len(s.steps) == 0 {
		s.cancel()
		return nil, nil
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.updates, step.err
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func TestPollerDeliversUpdatesAndAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conflict := &tgbotapi.Error{Code: http.StatusConflict, Message: "Conflict: terminated by other getUpdates request"}
	src := &scriptedSource{cancel: cancel, steps: []pollStep{
		{updates: []tgbotapi.Update{{UpdateID: 10}, {UpdateID: 11}}},
		{err: conflict},
		{err: errors.New("connection reset")},
		{updates: []tgbotapi.Update{{UpdateID: 12}}},
	}}

	var mu sync.Mutex
	var seen []int
	p := NewPoller(src, func(ctx context.Context, u tgbotapi.Update) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, u.UpdateID)
	}, WithBackOff(fastBackOff), WithPollTimeout(1))

	require.NoError(t, p.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{10, 11, 12}, seen)
	assert.Equal(t, []int{0, 12, 12, 12, 13}, src.offsets)
}

func TestPollerStopsOnUnauthorized(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{cancel: cancel, steps: []pollStep{
		{err: &tgbotapi.Error{Code: http.StatusUnauthorized, Message: "Unauthorized"}},
	}}
	p := NewPoller(src, func(context.Context, tgbotapi.Update) {}, WithBackOff(fastBackOff))

	err := p.Run(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestPollerReturnsNilOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedSource{cancel: cancel}
	p := NewPoller(src, func(context.Context, tgbotapi.Update) {})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsConflict(&tgbotapi.Error{Code: 409}))
	assert.False(t, IsConflict(errors.New("409")))
	assert.True(t, IsUnauthorized(&tgbotapi.Error{Code: 401}))

	secs, ok := retryAfter(&tgbotapi.Error{Code: 429, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7}})
	assert.True(t, ok)
	assert.Equal(t, 7, secs)
	_, ok = retryAfter(&tgbotapi.Error{Code: 500})
	assert.False(t, ok)
}

func TestWebhookPath(t *testing.T) {
	p := WebhookPath("123:abc")
	assert.True(t, strings.HasPrefix(p, "/webhook/"))
	assert.Len(t, strings.TrimPrefix(p, "/webhook/"), 32)
	assert.NotContains(t, p, "123:abc")
	assert.Equal(t, p, WebhookPath("123:abc"))
	assert.NotEqual(t, p, WebhookPath("456:def"))
}

func TestWebhookHandler(t *testing.T) {
	got := make(chan tgbotapi.Update, 1)
	h := WebhookHandler(context.Background(), func(ctx context.Context, u tgbotapi.Update) {
		got <- u
	}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/x", bytes.NewBufferString(`{"update_id": 5, "callback_query": {"id": "q", "data": "latest"}}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case u := <-got:
		assert.Equal(t, 5, u.UpdateID)
		require.NotNil(t, u.CallbackQuery)
		assert.Equal(t, "latest", u.CallbackQuery.Data)
	case <-time.After(time.Second):
		t.Fatal("update not handled")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/x", bytes.NewBufferString(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterAndDeleteWebhook(t *testing.T) {
	api := &fakeSender{}
	require.NoError(t, RegisterWebhook(api, "https://bot.example.com/", "/webhook/abc"))
	require.NoError(t, DeleteWebhook(api))

	sent := api.Sent()
	require.Len(t, sent, 2)
	wh, ok := sent[0].(tgbotapi.WebhookConfig)
	require.True(t, ok)
	assert.Equal(t, "https://bot.example.com/webhook/abc", wh.URL.String())
	assert.IsType(t, tgbotapi.DeleteWebhookConfig{}, sent[1])
}
