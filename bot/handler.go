package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rustyeddy/stockwatch/metrics"
	"github.com/rustyeddy/stockwatch/query"
	"go.uber.org/zap"
)

// Querier runs trade queries. *query.Engine implements it.
type Querier interface {
	Query(ctx context.Context, req query.Request) (query.Result, error)
}

type Options struct {
	Representatives  []string
	TradesPerRequest int
	Throttle         *Throttle
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
}

// Handler answers updates. It is safe for concurrent use.
type Handler struct {
	api        Sender
	trades     Querier
	keyboard   tgbotapi.InlineKeyboardMarkup
	perRequest int
	throttle   *Throttle
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func NewHandler(api Sender, trades Querier, opts Options) *Handler {
	h := &Handler{
		api:        api,
		trades:     trades,
		keyboard:   Keyboard(opts.Representatives),
		perRequest: opts.TradesPerRequest,
		throttle:   opts.Throttle,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
	if h.perRequest < 1 {
		h.perRequest = 3
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	return h
}

// Handle dispatches one update.
func (h *Handler) Handle(ctx context.Context, u tgbotapi.Update) {
	switch {
	case u.CallbackQuery != nil:
		h.metrics.ObserveUpdate("callback")
		h.onCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.IsCommand():
		h.metrics.ObserveUpdate("command")
		h.onCommand(ctx, u.Message)
	default:
		h.metrics.ObserveUpdate("ignored")
	}
}

func (h *Handler) onCommand(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	log := h.log.With(zap.Int64("chat", chatID), zap.String("command", m.Command()))

	switch m.Command() {
	case "start", "help":
		h.send(log, chatID, welcomeText, true)
	case "latest":
		h.answer(ctx, log, chatID, selection{Limit: 1})
	case "trades":
		sel, ok := parseTradesArgs(m.CommandArguments(), h.perRequest)
		if !ok {
			h.send(log, chatID, usageText, false)
			return
		}
		h.answer(ctx, log, chatID, sel)
	default:
		h.send(log, chatID, unknownText, false)
	}
}

func (h *Handler) answer(ctx context.Context, log *zap.Logger, chatID int64, sel selection) {
	if !h.throttle.Allow(chatID) {
		h.send(log, chatID, slowDownText, false)
		return
	}
	res, err := h.trades.Query(ctx, sel.request())
	if err != nil {
		log.Warn("query failed", zap.Error(err))
	}
	h.send(log, chatID, replyText(sel, res, err), true)
}

func (h *Handler) onCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	log := h.log.With(zap.String("callback", cq.Data))

	sel, ok := parseCallback(cq.Data, h.perRequest)
	if !ok || cq.Message == nil || cq.Message.Chat == nil {
		h.request(log, tgbotapi.NewCallback(cq.ID, ""))
		log.Debug("ignoring callback")
		return
	}
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	log = log.With(zap.Int64("chat", chatID))

	if !h.throttle.Allow(chatID) {
		h.request(log, tgbotapi.NewCallback(cq.ID, slowDownText))
		return
	}
	h.request(log, tgbotapi.NewCallback(cq.ID, ""))
	h.request(log, tgbotapi.NewEditMessageText(chatID, msgID, loadingText(sel)))

	res, err := h.trades.Query(ctx, sel.request())
	if err != nil {
		log.Warn("query failed", zap.Error(err))
	}
	h.request(log, tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, replyText(sel, res, err), h.keyboard))
}

func (h *Handler) send(log *zap.Logger, chatID int64, text string, withKeyboard bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	if withKeyboard {
		msg.ReplyMarkup = h.keyboard
	}
	if _, err := h.api.Send(msg); err != nil {
		log.Error("send message", zap.Error(err))
	}
}

func (h *Handler) request(log *zap.Logger, c tgbotapi.Chattable) {
	if _, err := h.api.Request(c); err != nil {
		log.Error("telegram request", zap.Error(err))
	}
}

// parseTradesArgs reads "<name words...> [count]".
func parseTradesArgs(args string, def int) (selection, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return selection{}, false
	}
	limit := def
	if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
		if len(fields) == 1 || n < 1 {
			return selection{}, false
		}
		limit = min(n, maxTradesPerCommand)
		fields = fields[:len(fields)-1]
	}
	return selection{Representative: strings.Join(fields, " "), Limit: limit}, true
}
