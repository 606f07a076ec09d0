package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rustyeddy/stockwatch/query"
)

const (
	latestData = "latest"
	repPrefix  = "rep:"

	welcomeText  = "Welcome to the US Representative's Stock Trades bot! Which representative's trades would you like to see?"
	usageText    = "Usage: /trades <representative> [count]\nExample: /trades pelosi 5"
	unknownText  = "Sorry, I don't know that command. Try /start."
	slowDownText = "Slow down a little, please try again in a moment."

	// maxTradesPerCommand caps /trades so replies stay well under the
	// 4096 character message limit.
	maxTradesPerCommand = 10
)

// selection is what the user asked for. An empty Representative is the
// "latest trade" view.
type selection struct {
	Representative string
	Limit          int
}

func (s selection) request() query.Request {
	return query.Request{Representative: s.Representative, Limit: s.Limit}
}

// Keyboard builds the inline keyboard: one row per representative and a
// final "latest trade" row.
func Keyboard(reps []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reps)+1)
	for _, r := range reps {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(r, repPrefix+r),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📈 Latest trade", latestData),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// parseCallback maps button data to a selection.
func parseCallback(data string, perRequest int) (selection, bool) {
	switch {
	case data == latestData:
		return selection{Limit: 1}, true
	case strings.HasPrefix(data, repPrefix):
		rep := strings.TrimSpace(strings.TrimPrefix(data, repPrefix))
		if rep == "" {
			return selection{}, false
		}
		return selection{Representative: rep, Limit: perRequest}, true
	default:
		return selection{}, false
	}
}

func loadingText(sel selection) string {
	if sel.Representative == "" {
		return "🚀 Fetching the latest trade... Please wait."
	}
	return fmt.Sprintf("🚀 Fetching the latest %d %s for %s... Please wait.",
		sel.Limit, plural(sel.Limit, "trade", "trades"), sel.Representative)
}

// replyText renders a query outcome. Every failure, and an empty result,
// collapse into one apology.
func replyText(sel selection, res query.Result, err error) string {
	if err != nil || len(res.Trades) == 0 {
		if sel.Representative == "" {
			return "No recent trades found or there was an issue fetching the data. Please try again later."
		}
		return fmt.Sprintf("No recent trades found for %s or there was an issue fetching the data. Please try again later.",
			sel.Representative)
	}

	parts := make([]string, 0, len(res.Trades))
	for _, t := range res.Trades {
		parts = append(parts, t.String())
	}

	var header string
	switch {
	case sel.Representative == "":
		header = "Here is the latest reported trade:"
	case len(res.Trades) == 1:
		header = fmt.Sprintf("Here is the latest trade for %s:", sel.Representative)
	default:
		header = fmt.Sprintf("Here are the latest %d trades for %s:", len(res.Trades), sel.Representative)
	}
	return header + "\n\n" + strings.Join(parts, "\n\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
