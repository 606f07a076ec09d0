package query

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/stockwatch/housewatch"
)

const (
	// NotAvailable replaces any field missing from the source record.
	NotAvailable = "N/A"

	lossMarker       = "Total loss of"
	incompleteSuffix = " (incomplete data)"
	saleLabel        = "SALE"
)

// Category is the normalized transaction type.
type Category int

const (
	CategoryOther Category = iota
	CategoryPurchase
	CategorySale
)

func (c Category) String() string {
	switch c {
	case CategoryPurchase:
		return "PURCHASE"
	case CategorySale:
		return "SALE"
	default:
		return "OTHER"
	}
}

// Marker is the colour tag shown next to the type.
func (c Category) Marker() string {
	switch c {
	case CategoryPurchase:
		return "🟢"
	case CategorySale:
		return "🔴"
	default:
		return "⚪"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// FormattedTrade is the display form of one trade record.
type FormattedTrade struct {
	Representative string      `json:"representative"`
	Date           string      `json:"date"`
	Ticker         string      `json:"ticker"`
	Type           string      `json:"type"`
	Category       Category    `json:"category"`
	Amount         string      `json:"amount"`
	AmountRange    AmountRange `json:"amount_range"`
	Description    string      `json:"description"`
	TotalLoss      string      `json:"total_loss,omitempty"`
}

// Format builds the display form of t. It never fails.
func Format(t housewatch.Trade) FormattedTrade {
	desc, loss := SplitDescription(t.AssetDescription.Or(NotAvailable))
	label, cat := ClassifyType(t.Type.Or(NotAvailable))
	amount := t.Amount.Or(NotAvailable)

	return FormattedTrade{
		Representative: t.Representative.Or(NotAvailable),
		Date:           t.TransactionDate.Or(NotAvailable),
		Ticker:         t.Ticker.Or(NotAvailable),
		Type:           label,
		Category:       cat,
		Amount:         FormatAmount(amount),
		AmountRange:    ParseAmountRange(amount),
		Description:    desc,
		TotalLoss:      loss,
	}
}

// SplitDescription separates a trailing "Total loss of <value>" note from an
// asset description. Without the marker the description is returned as is.
func SplitDescription(desc string) (description, totalLoss string) {
	i := strings.Index(desc, lossMarker)
	if i < 0 {
		return desc, ""
	}
	j := strings.LastIndex(desc, lossMarker)
	return strings.TrimSpace(desc[:i]), strings.TrimSpace(desc[j+len(lossMarker):])
}

// FormatAmount flags an open-ended range such as "$50,001 -".
func FormatAmount(amount string) string {
	if strings.HasSuffix(amount, "-") {
		return amount + incompleteSuffix
	}
	return amount
}

// ClassifyType returns the display label and category of a raw type.
func ClassifyType(raw string) (string, Category) {
	switch {
	case strings.EqualFold(raw, "purchase"):
		return raw, CategoryPurchase
	case strings.EqualFold(raw, "sale_full"):
		return saleLabel, CategorySale
	default:
		return raw, CategoryOther
	}
}

// String renders the multi-line chat summary.
func (f FormattedTrade) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 Representative: %s\n", f.Representative)
	fmt.Fprintf(&b, "📅 Date: %s\n", f.Date)
	fmt.Fprintf(&b, "🏷️ Ticker: %s\n", f.Ticker)
	fmt.Fprintf(&b, "📊 Type: %s %s\n", f.Category.Marker(), f.Type)
	fmt.Fprintf(&b, "💰 Amount: %s\n", f.Amount)
	fmt.Fprintf(&b, "📝 Description: %s", f.Description)
	if f.TotalLoss != "" {
		fmt.Fprintf(&b, "\n💸 Total Loss: %s", f.TotalLoss)
	}
	return b.String()
}
