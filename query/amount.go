package query

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountRange is the dollar band of a disclosure. Open is set when the
// upper bound is missing ("$50,001 -"). Valid is false when the text could
// not be read as dollars.
type AmountRange struct {
	Low   decimal.Decimal `json:"low"`
	High  decimal.Decimal `json:"high"`
	Open  bool            `json:"open,omitempty"`
	Valid bool            `json:"valid"`
}

// ParseAmountRange reads bands like "$1,001 - $15,000". A single figure
// yields Low == High.
func ParseAmountRange(s string) AmountRange {
	s = strings.ReplaceAll(s, "–", "-")
	lowText, highText, ranged := strings.Cut(s, "-")

	low, err := parseDollars(lowText)
	if err != nil {
		return AmountRange{}
	}
	r := AmountRange{Low: low, High: low, Valid: true}
	if !ranged {
		return r
	}

	if strings.TrimSpace(highText) == "" {
		r.High = decimal.Zero
		r.Open = true
		return r
	}
	high, err := parseDollars(highText)
	if err != nil {
		return AmountRange{}
	}
	r.High = high
	return r
}

func parseDollars(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}
