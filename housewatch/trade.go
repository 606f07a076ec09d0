package housewatch

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Text is a scalar field from the upstream feed. Valid is false when the
// key was missing or null.
type Text struct {
	Value string
	Valid bool
}

// T returns a present Text.
func T(s string) Text {
	return Text{Value: s, Valid: true}
}

// Or returns the value, or def when the field is absent.
func (t Text) Or(def string) string {
	if !t.Valid {
		return def
	}
	return t.Value
}

// UnmarshalJSON accepts strings, numbers and booleans. Numbers and booleans
// keep their literal text. Objects and arrays are rejected.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = Text{}
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text{Value: s, Valid: true}
	case '{', '[':
		return fmt.Errorf("unexpected composite value %.20s", b)
	default:
		*t = Text{Value: string(b), Valid: true}
	}
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// Trade is one disclosed transaction as published by House Stock Watcher.
// Fields not listed here are ignored.
type Trade struct {
	Representative   Text `json:"representative"`
	TransactionDate  Text `json:"transaction_date"`
	DisclosureDate   Text `json:"disclosure_date"`
	Ticker           Text `json:"ticker"`
	Type             Text `json:"type"`
	Amount           Text `json:"amount"`
	AssetDescription Text `json:"asset_description"`
	Owner            Text `json:"owner"`
	District         Text `json:"district"`
	PTRLink          Text `json:"ptr_link"`
}
