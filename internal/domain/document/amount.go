package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value. It decodes from a JSON number or from a string
// carrying a currency marker and thousands separators ("₹1,25,000.50").
type Amount struct {
	decimal.Decimal
}

func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Decimal: d}, nil
}

var currencyMarkers = strings.NewReplacer(
	"₹", "", "$", "", "€", "", "£", "",
	"INR", "", "Rs.", "", "Rs", "", "rs.", "",
	",", "", " ", "", " ", "",
)

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = currencyMarkers.Replace(strings.TrimSpace(s))
		if s == "" {
			return fmt.Errorf("amount: empty value")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		a.Decimal = d
		return nil
	}

	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	a.Decimal = d
	return nil
}

// MarshalJSON writes a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}
