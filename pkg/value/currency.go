package value

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// iso4217 is the fixed table of currency codes the DSL and query grammars
// accept. It is not exhaustive of every ISO-4217 code ever minted; it
// covers the codes a business-graph workspace is overwhelmingly likely to
// use. Extending it is a closed, reviewable change, same spirit as the
// teacher's reserved-word table in the protobuf grammar.
var iso4217 = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
	"CAD": true, "AUD": true, "NZD": true, "CNY": true, "HKD": true,
	"SGD": true, "SEK": true, "NOK": true, "DKK": true, "PLN": true,
	"CZK": true, "HUF": true, "RON": true, "INR": true, "BRL": true,
	"MXN": true, "ZAR": true, "KRW": true, "TRY": true, "ILS": true,
	"AED": true, "SAR": true, "THB": true, "IDR": true, "MYR": true,
	"PHP": true, "VND": true, "RUB": true,
}

// decimalPlaces is the minimum fractional precision spec.md §4.1 requires
// for Currency arithmetic ("at least 4 fractional digits").
const decimalPlaces = 4

// Currency is an exact fixed-precision money value tagged with an
// ISO-4217 code. Amount arithmetic uses shopspring/decimal rather than
// float64 so repeated addition never accumulates rounding error.
type Currency struct {
	Amount decimal.Decimal
	Code   string
}

func (v Currency) Kind() Kind { return KindCurrency }

func (v Currency) String() string {
	return fmt.Sprintf("%s %s", v.Amount.StringFixed(decimalPlaces), v.Code)
}

func (v Currency) Equal(o FieldValue) bool {
	ov, ok := o.(Currency)
	if !ok {
		return false
	}
	return v.Code == ov.Code && v.Amount.Equal(ov.Amount)
}

// NewCurrency parses a decimal amount and validates the ISO-4217 code.
func NewCurrency(amountText, code string) (Currency, error) {
	if !IsValidCurrencyCode(code) {
		return Currency{}, fmt.Errorf("unknown ISO-4217 currency code %q", code)
	}
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return Currency{}, fmt.Errorf("invalid currency amount %q: %w", amountText, err)
	}
	return Currency{Amount: amount.Truncate(-decimalPlaces).Round(decimalPlaces), Code: code}, nil
}

// IsValidCurrencyCode reports whether code is a known 3-letter ISO-4217
// currency code.
func IsValidCurrencyCode(code string) bool {
	return iso4217[code]
}

// Add returns a + b. Both must share a currency code; callers (the sum/
// average/median aggregations in pkg/query) check this up front and
// surface a MixedCurrencies error rather than calling Add across codes.
func (v Currency) Add(o Currency) Currency {
	return Currency{Amount: v.Amount.Add(o.Amount), Code: v.Code}
}
