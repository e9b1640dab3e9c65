// Package money formats and compares unit prices. Amounts are integers in
// the currency's minor unit; for KRW (no fraction digits) that is the won
// amount itself.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes (ISO-4217)
const (
	KRW = "KRW" // South Korean Won (no decimal places)
	USD = "USD"
)

// Money wraps go-money for safe arithmetic and display.
type Money struct {
	m *money.Money
}

// New creates a value from minor units.
func New(amount int64, currencyCode string) *Money {
	return &Money{m: money.New(amount, currencyCode)}
}

// Won creates a KRW value.
func Won(amount int64) *Money {
	return New(amount, KRW)
}

// NewFromString parses amounts as printed in price tables: "84,000",
// "84,000원" or "₩84,000".
func NewFromString(amount string, currencyCode string) (*Money, error) {
	s := strings.TrimSpace(amount)
	for _, sym := range []string{"₩", "원", "$", ","} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		return nil, fmt.Errorf("unknown currency %q", currencyCode)
	}
	minor := d.Mul(decimal.New(1, int32(currency.Fraction))).Round(0).IntPart()
	return New(minor, currencyCode), nil
}

// Amount returns the amount in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// Subtract returns m - other. Currencies must match.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return nil, fmt.Errorf("subtract: nil amount")
	}
	result, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Display returns a formatted string, e.g. "₩84,000".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// ToDecimal converts to major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	d := decimal.NewFromInt(m.m.Amount())
	return d.Shift(-int32(m.m.Currency().Fraction))
}

// PercentChange returns (m - from) / from * 100. ok is false when from is
// zero or the currencies differ.
func (m *Money) PercentChange(from *Money) (decimal.Decimal, bool) {
	if from == nil || from.Amount() == 0 || m.Currency() != from.Currency() {
		return decimal.Zero, false
	}
	diff := decimal.NewFromInt(m.Amount() - from.Amount())
	return diff.Div(decimal.NewFromInt(from.Amount())).Mul(decimal.NewFromInt(100)), true
}

func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]any{
		"amount":   m.Amount(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Currency == "" {
		v.Currency = KRW
	}
	m.m = money.New(v.Amount, v.Currency)
	return nil
}
