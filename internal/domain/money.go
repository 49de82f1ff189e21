package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ARS is not among the units x/text/currency exports as variables.
var ARS = currency.MustParseISO("ARS")

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

func NewMoney(amount decimal.Decimal, unit currency.Unit) Money {
	return Money{Amount: amount, Currency: unit}
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency.String(), m.Amount.StringFixed(2))
}

// WithinTolerance reports whether |a-b| <= tolerance.
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

func ParseMoney(amount string, unit currency.Unit) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("decimal.NewFromString[%s]: %w", amount, err)
	}
	return NewMoney(d, unit), nil
}
