package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Converter turns storefront base-currency amounts into the gateway's minor units.
//
// minor = amount / BaseUnitsPerMajor * 10^Exponent, truncated toward zero.
// Truncation means the charge never exceeds the order total; the gap is
// below one minor unit and reconciliation compares against the truncated value.
type Converter struct {
	Currency          string
	Exponent          int32
	BaseUnitsPerMajor decimal.Decimal
}

// NewConverter builds a converter. rate is the number of base units per
// major gateway unit, e.g. "25000" for VND to USD, or "1" when both are the same.
func NewConverter(currency string, exponent int32, rate string) (Converter, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return Converter{}, fmt.Errorf("gateway currency is required")
	}
	if exponent < 0 {
		return Converter{}, fmt.Errorf("minor unit exponent must not be negative")
	}
	r, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return Converter{}, fmt.Errorf("invalid conversion rate %q: %w", rate, err)
	}
	if !r.IsPositive() {
		return Converter{}, fmt.Errorf("conversion rate must be positive")
	}
	return Converter{Currency: currency, Exponent: exponent, BaseUnitsPerMajor: r}, nil
}

// ToMinorUnits converts an amount, truncating toward zero
func (c Converter) ToMinorUnits(amount int64) int64 {
	scaled := decimal.NewFromInt(amount).Mul(decimal.New(1, c.Exponent))
	quotient, _ := scaled.QuoRem(c.BaseUnitsPerMajor, 0)
	return quotient.IntPart()
}
