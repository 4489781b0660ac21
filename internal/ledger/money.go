// Package ledger holds the pure money and invoice-ledger rules shared by the
// services, the background jobs and the maintenance CLI. Nothing in here
// touches storage.
package ledger

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// AsNumber coerces v into a finite float64. Unknown types, unparsable strings,
// NaN and infinities all collapse to 0.
func AsNumber(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case *float64:
		if n == nil {
			return 0
		}
		f = *n
	case decimal.Decimal:
		f = n.InexactFloat64()
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// RoundCurrency rounds to whole cents, half away from zero.
func RoundCurrency(v float64) float64 {
	v = AsNumber(v)
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// ToCents converts an amount to integer cents after rounding.
func ToCents(v float64) int64 {
	v = AsNumber(v)
	return decimal.NewFromFloat(v).Round(2).Shift(2).IntPart()
}

// FromCents converts integer cents back to a currency amount.
func FromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// SumCents adds amounts in integer cents and returns the cent total.
func SumCents(values ...float64) int64 {
	var total int64
	for _, v := range values {
		total += ToCents(v)
	}
	return total
}

// Multiply returns round(a*b) computed in decimal arithmetic. Used for
// hours × rate and subtotal × percentage where float products drift.
func Multiply(a, b float64) float64 {
	product := decimal.NewFromFloat(AsNumber(a)).Mul(decimal.NewFromFloat(AsNumber(b)))
	return product.Round(2).InexactFloat64()
}

// Percent returns round(amount × pct / 100).
func Percent(amount, pct float64) float64 {
	v := decimal.NewFromFloat(AsNumber(amount)).
		Mul(decimal.NewFromFloat(AsNumber(pct))).
		Div(decimal.NewFromInt(100))
	return v.Round(2).InexactFloat64()
}
