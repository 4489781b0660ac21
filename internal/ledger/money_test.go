package ledger

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAsNumber(t *testing.T) {
	f := 12.5
	var nilPtr *float64

	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"float", 3.25, 3.25},
		{"int", 7, 7},
		{"int64", int64(-4), -4},
		{"uint", uint(9), 9},
		{"pointer", &f, 12.5},
		{"nil pointer", nilPtr, 0},
		{"numeric string", " 42.10 ", 42.10},
		{"garbage string", "abc", 0},
		{"empty string", "", 0},
		{"json number", json.Number("19.99"), 19.99},
		{"decimal", decimal.RequireFromString("8.75"), 8.75},
		{"nil", nil, 0},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
		{"bool", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AsNumber(tt.in))
		})
	}
}

func TestRoundCurrency(t *testing.T) {
	assert.Equal(t, 10.13, RoundCurrency(10.125))
	assert.Equal(t, 1.01, RoundCurrency(1.005))
	assert.Equal(t, 0.3, RoundCurrency(0.1+0.2))
	assert.Equal(t, -2.35, RoundCurrency(-2.345))
	assert.Equal(t, 0.0, RoundCurrency(math.NaN()))
	assert.Equal(t, 100.0, RoundCurrency(100))
}

func TestCentsConversion(t *testing.T) {
	assert.Equal(t, int64(1999), ToCents(19.99))
	assert.Equal(t, int64(30), ToCents(0.1+0.2))
	assert.Equal(t, int64(-150), ToCents(-1.5))
	assert.Equal(t, 19.99, FromCents(1999))
	assert.Equal(t, 0.0, FromCents(0))

	for _, v := range []float64{0.01, 0.07, 123.45, 99999.99} {
		assert.Equal(t, v, FromCents(ToCents(v)))
	}
}

func TestSumCentsAvoidsDrift(t *testing.T) {
	values := make([]float64, 0, 10)
	for i := 0; i < 10; i++ {
		values = append(values, 0.1)
	}
	assert.Equal(t, int64(100), SumCents(values...))
	assert.Equal(t, 1.0, FromCents(SumCents(values...)))
}

func TestMultiplyAndPercent(t *testing.T) {
	assert.Equal(t, 150.0, Multiply(3, 50))
	assert.Equal(t, 41.0, Multiply(0.82, 50))
	assert.Equal(t, 37.04, Multiply(1.2345, 30))
	assert.Equal(t, 15.0, Percent(100, 15))
	assert.Equal(t, 1.23, Percent(8.2, 15))
	assert.Equal(t, 0.0, Percent(400, 0))
}
