package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monfari.org/internal/apperr"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"EUR", true},
		{"XAU", true},
		{"eur", false},
		{"EU", false},
		{"EURO", false},
		{"", false},
		{"E1R", false},
		{"ÉUR", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseCurrency(tt.in)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.in, c.String())
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrInvalidCurrencyCode), "got %v", err)
		})
	}
}

func TestCurrencyOrdering(t *testing.T) {
	assert.Equal(t, -1, EUR.Compare(GBP))
	assert.Equal(t, 1, USD.Compare(GBP))
	assert.Equal(t, 0, EUR.Compare(MustCurrency("EUR")))
	assert.Equal(t, EUR, MustCurrency("EUR"))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in    string
		minor int64
		cur   Currency
	}{
		{"12.34 USD", 1234, USD},
		{"12 USD", 1200, USD},
		{"0.05 EUR", 5, EUR},
		{"0 GBP", 0, GBP},
		{"-3.10 EUR", -310, EUR},
		{"1000000.00 EUR", 100000000, EUR},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.minor, a.Minor())
			assert.Equal(t, tt.cur, a.Currency())
		})
	}
}

func TestParseAmountRejects(t *testing.T) {
	for _, in := range []string{
		"12.3 USD",
		"12.345 USD",
		"12.34USD",
		"12.34 usd",
		"12.34 US",
		".50 USD",
		"12. USD",
		"1,000.00 USD",
		"1 000.00 USD",
		"+1.00 USD",
		" 1.00 USD",
		"99999999999999999999 USD",
		"",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAmount(in)
			assert.True(t, errors.Is(err, apperr.ErrInvalidAmountFormat), "got %v", err)
		})
	}
}

func TestFromDecimal(t *testing.T) {
	a, err := FromDecimal(decimal.RequireFromString("12.3"), EUR)
	require.NoError(t, err)
	assert.Equal(t, int64(1230), a.Minor())

	_, err = FromDecimal(decimal.RequireFromString("12.345"), EUR)
	assert.True(t, errors.Is(err, apperr.ErrNonIntegralMinorUnits), "got %v", err)

	_, err = FromDecimalString("0.001", EUR)
	assert.True(t, errors.Is(err, apperr.ErrNonIntegralMinorUnits), "got %v", err)

	_, err = FromDecimalString("abc", EUR)
	assert.True(t, errors.Is(err, apperr.ErrInvalidAmountFormat), "got %v", err)
}

func TestCanonicalFormRoundTrip(t *testing.T) {
	for _, d := range []string{"0", "0.1", "0.01", "1", "12.5", "-7.25", "1234567.89", "100", "-0.99"} {
		t.Run(d, func(t *testing.T) {
			a, err := FromDecimalString(d, GBP)
			require.NoError(t, err)
			text := a.String()

			back, err := ParseAmount(text)
			require.NoError(t, err)
			assert.Equal(t, text, back.String())
			assert.Equal(t, a, back)
			assert.True(t, a.Decimal().Equal(decimal.RequireFromString(d)))
		})
	}
}

func TestStringAndDisplay(t *testing.T) {
	tests := []struct {
		minor   int64
		wire    string
		display string
	}{
		{5, "0.05 EUR", "0.05 EUR"},
		{123456, "1234.56 EUR", "1 234.56 EUR"},
		{100000000, "1000000.00 EUR", "1 000 000.00 EUR"},
		{-123456789, "-1234567.89 EUR", "-1 234 567.89 EUR"},
		{0, "0.00 EUR", "0.00 EUR"},
	}
	for _, tt := range tests {
		a := New(tt.minor, EUR)
		assert.Equal(t, tt.wire, a.String())
		assert.Equal(t, tt.display, a.Display())
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := New(150, EUR).Add(New(-200, EUR))
	assert.Equal(t, int64(-50), a.Minor())
	assert.True(t, a.IsNegative())
	assert.True(t, a.Add(a.Neg()).IsZero())
	assert.Equal(t, -1, New(1, EUR).Compare(New(2, EUR)))
	assert.Equal(t, -1, New(999, EUR).Compare(New(1, USD)))
	assert.Panics(t, func() { New(1, EUR).Add(New(1, USD)) })
}

func TestAmountJSON(t *testing.T) {
	b, err := json.Marshal(map[Currency]Amount{EUR: New(1050, EUR)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"EUR":"10.50 EUR"}`, string(b))

	var back map[Currency]Amount
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, New(1050, EUR), back[EUR])

	err = json.Unmarshal([]byte(`{"eur":"10.50 EUR"}`), &back)
	assert.True(t, errors.Is(err, apperr.ErrInvalidCurrencyCode), "got %v", err)

	_, err = json.Marshal(Amount{})
	assert.Error(t, err)
}
