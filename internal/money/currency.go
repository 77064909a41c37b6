package money

import (
	"fmt"

	"monfari.org/internal/apperr"
)

// Currency is a three-letter upper-case code. The zero value is not a valid currency.
type Currency struct {
	code string
}

// Well-known currencies.
var (
	EUR = MustCurrency("EUR")
	GBP = MustCurrency("GBP")
	USD = MustCurrency("USD")
)

// ParseCurrency accepts exactly three ASCII letters A-Z.
func ParseCurrency(s string) (Currency, error) {
	if !validCode(s) {
		return Currency{}, apperr.New(apperr.CodeInvalidCurrencyCode, fmt.Sprintf("invalid currency code %q", s))
	}
	return Currency{code: s}, nil
}

// MustCurrency is ParseCurrency for constants; it panics on bad input.
func MustCurrency(s string) Currency {
	c, err := ParseCurrency(s)
	if err != nil {
		panic(err)
	}
	return c
}

func validCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func (c Currency) String() string { return c.code }

// IsZero reports whether c is the zero value.
func (c Currency) IsZero() bool { return c.code == "" }

// Compare orders currencies by code.
func (c Currency) Compare(o Currency) int {
	switch {
	case c.code < o.code:
		return -1
	case c.code > o.code:
		return 1
	}
	return 0
}

func (c Currency) MarshalText() ([]byte, error) {
	if c.IsZero() {
		return nil, apperr.New(apperr.CodeInvalidCurrencyCode, "zero currency")
	}
	return []byte(c.code), nil
}

func (c *Currency) UnmarshalText(b []byte) error {
	parsed, err := ParseCurrency(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
