// Package money holds currency codes and amounts counted in minor units.
// All arithmetic is on int64 minor units; floats never enter.
package money

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"monfari.org/internal/apperr"
)

const minorDigits = 2

// Amount is a signed count of hundredths of a currency.
type Amount struct {
	minor int64
	cur   Currency
}

// New returns an amount of minor units in currency c.
func New(minor int64, c Currency) Amount {
	return Amount{minor: minor, cur: c}
}

// Zero returns the zero amount in c.
func Zero(c Currency) Amount { return Amount{cur: c} }

var amountRe = regexp.MustCompile(`^(-?)([0-9]+)(?:\.([0-9]{2}))? ([A-Z]{3})$`)

// ParseAmount reads the wire form "<whole>[.<2 digits>] <CCY>", e.g. "12.34 USD" or "12 USD".
func ParseAmount(s string) (Amount, error) {
	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		return Amount{}, invalidAmount(s)
	}
	whole, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || whole > (math.MaxInt64-99)/100 {
		return Amount{}, invalidAmount(s)
	}
	var frac int64
	if m[3] != "" {
		frac, _ = strconv.ParseInt(m[3], 10, 64)
	}
	minor := whole*100 + frac
	if m[1] == "-" {
		minor = -minor
	}
	return Amount{minor: minor, cur: Currency{code: m[4]}}, nil
}

func invalidAmount(s string) error {
	return apperr.New(apperr.CodeInvalidAmountFormat, fmt.Sprintf("invalid amount %q", s))
}

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// FromDecimal converts a major-unit value. It fails unless value*100 is an exact integer.
func FromDecimal(value decimal.Decimal, c Currency) (Amount, error) {
	shifted := value.Shift(minorDigits)
	if !shifted.IsInteger() {
		return Amount{}, apperr.New(apperr.CodeNonIntegralMinorUnits,
			fmt.Sprintf("%s %s has fractional minor units", value.String(), c))
	}
	if shifted.Abs().GreaterThan(maxMinor) {
		return Amount{}, apperr.New(apperr.CodeInvalidAmountFormat,
			fmt.Sprintf("%s %s out of range", value.String(), c))
	}
	return Amount{minor: shifted.IntPart(), cur: c}, nil
}

// FromDecimalString parses a plain decimal such as "1234.5" and calls FromDecimal.
func FromDecimalString(s string, c Currency) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, apperr.Wrap(apperr.CodeInvalidAmountFormat, fmt.Sprintf("invalid decimal %q", s), err)
	}
	return FromDecimal(d, c)
}

func (a Amount) Minor() int64       { return a.minor }
func (a Amount) Currency() Currency { return a.cur }
func (a Amount) IsZero() bool       { return a.minor == 0 }
func (a Amount) IsNegative() bool   { return a.minor < 0 }
func (a Amount) Neg() Amount        { return Amount{minor: -a.minor, cur: a.cur} }

// Decimal returns the value in major units.
func (a Amount) Decimal() decimal.Decimal { return decimal.New(a.minor, -minorDigits) }

// Add sums two amounts of the same currency. It panics on a currency mismatch.
func (a Amount) Add(b Amount) Amount {
	if a.cur != b.cur {
		panic("money: currency mismatch " + a.cur.code + " != " + b.cur.code)
	}
	return Amount{minor: a.minor + b.minor, cur: a.cur}
}

// Compare orders by currency first, then by minor units.
func (a Amount) Compare(b Amount) int {
	if c := a.cur.Compare(b.cur); c != 0 {
		return c
	}
	switch {
	case a.minor < b.minor:
		return -1
	case a.minor > b.minor:
		return 1
	}
	return 0
}

// String is the canonical wire form: always two fraction digits, no grouping.
func (a Amount) String() string {
	u := uint64(a.minor)
	sign := ""
	if a.minor < 0 {
		u = uint64(-a.minor)
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, u/100, u%100, a.cur.code)
}

// Display groups the whole part by thousands with spaces, e.g. "1 234.56 EUR".
func (a Amount) Display() string {
	return gomoney.NewFormatter(minorDigits, ".", " ", a.cur.code, "1 $").Format(a.minor)
}

func (a Amount) MarshalText() ([]byte, error) {
	if a.cur.IsZero() {
		return nil, apperr.New(apperr.CodeInvalidCurrencyCode, "amount without currency")
	}
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(b []byte) error {
	parsed, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
