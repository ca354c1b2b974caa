package valueobject

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/facture/backend/internal/domain/shared"
)

// Money is a value object representing a monetary amount as an integer
// count of minor units (cents). It is immutable - all operations return
// new Money instances. Negative amounts are valid (credit notes, refunds).
//
// Every operation that can produce a fractional minor unit rounds to the
// nearest one, half away from zero: 0.995 rounds to 1.00 and -0.995 to
// -1.00. This matches the legal rounding expected on invoice totals and is
// exactly reproducible, unlike float arithmetic.
type Money struct {
	cents int64
}

// NewMoney creates Money from an integer minor-unit count
func NewMoney(cents int64) Money {
	return Money{cents: cents}
}

// NewMoneyFromString creates Money from a decimal string such as "15.99".
// The value is rounded to the nearest minor unit, half away from zero.
func NewMoneyFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string %q: %w", amount, err)
	}
	return NewMoneyFromDecimal(d), nil
}

// NewMoneyFromDecimal creates Money from a decimal amount expressed in
// major units, rounded to the nearest minor unit half away from zero.
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{cents: d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()}
}

// NewMoneyFromFloat creates Money from a float64 amount in major units
func NewMoneyFromFloat(amount float64) Money {
	return NewMoneyFromDecimal(decimal.NewFromFloat(amount))
}

// MustMoneyFromString creates Money from a decimal string, panicking on
// malformed input. Intended for constants and tests.
func MustMoneyFromString(amount string) Money {
	m, err := NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money
func Zero() Money {
	return Money{}
}

// Cents returns the amount as an integer minor-unit count
func (m Money) Cents() int64 {
	return m.cents
}

// Decimal returns the amount in major units as a decimal
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.cents, -2)
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.cents == 0
}

// IsPositive returns true if the amount is strictly positive
func (m Money) IsPositive() bool {
	return m.cents > 0
}

// IsNegative returns true if the amount is strictly negative
func (m Money) IsNegative() bool {
	return m.cents < 0
}

// Add returns a new Money with the sum of both amounts
func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

// Subtract returns a new Money with the difference
func (m Money) Subtract(other Money) Money {
	return Money{cents: m.cents - other.cents}
}

// MultiplyInt returns a new Money multiplied by an integer factor
func (m Money) MultiplyInt(factor int64) Money {
	return Money{cents: m.cents * factor}
}

// MultiplyFloat returns a new Money multiplied by a float factor,
// rounded to the nearest minor unit
func (m Money) MultiplyFloat(factor float64) Money {
	return m.MultiplyDecimal(decimal.NewFromFloat(factor))
}

// MultiplyDecimal returns a new Money multiplied by a decimal factor,
// rounded to the nearest minor unit
func (m Money) MultiplyDecimal(factor decimal.Decimal) Money {
	return Money{
		cents: decimal.NewFromInt(m.cents).Mul(factor).Round(0).IntPart(),
	}
}

// Divide returns a new Money divided by a non-zero integer divisor,
// rounded to the nearest minor unit. Dividing by zero is a precondition
// violation and is reported as an error, never coerced to a value.
func (m Money) Divide(divisor int64) (Money, error) {
	if divisor == 0 {
		return Money{}, shared.ErrDivisionByZero
	}
	return Money{
		cents: decimal.NewFromInt(m.cents).
			Div(decimal.NewFromInt(divisor)).
			Round(0).
			IntPart(),
	}, nil
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{cents: -m.cents}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	if m.cents < 0 {
		return Money{cents: -m.cents}
	}
	return m
}

// Equals returns true if both amounts are equal
func (m Money) Equals(other Money) bool {
	return m.cents == other.cents
}

// Cmp compares two amounts, returning -1, 0 or +1
func (m Money) Cmp(other Money) int {
	switch {
	case m.cents < other.cents:
		return -1
	case m.cents > other.cents:
		return 1
	}
	return 0
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) bool {
	return m.cents < other.cents
}

// LessThanOrEqual returns true if this Money is at most the other
func (m Money) LessThanOrEqual(other Money) bool {
	return m.cents <= other.cents
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) bool {
	return m.cents > other.cents
}

// GreaterThanOrEqual returns true if this Money is at least the other
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.cents >= other.cents
}

// StringFixed returns the amount with exactly two fraction digits and a
// period separator, regardless of locale: "1234.56". This is the form
// mandated for accounting exports.
func (m Money) StringFixed() string {
	return m.Decimal().StringFixed(2)
}

// String returns the amount with the default currency suffix
func (m Money) String() string {
	return m.StringFixed() + " EUR"
}

// Format renders the amount for humans using the locale's grouping and
// decimal separators, followed by a currency suffix: "1 234,56 €" for
// French, "1,234.56 €" for English.
func (m Money) Format(tag language.Tag, currencySuffix string) string {
	p := message.NewPrinter(tag)
	f, _ := m.Decimal().Float64()
	formatted := p.Sprint(number.Decimal(f,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
	if currencySuffix == "" {
		return formatted
	}
	return formatted + " " + currencySuffix
}

// MarshalJSON encodes the amount as integer cents
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.cents, 10)), nil
}

// UnmarshalJSON decodes an integer cents amount
func (m *Money) UnmarshalJSON(data []byte) error {
	cents, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("cannot unmarshal %q into Money: %w", data, err)
	}
	m.cents = cents
	return nil
}

// Value implements driver.Valuer for database storage as integer cents
func (m Money) Value() (driver.Value, error) {
	return m.cents, nil
}

// Scan implements sql.Scanner for database retrieval
func (m *Money) Scan(value any) error {
	if value == nil {
		m.cents = 0
		return nil
	}
	switch v := value.(type) {
	case int64:
		m.cents = v
	case int:
		m.cents = int64(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
	return nil
}
