package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownCurrency indicates a currency code missing from the registry.
	ErrUnknownCurrency = errors.New("unknown currency code")
	// ErrDivisionByZero indicates a monetary division by a zero scalar.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidAllocation indicates an allocation into zero parts or zero total ratio.
	ErrInvalidAllocation = errors.New("invalid allocation")
)

// CurrencyMismatchError is returned when two Money values of different
// currencies are combined. The ledger never converts silently.
type CurrencyMismatchError struct {
	Left  string
	Right string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: cannot operate on %s and %s", e.Left, e.Right)
}

// RoundingMode selects the strategy applied when scaling an amount.
type RoundingMode int

const (
	// RoundHalfUp rounds half away from zero.
	RoundHalfUp RoundingMode = iota
	// RoundHalfEven is banker's rounding, used at posting boundaries.
	RoundHalfEven
	// RoundDown truncates toward zero.
	RoundDown
)

// Money is an exact decimal amount bound to an ISO-4217 currency.
// Amounts are stored at full precision; rounding happens only at
// presentation or posting boundaries. No float ever enters the monetary path.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney builds a Money value, rejecting unrecognized currency codes.
func NewMoney(amount decimal.Decimal, currencyCode string) (Money, error) {
	if !IsKnownCurrency(currencyCode) {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currencyCode)
	}
	return Money{amount: amount, currency: currencyCode}, nil
}

// MustMoney is NewMoney that panics on an unknown currency. Intended for
// statically-known codes (tests, chart-of-accounts seeding).
func MustMoney(amount decimal.Decimal, currencyCode string) Money {
	m, err := NewMoney(amount, currencyCode)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromMinorUnits builds a Money value from minor units (e.g. cents).
func MoneyFromMinorUnits(minor int64, currencyCode string) (Money, error) {
	cur, ok := LookupCurrency(currencyCode)
	if !ok {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currencyCode)
	}
	return Money{amount: decimal.New(minor, -cur.MinorUnits), currency: currencyCode}, nil
}

// ZeroMoney returns a zero amount in the given currency.
func ZeroMoney(currencyCode string) (Money, error) {
	return NewMoney(decimal.Zero, currencyCode)
}

// Amount returns the exact decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// CurrencyCode returns the ISO-4217 code.
func (m Money) CurrencyCode() string { return m.currency }

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return &CurrencyMismatchError{Left: m.currency, Right: other.currency}
	}
	return nil
}

// Add returns m + other, failing on currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m - other, failing on currency mismatch.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// MulScalar multiplies by a scalar factor and rounds the result to the given
// scale using the requested mode. Rounding is explicit because multiplication
// is the one operation that can exceed the stored precision (rate * amount).
func (m Money) MulScalar(factor decimal.Decimal, scale int32, mode RoundingMode) Money {
	product := m.amount.Mul(factor)
	switch mode {
	case RoundHalfEven:
		product = product.RoundBank(scale)
	case RoundDown:
		product = product.Truncate(scale)
	default:
		product = product.Round(scale)
	}
	return Money{amount: product, currency: m.currency}
}

// Div divides by a scalar at full precision, failing on a zero divisor.
func (m Money) Div(divisor decimal.Decimal) (Money, error) {
	if divisor.IsZero() {
		return Money{}, ErrDivisionByZero
	}
	return Money{amount: m.amount.Div(divisor), currency: m.currency}, nil
}

// Cmp compares two amounts (-1, 0, +1), failing across currencies.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

// Equal reports whether both currency and amount match exactly.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsPositive reports whether the amount is strictly positive.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// IsNegative reports whether the amount is strictly negative.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// RoundToCurrency rounds to the currency's minor-unit scale with banker's
// rounding. Used at posting and presentation boundaries only.
func (m Money) RoundToCurrency() Money {
	cur, _ := LookupCurrency(m.currency)
	return Money{amount: m.amount.RoundBank(cur.MinorUnits), currency: m.currency}
}

// Allocate splits the amount into n parts that sum exactly to the original.
// The remainder in minor units is spread one unit at a time over the first
// parts, so no money is created or destroyed.
func (m Money) Allocate(n int) ([]Money, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: cannot allocate into %d parts", ErrInvalidAllocation, n)
	}
	cur, _ := LookupCurrency(m.currency)
	totalMinor := m.amount.Shift(cur.MinorUnits).Round(0).IntPart()

	base := totalMinor / int64(n)
	remainder := totalMinor % int64(n)
	if remainder < 0 {
		// Keep the remainder non-negative so negative amounts allocate symmetrically.
		base--
		remainder += int64(n)
	}

	parts := make([]Money, n)
	for i := range parts {
		minor := base
		if int64(i) < remainder {
			minor++
		}
		part, err := MoneyFromMinorUnits(minor, m.currency)
		if err != nil {
			return nil, err
		}
		parts[i] = part
	}
	return parts, nil
}

// AllocateByRatios splits the amount proportionally to the given ratios.
// The last part absorbs the rounding remainder so the parts sum exactly.
func (m Money) AllocateByRatios(ratios []decimal.Decimal) ([]Money, error) {
	if len(ratios) == 0 {
		return nil, fmt.Errorf("%w: empty ratios", ErrInvalidAllocation)
	}
	total := decimal.Zero
	for _, r := range ratios {
		total = total.Add(r)
	}
	if total.IsZero() {
		return nil, fmt.Errorf("%w: total ratio is zero", ErrInvalidAllocation)
	}

	cur, _ := LookupCurrency(m.currency)
	allocated := decimal.Zero
	parts := make([]Money, len(ratios))
	for i, r := range ratios {
		var amt decimal.Decimal
		if i == len(ratios)-1 {
			amt = m.amount.Sub(allocated)
		} else {
			amt = m.amount.Mul(r).Div(total).RoundBank(cur.MinorUnits)
			allocated = allocated.Add(amt)
		}
		parts[i] = Money{amount: amt, currency: m.currency}
	}
	return parts, nil
}

// String renders the amount at the currency's minor-unit scale, e.g. "100.00 USD".
func (m Money) String() string {
	cur, ok := LookupCurrency(m.currency)
	if !ok {
		return m.amount.String()
	}
	return m.amount.StringFixedBank(cur.MinorUnits) + " " + m.currency
}

// moneyJSON is the wire shape of Money; the amount travels as a string to
// keep exactness across serialization.
type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler, re-validating the currency code.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
