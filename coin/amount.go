package coin

import (
	"encoding/json"
	"math/big"

	"github.com/iov-one/escrowd/errors"
)

var (
	// MaxAmount is the largest value an Amount can hold (2^127 - 1).
	MaxAmount = Amount{i: new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))}
	// MinAmount is the lowest value an Amount can hold (-2^127).
	MinAmount = Amount{i: new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))}
)

// Amount is a signed 128 bit integer.
//
// An Amount is immutable, every operation returns a new value. The zero value
// represents 0. All arithmetic fails with errors.ErrOverflow when the result
// does not fit into 128 bits.
type Amount struct {
	i *big.Int
}

// NewAmount returns an Amount holding given value.
func NewAmount(v int64) Amount {
	return Amount{i: big.NewInt(v)}
}

// ParseAmount parses a base 10 integer representation.
func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, errors.Wrapf(errors.ErrAmount, "cannot parse %q", s)
	}
	return checked(v)
}

func checked(v *big.Int) (Amount, error) {
	if v.Cmp(MaxAmount.i) > 0 || v.Cmp(MinAmount.i) < 0 {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "%s exceeds 128 bits", v)
	}
	return Amount{i: v}, nil
}

func (a Amount) big() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return a.i
}

// BigInt returns a copy of the underlying value.
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(a.big())
}

// Add returns a + b.
func (a Amount) Add(b Amount) (Amount, error) {
	return checked(new(big.Int).Add(a.big(), b.big()))
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) (Amount, error) {
	return checked(new(big.Int).Sub(a.big(), b.big()))
}

// Mul returns a * b.
func (a Amount) Mul(b Amount) (Amount, error) {
	return checked(new(big.Int).Mul(a.big(), b.big()))
}

// Quo returns a / b truncated toward zero and the remainder.
func (a Amount) Quo(b Amount) (Amount, Amount, error) {
	if b.IsZero() {
		return Amount{}, Amount{}, errors.Wrap(errors.ErrAmount, "division by zero")
	}
	q, r := new(big.Int).QuoRem(a.big(), b.big(), new(big.Int))
	return Amount{i: q}, Amount{i: r}, nil
}

// MulFrac returns a * num / den truncated toward zero. Only the result must
// fit into 128 bits, the intermediate product is not bounded.
func (a Amount) MulFrac(num, den int64) (Amount, error) {
	if den == 0 {
		return Amount{}, errors.Wrap(errors.ErrAmount, "division by zero")
	}
	v := new(big.Int).Mul(a.big(), big.NewInt(num))
	return checked(v.Quo(v, big.NewInt(den)))
}

// Neg returns -a.
func (a Amount) Neg() (Amount, error) {
	return checked(new(big.Int).Neg(a.big()))
}

// Cmp compares a and b and returns -1, 0 or 1.
func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

// Equals returns true if both amounts hold the same value.
func (a Amount) Equals(b Amount) bool {
	return a.Cmp(b) == 0
}

// IsZero returns true if the value is 0.
func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

// IsPositive returns true if the value is greater than 0.
func (a Amount) IsPositive() bool {
	return a.big().Sign() > 0
}

// IsNegative returns true if the value is lower than 0.
func (a Amount) IsNegative() bool {
	return a.big().Sign() < 0
}

// Int64 returns the value as int64 and true if it fits.
func (a Amount) Int64() (int64, bool) {
	v := a.big()
	if !v.IsInt64() {
		return 0, false
	}
	return v.Int64(), true
}

func (a Amount) String() string {
	return a.big().String()
}

// MarshalAmino encodes the amount as a decimal string.
func (a Amount) MarshalAmino() (string, error) {
	return a.String(), nil
}

// UnmarshalAmino decodes the decimal string produced by MarshalAmino.
func (a *Amount) UnmarshalAmino(s string) error {
	if s == "" {
		*a = Amount{}
		return nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalJSON encodes the amount as a decimal string so that no precision is
// lost by JSON number handling.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both a decimal string and a JSON number.
func (a *Amount) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return errors.Wrap(errors.ErrAmount, "not a number")
		}
		s = n.String()
	}
	return a.UnmarshalAmino(s)
}
