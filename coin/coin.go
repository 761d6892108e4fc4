package coin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/iov-one/escrowd/errors"
)

// IsCC is the RegExp to ensure valid currency codes
var IsCC = regexp.MustCompile(`^[A-Z]{3,4}$`).MatchString

// Coin is an amount of a single currency.
type Coin struct {
	Ticker string `json:"ticker"`
	Amount Amount `json:"amount"`
}

// NewCoin creates a new coin object
func NewCoin(amount int64, ticker string) Coin {
	return Coin{
		Ticker: ticker,
		Amount: NewAmount(amount),
	}
}

// ID returns a coin ticker name.
func (c Coin) ID() string {
	return c.Ticker
}

// Add combines two coins of the same currency.
func (c Coin) Add(o Coin) (Coin, error) {
	if !c.SameType(o) {
		return Coin{}, errors.Wrapf(errors.ErrCurrency, "adding %s to %s", o.Ticker, c.Ticker)
	}
	sum, err := c.Amount.Add(o.Amount)
	if err != nil {
		return Coin{}, err
	}
	return Coin{Ticker: c.Ticker, Amount: sum}, nil
}

// Subtract returns c - amount. The result might be negative.
func (c Coin) Subtract(amount Coin) (Coin, error) {
	neg, err := amount.Negative()
	if err != nil {
		return Coin{}, err
	}
	return c.Add(neg)
}

// Negative returns the coin with the opposite amount.
func (c Coin) Negative() (Coin, error) {
	neg, err := c.Amount.Neg()
	if err != nil {
		return Coin{}, err
	}
	return Coin{Ticker: c.Ticker, Amount: neg}, nil
}

// Compare returns -1 if c < o, 0 if equal and 1 if c > o. Coins of a
// different currency are only compared by ticker.
func (c Coin) Compare(o Coin) int {
	if !c.SameType(o) {
		return strings.Compare(c.Ticker, o.Ticker)
	}
	return c.Amount.Cmp(o.Amount)
}

// Equals returns true if both coins are of the same currency and amount.
func (c Coin) Equals(o Coin) bool {
	return c.SameType(o) && c.Amount.Equals(o.Amount)
}

// IsZero returns true if the amount is 0.
func (c Coin) IsZero() bool {
	return c.Amount.IsZero()
}

// IsPositive returns true if the amount is greater than 0.
func (c Coin) IsPositive() bool {
	return c.Amount.IsPositive()
}

// IsNonNegative returns true if the amount is 0 or more.
func (c Coin) IsNonNegative() bool {
	return !c.Amount.IsNegative()
}

// IsGTE returns true if c is of the same type and has at least as much value
// as o.
func (c Coin) IsGTE(o Coin) bool {
	return c.SameType(o) && c.Amount.Cmp(o.Amount) >= 0
}

// SameType returns true if both coins are of the same currency.
func (c Coin) SameType(o Coin) bool {
	return c.Ticker == o.Ticker
}

// Validate ensures the ticker is a valid currency code.
func (c Coin) Validate() error {
	if !IsCC(c.Ticker) {
		return errors.Wrapf(errors.ErrCurrency, "invalid currency: %q", c.Ticker)
	}
	return nil
}

// String returns "<amount> <ticker>", the format understood by
// ParseHumanFormat.
func (c Coin) String() string {
	if c.Ticker == "" {
		return c.Amount.String()
	}
	return fmt.Sprintf("%s %s", c.Amount, c.Ticker)
}

// ParseHumanFormat parse a human readable coin representation. Accepted format
// is a string:
//
//	"<amount> <ticker>"
func ParseHumanFormat(h string) (Coin, error) {
	results := humanCoinFormatRx.FindStringSubmatch(strings.TrimSpace(h))
	if len(results) != 3 {
		return Coin{}, errors.Wrapf(errors.ErrInput, "invalid coin format %q", h)
	}
	amount, err := ParseAmount(results[1])
	if err != nil {
		return Coin{}, err
	}
	return Coin{Ticker: results[2], Amount: amount}, nil
}

var humanCoinFormatRx = regexp.MustCompile(`^(-?\d+)\s*([A-Z]{3,4})$`)

// UnmarshalJSON accepts both the human readable format and the object
// representation.
func (c *Coin) UnmarshalJSON(raw []byte) error {
	var human string
	if err := json.Unmarshal(raw, &human); err == nil {
		parsed, err := ParseHumanFormat(human)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	// Because UnmarshalJSON method is provided, we can no longer use Coin
	// type for this.
	var coin struct {
		Ticker string
		Amount Amount
	}
	if err := json.Unmarshal(raw, &coin); err != nil {
		return err
	}
	c.Ticker = coin.Ticker
	c.Amount = coin.Amount
	return nil
}

// Set updates this coin value to what is provided. This method implements
// flag.Value interface.
func (c *Coin) Set(raw string) error {
	val, err := ParseHumanFormat(raw)
	if err != nil {
		return err
	}
	*c = val
	return nil
}

// Type implements pflag.Value interface.
func (c *Coin) Type() string {
	return "coin"
}
