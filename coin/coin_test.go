package coin

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/escrowd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinOperations(t *testing.T) {
	a := NewCoin(300, "ETH")
	b := NewCoin(7, "ETH")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equals(NewCoin(307, "ETH")))

	rest, err := b.Subtract(a)
	require.NoError(t, err)
	assert.False(t, rest.IsNonNegative())

	_, err = a.Add(NewCoin(1, "BTC"))
	assert.True(t, errors.ErrCurrency.Is(err))

	assert.True(t, a.IsGTE(b))
	assert.False(t, b.IsGTE(a))
	assert.False(t, a.IsGTE(NewCoin(1, "BTC")))
	assert.Equal(t, 1, a.Compare(b))
}

func TestCoinValidate(t *testing.T) {
	cases := map[string]struct {
		coin    Coin
		wantErr *errors.Error
	}{
		"valid":          {coin: NewCoin(5, "USD")},
		"lowercase":      {coin: NewCoin(5, "usd"), wantErr: errors.ErrCurrency},
		"too long":       {coin: NewCoin(5, "DOLLAR"), wantErr: errors.ErrCurrency},
		"missing ticker": {coin: NewCoin(5, ""), wantErr: errors.ErrCurrency},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.coin.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, tc.wantErr.Is(err), "unexpected error: %v", err)
		})
	}
}

func TestCoinHumanFormat(t *testing.T) {
	c, err := ParseHumanFormat("1000 ETH")
	require.NoError(t, err)
	assert.True(t, c.Equals(NewCoin(1000, "ETH")))
	assert.Equal(t, "1000 ETH", c.String())

	c, err = ParseHumanFormat("-3IOV")
	require.NoError(t, err)
	assert.True(t, c.Equals(NewCoin(-3, "IOV")))

	_, err = ParseHumanFormat("1.5 ETH")
	assert.True(t, errors.ErrInput.Is(err))

	var fromJSON Coin
	require.NoError(t, json.Unmarshal([]byte(`"12 BTC"`), &fromJSON))
	assert.True(t, fromJSON.Equals(NewCoin(12, "BTC")))

	require.NoError(t, json.Unmarshal([]byte(`{"ticker": "BTC", "amount": "99"}`), &fromJSON))
	assert.True(t, fromJSON.Equals(NewCoin(99, "BTC")))
}

func TestCoinsAdd(t *testing.T) {
	cs, err := CombineCoins(NewCoin(5, "ETH"), NewCoin(3, "BTC"), NewCoin(2, "ETH"))
	require.NoError(t, err)
	require.NoError(t, cs.Validate())
	require.Len(t, cs, 2)
	assert.Equal(t, "BTC", cs[0].Ticker)
	assert.True(t, cs.Get("ETH").Equals(NewCoin(7, "ETH")))
	assert.True(t, cs.Contains(NewCoin(7, "ETH")))
	assert.False(t, cs.Contains(NewCoin(8, "ETH")))
	assert.False(t, cs.Contains(NewCoin(1, "IOV")))

	left, err := cs.Subtract(NewCoin(3, "BTC"))
	require.NoError(t, err)
	assert.Len(t, left, 1, "zero value must be removed")
	assert.Len(t, cs, 2, "original must not be modified")

	neg, err := left.Subtract(NewCoin(10, "ETH"))
	require.NoError(t, err)
	assert.False(t, neg.IsNonNegative())
}
