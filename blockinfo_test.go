package escrowd

import (
	"testing"
	"time"

	"github.com/iov-one/escrowd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
)

func TestBlockInfo(t *testing.T) {
	now := time.Unix(1000, 0)
	info, err := NewBlockInfo(tmproto.Header{Height: 7, Time: now}, "escrow-test", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(7), info.Height())
	assert.Equal(t, "escrow-test", info.ChainID())
	assert.Equal(t, UnixTime(1000), info.UnixTime())
	assert.NotNil(t, info.Logger())

	assert.True(t, info.IsExpired(999))
	assert.True(t, info.IsExpired(1000), "expiration is inclusive")
	assert.False(t, info.IsExpired(1001))

	_, err = NewBlockInfo(tmproto.Header{}, "no", nil)
	assert.True(t, errors.ErrInput.Is(err))
}

func TestUnixTimeJSON(t *testing.T) {
	var ut UnixTime
	require.NoError(t, ut.UnmarshalJSON([]byte(`1500`)))
	assert.Equal(t, UnixTime(1500), ut)

	require.NoError(t, ut.UnmarshalJSON([]byte(`"1970-01-01T00:10:00Z"`)))
	assert.Equal(t, UnixTime(600), ut)

	assert.Error(t, ut.UnmarshalJSON([]byte(`-1`)))
	assert.Error(t, ut.UnmarshalJSON([]byte(`"tomorrow"`)))

	assert.Equal(t, UnixTime(1060), UnixTime(1000).Add(time.Minute))
	assert.True(t, UnixTime(0).IsZero())
	assert.Error(t, UnixTime(-5).Validate())
}
