package cash

import (
	"context"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	foo := coin.NewCoin(100, "FOO")
	some := coin.NewCoin(300, "SOME")

	perm := weavetest.NewCondition()
	perm2 := weavetest.NewCondition()

	cases := map[string]struct {
		signers        []escrowd.Condition
		initState      map[string]coin.Coin
		msg            escrowd.Msg
		wantCheckErr   *errors.Error
		wantDeliverErr *errors.Error
	}{
		"wrong message type": {
			msg:            &weavetest.Msg{RoutePath: "cash/send"},
			wantCheckErr:   errors.ErrType,
			wantDeliverErr: errors.ErrType,
		},
		"empty message": {
			msg:            &SendMsg{},
			wantCheckErr:   errors.ErrInput,
			wantDeliverErr: errors.ErrInput,
		},
		"not signed by the source": {
			msg:            &SendMsg{Amount: foo, Source: perm.Address(), Destination: perm2.Address()},
			wantCheckErr:   errors.ErrUnauthorized,
			wantDeliverErr: errors.ErrUnauthorized,
		},
		"sender has no account": {
			signers:        []escrowd.Condition{perm},
			msg:            &SendMsg{Amount: foo, Source: perm.Address(), Destination: perm2.Address()},
			wantDeliverErr: errors.ErrInsufficientAmount,
		},
		"sender too poor": {
			signers:        []escrowd.Condition{perm},
			initState:      map[string]coin.Coin{string(perm.Address()): some},
			msg:            &SendMsg{Amount: foo, Source: perm.Address(), Destination: perm2.Address()},
			wantDeliverErr: errors.ErrInsufficientAmount,
		},
		"sender got cash": {
			signers:   []escrowd.Condition{perm},
			initState: map[string]coin.Coin{string(perm.Address()): foo},
			msg:       &SendMsg{Amount: foo, Source: perm.Address(), Destination: perm2.Address()},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			auth := &weavetest.Auth{Signers: tc.signers}
			controller := NewController()
			h := NewSendHandler(auth, controller)

			db := store.MemStore()
			for addr, c := range tc.initState {
				require.NoError(t, controller.CoinMint(db, escrowd.Address(addr), c))
			}

			tx := &weavetest.Tx{Msg: tc.msg}
			info := weavetest.BlockInfo(t, 10, 1000)

			_, err := h.Check(context.Background(), info, db, tx)
			require.True(t, tc.wantCheckErr.Is(err), "%+v", err)
			_, err = h.Deliver(context.Background(), info, db, tx)
			require.True(t, tc.wantDeliverErr.Is(err), "%+v", err)

			if err == nil {
				balance, err := controller.Balance(db, perm2.Address())
				require.NoError(t, err)
				require.True(t, balance.Contains(foo))
			}
		})
	}
}

func TestQueryWallet(t *testing.T) {
	db := store.MemStore()
	qr := escrowd.NewQueryRouter()
	RegisterQuery(qr)

	addr := weavetest.NewCondition().Address()
	require.NoError(t, NewController().CoinMint(db, addr, coin.NewCoin(7, "ESC")))

	res, err := qr.Handler("/wallets").Query(db, "", addr)
	require.NoError(t, err)
	require.Len(t, res, 1)

	var w Wallet
	require.NoError(t, w.Unmarshal(res[0].Value))
	require.True(t, w.Coins.Equals(coin.Coins{coin.NewCoin(7, "ESC")}))
}
