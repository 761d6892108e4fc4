package sigs

import (
	"github.com/iov-one/escrowd/weavetest"
)

// signedTx is a transaction with a fixed sign bytes representation.
type signedTx struct {
	weavetest.Tx
	data []byte
	sigs []StdSignature
}

var _ SignedTx = (*signedTx)(nil)

func (tx *signedTx) GetSignBytes() ([]byte, error) {
	return tx.data, nil
}

func (tx *signedTx) GetSignatures() []StdSignature {
	return tx.sigs
}

func newSignedTx(data []byte) *signedTx {
	return &signedTx{
		Tx:   weavetest.Tx{Msg: &weavetest.Msg{RoutePath: "test/sigs"}},
		data: data,
	}
}
