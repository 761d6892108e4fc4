package sigs

import (
	"testing"

	"github.com/iov-one/escrowd/crypto"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/store"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSignBytes(t *testing.T) {
	a, err := BuildSignBytes([]byte("data"), "test-chain", 0)
	require.NoError(t, err)
	b, err := BuildSignBytes([]byte("data"), "test-chain", 1)
	require.NoError(t, err)
	c, err := BuildSignBytes([]byte("data"), "test-chain2", 0)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = BuildSignBytes([]byte("data"), "test-chain", -1)
	assert.True(t, ErrInvalidSequence.Is(err))
	_, err = BuildSignBytes([]byte("data"), "x", 0)
	assert.True(t, errors.ErrInput.Is(err))
}

func TestVerifySignature(t *testing.T) {
	db := store.MemStore()
	const chainID = "test-chain"

	key := weavetest.NewKey()
	other := crypto.PrivKeyEd25519FromSeed(make([]byte, 32))
	tx := newSignedTx([]byte("foobar"))

	sig0, err := SignTx(key, tx, chainID, 0)
	require.NoError(t, err)
	sig1, err := SignTx(key, tx, chainID, 1)
	require.NoError(t, err)
	wrongChain, err := SignTx(key, tx, "other-chain", 0)
	require.NoError(t, err)
	otherSig, err := SignTx(other, tx, chainID, 0)
	require.NoError(t, err)

	// Signature of a sequence from the future is rejected.
	_, err = VerifySignature(db, sig1, tx.data, chainID)
	assert.True(t, ErrInvalidSequence.Is(err))

	_, err = VerifySignature(db, wrongChain, tx.data, chainID)
	assert.True(t, errors.ErrUnauthorized.Is(err))

	cond, err := VerifySignature(db, sig0, tx.data, chainID)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().Condition(), cond)

	// Replay is rejected.
	_, err = VerifySignature(db, sig0, tx.data, chainID)
	assert.True(t, ErrInvalidSequence.Is(err))

	_, err = VerifySignature(db, sig1, tx.data, chainID)
	require.NoError(t, err)

	seq, err := NextSequence(db, key.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	// Accounts are independent.
	_, err = VerifySignature(db, otherSig, tx.data, chainID)
	require.NoError(t, err)

	// Signature must match the public key.
	forged := *otherSig
	forged.Pubkey = key.PublicKey()
	forged.Sequence = 2
	_, err = VerifySignature(db, &forged, tx.data, chainID)
	assert.True(t, errors.ErrUnauthorized.Is(err))
}

func TestVerifyTxSignatures(t *testing.T) {
	db := store.MemStore()
	const chainID = "test-chain"

	a := weavetest.NewKey()
	b := weavetest.NewKey()
	tx := newSignedTx([]byte("multi"))

	signers, err := VerifyTxSignatures(db, tx, chainID)
	require.NoError(t, err)
	assert.Empty(t, signers)

	sa, err := SignTx(a, tx, chainID, 0)
	require.NoError(t, err)
	sb, err := SignTx(b, tx, chainID, 0)
	require.NoError(t, err)
	tx.sigs = []StdSignature{*sa, *sb}

	signers, err = VerifyTxSignatures(db, tx, chainID)
	require.NoError(t, err)
	require.Len(t, signers, 2)
	assert.Equal(t, a.PublicKey().Condition(), signers[0])
	assert.Equal(t, b.PublicKey().Condition(), signers[1])

	_, err = VerifyTxSignatures(db, tx, chainID)
	assert.True(t, ErrInvalidSequence.Is(err))
}
