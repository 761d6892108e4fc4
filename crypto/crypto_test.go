package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	priv := GenPrivKeyEd25519()
	pub := priv.PublicKey()
	require.NoError(t, pub.Validate())

	msg := []byte("release 300 ETH")
	sig, err := priv.Sign(msg)
	require.NoError(t, err)

	assert.True(t, pub.Verify(msg, sig))
	assert.False(t, pub.Verify([]byte("release 301 ETH"), sig))
	assert.False(t, GenPrivKeyEd25519().PublicKey().Verify(msg, sig))
	assert.False(t, pub.Verify(msg, &Signature{}))
	assert.False(t, pub.Verify(msg, nil))
}

func TestDeterministicKeys(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	a := PrivKeyEd25519FromSeed(seed).PublicKey()
	b := PrivKeyEd25519FromSeed(seed).PublicKey()
	assert.Equal(t, a, b)
	assert.Equal(t, a.Address(), b.Address())

	ext, typ, data, err := a.Condition().Parse()
	require.NoError(t, err)
	assert.Equal(t, ExtensionName, ext)
	assert.Equal(t, "ed25519", typ)
	assert.Equal(t, a.Ed25519, data)
}

func TestInvalidKeys(t *testing.T) {
	_, err := (&PrivateKey{Ed25519: []byte{1, 2}}).Sign([]byte("x"))
	assert.Error(t, err)
	assert.Error(t, (&PublicKey{}).Validate())
}
