package app

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/crypto"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/x/sigs"
)

// Tx is the transaction format processed by the application: a single
// message together with the signatures authorizing it.
type Tx struct {
	Msg        escrowd.Msg         `json:"msg"`
	Signatures []sigs.StdSignature `json:"signatures"`
}

var (
	_ escrowd.Tx    = (*Tx)(nil)
	_ sigs.SignedTx = (*Tx)(nil)
)

// NewTx returns an unsigned transaction carrying given message.
func NewTx(msg escrowd.Msg) *Tx {
	return &Tx{Msg: msg}
}

func (tx *Tx) GetMsg() (escrowd.Msg, error) {
	return tx.Msg, nil
}

func (tx *Tx) GetSignatures() []sigs.StdSignature {
	return tx.Signatures
}

// GetSignBytes returns the binary representation of the transaction without
// the signatures.
func (tx *Tx) GetSignBytes() ([]byte, error) {
	unsigned := Tx{Msg: tx.Msg}
	return codec.Marshal(&unsigned)
}

// Sign appends a signature of given signer, created for the chain and the
// account sequence.
func (tx *Tx) Sign(signer crypto.Signer, chainID string, seq int64) error {
	sig, err := sigs.SignTx(signer, tx, chainID, seq)
	if err != nil {
		return errors.Wrap(err, "sign")
	}
	tx.Signatures = append(tx.Signatures, *sig)
	return nil
}

func (tx *Tx) Marshal() ([]byte, error) {
	return codec.Marshal(tx)
}

func (tx *Tx) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, tx)
}

// TxDecoder decodes the binary representation produced by Tx.Marshal.
func TxDecoder(raw []byte) (escrowd.Tx, error) {
	var tx Tx
	if err := tx.Unmarshal(raw); err != nil {
		return nil, err
	}
	return &tx, nil
}

// ResultSet is the binary representation of a query result, a list of keys
// or a list of values.
type ResultSet struct {
	Results [][]byte `json:"results"`
}

func (rs *ResultSet) Marshal() ([]byte, error) {
	return codec.Marshal(rs)
}

func (rs *ResultSet) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, rs)
}

// ResultsFromKeys returns a ResultSet of all keys
// given a set of models
func ResultsFromKeys(models []escrowd.Model) *ResultSet {
	res := make([][]byte, len(models))
	for i, m := range models {
		res[i] = m.Key
	}
	return &ResultSet{Results: res}
}

// ResultsFromValues returns a ResultSet of all values
// given a set of models
func ResultsFromValues(models []escrowd.Model) *ResultSet {
	res := make([][]byte, len(models))
	for i, m := range models {
		res[i] = m.Value
	}
	return &ResultSet{Results: res}
}

// JoinResults inverts ResultsFromKeys and ResultsFromValues
// and makes then a consistent whole again
func JoinResults(keys, values *ResultSet) ([]escrowd.Model, error) {
	kref, vref := keys.Results, values.Results
	if len(kref) != len(vref) {
		return nil, errors.Wrap(errors.ErrState, "mismatched result set size")
	}
	mods := make([]escrowd.Model, len(kref))
	for i := range mods {
		mods[i] = escrowd.Pair(kref[i], vref[i])
	}
	return mods, nil
}
