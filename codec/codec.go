/*
Package codec holds the binary and JSON codec shared by all extensions.

Models and configuration are stored using amino's bare binary encoding.
Transaction messages are an interface (escrowd.Msg), so every extension
registers its concrete message types with RegisterMsg before a transaction
can be decoded.
*/
package codec

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	amino "github.com/tendermint/go-amino"
)

// Cdc is the codec used to serialize all persisted and transmitted data.
var Cdc = amino.NewCodec()

func init() {
	Cdc.RegisterInterface((*escrowd.Msg)(nil), nil)
}

// RegisterMsg registers a concrete message type under given name. The name
// must be unique and should follow the "<extension>/<MsgType>" pattern.
// Use it only during program startup (ie. in init function).
func RegisterMsg(msg escrowd.Msg, name string) {
	Cdc.RegisterConcrete(msg, name, nil)
}

// Marshal serializes given object using the binary representation.
func Marshal(o interface{}) ([]byte, error) {
	raw, err := Cdc.MarshalBinaryBare(o)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrType, "marshal %T: %s", o, err)
	}
	return raw, nil
}

// Unmarshal deserializes binary representation into given pointer.
func Unmarshal(raw []byte, dest interface{}) error {
	if err := Cdc.UnmarshalBinaryBare(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrType, "unmarshal %T: %s", dest, err)
	}
	return nil
}

// MarshalJSON serializes given object into amino's JSON representation.
// Interface values are wrapped with their registered type name.
func MarshalJSON(o interface{}) ([]byte, error) {
	raw, err := Cdc.MarshalJSON(o)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrType, "marshal json %T: %s", o, err)
	}
	return raw, nil
}

// UnmarshalJSON deserializes amino's JSON representation.
func UnmarshalJSON(raw []byte, dest interface{}) error {
	if err := Cdc.UnmarshalJSON(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrType, "unmarshal json %T: %s", dest, err)
	}
	return nil
}
