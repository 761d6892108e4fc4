package escrowd

import (
	"testing"

	"github.com/iov-one/escrowd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingMsg struct {
	Text string
}

func (pingMsg) Path() string { return "test/ping" }

func (m pingMsg) Validate() error {
	if m.Text == "" {
		return errors.Wrap(errors.ErrEmpty, "text")
	}
	return nil
}

type otherMsg struct{}

func (otherMsg) Path() string    { return "test/other" }
func (otherMsg) Validate() error { return nil }

type msgTx struct {
	msg Msg
}

func (t msgTx) GetMsg() (Msg, error)       { return t.msg, nil }
func (msgTx) Marshal() ([]byte, error)     { return nil, nil }
func (*msgTx) Unmarshal(data []byte) error { return nil }

func TestLoadMsg(t *testing.T) {
	var msg pingMsg
	require.NoError(t, LoadMsg(&msgTx{msg: &pingMsg{Text: "hi"}}, &msg))
	assert.Equal(t, "hi", msg.Text)

	err := LoadMsg(&msgTx{msg: &pingMsg{}}, &msg)
	assert.True(t, errors.ErrEmpty.Is(err))

	err = LoadMsg(&msgTx{msg: &otherMsg{}}, &msg)
	assert.True(t, errors.ErrType.Is(err))

	assert.Equal(t, "test/ping", GetPath(&msgTx{msg: pingMsg{Text: "x"}}))
}
