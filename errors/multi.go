package errors

import (
	"bytes"
	"fmt"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If only one non nil error is given, it is returned unchanged. Nested
// aggregates are flattened.
func Append(errs ...error) error {
	var res multiErr
	for _, e := range errs {
		if isNilErr(e) {
			continue
		}
		if m, ok := e.(multiErr); ok {
			res = append(res, m...)
		} else {
			res = append(res, e)
		}
	}
	switch len(res) {
	case 0:
		return nil
	case 1:
		return res[0]
	default:
		return res
	}
}

// unpacker is implemented by errors that aggregate more than one error.
type unpacker interface {
	Unpack() []error
}

type multiErr []error

func (e multiErr) Unpack() []error {
	return []error(e)
}

func (e multiErr) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d errors occurred:", len(e))
	for _, err := range e {
		buf.WriteString("\n\t* ")
		buf.WriteString(err.Error())
	}
	return buf.String()
}

// ABCICode returns the code of the first aggregated error that declares one.
// An aggregate of only internal errors is internal as well.
func (e multiErr) ABCICode() uint32 {
	for _, err := range e {
		if code := abciCode(err); code != internalABCICode {
			return code
		}
	}
	return internalABCICode
}
