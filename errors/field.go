package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field attaches the name of the offending message or model attribute to
// err. Nested attributes use dot notation with zero based indexes, for
// example "Release.Signers.1". A nil err results in nil.
func Field(name string, err error, desc string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) != 0 {
		desc = fmt.Sprintf(desc, args...)
	}
	return &fieldError{name: name, desc: desc, err: err}
}

// AppendField adds err, annotated with the attribute name, to errs. It is
// meant for validation functions collecting every problem at once.
func AppendField(errs error, name string, err error) error {
	return Append(errs, Field(name, err, ""))
}

type fieldError struct {
	name string
	desc string
	err  error
}

func (e *fieldError) Error() string {
	msg := fmt.Sprintf("field %q: ", e.name)
	if e.desc != "" {
		msg += e.desc + ": "
	}
	return msg + e.err.Error()
}

func (e *fieldError) Cause() error {
	return e.err
}

func (e *fieldError) FieldName() string {
	return e.name
}

// FieldErrors collects all errors reported for the attribute name. Both
// wrapped and aggregated errors are searched.
func FieldErrors(err error, name string) []error {
	var found []error
	var walk func(error)
	walk = func(err error) {
		for !isNilErr(err) {
			if f, ok := err.(*fieldError); ok && f.name == name {
				found = append(found, err)
				return
			}
			if m, ok := err.(unpacker); ok {
				for _, e := range m.Unpack() {
					walk(e)
				}
				return
			}
			c, ok := err.(causer)
			if !ok {
				return
			}
			err = c.Cause()
		}
	}
	walk(err)
	return found
}
