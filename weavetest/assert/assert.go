/*
Package assert provides small test helpers that understand the escrowd error
and coin types. For anything generic use github.com/stretchr/testify.
*/
package assert

import (
	"reflect"

	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
)

// Tester is the minimal subset of testing.TB needed by the helpers.
type Tester interface {
	Helper()
	Logf(string, ...interface{})
	Fatal(...interface{})
	Fatalf(string, ...interface{})
}

// Nil fails the test if given value is not nil.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if !isNil(value) {
		// %+v prints the stack trace of errors that carry one.
		t.Fatalf("want a nil value, got %+v", value)
	}
}

func isNil(value interface{}) (isnil bool) {
	if value == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			isnil = false
		}
	}()
	return reflect.ValueOf(value).IsNil()
}

// Panics will run given function and fail the test if it did not panic.
func Panics(t Tester, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("panic expected")
		}
	}()
	fn()
}

// IsErr fails the test unless got is of the want kind. A nil want requires
// got to be nil as well.
func IsErr(t Tester, want *errors.Error, got error) {
	t.Helper()
	if want == nil {
		if got != nil {
			t.Fatalf("want no error, got %+v", got)
		}
		return
	}
	if !want.Is(got) {
		t.Fatalf("want %q, got %+v", want, got)
	}
}

// ErrCode fails the test unless the ABCI code of err is the wanted one.
func ErrCode(t Tester, want uint32, err error) {
	t.Helper()
	if code, _ := errors.ABCIInfo(err, true); code != want {
		t.Fatalf("want code %d, got %d (%v)", want, code, err)
	}
}

// FieldError ensures that given error contains exactly one field error for
// fieldName and that it is of the want kind. Use nil as want to ensure no
// error was reported for that field.
func FieldError(t Tester, err error, fieldName string, want *errors.Error) {
	t.Helper()

	errs := errors.FieldErrors(err, fieldName)
	if want == nil {
		if len(errs) != 0 {
			logAll(t, errs)
			t.Fatalf("want no %q field error, got %d", fieldName, len(errs))
		}
		return
	}
	switch len(errs) {
	case 0:
		t.Fatalf("no %q field error found", fieldName)
	case 1:
		if !want.Is(errs[0]) {
			t.Fatalf("unexpected %q field error: %q", fieldName, errs[0])
		}
	default:
		logAll(t, errs)
		t.Fatalf("want one %q field error, got %d", fieldName, len(errs))
	}
}

func logAll(t Tester, errs []error) {
	for i, e := range errs {
		t.Logf("\terror %d: %q", i+1, e)
	}
}

// Coins fails the test unless both coin sets hold the same values.
func Coins(t Tester, want, got coin.Coins) {
	t.Helper()
	if !want.Equals(got) {
		t.Fatalf("want %v, got %v", want, got)
	}
}
