package weavetest

import (
	"testing"

	"github.com/iov-one/escrowd"
)

// ParseAddress takes an address in a human readable format and returns
// its binary representation. This function is a test helper that is using
// escrowd.ParseAddress function functionality.
func ParseAddress(t testing.TB, encodedAddress string) escrowd.Address {
	t.Helper()

	addr, err := escrowd.ParseAddress(encodedAddress)
	if err != nil {
		t.Fatalf("cannot parse %q address: %s", encodedAddress, err)
	}
	return addr
}
