package weavetest

import (
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
)

func TestSuccessfulDecorator(t *testing.T) {
	var (
		d    Decorator
		h    Handler
		info escrowd.BlockInfo
	)

	_, _ = d.Check(nil, info, nil, nil, &h)
	assertHCounts(t, &h, 1, 0)

	_, _ = d.Deliver(nil, info, nil, nil, &h)
	assertHCounts(t, &h, 1, 1)
}

func TestDecoratorWithError(t *testing.T) {
	d := Decorator{
		CheckErr:   errors.ErrUnauthorized,
		DeliverErr: errors.ErrNotFound,
	}

	// When using an error returning decorator, handler is never called.
	// Otherwise using nil would panic.
	var handler escrowd.Handler

	_, err := d.Check(nil, escrowd.BlockInfo{}, nil, nil, handler)
	if want := errors.ErrUnauthorized; !want.Is(err) {
		t.Errorf("want %q, got %q", want, err)
	}

	_, err = d.Deliver(nil, escrowd.BlockInfo{}, nil, nil, handler)
	if want := errors.ErrNotFound; !want.Is(err) {
		t.Errorf("want %q, got %q", want, err)
	}
}

func TestDecorate(t *testing.T) {
	var (
		d Decorator
		h Handler
	)
	handler := Decorate(&h, &d)

	_, _ = handler.Check(nil, escrowd.BlockInfo{}, nil, nil)
	_, _ = handler.Deliver(nil, escrowd.BlockInfo{}, nil, nil)
	assertDCounts(t, &d, 1, 1)
	assertHCounts(t, &h, 1, 1)

	d.DeliverErr = errors.ErrState
	if _, err := handler.Deliver(nil, escrowd.BlockInfo{}, nil, nil); !errors.ErrState.Is(err) {
		t.Fatalf("unexpected error: %v", err)
	}
	assertDCounts(t, &d, 1, 2)
	assertHCounts(t, &h, 1, 1)
}

func assertDCounts(t *testing.T, d *Decorator, wantCheck, wantDeliver int) {
	t.Helper()
	if got := d.CheckCallCount(); got != wantCheck {
		t.Errorf("want %d checks, got %d", wantCheck, got)
	}
	if got := d.DeliverCallCount(); got != wantDeliver {
		t.Errorf("want %d delivers, got %d", wantDeliver, got)
	}
	if got := d.CallCount(); got != wantCheck+wantDeliver {
		t.Errorf("want %d total, got %d", wantCheck+wantDeliver, got)
	}
}
