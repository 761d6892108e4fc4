package weavetest

import (
	"context"
	"fmt"

	"github.com/iov-one/escrowd"
)

// Auth authenticates a fixed set of conditions, regardless of the context.
// Signer and Signers can be combined.
type Auth struct {
	Signer  escrowd.Condition
	Signers []escrowd.Condition
}

func (a *Auth) GetConditions(context.Context) []escrowd.Condition {
	conds := append([]escrowd.Condition(nil), a.Signers...)
	if a.Signer != nil {
		conds = append(conds, a.Signer)
	}
	return conds
}

func (a *Auth) HasAddress(ctx context.Context, addr escrowd.Address) bool {
	return hasAddress(a.GetConditions(ctx), addr)
}

func hasAddress(conds []escrowd.Condition, addr escrowd.Address) bool {
	for _, c := range conds {
		if addr.Equals(c.Address()) {
			return true
		}
	}
	return false
}

// CtxAuth authenticates the conditions stored in the context with
// SetConditions. Different keys allow independent authenticators.
type CtxAuth struct {
	Key string
}

func (a *CtxAuth) SetConditions(ctx context.Context, permissions ...escrowd.Condition) context.Context {
	return context.WithValue(ctx, ctxKey(a.Key), permissions)
}

func (a *CtxAuth) GetConditions(ctx context.Context) []escrowd.Condition {
	val := ctx.Value(ctxKey(a.Key))
	if val == nil {
		return nil
	}
	conds, ok := val.([]escrowd.Condition)
	if !ok {
		panic(fmt.Sprintf("instead of []escrowd.Condition got %T", val))
	}
	return conds
}

func (a *CtxAuth) HasAddress(ctx context.Context, addr escrowd.Address) bool {
	return hasAddress(a.GetConditions(ctx), addr)
}

type ctxKey string
