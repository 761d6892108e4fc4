package escrow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/gconf"
	"github.com/iov-one/escrowd/x"
	abci "github.com/tendermint/tendermint/abci/types"
)

const (
	createEscrowCost int64 = 300
	depositCost      int64 = 100
	disputeCost      int64 = 100
	flowCost         int64 = 200
	triggerCost      int64 = 200
)

// RegisterRoutes registers handlers for all escrow messages.
func RegisterRoutes(r escrowd.Registry, auth x.Authenticator, ledger Ledger) {
	executor := NewExecutor(ledger)
	r.Handle(&CreateEscrowMsg{}, CreateEscrowHandler{auth: auth})
	r.Handle(&DepositMsg{}, DepositHandler{auth: auth, ledger: ledger})
	r.Handle(&OpenDisputeMsg{}, DisputeHandler{auth: auth})

	flows := FlowHandler{auth: auth, executor: executor}
	r.Handle(&ProposeReleaseMsg{}, flows)
	r.Handle(&ApproveReleaseMsg{}, flows)
	r.Handle(&ProposeRefundMsg{}, flows)
	r.Handle(&ApproveRefundMsg{}, flows)
	r.Handle(&ArbiterReleaseMsg{}, flows)
	r.Handle(&ArbiterRefundMsg{}, flows)
	r.Handle(&EmergencyReleaseMsg{}, flows)

	triggers := TriggerHandler{executor: executor}
	r.Handle(&AutoReleaseMsg{}, triggers)
	r.Handle(&RefundTimeoutMsg{}, triggers)

	r.Handle(&UpdateConfigurationMsg{}, gconf.NewUpdateConfigurationHandler(
		packageName,
		func() gconf.OwnedConfig { return &Configuration{} },
		auth,
	))
}

// RegisterQuery exposes escrows, live proposals and approvals. Proposals and
// approvals are keyed by the escrow id followed by the flow byte.
func RegisterQuery(qr escrowd.QueryRouter) {
	escrowBucket.Register("escrows", qr)
	proposalBucket.Register("escrows/proposals", qr)
	approvalBucket.Register("escrows/approvals", qr)
	gconf.RegisterQuery(qr, packageName)
}

// CreateEscrowHandler creates new, empty escrows.
type CreateEscrowHandler struct {
	auth x.Authenticator
}

var _ escrowd.Handler = CreateEscrowHandler{}

func (h CreateEscrowHandler) Check(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	if _, err := h.validate(ctx, info, tx); err != nil {
		return nil, err
	}
	return &escrowd.CheckResult{GasAllocated: createEscrowCost}, nil
}

func (h CreateEscrowHandler) Deliver(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	msg, err := h.validate(ctx, info, tx)
	if err != nil {
		return nil, err
	}

	id := msg.ID
	if len(id) == 0 {
		if id, err = nextID(db); err != nil {
			return nil, err
		}
	} else if err := escrowBucket.Has(db, id); err == nil {
		return nil, errors.Wrapf(errors.ErrDuplicate, "escrow %s", FormatID(id))
	} else if !errors.ErrNotFound.Is(err) {
		return nil, err
	}

	esc := Escrow{
		ID:            id,
		Token:         msg.Token,
		Payers:        msg.Payers,
		Payees:        msg.Payees,
		Release:       msg.Release,
		Refund:        msg.Refund,
		Arbiter:       msg.Arbiter,
		AutoReleaseAt: msg.AutoReleaseAt,
		ExpiresAt:     msg.ExpiresAt,
		Address:       Condition(id).Address(),
	}
	if err := escrowBucket.Put(db, id, &esc); err != nil {
		return nil, errors.Wrap(err, "save escrow")
	}
	info.Logger().Info("escrow created", "escrow", FormatID(id), "creator", msg.Creator)
	return &escrowd.DeliverResult{
		Data: id,
		Events: []abci.Event{{
			Type: "escrow",
			Attributes: []abci.EventAttribute{
				escrowd.EventAttr("action", "create"),
				escrowd.EventAttr("escrow", FormatID(id)),
				escrowd.EventAttr("address", esc.Address.String()),
			},
		}},
	}, nil
}

func (h CreateEscrowHandler) validate(ctx context.Context, info escrowd.BlockInfo, tx escrowd.Tx) (*CreateEscrowMsg, error) {
	var msg CreateEscrowMsg
	if err := escrowd.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Creator) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "creator signature missing")
	}
	if msg.ExpiresAt <= info.UnixTime() {
		return nil, errors.Field("ExpiresAt", errors.ErrExpired, "must be in the future")
	}
	return &msg, nil
}

// nextID returns the first unused sequence based identifier.
func nextID(db escrowd.KVStore) ([]byte, error) {
	for {
		n, err := escrowSeq.NextInt(db)
		if err != nil {
			return nil, errors.Wrap(err, "escrow sequence")
		}
		id, err := ParseID(strconv.FormatInt(n, 10))
		if err != nil {
			return nil, err
		}
		switch err := escrowBucket.Has(db, id); {
		case errors.ErrNotFound.Is(err):
			return id, nil
		case err != nil:
			return nil, err
		}
	}
}

// DepositHandler moves payer funds into an escrow.
type DepositHandler struct {
	auth   x.Authenticator
	ledger Ledger
}

var _ escrowd.Handler = DepositHandler{}

func (h DepositHandler) Check(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &escrowd.CheckResult{GasAllocated: depositCost}, nil
}

func (h DepositHandler) Deliver(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	msg, esc, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	amount := coin.Coin{Ticker: esc.Token, Amount: msg.Amount}
	if err := h.ledger.MoveCoins(db, msg.Payer, esc.Address, amount); err != nil {
		return nil, errors.Wrap(err, "deposit")
	}
	if err := addDeposit(esc, msg.Payer, msg.Amount); err != nil {
		return nil, err
	}
	if err := escrowBucket.Put(db, esc.ID, esc); err != nil {
		return nil, errors.Wrap(err, "save escrow")
	}
	info.Logger().Info("escrow funded", "escrow", FormatID(esc.ID), "payer", msg.Payer, "amount", amount)
	return &escrowd.DeliverResult{
		Events: []abci.Event{{
			Type: "escrow",
			Attributes: []abci.EventAttribute{
				escrowd.EventAttr("action", "deposit"),
				escrowd.EventAttr("escrow", FormatID(esc.ID)),
				escrowd.EventAttr("payer", msg.Payer.String()),
				escrowd.EventAttr("amount", msg.Amount.String()),
			},
		}},
	}, nil
}

func (h DepositHandler) validate(ctx context.Context, db escrowd.KVStore, tx escrowd.Tx) (*DepositMsg, *Escrow, error) {
	var msg DepositMsg
	if err := escrowd.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Payer) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "payer signature missing")
	}
	esc, err := LoadEscrow(db, msg.EscrowID)
	if err != nil {
		return nil, nil, err
	}
	if !hasAddress(esc.Payers, msg.Payer) {
		return nil, nil, errors.Wrapf(ErrBadPayer, "%s", msg.Payer)
	}
	if esc.Closed {
		return nil, nil, errors.Wrap(ErrClosed, FormatID(esc.ID))
	}
	return &msg, esc, nil
}

// addDeposit increases the balance and the cumulative deposit of the payer.
func addDeposit(esc *Escrow, payer escrowd.Address, amount coin.Amount) error {
	balance, err := esc.Balance.Add(amount)
	if err != nil {
		return err
	}
	esc.Balance = balance
	for i, d := range esc.Deposits {
		if d.Payer.Equals(payer) {
			total, err := d.Amount.Add(amount)
			if err != nil {
				return err
			}
			esc.Deposits[i].Amount = total
			return nil
		}
	}
	esc.Deposits = append(esc.Deposits, Deposit{Payer: payer, Amount: amount})
	return nil
}

// DisputeHandler opens disputes.
type DisputeHandler struct {
	auth x.Authenticator
}

var _ escrowd.Handler = DisputeHandler{}

func (h DisputeHandler) Check(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &escrowd.CheckResult{GasAllocated: disputeCost}, nil
}

func (h DisputeHandler) Deliver(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	msg, esc, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := OpenDispute(esc, msg.Actor); err != nil {
		return nil, err
	}
	if err := escrowBucket.Put(db, esc.ID, esc); err != nil {
		return nil, errors.Wrap(err, "save escrow")
	}
	info.Logger().Info("dispute opened", "escrow", FormatID(esc.ID), "actor", msg.Actor)
	return &escrowd.DeliverResult{
		Events: []abci.Event{{
			Type: "escrow",
			Attributes: []abci.EventAttribute{
				escrowd.EventAttr("action", "open_dispute"),
				escrowd.EventAttr("escrow", FormatID(esc.ID)),
				escrowd.EventAttr("actor", msg.Actor.String()),
			},
		}},
	}, nil
}

func (h DisputeHandler) validate(ctx context.Context, db escrowd.KVStore, tx escrowd.Tx) (*OpenDisputeMsg, *Escrow, error) {
	var msg OpenDisputeMsg
	if err := escrowd.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Actor) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "actor signature missing")
	}
	esc, err := LoadEscrow(db, msg.EscrowID)
	if err != nil {
		return nil, nil, err
	}
	return &msg, esc, nil
}

type operation int

const (
	opPropose operation = iota
	opApprove
	opProposeOrApprove
)

// flowAction is the flow related content of a message.
type flowAction struct {
	op     operation
	flow   Flow
	kind   PayoutKind
	id     []byte
	signer escrowd.Address
	dist   []Payout
	nonce  uint64
}

func asFlowAction(msg escrowd.Msg) (*flowAction, error) {
	switch m := msg.(type) {
	case *ProposeReleaseMsg:
		return &flowAction{op: opPropose, flow: FlowRelease, kind: KindRelease, id: m.EscrowID, signer: m.Signer, dist: m.Distribution}, nil
	case *ApproveReleaseMsg:
		return &flowAction{op: opApprove, flow: FlowRelease, id: m.EscrowID, signer: m.Signer, nonce: m.Nonce}, nil
	case *ProposeRefundMsg:
		return &flowAction{op: opPropose, flow: FlowRefund, kind: KindRefund, id: m.EscrowID, signer: m.Signer, dist: m.Distribution}, nil
	case *ApproveRefundMsg:
		return &flowAction{op: opApprove, flow: FlowRefund, id: m.EscrowID, signer: m.Signer, nonce: m.Nonce}, nil
	case *ArbiterReleaseMsg:
		return &flowAction{op: opProposeOrApprove, flow: FlowArbiter, kind: KindRelease, id: m.EscrowID, signer: m.Signer, dist: m.Distribution}, nil
	case *ArbiterRefundMsg:
		return &flowAction{op: opProposeOrApprove, flow: FlowArbiter, kind: KindRefund, id: m.EscrowID, signer: m.Signer, dist: m.Distribution}, nil
	case *EmergencyReleaseMsg:
		return &flowAction{op: opProposeOrApprove, flow: FlowEmergency, kind: KindRelease, id: m.EscrowID, signer: m.Signer, dist: m.Distribution}, nil
	default:
		return nil, errors.Wrapf(errors.ErrMsg, "unsupported message %T", msg)
	}
}

// FlowHandler processes proposals and approvals of all flows.
type FlowHandler struct {
	auth     x.Authenticator
	executor Executor
}

var _ escrowd.Handler = FlowHandler{}

func (h FlowHandler) Check(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	act, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if _, err := LoadEscrow(db, act.id); err != nil {
		return nil, err
	}
	return &escrowd.CheckResult{GasAllocated: flowCost}, nil
}

func (h FlowHandler) Deliver(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	act, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	esc, err := LoadEscrow(db, act.id)
	if err != nil {
		return nil, err
	}

	engine := NewEngine(act.flow, h.executor)
	var exec *Execution
	switch act.op {
	case opPropose:
		exec, err = engine.Propose(db, esc, act.signer, act.kind, act.dist)
	case opApprove:
		exec, err = engine.Approve(db, esc, act.signer, act.nonce)
	case opProposeOrApprove:
		exec, err = engine.ProposeOrApprove(db, esc, act.signer, act.kind, act.dist)
	}
	if err != nil {
		return nil, err
	}

	log := info.Logger().With("escrow", FormatID(esc.ID), "flow", act.flow, "nonce", esc.Nonce)
	if exec == nil {
		log.Debug("approval recorded", "signer", act.signer)
		return &escrowd.DeliverResult{
			Log: fmt.Sprintf("%s flow: waiting for approvals", act.flow),
			Events: []abci.Event{{
				Type: "escrow",
				Attributes: []abci.EventAttribute{
					escrowd.EventAttr("action", "approve"),
					escrowd.EventAttr("escrow", FormatID(esc.ID)),
					escrowd.EventAttr("flow", act.flow.String()),
					escrowd.EventAttr("signer", act.signer.String()),
				},
			}},
		}, nil
	}
	log.Info("distribution executed", "kind", exec.Kind, "fee", exec.Fee, "closed", exec.Closed)
	return executionResult(esc, exec), nil
}

func (h FlowHandler) validate(ctx context.Context, tx escrowd.Tx) (*flowAction, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if msg == nil {
		return nil, errors.Wrap(errors.ErrMsg, "missing message")
	}
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}
	act, err := asFlowAction(msg)
	if err != nil {
		return nil, err
	}
	if !h.auth.HasAddress(ctx, act.signer) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "signer signature missing")
	}
	return act, nil
}

// TriggerHandler runs time triggered distributions. Anyone can send the
// trigger messages, the block time decides if they apply.
type TriggerHandler struct {
	executor Executor
}

var _ escrowd.Handler = TriggerHandler{}

func (h TriggerHandler) Check(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	if _, err := h.load(db, tx); err != nil {
		return nil, err
	}
	return &escrowd.CheckResult{GasAllocated: triggerCost}, nil
}

func (h TriggerHandler) Deliver(ctx context.Context, info escrowd.BlockInfo, db escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	esc, err := h.load(db, tx)
	if err != nil {
		return nil, err
	}
	msg, _ := tx.GetMsg()

	var exec *Execution
	switch msg.(type) {
	case *AutoReleaseMsg:
		exec, err = h.executor.AutoRelease(db, esc, info.UnixTime())
	case *RefundTimeoutMsg:
		exec, err = h.executor.RefundTimeout(db, esc, info.UnixTime())
	}
	if err != nil {
		return nil, err
	}
	info.Logger().Info("time triggered distribution executed",
		"escrow", FormatID(esc.ID), "flow", exec.Flow, "nonce", esc.Nonce, "closed", exec.Closed)
	return executionResult(esc, exec), nil
}

func (h TriggerHandler) load(db escrowd.KVStore, tx escrowd.Tx) (*Escrow, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	var id []byte
	switch m := msg.(type) {
	case *AutoReleaseMsg:
		id = m.EscrowID
	case *RefundTimeoutMsg:
		id = m.EscrowID
	default:
		return nil, errors.Wrapf(errors.ErrMsg, "unsupported message %T", msg)
	}
	if err := msg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid message")
	}
	return LoadEscrow(db, id)
}

// LoadEscrow returns the escrow with given identifier.
func LoadEscrow(db escrowd.ReadOnlyKVStore, id []byte) (*Escrow, error) {
	var esc Escrow
	if err := escrowBucket.One(db, id, &esc); err != nil {
		return nil, errors.Wrapf(err, "escrow %s", FormatID(id))
	}
	return &esc, nil
}

func executionResult(esc *Escrow, exec *Execution) *escrowd.DeliverResult {
	attrs := []abci.EventAttribute{
		escrowd.EventAttr("action", "execute"),
		escrowd.EventAttr("escrow", FormatID(esc.ID)),
		escrowd.EventAttr("flow", exec.Flow.String()),
		escrowd.EventAttr("kind", exec.Kind.String()),
		escrowd.EventAttr("nonce", strconv.FormatUint(exec.Nonce, 10)),
		escrowd.EventAttr("fee", exec.Fee.String()),
		escrowd.EventAttr("time_triggered", strconv.FormatBool(exec.TimeTriggered)),
		escrowd.EventAttr("closed", strconv.FormatBool(exec.Closed)),
	}
	for _, p := range exec.Payouts {
		attrs = append(attrs, escrowd.EventAttr("payout", fmt.Sprintf("%s:%s", p.Recipient, p.Amount)))
	}
	return &escrowd.DeliverResult{
		Data:   esc.ID,
		Log:    fmt.Sprintf("%s %s executed, balance %s", exec.Flow, exec.Kind, esc.Balance),
		Events: []abci.Event{{Type: "escrow", Attributes: attrs}},
	}
}
