package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/orm"
)

// Engine collects approvals for a single flow and hands the distribution
// to the executor once the flow's signer group reaches its threshold.
//
// All flows share the same rules and differ only by the signer group, the
// dispute state they require and the payout kinds they accept.
type Engine struct {
	flow     Flow
	executor Executor
}

// NewEngine returns an engine of given flow.
func NewEngine(flow Flow, executor Executor) Engine {
	return Engine{flow: flow, executor: executor}
}

// Flow returns the flow this engine manages.
func (e Engine) Flow() Flow {
	return e.flow
}

// Propose stores a new proposal of the flow, superseding the previous one,
// and counts it as the proposer's approval. A non nil execution is returned
// if the proposal alone reached the threshold.
func (e Engine) Propose(db escrowd.KVStore, esc *Escrow, signer escrowd.Address, kind PayoutKind, dist []Payout) (*Execution, error) {
	group, err := e.authorize(db, esc, signer)
	if err != nil {
		return nil, err
	}
	if err := e.checkDistribution(esc, kind, dist); err != nil {
		return nil, err
	}

	esc.Nonce++
	p := Proposal{
		Nonce:        esc.Nonce,
		Kind:         kind,
		Proposer:     signer,
		Distribution: dist,
	}
	approvals := ApprovalSet{Signers: []escrowd.Address{signer}}
	if int(group.Threshold) <= len(approvals.Signers) {
		// Nothing is stored, the proposal is consumed right away.
		if err := clearFlow(db, esc.ID, e.flow); err != nil {
			return nil, err
		}
		return e.executor.Execute(db, esc, e.flow, &p, false)
	}

	key := FlowKey(esc.ID, e.flow)
	if err := proposalBucket.Put(db, key, &p); err != nil {
		return nil, errors.Wrap(err, "save proposal")
	}
	if err := approvalBucket.Put(db, key, &approvals); err != nil {
		return nil, errors.Wrap(err, "save approvals")
	}
	if err := escrowBucket.Put(db, esc.ID, esc); err != nil {
		return nil, errors.Wrap(err, "save escrow")
	}
	return nil, nil
}

// Approve adds signer's approval to the live proposal of the flow. A non
// zero nonce must match the live proposal. Approving twice is a no-op.
func (e Engine) Approve(db escrowd.KVStore, esc *Escrow, signer escrowd.Address, nonce uint64) (*Execution, error) {
	group, err := e.authorize(db, esc, signer)
	if err != nil {
		return nil, err
	}
	p, err := e.LiveProposal(db, esc.ID)
	if err != nil {
		return nil, err
	}
	if nonce != 0 && nonce != p.Nonce {
		return nil, errors.Wrapf(ErrStaleProposal, "live proposal nonce is %d", p.Nonce)
	}

	key := FlowKey(esc.ID, e.flow)
	var approvals ApprovalSet
	if err := approvalBucket.One(db, key, &approvals); err != nil && !errors.ErrNotFound.Is(err) {
		return nil, errors.Wrap(err, "load approvals")
	}
	// The emergency group can change while a proposal is live.
	approvals.Retain(group)
	if !approvals.Add(signer) {
		return nil, nil
	}
	if len(approvals.Signers) < int(group.Threshold) {
		if err := approvalBucket.Put(db, key, &approvals); err != nil {
			return nil, errors.Wrap(err, "save approvals")
		}
		return nil, nil
	}

	if err := clearFlow(db, esc.ID, e.flow); err != nil {
		return nil, err
	}
	return e.executor.Execute(db, esc, e.flow, p, false)
}

// ProposeOrApprove approves the live proposal if it has the same kind and
// distribution. Otherwise a new proposal is made.
func (e Engine) ProposeOrApprove(db escrowd.KVStore, esc *Escrow, signer escrowd.Address, kind PayoutKind, dist []Payout) (*Execution, error) {
	p, err := e.LiveProposal(db, esc.ID)
	switch {
	case err == nil:
		if p.Kind == kind && sameDistribution(p.Distribution, dist) {
			return e.Approve(db, esc, signer, p.Nonce)
		}
	case !ErrNoProposal.Is(err):
		return nil, err
	}
	return e.Propose(db, esc, signer, kind, dist)
}

// LiveProposal returns the proposal of the flow waiting for approvals.
func (e Engine) LiveProposal(db escrowd.ReadOnlyKVStore, id []byte) (*Proposal, error) {
	var p Proposal
	switch err := proposalBucket.One(db, FlowKey(id, e.flow), &p); {
	case errors.ErrNotFound.Is(err):
		return nil, errors.Wrapf(ErrNoProposal, "%s flow", e.flow)
	case err != nil:
		return nil, errors.Wrap(err, "load proposal")
	}
	return &p, nil
}

// Group returns the signer group of the flow.
func (e Engine) Group(db escrowd.ReadOnlyKVStore, esc *Escrow) (SignerGroup, error) {
	switch e.flow {
	case FlowRelease:
		return esc.Release, nil
	case FlowRefund:
		return esc.Refund, nil
	case FlowArbiter:
		return esc.Arbiter, nil
	case FlowEmergency:
		conf, err := loadConf(db)
		if err != nil {
			return SignerGroup{}, err
		}
		return conf.EmergencyGroup(), nil
	default:
		return SignerGroup{}, errors.Wrapf(errors.ErrHuman, "unknown flow %d", e.flow)
	}
}

// authorize ensures the signer can act on the escrow within this flow.
func (e Engine) authorize(db escrowd.ReadOnlyKVStore, esc *Escrow, signer escrowd.Address) (SignerGroup, error) {
	group, err := e.Group(db, esc)
	if err != nil {
		return group, err
	}
	if !group.Has(signer) {
		return group, errors.Wrapf(ErrNotSigner, "%s is not in the %s group", signer, e.flow)
	}
	if esc.Closed {
		return group, errors.Wrap(ErrClosed, FormatID(esc.ID))
	}
	switch e.flow {
	case FlowRelease, FlowRefund:
		if esc.Disputed {
			return group, errors.Wrapf(ErrDisputed, "%s flow is suspended", e.flow)
		}
	case FlowArbiter:
		if !esc.Disputed {
			return group, errors.Wrap(ErrNotDisputed, "arbiter can act only on disputed escrow")
		}
	}
	return group, nil
}

// checkDistribution validates the distribution against the flow, the
// escrow parties and the current balance.
func (e Engine) checkDistribution(esc *Escrow, kind PayoutKind, dist []Payout) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	switch e.flow {
	case FlowRelease, FlowEmergency:
		if kind != KindRelease {
			return errors.Wrapf(errors.ErrInput, "%s flow cannot %s", e.flow, kind)
		}
	case FlowRefund:
		if kind != KindRefund {
			return errors.Wrapf(errors.ErrInput, "%s flow cannot %s", e.flow, kind)
		}
	}
	for i, p := range dist {
		switch {
		case e.flow == FlowEmergency:
			if !esc.IsParty(p.Recipient) {
				return errors.Wrapf(ErrBadPayee, "entry %d: %s is not a party", i, p.Recipient)
			}
		case kind == KindRelease:
			if !hasAddress(esc.Payees, p.Recipient) {
				return errors.Wrapf(ErrBadPayee, "entry %d: %s", i, p.Recipient)
			}
		case kind == KindRefund:
			if !hasAddress(esc.Payers, p.Recipient) {
				return errors.Wrapf(ErrBadPayer, "entry %d: %s", i, p.Recipient)
			}
		}
	}
	return checkTotal(esc, dist)
}

// checkTotal requires every entry to be positive and the sum not to exceed
// the escrow balance.
func checkTotal(esc *Escrow, dist []Payout) error {
	if len(dist) == 0 {
		return errors.Wrap(ErrBadTotal, "empty distribution")
	}
	for i, p := range dist {
		if !p.Amount.IsPositive() {
			return errors.Wrapf(ErrBadTotal, "entry %d: amount must be positive", i)
		}
	}
	total, err := distributionTotal(dist)
	if err != nil {
		return errors.Wrap(ErrBadTotal, err.Error())
	}
	if total.Cmp(esc.Balance) > 0 {
		return errors.Wrapf(ErrBadTotal, "%s exceeds balance %s", total, esc.Balance)
	}
	return nil
}

// clearFlow deletes the proposal and the approvals of the flow, if any.
func clearFlow(db escrowd.KVStore, id []byte, flow Flow) error {
	key := FlowKey(id, flow)
	for _, b := range [...]orm.ModelBucket{proposalBucket, approvalBucket} {
		if err := b.Delete(db, key); err != nil && !errors.ErrNotFound.Is(err) {
			return errors.Wrapf(err, "delete %s %s", b.Name(), flow)
		}
	}
	return nil
}
