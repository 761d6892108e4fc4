package escrow

import (
	"context"
	"testing"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/gconf"
	"github.com/iov-one/escrowd/store"
	"github.com/iov-one/escrowd/weavetest"
	"github.com/iov-one/escrowd/x/cash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRouter map[string]escrowd.Handler

func (r testRouter) Handle(m escrowd.Msg, h escrowd.Handler) {
	r[m.Path()] = h
}

// party is a named participant of the test escrow.
type party struct {
	cond escrowd.Condition
}

func (p party) addr() escrowd.Address {
	return p.cond.Address()
}

func newParty() party {
	return party{cond: weavetest.NewCondition()}
}

// scenario holds a single escrow together with its ledger, configuration and
// all parties involved.
type scenario struct {
	t      testing.TB
	db     store.CacheableKVStore
	router testRouter
	cash   cash.BaseController
	conf   Configuration

	payerA, payerB     party
	payeeP, payeeQ     party
	release1, release2 party
	refund1            party
	arbiter1, arbiter2 party
	admin1, admin2     party
	owner, collector   party
	id                 []byte
}

func newScenario(t testing.TB) *scenario {
	t.Helper()
	s := &scenario{
		t:         t,
		db:        store.MemStore(),
		router:    testRouter{},
		cash:      cash.NewController(),
		payerA:    newParty(),
		payerB:    newParty(),
		payeeP:    newParty(),
		payeeQ:    newParty(),
		release1:  newParty(),
		release2:  newParty(),
		refund1:   newParty(),
		arbiter1:  newParty(),
		arbiter2:  newParty(),
		admin1:    newParty(),
		admin2:    newParty(),
		owner:     newParty(),
		collector: newParty(),
	}
	RegisterRoutes(s.router, &weavetest.CtxAuth{Key: "auth"}, s.cash)

	s.conf = Configuration{
		Owner:              s.owner.addr(),
		FeeBps:             250,
		FeeCollector:       s.collector.addr(),
		EmergencyAdmins:    []escrowd.Address{s.admin1.addr(), s.admin2.addr()},
		EmergencyThreshold: 2,
	}
	require.NoError(t, gconf.Save(s.db, packageName, &s.conf))

	for _, p := range []party{s.payerA, s.payerB} {
		require.NoError(t, s.cash.CoinMint(s.db, p.addr(), coin.NewCoin(10000, "ESC")))
	}
	return s
}

// create stores a new escrow with a release threshold of 2, a refund
// threshold of 1 and an arbiter threshold of 2.
func (s *scenario) create(autoReleaseAt, expiresAt escrowd.UnixTime) {
	s.t.Helper()
	res, err := s.deliver(1000, s.payerA, &CreateEscrowMsg{
		Creator: s.payerA.addr(),
		Token:   "ESC",
		Payers:  []escrowd.Address{s.payerA.addr(), s.payerB.addr()},
		Payees:  []escrowd.Address{s.payeeP.addr(), s.payeeQ.addr()},
		Release: SignerGroup{
			Signers:   []escrowd.Address{s.release1.addr(), s.release2.addr()},
			Threshold: 2,
		},
		Refund: SignerGroup{
			Signers:   []escrowd.Address{s.refund1.addr()},
			Threshold: 1,
		},
		Arbiter: SignerGroup{
			Signers:   []escrowd.Address{s.arbiter1.addr(), s.arbiter2.addr()},
			Threshold: 2,
		},
		AutoReleaseAt: autoReleaseAt,
		ExpiresAt:     expiresAt,
	})
	require.NoError(s.t, err)
	s.id = res.Data
}

func (s *scenario) deposit(p party, amount int64) {
	s.t.Helper()
	_, err := s.deliver(1000, p, &DepositMsg{EscrowID: s.id, Payer: p.addr(), Amount: coin.NewAmount(amount)})
	require.NoError(s.t, err)
}

// deliver runs the message the same way the application does, inside a
// cache wrap that is discarded on failure.
func (s *scenario) deliver(now int64, signer party, msg escrowd.Msg) (*escrowd.DeliverResult, error) {
	s.t.Helper()
	h, ok := s.router[msg.Path()]
	require.True(s.t, ok, "no handler for %s", msg.Path())

	auth := &weavetest.CtxAuth{Key: "auth"}
	ctx := auth.SetConditions(context.Background(), signer.cond)
	info := weavetest.BlockInfo(s.t, 10, now)
	tx := &weavetest.Tx{Msg: msg}

	cache := s.db.CacheWrap()
	if _, err := h.Check(ctx, info, cache, tx); err != nil {
		cache.Discard()
		return nil, err
	}
	res, err := h.Deliver(ctx, info, cache, tx)
	if err != nil {
		cache.Discard()
		return nil, err
	}
	require.NoError(s.t, cache.Write())
	return res, nil
}

func (s *scenario) escrow() *Escrow {
	s.t.Helper()
	esc, err := LoadEscrow(s.db, s.id)
	require.NoError(s.t, err)
	require.NoError(s.t, esc.Validate())
	return esc
}

func (s *scenario) balance(addr escrowd.Address) int64 {
	s.t.Helper()
	coins, err := s.cash.Balance(s.db, addr)
	require.NoError(s.t, err)
	v, ok := coins.Get("ESC").Amount.Int64()
	require.True(s.t, ok)
	return v
}

// assertConserved ensures no funds were created or lost.
func (s *scenario) assertConserved() {
	s.t.Helper()
	var total int64
	for _, p := range []party{s.payerA, s.payerB, s.payeeP, s.payeeQ, s.collector} {
		total += s.balance(p.addr())
	}
	total += s.balance(Condition(s.id).Address())
	assert.Equal(s.t, int64(20000), total)

	esc := s.escrow()
	held := s.balance(esc.Address)
	b, _ := esc.Balance.Int64()
	assert.Equal(s.t, held, b, "escrow balance must match the escrow account")
}

func payouts(kv ...interface{}) []Payout {
	var res []Payout
	for i := 0; i < len(kv); i += 2 {
		res = append(res, Payout{
			Recipient: kv[i].(party).addr(),
			Amount:    coin.NewAmount(int64(kv[i+1].(int))),
		})
	}
	return res
}

func TestCreateEscrow(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)

	esc := s.escrow()
	assert.Equal(t, "1", FormatID(esc.ID))
	assert.True(t, esc.Balance.IsZero())
	assert.False(t, esc.Closed)

	// Sequence allocated identifiers never collide with client provided ones.
	id2, err := ParseID("2")
	require.NoError(t, err)
	msg := &CreateEscrowMsg{
		Creator:   s.payerA.addr(),
		ID:        id2,
		Token:     "ESC",
		Payers:    esc.Payers,
		Payees:    esc.Payees,
		Release:   esc.Release,
		Refund:    esc.Refund,
		Arbiter:   esc.Arbiter,
		ExpiresAt: 2000,
	}
	_, err = s.deliver(1000, s.payerA, msg)
	require.NoError(t, err)
	_, err = s.deliver(1000, s.payerA, msg)
	require.True(t, errors.ErrDuplicate.Is(err), "%+v", err)

	msg.ID = nil
	res, err := s.deliver(1000, s.payerA, msg)
	require.NoError(t, err)
	assert.Equal(t, "3", FormatID(res.Data))

	msg.ExpiresAt = 1000
	_, err = s.deliver(1000, s.payerA, msg)
	require.True(t, errors.ErrExpired.Is(err), "%+v", err)

	msg.ExpiresAt = 2000
	_, err = s.deliver(1000, s.payerB, msg)
	require.True(t, errors.ErrUnauthorized.Is(err), "%+v", err)

	msg.Release.Threshold = 5
	_, err = s.deliver(1000, s.payerA, msg)
	require.True(t, errors.ErrInput.Is(err), "%+v", err)
}

func TestDeposit(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)

	s.deposit(s.payerA, 100)
	s.deposit(s.payerB, 50)
	s.deposit(s.payerA, 200)

	esc := s.escrow()
	assert.True(t, esc.Balance.Equals(coin.NewAmount(350)))
	require.Len(t, esc.Deposits, 2)
	assert.True(t, esc.Deposits[0].Payer.Equals(s.payerA.addr()))
	assert.True(t, esc.Deposits[0].Amount.Equals(coin.NewAmount(300)))
	assert.True(t, esc.Deposits[1].Amount.Equals(coin.NewAmount(50)))
	s.assertConserved()

	cases := map[string]struct {
		signer  party
		msg     *DepositMsg
		wantErr *errors.Error
	}{
		"not a payer": {
			signer:  s.payeeP,
			msg:     &DepositMsg{EscrowID: s.id, Payer: s.payeeP.addr(), Amount: coin.NewAmount(1)},
			wantErr: ErrBadPayer,
		},
		"not signed by the payer": {
			signer:  s.payerB,
			msg:     &DepositMsg{EscrowID: s.id, Payer: s.payerA.addr(), Amount: coin.NewAmount(1)},
			wantErr: errors.ErrUnauthorized,
		},
		"zero amount": {
			signer:  s.payerA,
			msg:     &DepositMsg{EscrowID: s.id, Payer: s.payerA.addr(), Amount: coin.NewAmount(0)},
			wantErr: errors.ErrAmount,
		},
		"insufficient funds": {
			signer:  s.payerA,
			msg:     &DepositMsg{EscrowID: s.id, Payer: s.payerA.addr(), Amount: coin.NewAmount(1000000)},
			wantErr: errors.ErrInsufficientAmount,
		},
		"unknown escrow": {
			signer:  s.payerA,
			msg:     &DepositMsg{EscrowID: make([]byte, IDLength), Payer: s.payerA.addr(), Amount: coin.NewAmount(1)},
			wantErr: errors.ErrNotFound,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.deliver(1000, tc.signer, tc.msg)
			require.True(t, tc.wantErr.Is(err), "%+v", err)
			s.assertConserved()
		})
	}
}

func TestReleaseWithQuorum(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 400)

	dist := payouts(s.payeeP, 300, s.payeeQ, 100)
	_, err := s.deliver(1100, s.release1, &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: dist})
	require.NoError(t, err)

	esc := s.escrow()
	assert.Equal(t, uint64(1), esc.Nonce)
	assert.True(t, esc.Balance.Equals(coin.NewAmount(400)), "below threshold nothing moves")

	// Approving twice by the proposer does not count.
	_, err = s.deliver(1100, s.release1, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Nonce: 1})
	require.NoError(t, err)
	assert.True(t, s.escrow().Balance.Equals(coin.NewAmount(400)))

	// Outsiders cannot approve.
	_, err = s.deliver(1100, s.arbiter1, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.arbiter1.addr()})
	require.True(t, ErrNotSigner.Is(err), "%+v", err)

	// A stale nonce is rejected.
	_, err = s.deliver(1100, s.release2, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release2.addr(), Nonce: 7})
	require.True(t, ErrStaleProposal.Is(err), "%+v", err)

	res, err := s.deliver(1100, s.release2, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release2.addr(), Nonce: 1})
	require.NoError(t, err)
	assert.Equal(t, s.id, res.Data)

	assert.Equal(t, int64(293), s.balance(s.payeeP.addr()))
	assert.Equal(t, int64(98), s.balance(s.payeeQ.addr()))
	assert.Equal(t, int64(9), s.balance(s.collector.addr()))
	esc = s.escrow()
	assert.True(t, esc.Balance.IsZero())
	assert.True(t, esc.Closed)
	s.assertConserved()

	// The proposal was consumed, approving again cannot execute twice.
	_, err = s.deliver(1100, s.release1, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release1.addr()})
	require.True(t, ErrClosed.Is(err), "%+v", err)
}

func TestPartialReleaseKeepsEscrowOpen(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 1000)

	dist := payouts(s.payeeP, 100)
	_, err := s.deliver(1100, s.release1, &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: dist})
	require.NoError(t, err)
	_, err = s.deliver(1100, s.release2, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release2.addr()})
	require.NoError(t, err)

	esc := s.escrow()
	assert.True(t, esc.Balance.Equals(coin.NewAmount(900)))
	assert.False(t, esc.Closed)
	s.assertConserved()

	// With no live proposal an approval has nothing to act on.
	_, err = s.deliver(1100, s.release2, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release2.addr()})
	require.True(t, ErrNoProposal.Is(err), "%+v", err)
}

func TestProposalValidation(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 400)

	cases := map[string]struct {
		signer  party
		msg     escrowd.Msg
		wantErr *errors.Error
	}{
		"release to a payer": {
			signer:  s.release1,
			msg:     &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payerA, 10)},
			wantErr: ErrBadPayee,
		},
		"refund to a payee": {
			signer:  s.refund1,
			msg:     &ProposeRefundMsg{EscrowID: s.id, Signer: s.refund1.addr(), Distribution: payouts(s.payeeP, 10)},
			wantErr: ErrBadPayer,
		},
		"total above balance": {
			signer:  s.release1,
			msg:     &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payeeP, 300, s.payeeQ, 101)},
			wantErr: ErrBadTotal,
		},
		"zero entry": {
			signer:  s.release1,
			msg:     &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payeeP, 0)},
			wantErr: errors.ErrAmount,
		},
		"empty distribution": {
			signer:  s.release1,
			msg:     &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr()},
			wantErr: errors.ErrEmpty,
		},
		"refund signer proposing release": {
			signer:  s.refund1,
			msg:     &ProposeReleaseMsg{EscrowID: s.id, Signer: s.refund1.addr(), Distribution: payouts(s.payeeP, 10)},
			wantErr: ErrNotSigner,
		},
		"arbiter before dispute": {
			signer:  s.arbiter1,
			msg:     &ArbiterReleaseMsg{EscrowID: s.id, Signer: s.arbiter1.addr(), Distribution: payouts(s.payeeP, 10)},
			wantErr: ErrNotDisputed,
		},
		"signer does not sign": {
			signer:  s.release2,
			msg:     &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payeeP, 10)},
			wantErr: errors.ErrUnauthorized,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.deliver(1100, tc.signer, tc.msg)
			require.True(t, tc.wantErr.Is(err), "%+v", err)
			esc := s.escrow()
			assert.Equal(t, uint64(0), esc.Nonce, "rejected calls must not modify the escrow")
			assert.True(t, esc.Balance.Equals(coin.NewAmount(400)))
		})
	}
}

func TestRefundSingleSigner(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 400)
	s.deposit(s.payerB, 100)

	// Refund group threshold is one, proposing executes right away and no
	// fee is charged.
	dist := payouts(s.payerA, 400, s.payerB, 100)
	_, err := s.deliver(1100, s.refund1, &ProposeRefundMsg{EscrowID: s.id, Signer: s.refund1.addr(), Distribution: dist})
	require.NoError(t, err)

	assert.Equal(t, int64(10000), s.balance(s.payerA.addr()))
	assert.Equal(t, int64(10000), s.balance(s.payerB.addr()))
	assert.Equal(t, int64(0), s.balance(s.collector.addr()))
	assert.True(t, s.escrow().Closed)
	s.assertConserved()
}

func TestNewProposalSupersedesOld(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 400)

	_, err := s.deliver(1100, s.release1, &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payeeP, 400)})
	require.NoError(t, err)
	_, err = s.deliver(1100, s.release2, &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release2.addr(), Distribution: payouts(s.payeeQ, 100)})
	require.NoError(t, err)

	// The first proposal approval is gone together with its proposal.
	_, err = s.deliver(1100, s.release2, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release2.addr(), Nonce: 1})
	require.True(t, ErrStaleProposal.Is(err), "%+v", err)

	_, err = s.deliver(1100, s.release1, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Nonce: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.balance(s.payeeP.addr()))
	assert.Equal(t, int64(98), s.balance(s.payeeQ.addr()))
	s.assertConserved()
}

func TestDisputeAndArbitration(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 500)

	_, err := s.deliver(1100, s.release1, &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payeeP, 500)})
	require.NoError(t, err)

	_, err = s.deliver(1100, s.release1, &OpenDisputeMsg{EscrowID: s.id, Actor: s.release1.addr()})
	require.True(t, ErrNotSigner.Is(err), "only parties can dispute: %+v", err)

	_, err = s.deliver(1100, s.payeeQ, &OpenDisputeMsg{EscrowID: s.id, Actor: s.payeeQ.addr()})
	require.NoError(t, err)
	assert.True(t, s.escrow().Disputed)

	_, err = s.deliver(1100, s.payerA, &OpenDisputeMsg{EscrowID: s.id, Actor: s.payerA.addr()})
	require.True(t, ErrDisputed.Is(err), "%+v", err)

	// Release and refund flows are suspended.
	_, err = s.deliver(1100, s.release2, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release2.addr()})
	require.True(t, ErrDisputed.Is(err), "%+v", err)
	_, err = s.deliver(1100, s.refund1, &ProposeRefundMsg{EscrowID: s.id, Signer: s.refund1.addr(), Distribution: payouts(s.payerA, 500)})
	require.True(t, ErrDisputed.Is(err), "%+v", err)

	// Deposits are still accepted.
	s.deposit(s.payerB, 100)

	// A different arbiter call replaces the live proposal, an identical one
	// approves it.
	_, err = s.deliver(1100, s.arbiter1, &ArbiterReleaseMsg{EscrowID: s.id, Signer: s.arbiter1.addr(), Distribution: payouts(s.payeeP, 500)})
	require.NoError(t, err)
	split := payouts(s.payeeP, 250, s.payeeQ, 250)
	_, err = s.deliver(1100, s.arbiter2, &ArbiterReleaseMsg{EscrowID: s.id, Signer: s.arbiter2.addr(), Distribution: split})
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.balance(s.payeeP.addr()))
	_, err = s.deliver(1100, s.arbiter1, &ArbiterReleaseMsg{EscrowID: s.id, Signer: s.arbiter1.addr(), Distribution: split})
	require.NoError(t, err)

	assert.Equal(t, int64(244), s.balance(s.payeeP.addr()))
	assert.Equal(t, int64(244), s.balance(s.payeeQ.addr()))
	assert.Equal(t, int64(12), s.balance(s.collector.addr()))
	esc := s.escrow()
	assert.True(t, esc.Balance.Equals(coin.NewAmount(100)))
	assert.True(t, esc.Disputed)
	s.assertConserved()

	refund := payouts(s.payerB, 100)
	_, err = s.deliver(1100, s.arbiter2, &ArbiterRefundMsg{EscrowID: s.id, Signer: s.arbiter2.addr(), Distribution: refund})
	require.NoError(t, err)
	_, err = s.deliver(1100, s.arbiter1, &ArbiterRefundMsg{EscrowID: s.id, Signer: s.arbiter1.addr(), Distribution: refund})
	require.NoError(t, err)

	esc = s.escrow()
	assert.True(t, esc.Closed)
	assert.False(t, esc.Disputed, "closing resolves the dispute")
	assert.Equal(t, int64(10000), s.balance(s.payerB.addr()))
	s.assertConserved()

	// Closing drops every live proposal.
	err = proposalBucket.Has(s.db, FlowKey(s.id, FlowRelease))
	require.True(t, errors.ErrNotFound.Is(err), "%+v", err)
	err = approvalBucket.Has(s.db, FlowKey(s.id, FlowRelease))
	require.True(t, errors.ErrNotFound.Is(err), "%+v", err)
}

func TestEmergencyRelease(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 100)

	_, err := s.deliver(1100, s.payerA, &OpenDisputeMsg{EscrowID: s.id, Actor: s.payerA.addr()})
	require.NoError(t, err)

	dist := payouts(s.payerA, 100)
	_, err = s.deliver(1100, s.release1, &EmergencyReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: dist})
	require.True(t, ErrNotSigner.Is(err), "%+v", err)

	_, err = s.deliver(1100, s.admin1, &EmergencyReleaseMsg{EscrowID: s.id, Signer: s.admin1.addr(), Distribution: dist})
	require.NoError(t, err)
	// Repeating the same call is an idempotent approval.
	_, err = s.deliver(1100, s.admin1, &EmergencyReleaseMsg{EscrowID: s.id, Signer: s.admin1.addr(), Distribution: dist})
	require.NoError(t, err)
	assert.True(t, s.escrow().Balance.Equals(coin.NewAmount(100)))

	_, err = s.deliver(1100, s.admin2, &EmergencyReleaseMsg{EscrowID: s.id, Signer: s.admin2.addr(), Distribution: dist})
	require.NoError(t, err)

	assert.Equal(t, int64(9998), s.balance(s.payerA.addr()))
	assert.Equal(t, int64(2), s.balance(s.collector.addr()))
	esc := s.escrow()
	assert.True(t, esc.Closed)
	assert.False(t, esc.Disputed)
	s.assertConserved()

	_, err = s.deliver(1100, s.payerA, &DepositMsg{EscrowID: s.id, Payer: s.payerA.addr(), Amount: coin.NewAmount(1)})
	require.True(t, ErrClosed.Is(err), "%+v", err)
	_, err = s.deliver(1100, s.payerA, &OpenDisputeMsg{EscrowID: s.id, Actor: s.payerA.addr()})
	require.True(t, ErrClosed.Is(err), "%+v", err)
}

func TestEmergencyRecipientsMustBeParties(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 100)

	_, err := s.deliver(1100, s.admin1, &EmergencyReleaseMsg{EscrowID: s.id, Signer: s.admin1.addr(), Distribution: payouts(s.admin1, 100)})
	require.True(t, ErrBadPayee.Is(err), "%+v", err)
}

func TestEmergencyApprovalsOfRemovedAdmins(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 100)
	admin3 := newParty()

	dist := payouts(s.payeeP, 100)
	_, err := s.deliver(1100, s.admin1, &EmergencyReleaseMsg{EscrowID: s.id, Signer: s.admin1.addr(), Distribution: dist})
	require.NoError(t, err)

	_, err = s.deliver(1100, s.owner, &UpdateConfigurationMsg{Patch: &Configuration{
		EmergencyAdmins: []escrowd.Address{s.admin2.addr(), admin3.addr()},
	}})
	require.NoError(t, err)

	// admin1 is gone, a single approval of the new group is not enough.
	_, err = s.deliver(1100, s.admin2, &EmergencyReleaseMsg{EscrowID: s.id, Signer: s.admin2.addr(), Distribution: dist})
	require.NoError(t, err)
	esc := s.escrow()
	assert.True(t, esc.Balance.Equals(coin.NewAmount(100)))
	assert.False(t, esc.Closed)
	assert.Equal(t, int64(0), s.balance(s.payeeP.addr()))

	var approvals ApprovalSet
	require.NoError(t, approvalBucket.One(s.db, FlowKey(s.id, FlowEmergency), &approvals))
	assert.Equal(t, []escrowd.Address{s.admin2.addr()}, approvals.Signers)

	_, err = s.deliver(1100, s.admin1, &EmergencyReleaseMsg{EscrowID: s.id, Signer: s.admin1.addr(), Distribution: dist})
	require.True(t, ErrNotSigner.Is(err), "%+v", err)

	_, err = s.deliver(1100, admin3, &EmergencyReleaseMsg{EscrowID: s.id, Signer: admin3.addr(), Distribution: dist})
	require.NoError(t, err)
	assert.Equal(t, int64(98), s.balance(s.payeeP.addr()))
	assert.True(t, s.escrow().Closed)
	s.assertConserved()
}

func TestApprovalRevalidatedAgainstBalance(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 400)

	_, err := s.deliver(1100, s.release1, &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payeeP, 300, s.payeeQ, 100)})
	require.NoError(t, err)

	// The refund runs between the proposal and its last approval.
	_, err = s.deliver(1100, s.refund1, &ProposeRefundMsg{EscrowID: s.id, Signer: s.refund1.addr(), Distribution: payouts(s.payerA, 300)})
	require.NoError(t, err)
	before := s.escrow()
	assert.True(t, before.Balance.Equals(coin.NewAmount(100)))

	_, err = s.deliver(1100, s.release2, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release2.addr(), Nonce: 1})
	require.True(t, ErrBadTotal.Is(err), "%+v", err)

	after := s.escrow()
	assert.Equal(t, before, after)
	assert.Equal(t, int64(0), s.balance(s.payeeP.addr()))
	assert.Equal(t, int64(0), s.balance(s.payeeQ.addr()))
	assert.Equal(t, int64(0), s.balance(s.collector.addr()))

	// The proposal and its approvals are left untouched.
	p, err := NewEngine(FlowRelease, NewExecutor(s.cash)).LiveProposal(s.db, s.id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Nonce)
	var approvals ApprovalSet
	require.NoError(t, approvalBucket.One(s.db, FlowKey(s.id, FlowRelease), &approvals))
	assert.Equal(t, []escrowd.Address{s.release1.addr()}, approvals.Signers)
	s.assertConserved()
}

func TestRefundTimeout(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 600)

	_, err := s.deliver(1999, s.payeeP, &RefundTimeoutMsg{EscrowID: s.id})
	require.True(t, ErrTooEarly.Is(err), "%+v", err)
	assert.False(t, s.escrow().Closed)

	res, err := s.deliver(2000, s.payeeP, &RefundTimeoutMsg{EscrowID: s.id})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Events)

	assert.Equal(t, int64(10000), s.balance(s.payerA.addr()))
	assert.Equal(t, int64(0), s.balance(s.collector.addr()))
	esc := s.escrow()
	assert.True(t, esc.Closed)
	assert.True(t, esc.Balance.IsZero())
	s.assertConserved()

	_, err = s.deliver(2001, s.payeeP, &RefundTimeoutMsg{EscrowID: s.id})
	require.True(t, ErrClosed.Is(err), "%+v", err)
}

func TestRefundTimeoutAfterPartialRelease(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 300)
	s.deposit(s.payerB, 300)

	_, err := s.deliver(1100, s.release1, &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payeeP, 400)})
	require.NoError(t, err)
	_, err = s.deliver(1100, s.release2, &ApproveReleaseMsg{EscrowID: s.id, Signer: s.release2.addr()})
	require.NoError(t, err)

	// 200 left, refunded in deposit order and capped by the balance.
	_, err = s.deliver(3000, s.payerB, &RefundTimeoutMsg{EscrowID: s.id})
	require.NoError(t, err)
	assert.Equal(t, int64(9900), s.balance(s.payerA.addr()))
	assert.Equal(t, int64(9700), s.balance(s.payerB.addr()))
	assert.True(t, s.escrow().Closed)
	s.assertConserved()
}

func TestRefundTimeoutOfEmptyEscrow(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)

	_, err := s.deliver(2000, s.payeeP, &RefundTimeoutMsg{EscrowID: s.id})
	require.NoError(t, err)
	assert.True(t, s.escrow().Closed)
}

func TestAutoRelease(t *testing.T) {
	cases := map[string]struct {
		deposit int64
		wantP   int64
		wantQ   int64
	}{
		"even split": {
			deposit: 1000,
			wantP:   488,
			wantQ:   488,
		},
		"remainder to first payee": {
			deposit: 1001,
			wantP:   489,
			wantQ:   488,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := newScenario(t)
			s.create(1500, 2000)
			s.deposit(s.payerA, tc.deposit)

			_, err := s.deliver(1100, s.release1, &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payeeP, 1)})
			require.NoError(t, err)

			_, err = s.deliver(1499, s.payeeP, &AutoReleaseMsg{EscrowID: s.id})
			require.True(t, ErrTooEarly.Is(err), "%+v", err)

			_, err = s.deliver(1500, s.payeeP, &AutoReleaseMsg{EscrowID: s.id})
			require.NoError(t, err)

			assert.Equal(t, tc.wantP, s.balance(s.payeeP.addr()))
			assert.Equal(t, tc.wantQ, s.balance(s.payeeQ.addr()))
			esc := s.escrow()
			assert.True(t, esc.Closed)
			assert.Equal(t, uint64(2), esc.Nonce, "auto release is a proposal of its own")
			s.assertConserved()

			err = proposalBucket.Has(s.db, FlowKey(s.id, FlowRelease))
			require.True(t, errors.ErrNotFound.Is(err), "%+v", err)
		})
	}
}

func TestAutoReleaseRequiresConfiguration(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 10)

	_, err := s.deliver(5000, s.payeeP, &AutoReleaseMsg{EscrowID: s.id})
	require.True(t, errors.ErrState.Is(err), "%+v", err)
}

func TestTimeTriggersSuspendedByDispute(t *testing.T) {
	s := newScenario(t)
	s.create(1500, 2000)
	s.deposit(s.payerA, 10)
	_, err := s.deliver(1100, s.payeeP, &OpenDisputeMsg{EscrowID: s.id, Actor: s.payeeP.addr()})
	require.NoError(t, err)

	_, err = s.deliver(5000, s.payeeP, &AutoReleaseMsg{EscrowID: s.id})
	require.True(t, ErrDisputed.Is(err), "%+v", err)
	_, err = s.deliver(5000, s.payeeP, &RefundTimeoutMsg{EscrowID: s.id})
	require.True(t, ErrDisputed.Is(err), "%+v", err)
}

func TestUpdateConfiguration(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 100)

	_, err := s.deliver(1100, s.payerA, &UpdateConfigurationMsg{Patch: &Configuration{FeeBps: 1000}})
	require.True(t, errors.ErrUnauthorized.Is(err), "%+v", err)

	_, err = s.deliver(1100, s.owner, &UpdateConfigurationMsg{Patch: &Configuration{FeeBps: 10001}})
	require.True(t, errors.ErrInput.Is(err), "%+v", err)

	_, err = s.deliver(1100, s.owner, &UpdateConfigurationMsg{Patch: &Configuration{}, Reset: []string{"FeeBps"}})
	require.NoError(t, err)

	conf, err := loadConf(s.db)
	require.NoError(t, err)
	assert.Equal(t, int32(0), conf.FeeBps)
	assert.Equal(t, int32(2), conf.EmergencyThreshold)

	_, err = s.deliver(1100, s.refund1, &ProposeRefundMsg{EscrowID: s.id, Signer: s.refund1.addr(), Distribution: payouts(s.payerA, 100)})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), s.balance(s.payerA.addr()))
}

func TestQueries(t *testing.T) {
	s := newScenario(t)
	s.create(0, 2000)
	s.deposit(s.payerA, 100)
	_, err := s.deliver(1100, s.release1, &ProposeReleaseMsg{EscrowID: s.id, Signer: s.release1.addr(), Distribution: payouts(s.payeeP, 100)})
	require.NoError(t, err)

	qr := escrowd.NewQueryRouter()
	RegisterQuery(qr)

	res, err := qr.Handler("/escrows").Query(s.db, "", s.id)
	require.NoError(t, err)
	require.Len(t, res, 1)
	var esc Escrow
	require.NoError(t, esc.Unmarshal(res[0].Value))
	assert.True(t, esc.Balance.Equals(coin.NewAmount(100)))

	res, err = qr.Handler("/escrows/proposals").Query(s.db, "", FlowKey(s.id, FlowRelease))
	require.NoError(t, err)
	require.Len(t, res, 1)
	var p Proposal
	require.NoError(t, p.Unmarshal(res[0].Value))
	assert.Equal(t, uint64(1), p.Nonce)
	assert.True(t, p.Proposer.Equals(s.release1.addr()))

	res, err = qr.Handler("/escrows/approvals").Query(s.db, escrowd.PrefixQueryMod, s.id)
	require.NoError(t, err)
	require.Len(t, res, 1)

	res, err = qr.Handler("/gconf/escrow").Query(s.db, "", nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	var conf Configuration
	require.NoError(t, conf.Unmarshal(res[0].Value))
	assert.Equal(t, int32(250), conf.FeeBps)
}
