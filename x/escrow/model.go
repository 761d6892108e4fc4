package escrow

import (
	"math/big"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/orm"
)

// IDLength is the length of the binary escrow identifier, an unsigned 128
// bit integer in big endian order.
const IDLength = 16

// Flow identifies one of the approval groups that can distribute funds.
type Flow int32

const (
	FlowRelease Flow = iota + 1
	FlowRefund
	FlowArbiter
	FlowEmergency
)

var flowNames = map[Flow]string{
	FlowRelease:   "release",
	FlowRefund:    "refund",
	FlowArbiter:   "arbiter",
	FlowEmergency: "emergency",
}

func (f Flow) String() string {
	if n, ok := flowNames[f]; ok {
		return n
	}
	return "unknown"
}

func (f Flow) Validate() error {
	if _, ok := flowNames[f]; !ok {
		return errors.Wrapf(errors.ErrInput, "unknown flow %d", f)
	}
	return nil
}

// PayoutKind declares who can receive a distribution and if it is charged
// a fee.
type PayoutKind int32

const (
	// KindRelease pays payees, a fee is charged.
	KindRelease PayoutKind = iota + 1
	// KindRefund pays payers back, no fee is charged.
	KindRefund
)

func (k PayoutKind) String() string {
	switch k {
	case KindRelease:
		return "release"
	case KindRefund:
		return "refund"
	default:
		return "unknown"
	}
}

func (k PayoutKind) Validate() error {
	if k != KindRelease && k != KindRefund {
		return errors.Wrapf(errors.ErrInput, "unknown payout kind %d", k)
	}
	return nil
}

// SignerGroup is a set of addresses together with the number of approvals
// required to act.
type SignerGroup struct {
	Signers   []escrowd.Address `json:"signers"`
	Threshold int32             `json:"threshold"`
}

func (g SignerGroup) Validate() error {
	var errs error
	if len(g.Signers) == 0 {
		errs = errors.AppendField(errs, "Signers", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Signers", validateAddresses(g.Signers))
	if g.Threshold < 1 || int(g.Threshold) > len(g.Signers) {
		errs = errors.AppendField(errs, "Threshold",
			errors.Wrapf(errors.ErrInput, "must be within 1 and %d", len(g.Signers)))
	}
	return errs
}

// Has returns true if given address belongs to the group.
func (g SignerGroup) Has(addr escrowd.Address) bool {
	return hasAddress(g.Signers, addr)
}

// Payout is a single distribution entry.
type Payout struct {
	Recipient escrowd.Address `json:"recipient"`
	Amount    coin.Amount     `json:"amount"`
}

// Deposit is the cumulative amount deposited by a single payer.
type Deposit struct {
	Payer  escrowd.Address `json:"payer"`
	Amount coin.Amount     `json:"amount"`
}

// Escrow holds funds of payers until they are distributed.
type Escrow struct {
	ID            []byte            `json:"id"`
	Token         string            `json:"token"`
	Payers        []escrowd.Address `json:"payers"`
	Payees        []escrowd.Address `json:"payees"`
	Release       SignerGroup       `json:"release"`
	Refund        SignerGroup       `json:"refund"`
	Arbiter       SignerGroup       `json:"arbiter"`
	AutoReleaseAt escrowd.UnixTime  `json:"auto_release_at,omitempty"`
	ExpiresAt     escrowd.UnixTime  `json:"expires_at"`
	Disputed      bool              `json:"disputed"`
	Closed        bool              `json:"closed"`
	Balance       coin.Amount       `json:"balance"`
	Deposits      []Deposit         `json:"deposits"`
	Nonce         uint64            `json:"nonce"`
	Address       escrowd.Address   `json:"address"`
}

var _ orm.Model = (*Escrow)(nil)

func (e *Escrow) Marshal() ([]byte, error) {
	return codec.Marshal(e)
}

func (e *Escrow) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, e)
}

func (e *Escrow) Validate() error {
	var errs error
	if len(e.ID) != IDLength {
		errs = errors.AppendField(errs, "ID", errors.Wrapf(errors.ErrInput, "must be %d bytes", IDLength))
	}
	if !coin.IsCC(e.Token) {
		errs = errors.AppendField(errs, "Token", errors.Wrapf(errors.ErrCurrency, "invalid ticker %q", e.Token))
	}
	errs = errors.AppendField(errs, "Payers", validateParties(e.Payers))
	errs = errors.AppendField(errs, "Payees", validateParties(e.Payees))
	errs = errors.AppendField(errs, "Release", e.Release.Validate())
	errs = errors.AppendField(errs, "Refund", e.Refund.Validate())
	errs = errors.AppendField(errs, "Arbiter", e.Arbiter.Validate())
	if e.ExpiresAt == 0 {
		errs = errors.AppendField(errs, "ExpiresAt", errors.ErrEmpty)
	} else {
		errs = errors.AppendField(errs, "ExpiresAt", e.ExpiresAt.Validate())
	}
	if e.AutoReleaseAt != 0 {
		errs = errors.AppendField(errs, "AutoReleaseAt", e.AutoReleaseAt.Validate())
	}
	if e.Balance.IsNegative() {
		errs = errors.AppendField(errs, "Balance", errors.Wrap(errors.ErrAmount, "negative"))
	}
	for i, d := range e.Deposits {
		if !hasAddress(e.Payers, d.Payer) {
			errs = errors.Append(errs, errors.Field("Deposits", ErrBadPayer, "entry %d", i))
		}
		if !d.Amount.IsPositive() {
			errs = errors.Append(errs, errors.Field("Deposits", errors.ErrAmount, "entry %d", i))
		}
	}
	if e.Closed && e.Disputed {
		errs = errors.AppendField(errs, "Disputed", errors.Wrap(errors.ErrState, "closed escrow cannot be disputed"))
	}
	if !e.Address.Equals(Condition(e.ID).Address()) {
		errs = errors.AppendField(errs, "Address", errors.Wrap(errors.ErrInput, "does not match the identifier"))
	}
	return errs
}

// IsParty returns true if given address is a payer or a payee.
func (e *Escrow) IsParty(addr escrowd.Address) bool {
	return hasAddress(e.Payers, addr) || hasAddress(e.Payees, addr)
}

// Condition calculates the condition owning the funds of an escrow with
// given identifier.
func Condition(id []byte) escrowd.Condition {
	return escrowd.NewCondition("escrow", "seq", id)
}

// ParseID converts a decimal representation of an unsigned 128 bit integer
// into an escrow identifier.
func ParseID(s string) ([]byte, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > IDLength*8 {
		return nil, errors.Wrapf(errors.ErrInput, "invalid escrow id %q", s)
	}
	return v.FillBytes(make([]byte, IDLength)), nil
}

// FormatID returns the decimal representation of an escrow identifier.
func FormatID(id []byte) string {
	return new(big.Int).SetBytes(id).String()
}

// Proposal is the distribution proposed for a flow, waiting for approvals.
type Proposal struct {
	Nonce        uint64          `json:"nonce"`
	Kind         PayoutKind      `json:"kind"`
	Proposer     escrowd.Address `json:"proposer"`
	Distribution []Payout        `json:"distribution"`
}

var _ orm.Model = (*Proposal)(nil)

func (p *Proposal) Marshal() ([]byte, error) {
	return codec.Marshal(p)
}

func (p *Proposal) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, p)
}

func (p *Proposal) Validate() error {
	var errs error
	if p.Nonce == 0 {
		errs = errors.AppendField(errs, "Nonce", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "Kind", p.Kind.Validate())
	errs = errors.AppendField(errs, "Proposer", p.Proposer.Validate())
	errs = errors.AppendField(errs, "Distribution", validateDistribution(p.Distribution))
	return errs
}

// ApprovalSet is the ordered set of signers that approved the live proposal
// of a flow.
type ApprovalSet struct {
	Signers []escrowd.Address `json:"signers"`
}

var _ orm.Model = (*ApprovalSet)(nil)

func (a *ApprovalSet) Marshal() ([]byte, error) {
	return codec.Marshal(a)
}

func (a *ApprovalSet) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, a)
}

func (a *ApprovalSet) Validate() error {
	return errors.Field("Signers", validateAddresses(a.Signers), "")
}

// Add inserts the signer unless already present. It returns true if the
// set was modified.
func (a *ApprovalSet) Add(signer escrowd.Address) bool {
	if hasAddress(a.Signers, signer) {
		return false
	}
	a.Signers = append(a.Signers, signer)
	return true
}

// Retain drops every signer that is no longer a member of the group.
func (a *ApprovalSet) Retain(g SignerGroup) {
	kept := a.Signers[:0]
	for _, s := range a.Signers {
		if g.Has(s) {
			kept = append(kept, s)
		}
	}
	a.Signers = kept
}

// NewEscrowBucket returns the bucket storing escrows by their identifier.
func NewEscrowBucket() orm.ModelBucket {
	return orm.NewModelBucket("esc")
}

// NewProposalBucket returns the bucket storing live proposals by
// FlowKey.
func NewProposalBucket() orm.ModelBucket {
	return orm.NewModelBucket("escprop")
}

// NewApprovalBucket returns the bucket storing approval sets by FlowKey.
func NewApprovalBucket() orm.ModelBucket {
	return orm.NewModelBucket("escappr")
}

// FlowKey returns the key of the proposal and approval set of given flow.
func FlowKey(id []byte, flow Flow) []byte {
	key := make([]byte, 0, len(id)+1)
	key = append(key, id...)
	return append(key, byte(flow))
}

var (
	escrowBucket   = NewEscrowBucket()
	proposalBucket = NewProposalBucket()
	approvalBucket = NewApprovalBucket()
	escrowSeq      = orm.NewSequence("esc", "id")
)

func validateParties(addrs []escrowd.Address) error {
	if len(addrs) == 0 {
		return errors.ErrEmpty
	}
	return validateAddresses(addrs)
}

// validateAddresses requires all addresses to be valid and unique.
func validateAddresses(addrs []escrowd.Address) error {
	for i, a := range addrs {
		if err := a.Validate(); err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}
		if hasAddress(addrs[:i], a) {
			return errors.Wrapf(errors.ErrDuplicate, "entry %d", i)
		}
	}
	return nil
}

func validateDistribution(dist []Payout) error {
	if len(dist) == 0 {
		return errors.ErrEmpty
	}
	for i, p := range dist {
		if err := p.Recipient.Validate(); err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}
		if !p.Amount.IsPositive() {
			return errors.Wrapf(errors.ErrAmount, "entry %d: must be positive", i)
		}
	}
	return nil
}

func hasAddress(addrs []escrowd.Address, addr escrowd.Address) bool {
	for _, a := range addrs {
		if a.Equals(addr) {
			return true
		}
	}
	return false
}

// distributionTotal returns the sum of all payout amounts.
func distributionTotal(dist []Payout) (coin.Amount, error) {
	var total coin.Amount
	for _, p := range dist {
		var err error
		if total, err = total.Add(p.Amount); err != nil {
			return coin.Amount{}, err
		}
	}
	return total, nil
}

func sameDistribution(a, b []Payout) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Recipient.Equals(b[i].Recipient) || !a[i].Amount.Equals(b[i].Amount) {
			return false
		}
	}
	return true
}
