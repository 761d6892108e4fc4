package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/coin"
	"github.com/iov-one/escrowd/errors"
)

func init() {
	codec.RegisterMsg(&CreateEscrowMsg{}, "escrow/CreateEscrowMsg")
	codec.RegisterMsg(&DepositMsg{}, "escrow/DepositMsg")
	codec.RegisterMsg(&OpenDisputeMsg{}, "escrow/OpenDisputeMsg")
	codec.RegisterMsg(&ProposeReleaseMsg{}, "escrow/ProposeReleaseMsg")
	codec.RegisterMsg(&ApproveReleaseMsg{}, "escrow/ApproveReleaseMsg")
	codec.RegisterMsg(&ProposeRefundMsg{}, "escrow/ProposeRefundMsg")
	codec.RegisterMsg(&ApproveRefundMsg{}, "escrow/ApproveRefundMsg")
	codec.RegisterMsg(&ArbiterReleaseMsg{}, "escrow/ArbiterReleaseMsg")
	codec.RegisterMsg(&ArbiterRefundMsg{}, "escrow/ArbiterRefundMsg")
	codec.RegisterMsg(&EmergencyReleaseMsg{}, "escrow/EmergencyReleaseMsg")
	codec.RegisterMsg(&AutoReleaseMsg{}, "escrow/AutoReleaseMsg")
	codec.RegisterMsg(&RefundTimeoutMsg{}, "escrow/RefundTimeoutMsg")
	codec.RegisterMsg(&UpdateConfigurationMsg{}, "escrow/UpdateConfigurationMsg")
}

var (
	_ escrowd.Msg = (*CreateEscrowMsg)(nil)
	_ escrowd.Msg = (*DepositMsg)(nil)
	_ escrowd.Msg = (*OpenDisputeMsg)(nil)
	_ escrowd.Msg = (*ProposeReleaseMsg)(nil)
	_ escrowd.Msg = (*ApproveReleaseMsg)(nil)
	_ escrowd.Msg = (*ProposeRefundMsg)(nil)
	_ escrowd.Msg = (*ApproveRefundMsg)(nil)
	_ escrowd.Msg = (*ArbiterReleaseMsg)(nil)
	_ escrowd.Msg = (*ArbiterRefundMsg)(nil)
	_ escrowd.Msg = (*EmergencyReleaseMsg)(nil)
	_ escrowd.Msg = (*AutoReleaseMsg)(nil)
	_ escrowd.Msg = (*RefundTimeoutMsg)(nil)
	_ escrowd.Msg = (*UpdateConfigurationMsg)(nil)
)

// CreateEscrowMsg creates a new escrow with a zero balance. When ID is not
// provided, the next free sequence value is used.
type CreateEscrowMsg struct {
	Creator       escrowd.Address   `json:"creator"`
	ID            []byte            `json:"id,omitempty"`
	Token         string            `json:"token"`
	Payers        []escrowd.Address `json:"payers"`
	Payees        []escrowd.Address `json:"payees"`
	Release       SignerGroup       `json:"release"`
	Refund        SignerGroup       `json:"refund"`
	Arbiter       SignerGroup       `json:"arbiter"`
	AutoReleaseAt escrowd.UnixTime  `json:"auto_release_at,omitempty"`
	ExpiresAt     escrowd.UnixTime  `json:"expires_at"`
}

func (CreateEscrowMsg) Path() string {
	return "escrow/create"
}

func (m *CreateEscrowMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Creator", m.Creator.Validate())
	if len(m.ID) != 0 && len(m.ID) != IDLength {
		errs = errors.AppendField(errs, "ID", errors.Wrapf(errors.ErrInput, "must be %d bytes", IDLength))
	}
	if !coin.IsCC(m.Token) {
		errs = errors.AppendField(errs, "Token", errors.Wrapf(errors.ErrCurrency, "invalid ticker %q", m.Token))
	}
	errs = errors.AppendField(errs, "Payers", validateParties(m.Payers))
	errs = errors.AppendField(errs, "Payees", validateParties(m.Payees))
	errs = errors.AppendField(errs, "Release", m.Release.Validate())
	errs = errors.AppendField(errs, "Refund", m.Refund.Validate())
	errs = errors.AppendField(errs, "Arbiter", m.Arbiter.Validate())
	if m.ExpiresAt <= 0 {
		errs = errors.AppendField(errs, "ExpiresAt", errors.ErrEmpty)
	}
	if m.AutoReleaseAt < 0 {
		errs = errors.AppendField(errs, "AutoReleaseAt", errors.Wrap(errors.ErrInput, "negative"))
	}
	return errs
}

// DepositMsg moves funds of a payer into the escrow.
type DepositMsg struct {
	EscrowID []byte          `json:"escrow_id"`
	Payer    escrowd.Address `json:"payer"`
	Amount   coin.Amount     `json:"amount"`
}

func (DepositMsg) Path() string {
	return "escrow/deposit"
}

func (m *DepositMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "EscrowID", validateID(m.EscrowID))
	errs = errors.AppendField(errs, "Payer", m.Payer.Validate())
	if !m.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrAmount, "must be positive"))
	}
	return errs
}

// OpenDisputeMsg suspends the release and refund flows of an escrow.
type OpenDisputeMsg struct {
	EscrowID []byte          `json:"escrow_id"`
	Actor    escrowd.Address `json:"actor"`
}

func (OpenDisputeMsg) Path() string {
	return "escrow/open_dispute"
}

func (m *OpenDisputeMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "EscrowID", validateID(m.EscrowID))
	errs = errors.AppendField(errs, "Actor", m.Actor.Validate())
	return errs
}

// ProposeReleaseMsg proposes paying out payees.
type ProposeReleaseMsg struct {
	EscrowID     []byte          `json:"escrow_id"`
	Signer       escrowd.Address `json:"signer"`
	Distribution []Payout        `json:"distribution"`
}

func (ProposeReleaseMsg) Path() string {
	return "escrow/propose_release"
}

func (m *ProposeReleaseMsg) Validate() error {
	return validateProposal(m.EscrowID, m.Signer, m.Distribution)
}

// ApproveReleaseMsg approves the live release proposal. A zero nonce
// approves whatever proposal is live.
type ApproveReleaseMsg struct {
	EscrowID []byte          `json:"escrow_id"`
	Signer   escrowd.Address `json:"signer"`
	Nonce    uint64          `json:"nonce,omitempty"`
}

func (ApproveReleaseMsg) Path() string {
	return "escrow/approve_release"
}

func (m *ApproveReleaseMsg) Validate() error {
	return validateApproval(m.EscrowID, m.Signer)
}

// ProposeRefundMsg proposes returning funds to payers.
type ProposeRefundMsg struct {
	EscrowID     []byte          `json:"escrow_id"`
	Signer       escrowd.Address `json:"signer"`
	Distribution []Payout        `json:"distribution"`
}

func (ProposeRefundMsg) Path() string {
	return "escrow/propose_refund"
}

func (m *ProposeRefundMsg) Validate() error {
	return validateProposal(m.EscrowID, m.Signer, m.Distribution)
}

type ApproveRefundMsg struct {
	EscrowID []byte          `json:"escrow_id"`
	Signer   escrowd.Address `json:"signer"`
	Nonce    uint64          `json:"nonce,omitempty"`
}

func (ApproveRefundMsg) Path() string {
	return "escrow/approve_refund"
}

func (m *ApproveRefundMsg) Validate() error {
	return validateApproval(m.EscrowID, m.Signer)
}

// ArbiterReleaseMsg is sent by an arbiter of a disputed escrow. It approves
// the live arbiter proposal when identical, otherwise it replaces it.
type ArbiterReleaseMsg struct {
	EscrowID     []byte          `json:"escrow_id"`
	Signer       escrowd.Address `json:"signer"`
	Distribution []Payout        `json:"distribution"`
}

func (ArbiterReleaseMsg) Path() string {
	return "escrow/arbiter_release"
}

func (m *ArbiterReleaseMsg) Validate() error {
	return validateProposal(m.EscrowID, m.Signer, m.Distribution)
}

// ArbiterRefundMsg works as ArbiterReleaseMsg but pays payers back.
type ArbiterRefundMsg struct {
	EscrowID     []byte          `json:"escrow_id"`
	Signer       escrowd.Address `json:"signer"`
	Distribution []Payout        `json:"distribution"`
}

func (ArbiterRefundMsg) Path() string {
	return "escrow/arbiter_refund"
}

func (m *ArbiterRefundMsg) Validate() error {
	return validateProposal(m.EscrowID, m.Signer, m.Distribution)
}

// EmergencyReleaseMsg is sent by an emergency admin. Recipients can be any
// party of the escrow.
type EmergencyReleaseMsg struct {
	EscrowID     []byte          `json:"escrow_id"`
	Signer       escrowd.Address `json:"signer"`
	Distribution []Payout        `json:"distribution"`
}

func (EmergencyReleaseMsg) Path() string {
	return "escrow/emergency_release"
}

func (m *EmergencyReleaseMsg) Validate() error {
	return validateProposal(m.EscrowID, m.Signer, m.Distribution)
}

// AutoReleaseMsg can be sent by anyone once the auto release time passed.
type AutoReleaseMsg struct {
	EscrowID []byte `json:"escrow_id"`
}

func (AutoReleaseMsg) Path() string {
	return "escrow/auto_release"
}

func (m *AutoReleaseMsg) Validate() error {
	return errors.Field("EscrowID", validateID(m.EscrowID), "")
}

// RefundTimeoutMsg can be sent by anyone once the escrow expired.
type RefundTimeoutMsg struct {
	EscrowID []byte `json:"escrow_id"`
}

func (RefundTimeoutMsg) Path() string {
	return "escrow/refund_timeout"
}

func (m *RefundTimeoutMsg) Validate() error {
	return errors.Field("EscrowID", validateID(m.EscrowID), "")
}

// UpdateConfigurationMsg patches the module configuration. Zero value fields
// of the patch are ignored unless listed in Reset.
type UpdateConfigurationMsg struct {
	Patch *Configuration `json:"patch"`
	Reset []string       `json:"reset,omitempty"`
}

func (UpdateConfigurationMsg) Path() string {
	return "escrow/update_configuration"
}

func (m *UpdateConfigurationMsg) Validate() error {
	if m.Patch == nil {
		return errors.Field("Patch", errors.ErrEmpty, "")
	}
	return nil
}

func (m *UpdateConfigurationMsg) ResetFields() []string {
	return m.Reset
}

func validateID(id []byte) error {
	if len(id) != IDLength {
		return errors.Wrapf(errors.ErrInput, "must be %d bytes", IDLength)
	}
	return nil
}

func validateProposal(id []byte, signer escrowd.Address, dist []Payout) error {
	var errs error
	errs = errors.AppendField(errs, "EscrowID", validateID(id))
	errs = errors.AppendField(errs, "Signer", signer.Validate())
	errs = errors.AppendField(errs, "Distribution", validateDistribution(dist))
	return errs
}

func validateApproval(id []byte, signer escrowd.Address) error {
	var errs error
	errs = errors.AppendField(errs, "EscrowID", validateID(id))
	errs = errors.AppendField(errs, "Signer", signer.Validate())
	return errs
}
