package escrow

import (
	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/codec"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/gconf"
)

const packageName = "escrow"

// Configuration holds the fee parameters and the emergency signer group
// shared by all escrows.
type Configuration struct {
	// Owner is allowed to update the configuration.
	Owner escrowd.Address `json:"owner"`
	// FeeBps is charged on every released payout, 0 to 10000.
	FeeBps       int32           `json:"fee_bps"`
	FeeCollector escrowd.Address `json:"fee_collector"`
	// EmergencyAdmins can release any escrow, regardless of its dispute
	// state, once EmergencyThreshold of them agree.
	EmergencyAdmins    []escrowd.Address `json:"emergency_admins"`
	EmergencyThreshold int32             `json:"emergency_threshold"`
}

var _ gconf.OwnedConfig = (*Configuration)(nil)

func (c *Configuration) Marshal() ([]byte, error) {
	return codec.Marshal(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, c)
}

func (c *Configuration) GetOwner() escrowd.Address {
	return c.Owner
}

func (c *Configuration) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Owner", c.Owner.Validate())
	if c.FeeBps < 0 || c.FeeBps > BasisPoints {
		errs = errors.AppendField(errs, "FeeBps",
			errors.Wrapf(errors.ErrInput, "must be within 0 and %d", BasisPoints))
	}
	errs = errors.AppendField(errs, "FeeCollector", c.FeeCollector.Validate())
	errs = errors.AppendField(errs, "EmergencyAdmins", validateParties(c.EmergencyAdmins))
	if c.EmergencyThreshold < 1 || int(c.EmergencyThreshold) > len(c.EmergencyAdmins) {
		errs = errors.AppendField(errs, "EmergencyThreshold",
			errors.Wrapf(errors.ErrInput, "must be within 1 and %d", len(c.EmergencyAdmins)))
	}
	return errs
}

// EmergencyGroup returns the signer group of the emergency flow.
func (c *Configuration) EmergencyGroup() SignerGroup {
	return SignerGroup{Signers: c.EmergencyAdmins, Threshold: c.EmergencyThreshold}
}

func loadConf(db gconf.ReadStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, packageName, &conf); err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	return &conf, nil
}
