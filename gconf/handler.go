package gconf

import (
	"context"
	"reflect"

	"github.com/iov-one/escrowd"
	"github.com/iov-one/escrowd/errors"
	"github.com/iov-one/escrowd/x"
)

// OwnedConfig must have an Owner field. A configuration update message must
// be signed by an owner in order to be authorized to apply the change.
type OwnedConfig interface {
	Configuration
	GetOwner() escrowd.Address
}

// FieldResetter can be implemented by a configuration update message in
// order to list configuration fields that must be copied from the patch even
// when they hold a zero value.
type FieldResetter interface {
	ResetFields() []string
}

type UpdateConfigurationHandler struct {
	pkg       string
	newConfig func() OwnedConfig
	auth      x.Authenticator
}

var _ escrowd.Handler = UpdateConfigurationHandler{}

// NewUpdateConfigurationHandler returns a message handler that process
// configuration patch message.
//
// To pass authentication step, each message must be signed by the current
// configuration owner. A configuration must exist, it is created via genesis.
// newConfig must return a fresh, empty instance of the configuration type.
func NewUpdateConfigurationHandler(pkg string, newConfig func() OwnedConfig, auth x.Authenticator) UpdateConfigurationHandler {
	return UpdateConfigurationHandler{
		pkg:       pkg,
		newConfig: newConfig,
		auth:      auth,
	}
}

func (h UpdateConfigurationHandler) Check(ctx context.Context, info escrowd.BlockInfo, store escrowd.KVStore, tx escrowd.Tx) (*escrowd.CheckResult, error) {
	if err := h.applyTx(ctx, store, tx); err != nil {
		return nil, err
	}
	return &escrowd.CheckResult{}, nil
}

func (h UpdateConfigurationHandler) Deliver(ctx context.Context, info escrowd.BlockInfo, store escrowd.KVStore, tx escrowd.Tx) (*escrowd.DeliverResult, error) {
	if err := h.applyTx(ctx, store, tx); err != nil {
		return nil, err
	}
	info.Logger().Info("configuration updated", "pkg", h.pkg)
	return &escrowd.DeliverResult{}, nil
}

func (h UpdateConfigurationHandler) applyTx(ctx context.Context, store escrowd.KVStore, tx escrowd.Tx) error {
	config := h.newConfig()
	if err := Load(store, h.pkg, config); err != nil {
		return errors.Wrap(err, "load current configuration")
	}
	// Configuration owner must sign the transaction in order to
	// authenticate the change.
	owner := config.GetOwner()
	if owner == nil {
		return errors.Wrap(errors.ErrUnauthorized, "owner signature required")
	}
	if !h.auth.HasAddress(ctx, owner) {
		return errors.Wrap(errors.ErrUnauthorized, "owner did not sign transaction")
	}

	msg, err := tx.GetMsg()
	if err != nil {
		return errors.Wrap(err, "cannot get message")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	payload, err := patchPayload(msg)
	if err != nil {
		return errors.Wrap(err, "cannot get message payload")
	}
	var reset []string
	if r, ok := msg.(FieldResetter); ok {
		reset = r.ResetFields()
	}
	if err := patch(config, payload, reset); err != nil {
		return errors.Wrap(err, "cannot patch config with message payload")
	}

	if err := Save(store, h.pkg, config); err != nil {
		return errors.Wrap(err, "cannot save updated config")
	}
	return nil
}

func patch(config OwnedConfig, payload OwnedConfig, reset []string) error {
	pType := reflect.TypeOf(payload)
	cType := reflect.TypeOf(config)
	if pType != cType {
		return errors.Wrap(errors.ErrMsg, "config in message doesn't match store")
	}

	cval := reflect.ValueOf(config).Elem()
	pval := reflect.ValueOf(payload).Elem()

	for _, name := range reset {
		if _, ok := cval.Type().FieldByName(name); !ok {
			return errors.Wrapf(errors.ErrMsg, "unknown configuration field %q", name)
		}
	}

	for i := 0; i < cval.NumField(); i++ {
		got := pval.Field(i)

		// Zero values do not update the original configuration unless
		// explicitly requested.
		if isZero(got) && !contains(reset, cval.Type().Field(i).Name) {
			continue
		}

		cval.Field(i).Set(got)
	}

	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// isZero returns true if given value represents a zero value of a given type.
func isZero(val reflect.Value) bool {
	zero := reflect.Zero(val.Type()).Interface()
	return reflect.DeepEqual(val.Interface(), zero)
}

// patchPayload expects the message to have a "Patch" field of the same type
// as the configuration. Content of this field is extracted and returned.
func patchPayload(msg escrowd.Msg) (OwnedConfig, error) {
	pval := reflect.ValueOf(msg)
	if pval.Kind() != reflect.Ptr || pval.Elem().Kind() != reflect.Struct {
		return nil, errors.Wrapf(errors.ErrInput, "invalid message container value: %T", msg)
	}
	field := pval.Elem().FieldByName("Patch")
	if !field.IsValid() || field.Kind() != reflect.Ptr {
		return nil, errors.Wrap(errors.ErrInput, `"Patch" field is required`)
	}
	if field.IsNil() {
		return nil, errors.Wrap(errors.ErrState, `"Patch" field is required`)
	}
	payload, ok := field.Interface().(OwnedConfig)
	if !ok {
		return nil, errors.Wrap(errors.ErrInput, `"Patch" field is of a wrong type`)
	}
	return payload, nil
}
