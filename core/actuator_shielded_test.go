package core

import (
	"errors"
	"testing"
)

func TestShieldedTransferActuatorValidateRejectsMissingPayload(t *testing.T) {
	t.Parallel()

	c, _ := newTestActuatorContext(t)
	contract := &Contract{Kind: KindShieldedTransfer}
	if err := (shieldedTransferActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(nil payload) = %v, want ErrValidation", err)
	}
}

func TestShieldedTransferActuatorValidateRejectsEmptyRaw(t *testing.T) {
	t.Parallel()

	c, _ := newTestActuatorContext(t)
	contract := &Contract{Kind: KindShieldedTransfer, ShieldedTransfer: &ShieldedTransferPayload{Raw: nil}}
	if err := (shieldedTransferActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(empty Raw) = %v, want ErrValidation", err)
	}
}

func TestShieldedTransferActuatorExecuteIsNoOp(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	contract := &Contract{Kind: KindShieldedTransfer, ShieldedTransfer: &ShieldedTransferPayload{Raw: []byte{0x01}}}
	if err := (shieldedTransferActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (shieldedTransferActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if state.Depth() != 1 {
		t.Fatalf("Execute should not push or pop any state layer")
	}
}
