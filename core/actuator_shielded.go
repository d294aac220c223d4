package core

import "fmt"

// shieldedTransferActuator is a validated pass-through for the shielded
// (zk-SNARK) transfer pool: the core treats the payload as opaque bytes
// and never inspects its contents beyond a presence check (spec.md §1
// Non-goals: shielded-pool cryptography is out of scope for this core).
type shieldedTransferActuator struct{}

func (shieldedTransferActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ShieldedTransfer
	if p == nil || len(p.Raw) == 0 {
		return fmt.Errorf("%w: missing or empty ShieldedTransferContract payload", ErrValidation)
	}
	return nil
}

func (shieldedTransferActuator) Execute(c *ActuatorContext, contract *Contract) error {
	// Nothing to mutate in the account model: the shielded pool's own note
	// commitments and nullifiers live entirely inside the opaque payload,
	// outside this core's state (spec.md §1 Non-goals).
	return nil
}
