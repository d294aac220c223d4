package core

import "fmt"

// freezeBalanceActuator locks TRX into FrozenForBandwidth/FrozenForEnergy
// for a fixed duration in exchange for a share of the network's shared
// resource pools (spec.md §3 account lifecycle, §4.4 resource model). The
// ReceiverAddress field optionally delegates the resulting resource share
// to another account while the TRX itself still debits the owner.
type freezeBalanceActuator struct{}

func (freezeBalanceActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.FreezeBalance
	if p == nil {
		return fmt.Errorf("%w: missing FreezeBalanceContract payload", ErrValidation)
	}
	if p.FrozenBalance <= 0 {
		return fmt.Errorf("%w: frozen balance must be positive", ErrValidation)
	}
	if p.FrozenDuration <= 0 {
		return fmt.Errorf("%w: frozen duration must be positive", ErrValidation)
	}
	if p.Resource != ResourceBandwidth && p.Resource != ResourceEnergy {
		return fmt.Errorf("%w: unknown resource kind", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if owner.Balance < p.FrozenBalance {
		return fmt.Errorf("%w: insufficient balance to freeze", ErrValidation)
	}
	return nil
}

func (freezeBalanceActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.FreezeBalance
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found || owner.Balance < p.FrozenBalance {
		return fmt.Errorf("%w: insufficient balance to freeze", ErrExecution)
	}
	receiver := owner
	receiverIsOwner := p.ReceiverAddress.IsZero() || p.ReceiverAddress == c.Owner
	if !receiverIsOwner {
		r, _, err := c.State.GetOrCreateAccount(p.ReceiverAddress)
		if err != nil {
			return err
		}
		receiver = r
	}
	expire := c.BlockTime + p.FrozenDuration
	owner.Balance -= p.FrozenBalance
	switch p.Resource {
	case ResourceBandwidth:
		receiver.FrozenForBandwidth += p.FrozenBalance
		if expire > receiver.FrozenBandwidthExpire {
			receiver.FrozenBandwidthExpire = expire
		}
	case ResourceEnergy:
		receiver.FrozenForEnergy += p.FrozenBalance
		if expire > receiver.FrozenEnergyExpire {
			receiver.FrozenEnergyExpire = expire
		}
	}
	if err := c.State.PutAccount(owner); err != nil {
		return err
	}
	if !receiverIsOwner {
		if err := c.State.PutAccount(receiver); err != nil {
			return err
		}
	}
	return nil
}

// unfreezeBalanceActuator returns an expired frozen balance to the
// owner's spendable Balance.
type unfreezeBalanceActuator struct{}

func (unfreezeBalanceActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.UnfreezeBalance
	if p == nil {
		return fmt.Errorf("%w: missing UnfreezeBalanceContract payload", ErrValidation)
	}
	if p.Resource != ResourceBandwidth && p.Resource != ResourceEnergy {
		return fmt.Errorf("%w: unknown resource kind", ErrValidation)
	}
	target := c.Owner
	if !p.ReceiverAddress.IsZero() {
		target = p.ReceiverAddress
	}
	acct, found, err := c.State.GetAccount(target)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: frozen account %s not found", ErrValidation, target.Hex())
	}
	frozen, expire := frozenFields(acct, p.Resource)
	if frozen <= 0 {
		return fmt.Errorf("%w: nothing frozen for this resource", ErrValidation)
	}
	if c.BlockTime < expire {
		return fmt.Errorf("%w: frozen balance has not yet expired", ErrValidation)
	}
	return nil
}

func (unfreezeBalanceActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.UnfreezeBalance
	target := c.Owner
	if !p.ReceiverAddress.IsZero() {
		target = p.ReceiverAddress
	}
	acct, found, err := c.State.GetAccount(target)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: frozen account %s not found", ErrExecution, target.Hex())
	}
	frozen, expire := frozenFields(acct, p.Resource)
	if frozen <= 0 || c.BlockTime < expire {
		return fmt.Errorf("%w: frozen balance not eligible for release", ErrExecution)
	}
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	switch p.Resource {
	case ResourceBandwidth:
		acct.FrozenForBandwidth = 0
		acct.FrozenBandwidthExpire = 0
	case ResourceEnergy:
		acct.FrozenForEnergy = 0
		acct.FrozenEnergyExpire = 0
	}
	if target == c.Owner {
		// acct and owner are separate copies of the same record; keep the
		// one whose frozen fields were just cleared.
		owner = acct
	}
	owner.Balance += frozen
	c.Tx.UnfrozenAmount = frozen
	if target != c.Owner {
		if err := c.State.PutAccount(acct); err != nil {
			return err
		}
	}
	return c.State.PutAccount(owner)
}

func frozenFields(a *Account, resource ResourceKind) (amount, expire int64) {
	if resource == ResourceBandwidth {
		return a.FrozenForBandwidth, a.FrozenBandwidthExpire
	}
	return a.FrozenForEnergy, a.FrozenEnergyExpire
}

// withdrawBalanceActuator claims a witness's accumulated block-reward
// allowance into spendable Balance (spec.md §4.9 reward payout credits
// Allowance; this actuator is how it becomes spendable).
type withdrawBalanceActuator struct{}

func (withdrawBalanceActuator) Validate(c *ActuatorContext, contract *Contract) error {
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if owner.Allowance <= 0 {
		return fmt.Errorf("%w: no allowance to withdraw", ErrValidation)
	}
	return nil
}

func (withdrawBalanceActuator) Execute(c *ActuatorContext, contract *Contract) error {
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found || owner.Allowance <= 0 {
		return fmt.Errorf("%w: no allowance to withdraw", ErrExecution)
	}
	c.Tx.WithdrawAmount = owner.Allowance
	owner.Balance += owner.Allowance
	owner.Allowance = 0
	return c.State.PutAccount(owner)
}
