package core

import "fmt"

// accountCreateActuator pre-creates an account of a given type rather
// than waiting for the implicit on-first-transfer creation (spec.md §3
// account lifecycle); used mainly to pre-stage contract-type accounts.
type accountCreateActuator struct{}

func (accountCreateActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.AccountCreate
	if p == nil {
		return fmt.Errorf("%w: missing AccountCreateContract payload", ErrValidation)
	}
	if p.AccountAddress.IsZero() {
		return fmt.Errorf("%w: account address must not be zero", ErrValidation)
	}
	if _, err := requireOwner(c); err != nil {
		return err
	}
	if _, found, err := c.State.GetAccount(p.AccountAddress); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: account already exists", ErrValidation)
	}
	return nil
}

func (accountCreateActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.AccountCreate
	if _, found, err := c.State.GetAccount(p.AccountAddress); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: account already exists", ErrExecution)
	}
	a := NewAccount(p.AccountAddress)
	a.Type = p.Type
	c.Tx.NewAccountCreated = true
	return c.State.PutAccount(a)
}

// accountUpdateActuator sets an account's display name, a one-time
// operation in the reference implementation.
type accountUpdateActuator struct{}

func (accountUpdateActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.AccountUpdate
	if p == nil {
		return fmt.Errorf("%w: missing AccountUpdateContract payload", ErrValidation)
	}
	if len(p.AccountName) == 0 || len(p.AccountName) > MaxContractNameLength {
		return fmt.Errorf("%w: invalid account name length", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if len(owner.Name) != 0 {
		return fmt.Errorf("%w: account name already set", ErrValidation)
	}
	return nil
}

func (accountUpdateActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.AccountUpdate
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	if len(owner.Name) != 0 {
		return fmt.Errorf("%w: account name already set", ErrExecution)
	}
	owner.Name = p.AccountName
	return c.State.PutAccount(owner)
}

// accountPermissionUpdateActuator replaces an account's owner and active
// multisig permission sets (spec.md §3 permission model, gated by the
// AllowMultisig chain parameter).
type accountPermissionUpdateActuator struct{}

func validatePermission(p Permission) error {
	if p.Threshold <= 0 {
		return fmt.Errorf("%w: permission threshold must be positive", ErrValidation)
	}
	if len(p.Keys) == 0 {
		return fmt.Errorf("%w: permission must list at least one key", ErrValidation)
	}
	var totalWeight int64
	seen := make(map[Address]bool, len(p.Keys))
	for _, k := range p.Keys {
		if k.Weight <= 0 {
			return fmt.Errorf("%w: permission key weight must be positive", ErrValidation)
		}
		if seen[k.Address] {
			return fmt.Errorf("%w: duplicate permission key", ErrValidation)
		}
		seen[k.Address] = true
		totalWeight += k.Weight
	}
	if totalWeight < p.Threshold {
		return fmt.Errorf("%w: permission keys cannot reach threshold", ErrValidation)
	}
	return nil
}

func (accountPermissionUpdateActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.PermissionUpdate
	if p == nil {
		return fmt.Errorf("%w: missing AccountPermissionUpdateContract payload", ErrValidation)
	}
	if !c.Dynamic.Allowed(AllowMultisig) {
		return fmt.Errorf("%w: multisig permissions are not enabled", ErrValidation)
	}
	if _, err := requireOwner(c); err != nil {
		return err
	}
	if err := validatePermission(p.Owner); err != nil {
		return err
	}
	for _, active := range p.Actives {
		if err := validatePermission(active); err != nil {
			return err
		}
	}
	return nil
}

func (accountPermissionUpdateActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.PermissionUpdate
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	owner.Owner = p.Owner
	owner.Actives = p.Actives
	return c.State.PutAccount(owner)
}

// setAccountIDActuator assigns an account's immutable off-chain-facing
// id, settable exactly once (spec.md §3).
type setAccountIDActuator struct{}

func (setAccountIDActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.SetAccountID
	if p == nil {
		return fmt.Errorf("%w: missing SetAccountIdContract payload", ErrValidation)
	}
	if len(p.AccountID) == 0 || len(p.AccountID) > MaxContractNameLength {
		return fmt.Errorf("%w: invalid account id length", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if len(owner.AccountID) != 0 {
		return fmt.Errorf("%w: account id already set", ErrValidation)
	}
	return nil
}

func (setAccountIDActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.SetAccountID
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	if len(owner.AccountID) != 0 {
		return fmt.Errorf("%w: account id already set", ErrExecution)
	}
	owner.AccountID = p.AccountID
	return c.State.PutAccount(owner)
}
