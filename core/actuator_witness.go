package core

import "fmt"

// witnessCreateActuator registers an account as a witness candidate,
// eligible for election into the active schedule during maintenance
// (spec.md §4.8 step 10).
type witnessCreateActuator struct{}

func (witnessCreateActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.WitnessCreate
	if p == nil {
		return fmt.Errorf("%w: missing WitnessCreateContract payload", ErrValidation)
	}
	if len(p.URL) == 0 || len(p.URL) > MaxContractNameLength {
		return fmt.Errorf("%w: invalid witness url length", ErrValidation)
	}
	if _, err := requireOwner(c); err != nil {
		return err
	}
	if _, found, err := c.State.GetWitness(c.Owner); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: account is already a witness", ErrValidation)
	}
	return nil
}

func (witnessCreateActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.WitnessCreate
	if _, found, err := c.State.GetWitness(c.Owner); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: account is already a witness", ErrExecution)
	}
	return c.State.PutWitness(&Witness{Address: c.Owner, URL: p.URL})
}

// witnessUpdateActuator revises a witness's announced URL.
type witnessUpdateActuator struct{}

func (witnessUpdateActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.WitnessUpdate
	if p == nil {
		return fmt.Errorf("%w: missing WitnessUpdateContract payload", ErrValidation)
	}
	if len(p.UpdateURL) == 0 || len(p.UpdateURL) > MaxContractNameLength {
		return fmt.Errorf("%w: invalid witness url length", ErrValidation)
	}
	if _, found, err := c.State.GetWitness(c.Owner); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("%w: account is not a witness", ErrValidation)
	}
	return nil
}

func (witnessUpdateActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.WitnessUpdate
	w, found, err := c.State.GetWitness(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: account is not a witness", ErrExecution)
	}
	w.URL = p.UpdateURL
	return c.State.PutWitness(w)
}

// voteWitnessActuator replaces a voter's entire ballot in one shot (the
// reference semantics: a VoteWitnessContract always supersedes, never
// adds to, the voter's prior votes). Each unit of vote power costs one
// frozen TRX (spec.md §3 "TRON Power"): the sum of a ballot's VoteCount
// values may not exceed the voter's total frozen-for-bandwidth plus
// frozen-for-energy balance, denominated in whole TRX.
type voteWitnessActuator struct{}

func votePower(a *Account) int64 {
	return (a.FrozenForBandwidth + a.FrozenForEnergy) / ResourcePrecision
}

func (voteWitnessActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.VoteWitness
	if p == nil || len(p.Votes) == 0 {
		return fmt.Errorf("%w: missing or empty VoteWitnessContract payload", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	var total int64
	seen := make(map[Address]bool, len(p.Votes))
	for _, v := range p.Votes {
		if v.VoteCount <= 0 {
			return fmt.Errorf("%w: vote count must be positive", ErrValidation)
		}
		if seen[v.VoteAddress] {
			return fmt.Errorf("%w: duplicate witness in ballot", ErrValidation)
		}
		seen[v.VoteAddress] = true
		if _, found, err := c.State.GetWitness(v.VoteAddress); err != nil {
			return err
		} else if !found {
			return fmt.Errorf("%w: %s is not a witness", ErrValidation, v.VoteAddress.Hex())
		}
		total += v.VoteCount
	}
	if total > votePower(owner) {
		return fmt.Errorf("%w: vote count exceeds available TRON power", ErrValidation)
	}
	return nil
}

func (voteWitnessActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.VoteWitness
	prior, err := c.State.GetVoteBallot(c.Owner)
	if err != nil {
		return err
	}
	for _, v := range prior {
		w, found, err := c.State.GetWitness(v.VoteAddress)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		w.VoteCount -= v.VoteCount
		if err := c.State.PutWitness(w); err != nil {
			return err
		}
	}
	for _, v := range p.Votes {
		w, found, err := c.State.GetWitness(v.VoteAddress)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s is not a witness", ErrExecution, v.VoteAddress.Hex())
		}
		w.VoteCount += v.VoteCount
		if err := c.State.PutWitness(w); err != nil {
			return err
		}
	}
	return c.State.PutVoteBallot(c.Owner, p.Votes)
}

// updateBrokerageActuator sets the percentage of block rewards a witness
// keeps for itself before splitting the remainder among its voters
// (spec.md §4.9, AllowChangeDelegation reward path).
type updateBrokerageActuator struct{}

func (updateBrokerageActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.UpdateBrokerage
	if p == nil {
		return fmt.Errorf("%w: missing UpdateBrokerageContract payload", ErrValidation)
	}
	if p.BrokerageRate < 0 || p.BrokerageRate > 100 {
		return fmt.Errorf("%w: brokerage rate must be in [0, 100]", ErrValidation)
	}
	if !c.Dynamic.Allowed(AllowChangeDelegation) {
		return fmt.Errorf("%w: brokerage adjustment is not enabled", ErrValidation)
	}
	if _, found, err := c.State.GetWitness(c.Owner); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("%w: account is not a witness", ErrValidation)
	}
	return nil
}

func (updateBrokerageActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.UpdateBrokerage
	w, found, err := c.State.GetWitness(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: account is not a witness", ErrExecution)
	}
	w.BrokerageRate = p.BrokerageRate
	return c.State.PutWitness(w)
}
