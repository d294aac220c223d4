package core

import "fmt"

// proposalCreateActuator is witness-only: only an active witness may
// propose a change to the governable chain parameters (spec.md §4.8 step
// 9 processes the resulting Proposal during maintenance).
type proposalCreateActuator struct{}

func (proposalCreateActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ProposalCreate
	if p == nil || len(p.Parameters) == 0 {
		return fmt.Errorf("%w: missing or empty ProposalCreateContract payload", ErrValidation)
	}
	if _, err := requireOwner(c); err != nil {
		return err
	}
	if _, found, err := c.State.GetWitness(c.Owner); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("%w: only a witness may create a proposal", ErrValidation)
	}
	for _, e := range p.Parameters {
		if e.Key < 0 || e.Key >= int64(numChainParameters) {
			return fmt.Errorf("%w: unknown chain parameter key %d", ErrValidation, e.Key)
		}
	}
	return nil
}

func (proposalCreateActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.ProposalCreate
	id, err := c.State.NextProposalID()
	if err != nil {
		return err
	}
	proposal := &Proposal{
		ID:             id,
		Proposer:       c.Owner,
		Parameters:     p.Parameters,
		CreateTime:     c.BlockTime,
		ExpirationTime: c.BlockTime + ProposalExpirationPeriod,
		State:          ProposalPending,
	}
	return c.State.PutProposal(proposal)
}

// proposalApproveActuator is also witness-only: casting or withdrawing an
// approval vote for a pending proposal.
type proposalApproveActuator struct{}

func (proposalApproveActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ProposalApprove
	if p == nil {
		return fmt.Errorf("%w: missing ProposalApproveContract payload", ErrValidation)
	}
	if _, found, err := c.State.GetWitness(c.Owner); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("%w: only a witness may approve a proposal", ErrValidation)
	}
	proposal, found, err := c.State.GetProposal(p.ProposalID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: unknown proposal %d", ErrValidation, p.ProposalID)
	}
	if proposal.State != ProposalPending {
		return fmt.Errorf("%w: proposal is no longer pending", ErrValidation)
	}
	if c.BlockTime > proposal.ExpirationTime {
		return fmt.Errorf("%w: proposal has expired", ErrValidation)
	}
	return nil
}

func (proposalApproveActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.ProposalApprove
	proposal, found, err := c.State.GetProposal(p.ProposalID)
	if err != nil {
		return err
	}
	if !found || proposal.State != ProposalPending {
		return fmt.Errorf("%w: proposal not eligible for approval", ErrExecution)
	}
	idx := -1
	for i, a := range proposal.Approvals {
		if a == c.Owner {
			idx = i
			break
		}
	}
	if p.IsApprove {
		if idx < 0 {
			proposal.Approvals = append(proposal.Approvals, c.Owner)
		}
	} else if idx >= 0 {
		proposal.Approvals = append(proposal.Approvals[:idx], proposal.Approvals[idx+1:]...)
	}
	return c.State.PutProposal(proposal)
}

// proposalDeleteActuator lets only the original proposer withdraw a
// still-pending proposal before it is processed at maintenance.
type proposalDeleteActuator struct{}

func (proposalDeleteActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ProposalDelete
	if p == nil {
		return fmt.Errorf("%w: missing ProposalDeleteContract payload", ErrValidation)
	}
	proposal, found, err := c.State.GetProposal(p.ProposalID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: unknown proposal %d", ErrValidation, p.ProposalID)
	}
	if proposal.Proposer != c.Owner {
		return fmt.Errorf("%w: only the proposer may delete a proposal", ErrValidation)
	}
	if proposal.State != ProposalPending {
		return fmt.Errorf("%w: proposal is no longer pending", ErrValidation)
	}
	return nil
}

func (proposalDeleteActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.ProposalDelete
	proposal, found, err := c.State.GetProposal(p.ProposalID)
	if err != nil {
		return err
	}
	if !found || proposal.State != ProposalPending {
		return fmt.Errorf("%w: proposal not eligible for deletion", ErrExecution)
	}
	proposal.State = ProposalCancelled
	return c.State.PutProposal(proposal)
}
