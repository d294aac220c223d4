package core

import (
	"errors"
	"testing"
)

func TestProposalCreateActuatorRequiresWitness(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address

	contract := &Contract{Kind: KindProposalCreate, Owner: owner.Address, ProposalCreate: &ProposalCreateContract{Parameters: []ParamEntry{{Key: int64(BandwidthPrice), Value: 5}}}}
	if err := (proposalCreateActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(non-witness) = %v, want ErrValidation", err)
	}
}

func TestProposalCreateActuatorExecuteAssignsIncrementingID(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	if err := state.PutWitness(&Witness{Address: owner.Address}); err != nil {
		t.Fatalf("PutWitness: %v", err)
	}
	c.Owner = owner.Address
	c.BlockTime = 1000

	contract := &Contract{Kind: KindProposalCreate, Owner: owner.Address, ProposalCreate: &ProposalCreateContract{Parameters: []ParamEntry{{Key: int64(BandwidthPrice), Value: 5}}}}
	if err := (proposalCreateActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (proposalCreateActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	p, found, err := state.GetProposal(1)
	if err != nil || !found {
		t.Fatalf("GetProposal(1): found=%v, err=%v", found, err)
	}
	if p.Proposer != owner.Address || p.State != ProposalPending {
		t.Fatalf("proposal = %+v, want Proposer=%v State=Pending", p, owner.Address)
	}
	if p.ExpirationTime != 1000+ProposalExpirationPeriod {
		t.Fatalf("proposal.ExpirationTime = %d, want %d", p.ExpirationTime, 1000+ProposalExpirationPeriod)
	}
}

func TestProposalCreateActuatorValidateRejectsUnknownParameterKey(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	if err := state.PutWitness(&Witness{Address: owner.Address}); err != nil {
		t.Fatalf("PutWitness: %v", err)
	}
	c.Owner = owner.Address

	contract := &Contract{Kind: KindProposalCreate, Owner: owner.Address, ProposalCreate: &ProposalCreateContract{Parameters: []ParamEntry{{Key: 999999, Value: 1}}}}
	if err := (proposalCreateActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(unknown parameter key) = %v, want ErrValidation", err)
	}
}

func TestProposalApproveActuatorTogglesApproval(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	witness := NewAccount(BytesToAddress([]byte("witness")))
	if err := state.PutAccount(witness); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	if err := state.PutWitness(&Witness{Address: witness.Address}); err != nil {
		t.Fatalf("PutWitness: %v", err)
	}
	c.Owner = witness.Address
	proposal := &Proposal{ID: 1, ExpirationTime: 10000, State: ProposalPending}
	if err := state.PutProposal(proposal); err != nil {
		t.Fatalf("PutProposal: %v", err)
	}

	approve := &Contract{Kind: KindProposalApprove, Owner: witness.Address, ProposalApprove: &ProposalApproveContract{ProposalID: 1, IsApprove: true}}
	if err := (proposalApproveActuator{}).Validate(c, approve); err != nil {
		t.Fatalf("Validate(approve): %v", err)
	}
	if err := (proposalApproveActuator{}).Execute(c, approve); err != nil {
		t.Fatalf("Execute(approve): %v", err)
	}
	got, _, err := state.GetProposal(1)
	if err != nil || len(got.Approvals) != 1 || got.Approvals[0] != witness.Address {
		t.Fatalf("proposal.Approvals after approve = %v, err=%v", got.Approvals, err)
	}

	withdraw := &Contract{Kind: KindProposalApprove, Owner: witness.Address, ProposalApprove: &ProposalApproveContract{ProposalID: 1, IsApprove: false}}
	if err := (proposalApproveActuator{}).Execute(c, withdraw); err != nil {
		t.Fatalf("Execute(withdraw): %v", err)
	}
	got2, _, err := state.GetProposal(1)
	if err != nil || len(got2.Approvals) != 0 {
		t.Fatalf("proposal.Approvals after withdraw = %v, want empty", got2.Approvals)
	}
}

func TestProposalDeleteActuatorOnlyProposerCanDelete(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	proposer := BytesToAddress([]byte("proposer"))
	other := NewAccount(BytesToAddress([]byte("other")))
	if err := state.PutAccount(other); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = other.Address
	proposal := &Proposal{ID: 1, Proposer: proposer, ExpirationTime: 10000, State: ProposalPending}
	if err := state.PutProposal(proposal); err != nil {
		t.Fatalf("PutProposal: %v", err)
	}

	contract := &Contract{Kind: KindProposalDelete, Owner: other.Address, ProposalDelete: &ProposalDeleteContract{ProposalID: 1}}
	if err := (proposalDeleteActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(non-proposer delete) = %v, want ErrValidation", err)
	}
}

func TestProposalDeleteActuatorExecuteCancelsProposal(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	proposer := NewAccount(BytesToAddress([]byte("proposer")))
	if err := state.PutAccount(proposer); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = proposer.Address
	proposal := &Proposal{ID: 1, Proposer: proposer.Address, ExpirationTime: 10000, State: ProposalPending}
	if err := state.PutProposal(proposal); err != nil {
		t.Fatalf("PutProposal: %v", err)
	}

	contract := &Contract{Kind: KindProposalDelete, Owner: proposer.Address, ProposalDelete: &ProposalDeleteContract{ProposalID: 1}}
	if err := (proposalDeleteActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (proposalDeleteActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, _, err := state.GetProposal(1)
	if err != nil || got.State != ProposalCancelled {
		t.Fatalf("proposal.State after delete = %v, err=%v, want ProposalCancelled", got.State, err)
	}
}
