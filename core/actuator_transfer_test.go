package core

import (
	"errors"
	"testing"
)

func newTestActuatorContext(t *testing.T) (*ActuatorContext, *StateDB) {
	t.Helper()
	state := NewStateDB(NewMemStore())
	state.NewLayer()
	return &ActuatorContext{
		State:   state,
		Dynamic: DefaultDynamicProperties(),
		Tx:      &TransactionContext{},
	}, state
}

func TestTransferActuatorValidateRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 100
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address

	contract := &Contract{Kind: KindTransfer, Owner: owner.Address, Transfer: &TransferContract{ToAddress: BytesToAddress([]byte("to")), Amount: 0}}
	if err := transferActuator{}.Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(amount=0) = %v, want ErrValidation", err)
	}
}

func TestTransferActuatorValidateRejectsInsufficientBalance(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 10
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address

	contract := &Contract{Kind: KindTransfer, Owner: owner.Address, Transfer: &TransferContract{ToAddress: BytesToAddress([]byte("to")), Amount: 100}}
	if err := transferActuator{}.Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(insufficient balance) = %v, want ErrValidation", err)
	}
}

func TestTransferActuatorExecuteMovesBalanceAndCreatesAccount(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 100
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address
	to := BytesToAddress([]byte("recipient"))

	contract := &Contract{Kind: KindTransfer, Owner: owner.Address, Transfer: &TransferContract{ToAddress: to, Amount: 40}}
	if err := transferActuator{}.Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := transferActuator{}.Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil || gotOwner.Balance != 60 {
		t.Fatalf("owner.Balance after transfer = %d, %v; want 60, nil", gotOwner.Balance, err)
	}
	gotTo, found, err := state.GetAccount(to)
	if err != nil || !found || gotTo.Balance != 40 {
		t.Fatalf("recipient.Balance after transfer = %d, found=%v, %v; want 40, true, nil", gotTo.Balance, found, err)
	}
	if !c.Tx.NewAccountCreated {
		t.Fatalf("Tx.NewAccountCreated should be set when the recipient did not previously exist")
	}
}

func TestTransferActuatorExecuteFailsWithoutSufficientBalance(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 10
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address

	contract := &Contract{Kind: KindTransfer, Owner: owner.Address, Transfer: &TransferContract{ToAddress: BytesToAddress([]byte("to")), Amount: 50}}
	if err := transferActuator{}.Execute(c, contract); !errors.Is(err, ErrExecution) {
		t.Fatalf("Execute with insufficient balance = %v, want ErrExecution", err)
	}
}

func TestTransferAssetActuatorValidateRejectsUnknownAsset(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address

	contract := &Contract{
		Kind:  KindTransferAsset,
		Owner: owner.Address,
		TransferAsset: &TransferAssetContract{
			ToAddress: BytesToAddress([]byte("to")),
			AssetName: []byte("1000001"),
			Amount:    1,
		},
	}
	if err := transferAssetActuator{}.Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate with unknown asset = %v, want ErrValidation", err)
	}
}
