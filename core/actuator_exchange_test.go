package core

import (
	"errors"
	"testing"
)

func TestExchangeCreateActuatorExecuteSeedsFromOwnerBalances(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 1000
	owner.TokenBalance[1000001] = 500
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address

	contract := &Contract{
		Kind:  KindExchangeCreate,
		Owner: owner.Address,
		ExchangeCreate: &ExchangeCreateContract{
			FirstTokenID:       []byte("_"),
			FirstTokenBalance:  400,
			SecondTokenID:      []byte("1000001"),
			SecondTokenBalance: 200,
		},
	}
	if err := (exchangeCreateActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (exchangeCreateActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil || gotOwner.Balance != 600 || gotOwner.TokenBalance[1000001] != 300 {
		t.Fatalf("owner after exchange seed = %+v, err=%v", gotOwner, err)
	}
	ex, found, err := state.GetExchange(1)
	if err != nil || !found || ex.FirstTokenBalance != 400 || ex.SecondTokenBalance != 200 {
		t.Fatalf("GetExchange(1) = %+v, found=%v, err=%v", ex, found, err)
	}
}

func TestExchangeCreateActuatorValidateRejectsSameToken(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 1000
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address

	contract := &Contract{
		Kind:  KindExchangeCreate,
		Owner: owner.Address,
		ExchangeCreate: &ExchangeCreateContract{
			FirstTokenID:       []byte("_"),
			FirstTokenBalance:  1,
			SecondTokenID:      []byte("_"),
			SecondTokenBalance: 1,
		},
	}
	if err := (exchangeCreateActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(same token pair) = %v, want ErrValidation", err)
	}
}

func newTestExchange(t *testing.T, state *StateDB) int64 {
	t.Helper()
	id, err := state.NextExchangeID()
	if err != nil {
		t.Fatalf("NextExchangeID: %v", err)
	}
	e := &Exchange{
		ID:                 id,
		FirstTokenID:       []byte("_"),
		FirstTokenBalance:  1000,
		SecondTokenID:      []byte("1000001"),
		SecondTokenBalance: 2000,
	}
	if err := state.PutExchange(e); err != nil {
		t.Fatalf("PutExchange: %v", err)
	}
	return id
}

func TestExchangeInjectActuatorCreditsProportionalOtherLeg(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 500
	owner.TokenBalance[1000001] = 5000
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address
	id := newTestExchange(t, state)

	contract := &Contract{Kind: KindExchangeInject, Owner: owner.Address, ExchangeInject: &ExchangeInjectContract{ExchangeID: id, TokenID: []byte("_"), Quant: 100}}
	if err := (exchangeInjectActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (exchangeInjectActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	ex, _, err := state.GetExchange(id)
	if err != nil {
		t.Fatalf("GetExchange: %v", err)
	}
	if ex.FirstTokenBalance != 1100 || ex.SecondTokenBalance != 2200 {
		t.Fatalf("exchange after inject = %+v, want First=1100 Second=2200", ex)
	}
	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil || gotOwner.Balance != 400 || gotOwner.TokenBalance[1000001] != 4800 {
		t.Fatalf("owner after inject = %+v, err=%v", gotOwner, err)
	}
}

func TestExchangeInjectActuatorValidateRejectsUnrelatedToken(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.TokenBalance[42] = 100
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address
	id := newTestExchange(t, state)

	contract := &Contract{Kind: KindExchangeInject, Owner: owner.Address, ExchangeInject: &ExchangeInjectContract{ExchangeID: id, TokenID: []byte("42"), Quant: 10}}
	if err := (exchangeInjectActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(unrelated token) = %v, want ErrValidation", err)
	}
}

func TestExchangeWithdrawActuatorRefundsBothLegsProportionally(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address
	id := newTestExchange(t, state)

	contract := &Contract{Kind: KindExchangeWithdraw, Owner: owner.Address, ExchangeWithdraw: &ExchangeWithdrawContract{ExchangeID: id, TokenID: []byte("_"), Quant: 100}}
	if err := (exchangeWithdrawActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (exchangeWithdrawActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	ex, _, err := state.GetExchange(id)
	if err != nil {
		t.Fatalf("GetExchange: %v", err)
	}
	if ex.FirstTokenBalance != 900 || ex.SecondTokenBalance != 1800 {
		t.Fatalf("exchange after withdraw = %+v, want First=900 Second=1800", ex)
	}
	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil || gotOwner.Balance != 100 || gotOwner.TokenBalance[1000001] != 200 {
		t.Fatalf("owner after withdraw = %+v, err=%v", gotOwner, err)
	}
}

func TestExchangeWithdrawActuatorValidateRejectsExceedingBalance(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address
	id := newTestExchange(t, state)

	contract := &Contract{Kind: KindExchangeWithdraw, Owner: owner.Address, ExchangeWithdraw: &ExchangeWithdrawContract{ExchangeID: id, TokenID: []byte("_"), Quant: 100000}}
	if err := (exchangeWithdrawActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(withdraw exceeds balance) = %v, want ErrValidation", err)
	}
}

func TestExchangeTransactionActuatorExecuteAppliesConstantProduct(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 500
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address
	id := newTestExchange(t, state) // 1000 TRX / 2000 token

	contract := &Contract{Kind: KindExchangeTransaction, Owner: owner.Address, ExchangeTxn: &ExchangeTransactionContract{ExchangeID: id, TokenID: []byte("_"), Quant: 100, Expected: 1}}
	if err := (exchangeTransactionActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (exchangeTransactionActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantBought := int64(100) * 2000 / (1000 + 100)
	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil || gotOwner.Balance != 400 || gotOwner.TokenBalance[1000001] != wantBought {
		t.Fatalf("owner after trade = %+v, err=%v, want Balance=400 token=%d", gotOwner, err, wantBought)
	}
}

func TestExchangeTransactionActuatorExecuteRejectsBelowMinimumExpected(t *testing.T) {
	t.Parallel()

	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 500
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address
	id := newTestExchange(t, state)

	contract := &Contract{Kind: KindExchangeTransaction, Owner: owner.Address, ExchangeTxn: &ExchangeTransactionContract{ExchangeID: id, TokenID: []byte("_"), Quant: 100, Expected: 1_000_000}}
	if err := (exchangeTransactionActuator{}).Execute(c, contract); !errors.Is(err, ErrExecution) {
		t.Fatalf("Execute(below minimum expected) = %v, want ErrExecution", err)
	}
}
