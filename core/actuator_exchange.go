package core

import "fmt"

// exchangeTokenBalance reads an account's balance of a pseudo-asset id,
// where id 0 (the "_" token in the reference) means native TRX held in
// Account.Balance rather than TokenBalance.
func exchangeTokenBalance(a *Account, assetID int64) int64 {
	if assetID == 0 {
		return a.Balance
	}
	return a.TokenBalance[assetID]
}

func addExchangeTokenBalance(a *Account, assetID, amount int64) {
	if assetID == 0 {
		a.Balance += amount
		return
	}
	if a.TokenBalance == nil {
		a.TokenBalance = make(map[int64]int64)
	}
	a.TokenBalance[assetID] += amount
}

// resolveExchangeToken maps a token id byte string to its pseudo-asset
// id: "_" (or empty) is native TRX, anything else is a TRC-10 id parsed
// the same way transferAssetActuator resolves an asset name.
func resolveExchangeToken(d *DynamicProperties, tokenID []byte) int64 {
	if len(tokenID) == 0 || string(tokenID) == "_" {
		return 0
	}
	return ParseAssetID(tokenID, d.Allowed(AllowSameTokenName))
}

// exchangeCreateActuator opens a new bancor-style TRX/TRC-10 or
// TRC-10/TRC-10 liquidity pair, seeded by the creator's own balances.
type exchangeCreateActuator struct{}

func (exchangeCreateActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ExchangeCreate
	if p == nil {
		return fmt.Errorf("%w: missing ExchangeCreateContract payload", ErrValidation)
	}
	if p.FirstTokenBalance <= 0 || p.SecondTokenBalance <= 0 {
		return fmt.Errorf("%w: exchange token balances must be positive", ErrValidation)
	}
	first := resolveExchangeToken(c.Dynamic, p.FirstTokenID)
	second := resolveExchangeToken(c.Dynamic, p.SecondTokenID)
	if first == second {
		return fmt.Errorf("%w: exchange pair tokens must differ", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if exchangeTokenBalance(owner, first) < p.FirstTokenBalance {
		return fmt.Errorf("%w: insufficient first token balance", ErrValidation)
	}
	if exchangeTokenBalance(owner, second) < p.SecondTokenBalance {
		return fmt.Errorf("%w: insufficient second token balance", ErrValidation)
	}
	return nil
}

func (exchangeCreateActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.ExchangeCreate
	first := resolveExchangeToken(c.Dynamic, p.FirstTokenID)
	second := resolveExchangeToken(c.Dynamic, p.SecondTokenID)
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found || exchangeTokenBalance(owner, first) < p.FirstTokenBalance ||
		exchangeTokenBalance(owner, second) < p.SecondTokenBalance {
		return fmt.Errorf("%w: insufficient balance to seed exchange", ErrExecution)
	}
	id, err := c.State.NextExchangeID()
	if err != nil {
		return err
	}
	addExchangeTokenBalance(owner, first, -p.FirstTokenBalance)
	addExchangeTokenBalance(owner, second, -p.SecondTokenBalance)
	exchange := &Exchange{
		ID:                 id,
		CreatorAddress:     c.Owner,
		CreateTime:         c.BlockTime,
		FirstTokenID:       p.FirstTokenID,
		FirstTokenBalance:  p.FirstTokenBalance,
		SecondTokenID:      p.SecondTokenID,
		SecondTokenBalance: p.SecondTokenBalance,
	}
	if err := c.State.PutExchange(exchange); err != nil {
		return err
	}
	return c.State.PutAccount(owner)
}

func getExchangeOrFail(c *ActuatorContext, id int64, sentinel error) (*Exchange, error) {
	e, found, err := c.State.GetExchange(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: unknown exchange %d", sentinel, id)
	}
	return e, nil
}

// exchangeTokenSlot resolves which leg of the pair a token id names,
// returning -1 if it names neither leg.
func exchangeTokenSlot(e *Exchange, d *DynamicProperties, tokenID []byte) int {
	want := resolveExchangeToken(d, tokenID)
	if want == resolveExchangeToken(d, e.FirstTokenID) {
		return 0
	}
	if want == resolveExchangeToken(d, e.SecondTokenID) {
		return 1
	}
	return -1
}

// exchangeInjectActuator adds liquidity to one leg of a pair together with
// the proportional amount of the other leg, keeping the pair's balance
// ratio; the depositor is debited for both amounts.
type exchangeInjectActuator struct{}

func (exchangeInjectActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ExchangeInject
	if p == nil || p.Quant <= 0 {
		return fmt.Errorf("%w: missing ExchangeInjectContract payload or non-positive quant", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	e, err := getExchangeOrFail(c, p.ExchangeID, ErrValidation)
	if err != nil {
		return err
	}
	slot := exchangeTokenSlot(e, c.Dynamic, p.TokenID)
	if slot < 0 {
		return fmt.Errorf("%w: token is not part of this exchange pair", ErrValidation)
	}
	tokenID := resolveExchangeToken(c.Dynamic, p.TokenID)
	if exchangeTokenBalance(owner, tokenID) < p.Quant {
		return fmt.Errorf("%w: insufficient balance to inject", ErrValidation)
	}
	return nil
}

func (exchangeInjectActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.ExchangeInject
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	e, err := getExchangeOrFail(c, p.ExchangeID, ErrExecution)
	if err != nil {
		return err
	}
	slot := exchangeTokenSlot(e, c.Dynamic, p.TokenID)
	if slot < 0 {
		return fmt.Errorf("%w: token is not part of this exchange pair", ErrExecution)
	}
	injectedID := resolveExchangeToken(c.Dynamic, p.TokenID)
	if exchangeTokenBalance(owner, injectedID) < p.Quant {
		return fmt.Errorf("%w: insufficient balance to inject", ErrExecution)
	}
	var otherID int64
	var otherQuant int64
	if slot == 0 {
		otherID = resolveExchangeToken(c.Dynamic, e.SecondTokenID)
		otherQuant = bancorProportional(p.Quant, e.FirstTokenBalance, e.SecondTokenBalance)
		e.FirstTokenBalance += p.Quant
		e.SecondTokenBalance += otherQuant
	} else {
		otherID = resolveExchangeToken(c.Dynamic, e.FirstTokenID)
		otherQuant = bancorProportional(p.Quant, e.SecondTokenBalance, e.FirstTokenBalance)
		e.SecondTokenBalance += p.Quant
		e.FirstTokenBalance += otherQuant
	}
	if exchangeTokenBalance(owner, otherID) < otherQuant {
		return fmt.Errorf("%w: insufficient paired-token balance to inject", ErrExecution)
	}
	addExchangeTokenBalance(owner, injectedID, -p.Quant)
	addExchangeTokenBalance(owner, otherID, -otherQuant)
	if err := c.State.PutExchange(e); err != nil {
		return err
	}
	return c.State.PutAccount(owner)
}

// bancorProportional returns the amount of the paired leg that balances
// against injecting/withdrawing quant of one leg, rounding down like the
// reference's integer bancor math.
func bancorProportional(quant, fromBalance, toBalance int64) int64 {
	if fromBalance == 0 {
		return 0
	}
	return quant * toBalance / fromBalance
}

// exchangeWithdrawActuator is the inverse of inject: removes liquidity
// from one leg, refunding the proportional amount of both legs.
type exchangeWithdrawActuator struct{}

func (exchangeWithdrawActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ExchangeWithdraw
	if p == nil || p.Quant <= 0 {
		return fmt.Errorf("%w: missing ExchangeWithdrawContract payload or non-positive quant", ErrValidation)
	}
	if _, err := requireOwner(c); err != nil {
		return err
	}
	e, err := getExchangeOrFail(c, p.ExchangeID, ErrValidation)
	if err != nil {
		return err
	}
	slot := exchangeTokenSlot(e, c.Dynamic, p.TokenID)
	if slot < 0 {
		return fmt.Errorf("%w: token is not part of this exchange pair", ErrValidation)
	}
	if slot == 0 && p.Quant > e.FirstTokenBalance {
		return fmt.Errorf("%w: withdraw exceeds exchange balance", ErrValidation)
	}
	if slot == 1 && p.Quant > e.SecondTokenBalance {
		return fmt.Errorf("%w: withdraw exceeds exchange balance", ErrValidation)
	}
	return nil
}

func (exchangeWithdrawActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.ExchangeWithdraw
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	e, err := getExchangeOrFail(c, p.ExchangeID, ErrExecution)
	if err != nil {
		return err
	}
	slot := exchangeTokenSlot(e, c.Dynamic, p.TokenID)
	if slot < 0 {
		return fmt.Errorf("%w: token is not part of this exchange pair", ErrExecution)
	}
	var withdrawnID, otherID int64
	var otherQuant int64
	if slot == 0 {
		if p.Quant > e.FirstTokenBalance {
			return fmt.Errorf("%w: withdraw exceeds exchange balance", ErrExecution)
		}
		withdrawnID = resolveExchangeToken(c.Dynamic, e.FirstTokenID)
		otherID = resolveExchangeToken(c.Dynamic, e.SecondTokenID)
		otherQuant = bancorProportional(p.Quant, e.FirstTokenBalance, e.SecondTokenBalance)
		e.FirstTokenBalance -= p.Quant
		e.SecondTokenBalance -= otherQuant
	} else {
		if p.Quant > e.SecondTokenBalance {
			return fmt.Errorf("%w: withdraw exceeds exchange balance", ErrExecution)
		}
		withdrawnID = resolveExchangeToken(c.Dynamic, e.SecondTokenID)
		otherID = resolveExchangeToken(c.Dynamic, e.FirstTokenID)
		otherQuant = bancorProportional(p.Quant, e.SecondTokenBalance, e.FirstTokenBalance)
		e.SecondTokenBalance -= p.Quant
		e.FirstTokenBalance -= otherQuant
	}
	addExchangeTokenBalance(owner, withdrawnID, p.Quant)
	addExchangeTokenBalance(owner, otherID, otherQuant)
	if err := c.State.PutExchange(e); err != nil {
		return err
	}
	return c.State.PutAccount(owner)
}

// exchangeTransactionActuator trades one leg of a pair for the other at
// the pool's current constant-product price, enforcing the caller's
// minimum-received guard.
type exchangeTransactionActuator struct{}

func (exchangeTransactionActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ExchangeTxn
	if p == nil || p.Quant <= 0 {
		return fmt.Errorf("%w: missing ExchangeTransactionContract payload or non-positive quant", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	e, err := getExchangeOrFail(c, p.ExchangeID, ErrValidation)
	if err != nil {
		return err
	}
	slot := exchangeTokenSlot(e, c.Dynamic, p.TokenID)
	if slot < 0 {
		return fmt.Errorf("%w: token is not part of this exchange pair", ErrValidation)
	}
	tokenID := resolveExchangeToken(c.Dynamic, p.TokenID)
	if exchangeTokenBalance(owner, tokenID) < p.Quant {
		return fmt.Errorf("%w: insufficient balance to trade", ErrValidation)
	}
	return nil
}

func (exchangeTransactionActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.ExchangeTxn
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	e, err := getExchangeOrFail(c, p.ExchangeID, ErrExecution)
	if err != nil {
		return err
	}
	slot := exchangeTokenSlot(e, c.Dynamic, p.TokenID)
	if slot < 0 {
		return fmt.Errorf("%w: token is not part of this exchange pair", ErrExecution)
	}
	var soldID, boughtID int64
	var bought int64
	if slot == 0 {
		soldID = resolveExchangeToken(c.Dynamic, e.FirstTokenID)
		boughtID = resolveExchangeToken(c.Dynamic, e.SecondTokenID)
		bought = constantProductOut(p.Quant, e.FirstTokenBalance, e.SecondTokenBalance)
		e.FirstTokenBalance += p.Quant
		e.SecondTokenBalance -= bought
	} else {
		soldID = resolveExchangeToken(c.Dynamic, e.SecondTokenID)
		boughtID = resolveExchangeToken(c.Dynamic, e.FirstTokenID)
		bought = constantProductOut(p.Quant, e.SecondTokenBalance, e.FirstTokenBalance)
		e.SecondTokenBalance += p.Quant
		e.FirstTokenBalance -= bought
	}
	if bought < p.Expected {
		return fmt.Errorf("%w: trade output below expected minimum", ErrExecution)
	}
	if exchangeTokenBalance(owner, soldID) < p.Quant {
		return fmt.Errorf("%w: insufficient balance to trade", ErrExecution)
	}
	addExchangeTokenBalance(owner, soldID, -p.Quant)
	addExchangeTokenBalance(owner, boughtID, bought)
	if err := c.State.PutExchange(e); err != nil {
		return err
	}
	return c.State.PutAccount(owner)
}

// constantProductOut applies the x*y=k invariant: selling `in` of the
// reserve `inBalance` yields out of `outBalance` such that the product
// is preserved (rounded down, as the reference's integer math does).
func constantProductOut(in, inBalance, outBalance int64) int64 {
	if inBalance+in == 0 {
		return 0
	}
	return in * outBalance / (inBalance + in)
}
