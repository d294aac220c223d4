package core

import "fmt"

// energyLimitFromFee converts a transaction's fee_limit into a maximum
// energy budget at the current EnergyPrice (spec.md §4.5/§4.6): the TVM
// never runs past what the caller is willing to pay for.
func energyLimitFromFee(feeLimit int64, dynamic *DynamicProperties) int64 {
	price := dynamic.Get(EnergyPrice)
	if price <= 0 {
		return 0
	}
	return feeLimit / price
}

// settleEnergy charges the energy a TVM run consumed, splitting it
// between the transaction's caller and the contract's origin per
// spec.md §4.5, and mirrors the outcome into the per-transaction
// accumulator for the receipt.
func settleEnergy(c *ActuatorContext, originAddr Address, originEnergyLimit, userPercent int64, gasUsed uint64) error {
	caller, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: caller account missing", ErrExecution)
	}
	origin := caller
	if originAddr != c.Owner {
		o, _, err := c.State.GetOrCreateAccount(originAddr)
		if err != nil {
			return err
		}
		origin = o
	}
	blackhole, _, err := c.State.GetOrCreateAccount(c.Blackhole)
	if err != nil {
		return err
	}
	ep := NewEnergyProcessor(c.State)
	split, err := ep.Charge(caller, origin, originEnergyLimit, userPercent, int64(gasUsed), c.CurrentSlot, c.Dynamic, blackhole)
	if err != nil {
		return err
	}
	c.Tx.CallerEnergyUsage = split.CallerEnergyUsage
	c.Tx.OriginEnergyUsage = split.OriginEnergyUsage
	c.Tx.EnergyFee = split.CallerBurnedFee
	if err := c.State.PutAccount(caller); err != nil {
		return err
	}
	if origin.Address != caller.Address {
		if err := c.State.PutAccount(origin); err != nil {
			return err
		}
	}
	return c.State.PutAccount(blackhole)
}

// legacyTrimRuntimeCode reproduces the pre-Constantinople reference's
// deploy-to-runtime trimming (spec.md §4.6): scan the constructor
// bytecode for the first RETURN or STOP opcode and return everything
// after it as the contract's runtime code. This is a known-buggy scan (it
// does not skip over PUSH immediate-data bytes that happen to equal
// RETURN/STOP) and is preserved byte-for-byte for ledger compatibility
// rather than fixed.
func legacyTrimRuntimeCode(bytecode []byte) []byte {
	for i, b := range bytecode {
		if b == byte(OpReturn) || b == byte(OpStop) {
			return append([]byte(nil), bytecode[i+1:]...)
		}
	}
	return nil
}

// isFatalVMExit reports whether a VM exit condition is charged the full
// energy limit on failure rather than just the metered amount consumed up
// to the failure point (spec.md §4.6/§7): a plain revert is the only
// "ordinary" failure, every other non-success exit is fatal.
func isFatalVMExit(status ContractStatus) bool {
	return status != StatusSuccess && status != StatusRevert
}

// createSmartContractActuator deploys new TVM bytecode, running its
// constructor against a freshly derived contract address (spec.md §4.6,
// §8 "contract address derivation vector"). Balance transfer and
// constructor storage effects run inside their own state layer so a
// reverted constructor leaves no trace beyond the energy it consumed.
type createSmartContractActuator struct{}

func (createSmartContractActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.CreateSmartContract
	if p == nil {
		return fmt.Errorf("%w: missing CreateSmartContract payload", ErrValidation)
	}
	if p.CallValue < 0 {
		return fmt.Errorf("%w: call value must not be negative", ErrValidation)
	}
	if p.CallTokenValue < 0 {
		return fmt.Errorf("%w: call token value must not be negative", ErrValidation)
	}
	if len(p.NewContract.Bytecode) == 0 {
		return fmt.Errorf("%w: empty contract bytecode", ErrValidation)
	}
	if p.NewContract.ConsumeUserEnergyPercent < 0 || p.NewContract.ConsumeUserEnergyPercent > 100 {
		return fmt.Errorf("%w: consume_user_energy_percent must be in [0, 100]", ErrValidation)
	}
	if !c.Dynamic.Allowed(AllowTvm) {
		return fmt.Errorf("%w: TVM is not enabled", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if owner.Balance < p.CallValue {
		return fmt.Errorf("%w: insufficient balance for call value", ErrValidation)
	}
	return nil
}

func (createSmartContractActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.CreateSmartContract
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found || owner.Balance < p.CallValue {
		return fmt.Errorf("%w: insufficient balance for call value", ErrExecution)
	}
	transferToken := p.CallTokenValue > 0 && c.Dynamic.Allowed(AllowTvmTransferTrc10Upgrade)
	if transferToken && owner.TokenBalance[p.TokenID] < p.CallTokenValue {
		return fmt.Errorf("%w: insufficient token balance for call token value", ErrExecution)
	}
	contractAddr := GenerateCreatedContractAddress(c.TxHash, c.Owner)
	if _, found, err := c.State.GetSmartContract(contractAddr); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: derived contract address already in use", ErrExecution)
	}

	energyLimit := energyLimitFromFee(c.FeeLimit, c.Dynamic)

	c.State.NewLayer()
	contractAcct := NewAccount(contractAddr)
	contractAcct.Type = AccountContract
	contractAcct.IsContract = true
	owner.Balance -= p.CallValue
	contractAcct.Balance += p.CallValue
	if transferToken {
		owner.TokenBalance[p.TokenID] -= p.CallTokenValue
		if contractAcct.TokenBalance == nil {
			contractAcct.TokenBalance = make(map[int64]int64)
		}
		contractAcct.TokenBalance[p.TokenID] += p.CallTokenValue
	}
	if err := c.State.PutAccount(owner); err != nil {
		_ = c.State.DiscardLastLayer()
		return err
	}
	if err := c.State.PutAccount(contractAcct); err != nil {
		_ = c.State.DiscardLastLayer()
		return err
	}

	tvm := NewTVM(c.State, TVMContext{
		BlockNumber: c.BlockNumber,
		BlockTime:   c.BlockTime,
		Coinbase:    c.Blackhole,
		GasPrice:    c.Dynamic.Get(EnergyPrice),
		Origin:      c.Owner,
	})
	result, err := tvm.Run(p.NewContract.Bytecode, TVMMessage{
		Caller:    c.Owner,
		Contract:  contractAddr,
		CallValue: p.CallValue,
		Gas:       uint64(energyLimit),
	})
	if err != nil {
		_ = c.State.DiscardLastLayer()
		return fmt.Errorf("%w: contract creation: %v", ErrExecution, err)
	}

	gasUsed := result.GasUsed
	if result.Status == StatusSuccess {
		// spec.md §4.6: pre-Constantinople, the reference persists a
		// pre-scanned trim of the constructor's own bytecode as runtime
		// code; post-fork, it persists whatever the constructor returned.
		deployedCode := result.ReturnData
		if c.ForkCtrl == nil || !c.ForkCtrl.PassVersion(UpgradeConstantinople) {
			deployedCode = legacyTrimRuntimeCode(p.NewContract.Bytecode)
		}
		saveCost := uint64(SaveCodeEnergyPerByte) * uint64(len(deployedCode))
		if gasUsed+saveCost > uint64(energyLimit) {
			// Insufficient energy to save the deployed code converts the
			// whole result into an out-of-energy failure: nothing
			// persists, and the full limit is charged.
			if err := c.State.DiscardLastLayer(); err != nil {
				return err
			}
			result.Status = StatusOutOfEnergy
			result.ReturnData = nil
			gasUsed = uint64(energyLimit)
		} else {
			gasUsed += saveCost
			if err := c.State.PutContractCode(contractAddr, deployedCode); err != nil {
				_ = c.State.DiscardLastLayer()
				return err
			}
			sc := &SmartContract{
				OriginAddress:            c.Owner,
				ContractAddress:          contractAddr,
				Bytecode:                 deployedCode,
				ABI:                      p.NewContract.ABI,
				ConsumeUserEnergyPercent: p.NewContract.ConsumeUserEnergyPercent,
				OriginEnergyLimit:        p.NewContract.OriginEnergyLimit,
				CodeHash:                 BytesToHash(Keccak256(deployedCode)),
			}
			if err := c.State.PutSmartContract(sc); err != nil {
				_ = c.State.DiscardLastLayer()
				return err
			}
			if err := c.State.SolidifyLayer(); err != nil {
				return err
			}
			c.Tx.NewAccountCreated = true
			c.Tx.ContractAddress = contractAddr
		}
	} else {
		if err := c.State.DiscardLastLayer(); err != nil {
			return err
		}
		if isFatalVMExit(result.Status) {
			gasUsed = uint64(energyLimit)
		}
	}

	c.Tx.VMReturn = result.ReturnData
	c.Tx.VMLogs = result.Logs
	c.Tx.VMStatus = result.Status

	return settleEnergy(c, c.Owner, p.NewContract.OriginEnergyLimit, p.NewContract.ConsumeUserEnergyPercent, gasUsed)
}

// triggerSmartContractActuator calls an already-deployed contract's code.
// Per spec.md §4.6's preserved legacy quirk, a transaction already marked
// OutOfTime bypasses the VM entirely and is charged its full energy limit
// with no value transfer attempted.
type triggerSmartContractActuator struct{}

func (triggerSmartContractActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.TriggerSmartContract
	if p == nil {
		return fmt.Errorf("%w: missing TriggerSmartContract payload", ErrValidation)
	}
	if p.CallValue < 0 {
		return fmt.Errorf("%w: call value must not be negative", ErrValidation)
	}
	if p.CallTokenValue < 0 {
		return fmt.Errorf("%w: call token value must not be negative", ErrValidation)
	}
	if !c.Dynamic.Allowed(AllowTvm) {
		return fmt.Errorf("%w: TVM is not enabled", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if owner.Balance < p.CallValue {
		return fmt.Errorf("%w: insufficient balance for call value", ErrValidation)
	}
	sc, found, err := c.State.GetSmartContract(p.ContractAddress)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: unknown contract %s", ErrValidation, p.ContractAddress.Hex())
	}
	_ = sc
	return nil
}

func (triggerSmartContractActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.TriggerSmartContract
	sc, found, err := c.State.GetSmartContract(p.ContractAddress)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: unknown contract %s", ErrExecution, p.ContractAddress.Hex())
	}

	energyLimit := energyLimitFromFee(c.FeeLimit, c.Dynamic)

	if c.Tx.OutOfTime {
		// spec.md §4.6's preserved legacy quirk: a transaction already
		// marked OutOfTime bypasses the VM entirely and is charged the
		// full energy limit with no value transfer attempted.
		c.Tx.VMStatus = StatusOutOfTime
		return settleEnergy(c, sc.OriginAddress, sc.OriginEnergyLimit, sc.ConsumeUserEnergyPercent, uint64(energyLimit))
	}

	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found || owner.Balance < p.CallValue {
		return fmt.Errorf("%w: insufficient balance for call value", ErrExecution)
	}
	transferToken := p.CallTokenValue > 0 && c.Dynamic.Allowed(AllowTvmTransferTrc10Upgrade)
	if transferToken && owner.TokenBalance[p.TokenID] < p.CallTokenValue {
		return fmt.Errorf("%w: insufficient token balance for call token value", ErrExecution)
	}
	code, _, err := c.State.GetContractCode(p.ContractAddress)
	if err != nil {
		return err
	}

	c.State.NewLayer()
	contractAcct, _, err := c.State.GetOrCreateAccount(p.ContractAddress)
	if err != nil {
		_ = c.State.DiscardLastLayer()
		return err
	}
	owner.Balance -= p.CallValue
	contractAcct.Balance += p.CallValue
	if transferToken {
		owner.TokenBalance[p.TokenID] -= p.CallTokenValue
		if contractAcct.TokenBalance == nil {
			contractAcct.TokenBalance = make(map[int64]int64)
		}
		contractAcct.TokenBalance[p.TokenID] += p.CallTokenValue
	}
	if err := c.State.PutAccount(owner); err != nil {
		_ = c.State.DiscardLastLayer()
		return err
	}
	if err := c.State.PutAccount(contractAcct); err != nil {
		_ = c.State.DiscardLastLayer()
		return err
	}

	tvm := NewTVM(c.State, TVMContext{
		BlockNumber: c.BlockNumber,
		BlockTime:   c.BlockTime,
		Coinbase:    c.Blackhole,
		GasPrice:    c.Dynamic.Get(EnergyPrice),
		Origin:      c.Owner,
	})
	result, err := tvm.Run(code, TVMMessage{
		Caller:    c.Owner,
		Contract:  p.ContractAddress,
		CallValue: p.CallValue,
		Input:     p.Data,
		Gas:       uint64(energyLimit),
	})
	if err != nil {
		_ = c.State.DiscardLastLayer()
		return fmt.Errorf("%w: contract trigger: %v", ErrExecution, err)
	}

	gasUsed := result.GasUsed
	if result.Status == StatusSuccess {
		if err := c.State.SolidifyLayer(); err != nil {
			return err
		}
	} else {
		if err := c.State.DiscardLastLayer(); err != nil {
			return err
		}
		if isFatalVMExit(result.Status) {
			gasUsed = uint64(energyLimit)
		}
	}

	c.Tx.VMReturn = result.ReturnData
	c.Tx.VMLogs = result.Logs
	c.Tx.VMStatus = result.Status

	return settleEnergy(c, sc.OriginAddress, sc.OriginEnergyLimit, sc.ConsumeUserEnergyPercent, gasUsed)
}

// updateSettingActuator lets a contract's origin account revise the
// percentage of energy its callers subsidize.
type updateSettingActuator struct{}

func (updateSettingActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.UpdateSetting
	if p == nil {
		return fmt.Errorf("%w: missing UpdateSettingContract payload", ErrValidation)
	}
	if p.ConsumeUserResourcePercent < 0 || p.ConsumeUserResourcePercent > 100 {
		return fmt.Errorf("%w: consume_user_resource_percent must be in [0, 100]", ErrValidation)
	}
	if _, err := requireOwner(c); err != nil {
		return err
	}
	sc, found, err := c.State.GetSmartContract(p.ContractAddress)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: unknown contract %s", ErrValidation, p.ContractAddress.Hex())
	}
	if sc.OriginAddress != c.Owner {
		return fmt.Errorf("%w: only the contract's origin may update its settings", ErrValidation)
	}
	return nil
}

func (updateSettingActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.UpdateSetting
	sc, found, err := c.State.GetSmartContract(p.ContractAddress)
	if err != nil {
		return err
	}
	if !found || sc.OriginAddress != c.Owner {
		return fmt.Errorf("%w: contract not eligible for update", ErrExecution)
	}
	sc.ConsumeUserEnergyPercent = p.ConsumeUserResourcePercent
	return c.State.PutSmartContract(sc)
}

// updateEnergyLimitActuator lets a contract's origin account revise how
// much of its own frozen energy it shares with callers per call.
type updateEnergyLimitActuator struct{}

func (updateEnergyLimitActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.UpdateEnergyLimit
	if p == nil {
		return fmt.Errorf("%w: missing UpdateEnergyLimitContract payload", ErrValidation)
	}
	if p.OriginEnergyLimit < 0 {
		return fmt.Errorf("%w: origin energy limit must not be negative", ErrValidation)
	}
	if _, err := requireOwner(c); err != nil {
		return err
	}
	sc, found, err := c.State.GetSmartContract(p.ContractAddress)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: unknown contract %s", ErrValidation, p.ContractAddress.Hex())
	}
	if sc.OriginAddress != c.Owner {
		return fmt.Errorf("%w: only the contract's origin may update its energy limit", ErrValidation)
	}
	return nil
}

func (updateEnergyLimitActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.UpdateEnergyLimit
	sc, found, err := c.State.GetSmartContract(p.ContractAddress)
	if err != nil {
		return err
	}
	if !found || sc.OriginAddress != c.Owner {
		return fmt.Errorf("%w: contract not eligible for update", ErrExecution)
	}
	sc.OriginEnergyLimit = p.OriginEnergyLimit
	return c.State.PutSmartContract(sc)
}

// clearAbiActuator drops a contract's stored ABI blob, used by the
// reference to shrink state once a contract is considered stable.
type clearAbiActuator struct{}

func (clearAbiActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ClearAbi
	if p == nil {
		return fmt.Errorf("%w: missing ClearAbiContract payload", ErrValidation)
	}
	if _, err := requireOwner(c); err != nil {
		return err
	}
	sc, found, err := c.State.GetSmartContract(p.ContractAddress)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: unknown contract %s", ErrValidation, p.ContractAddress.Hex())
	}
	if sc.OriginAddress != c.Owner {
		return fmt.Errorf("%w: only the contract's origin may clear its abi", ErrValidation)
	}
	return nil
}

func (clearAbiActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.ClearAbi
	sc, found, err := c.State.GetSmartContract(p.ContractAddress)
	if err != nil {
		return err
	}
	if !found || sc.OriginAddress != c.Owner {
		return fmt.Errorf("%w: contract not eligible for update", ErrExecution)
	}
	sc.ABI = nil
	return c.State.PutSmartContract(sc)
}
