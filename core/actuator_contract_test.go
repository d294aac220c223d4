package core

import (
	"errors"
	"testing"
)

// newPassingForkController returns a controller in which a single witness has
// reported upgrade.MinVersion, the minimal roster that makes PassVersion
// report true for that checkpoint.
func newPassingForkController(upgrade UpgradeCheckpoint) *VersionForkController {
	witness := BytesToAddress([]byte("witness"))
	fc := NewVersionForkController([]Address{witness})
	fc.ReportBlockVersion(witness, upgrade.MinVersion)
	return fc
}

func newContractTestContext(t *testing.T, feeLimit int64) (*ActuatorContext, *StateDB, *Account) {
	t.Helper()
	c, state := newTestActuatorContext(t)
	owner := NewAccount(BytesToAddress([]byte("owner")))
	owner.Balance = 10_000_000
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	c.Owner = owner.Address
	c.FeeLimit = feeLimit
	c.TxHash = BytesToHash([]byte("txhash"))
	return c, state, owner
}

// TestCreateSmartContractActuatorExecuteOutOfEnergyVector reproduces
// spec.md §8 scenario 4's literal numeric vector: a constructor that
// returns 10 bytes under SAVE_CODE_ENERGY_PER_BYTE=200 needs 2000 energy
// to persist its code, which a 1000-energy fee_limit cannot cover. The
// whole result must convert into an out-of-energy failure: nothing
// persists and the caller is charged the full limit, not just the 6 gas
// the constructor itself metered.
func TestCreateSmartContractActuatorExecuteOutOfEnergyVector(t *testing.T) {
	t.Parallel()

	const energyPrice = 100
	const energyLimit = 1000 // feeLimit / energyPrice
	c, state, owner := newContractTestContext(t, energyLimit*energyPrice)
	c.ForkCtrl = newPassingForkController(UpgradeConstantinople)

	contract := &Contract{
		Kind:  KindCreateSmartContract,
		Owner: owner.Address,
		CreateSmartContract: &CreateSmartContractPayload{
			NewContract: SmartContract{
				// PUSH1 10, PUSH1 0, RETURN: returns 10 zero bytes for 6 gas.
				Bytecode: []byte{0x60, 0x0a, 0x60, 0x00, 0xf3},
			},
			CallValue: 500,
		},
	}
	if err := (createSmartContractActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (createSmartContractActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if c.Tx.VMStatus != StatusOutOfEnergy {
		t.Fatalf("VMStatus = %v, want StatusOutOfEnergy", c.Tx.VMStatus)
	}
	if got := c.Tx.CallerEnergyUsage + c.Tx.OriginEnergyUsage; got != energyLimit {
		t.Fatalf("energy charged = %d, want the full limit %d", got, energyLimit)
	}

	contractAddr := GenerateCreatedContractAddress(c.TxHash, owner.Address)
	if _, found, err := state.GetSmartContract(contractAddr); err != nil {
		t.Fatalf("GetSmartContract: %v", err)
	} else if found {
		t.Fatalf("contract must not persist when code cannot be saved")
	}
	if _, found, err := state.GetContractCode(contractAddr); err != nil {
		t.Fatalf("GetContractCode: %v", err)
	} else if found {
		t.Fatalf("contract code must not persist when code cannot be saved")
	}

	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	wantBalance := owner.Balance - energyLimit*energyPrice
	if gotOwner.Balance != wantBalance {
		t.Fatalf("owner.Balance = %d, want %d (call_value transfer must roll back)", gotOwner.Balance, wantBalance)
	}
}

// TestCreateSmartContractActuatorExecuteDeploysPostConstantinople checks
// the companion success path of the same vector: the same constructor
// succeeds against a fee_limit large enough to cover the 2000-energy save
// cost, and the deployed code is the constructor's literal return data
// (the post-ConstantinopleUpgrade rule).
func TestCreateSmartContractActuatorExecuteDeploysPostConstantinople(t *testing.T) {
	t.Parallel()

	const energyPrice = 100
	const energyLimit = 3000
	c, state, owner := newContractTestContext(t, energyLimit*energyPrice)
	c.ForkCtrl = newPassingForkController(UpgradeConstantinople)

	contract := &Contract{
		Kind:  KindCreateSmartContract,
		Owner: owner.Address,
		CreateSmartContract: &CreateSmartContractPayload{
			NewContract: SmartContract{
				Bytecode:                 []byte{0x60, 0x0a, 0x60, 0x00, 0xf3},
				ConsumeUserEnergyPercent: 50,
			},
			CallValue: 500,
		},
	}
	if err := (createSmartContractActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if c.Tx.VMStatus != StatusSuccess {
		t.Fatalf("VMStatus = %v, want StatusSuccess", c.Tx.VMStatus)
	}
	contractAddr := c.Tx.ContractAddress
	if contractAddr != GenerateCreatedContractAddress(c.TxHash, owner.Address) {
		t.Fatalf("ContractAddress = %x, want derived address", contractAddr)
	}

	sc, found, err := state.GetSmartContract(contractAddr)
	if err != nil {
		t.Fatalf("GetSmartContract: %v", err)
	}
	if !found {
		t.Fatalf("successful deploy must persist the SmartContract record")
	}
	if len(sc.Bytecode) != 10 {
		t.Fatalf("deployed code length = %d, want 10 (the constructor's return data)", len(sc.Bytecode))
	}
	if sc.CodeHash != BytesToHash(Keccak256(sc.Bytecode)) {
		t.Fatalf("CodeHash does not match stored bytecode")
	}

	contractAcct, found, err := state.GetAccount(contractAddr)
	if err != nil || !found {
		t.Fatalf("GetAccount(contract) found=%v err=%v", found, err)
	}
	if contractAcct.Balance != 500 {
		t.Fatalf("contract.Balance = %d, want 500", contractAcct.Balance)
	}

	wantGasUsed := int64(6 + SaveCodeEnergyPerByte*10)
	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil {
		t.Fatalf("GetAccount(owner): %v", err)
	}
	wantBalance := owner.Balance - 500 - wantGasUsed*energyPrice
	if gotOwner.Balance != wantBalance {
		t.Fatalf("owner.Balance = %d, want %d", gotOwner.Balance, wantBalance)
	}
}

// TestCreateSmartContractActuatorExecuteLegacyTrimsRuntimeCode checks the
// pre-ConstantinopleUpgrade path: with no fork passed, the deployed code
// is the pre-scanned trim of the constructor's own bytecode, not whatever
// the constructor returned.
func TestCreateSmartContractActuatorExecuteLegacyTrimsRuntimeCode(t *testing.T) {
	t.Parallel()

	const energyPrice = 100
	const energyLimit = 1000
	c, state, owner := newContractTestContext(t, energyLimit*energyPrice)
	// c.ForkCtrl left nil: PassVersion is never considered true.

	contract := &Contract{
		Kind:  KindCreateSmartContract,
		Owner: owner.Address,
		CreateSmartContract: &CreateSmartContractPayload{
			NewContract: SmartContract{
				// PUSH1 0x01, PUSH1 0x02, STOP, <runtime bytes>. The
				// constructor runs to the real STOP (no return data); the
				// legacy scan finds the first literal 0x00 byte, which
				// happens to be the same STOP here, and trims everything
				// after it.
				Bytecode: []byte{0x60, 0x01, 0x60, 0x02, 0x00, 0xDE, 0xAD, 0xBE, 0xEF},
			},
		},
	}
	if err := (createSmartContractActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.Tx.VMStatus != StatusSuccess {
		t.Fatalf("VMStatus = %v, want StatusSuccess", c.Tx.VMStatus)
	}

	sc, found, err := state.GetSmartContract(c.Tx.ContractAddress)
	if err != nil || !found {
		t.Fatalf("GetSmartContract found=%v err=%v", found, err)
	}
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if string(sc.Bytecode) != string(want) {
		t.Fatalf("deployed code = %x, want legacy-trimmed %x", sc.Bytecode, want)
	}
}

func TestCreateSmartContractActuatorValidateRejects(t *testing.T) {
	t.Parallel()

	c, state, owner := newContractTestContext(t, 100_000)
	base := &Contract{
		Kind:  KindCreateSmartContract,
		Owner: owner.Address,
		CreateSmartContract: &CreateSmartContractPayload{
			NewContract: SmartContract{Bytecode: []byte{0x00}},
		},
	}

	t.Run("negative call value", func(t *testing.T) {
		contract := *base
		p := *base.CreateSmartContract
		p.CallValue = -1
		contract.CreateSmartContract = &p
		if err := (createSmartContractActuator{}).Validate(c, &contract); !errors.Is(err, ErrValidation) {
			t.Fatalf("Validate(call_value<0) = %v, want ErrValidation", err)
		}
	})

	t.Run("negative call token value", func(t *testing.T) {
		contract := *base
		p := *base.CreateSmartContract
		p.CallTokenValue = -1
		contract.CreateSmartContract = &p
		if err := (createSmartContractActuator{}).Validate(c, &contract); !errors.Is(err, ErrValidation) {
			t.Fatalf("Validate(call_token_value<0) = %v, want ErrValidation", err)
		}
	})

	t.Run("empty bytecode", func(t *testing.T) {
		contract := *base
		p := SmartContract{}
		contract.CreateSmartContract = &CreateSmartContractPayload{NewContract: p}
		if err := (createSmartContractActuator{}).Validate(c, &contract); !errors.Is(err, ErrValidation) {
			t.Fatalf("Validate(empty bytecode) = %v, want ErrValidation", err)
		}
	})

	t.Run("tvm disabled", func(t *testing.T) {
		dynamic := DefaultDynamicProperties()
		dynamic.Set(AllowTvm, 0)
		c2 := *c
		c2.Dynamic = dynamic
		if err := (createSmartContractActuator{}).Validate(&c2, base); !errors.Is(err, ErrValidation) {
			t.Fatalf("Validate(tvm disabled) = %v, want ErrValidation", err)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		contract := *base
		p := *base.CreateSmartContract
		p.CallValue = owner.Balance + 1
		contract.CreateSmartContract = &p
		if err := (createSmartContractActuator{}).Validate(c, &contract); !errors.Is(err, ErrValidation) {
			t.Fatalf("Validate(call_value>balance) = %v, want ErrValidation", err)
		}
	})

	_ = state
}

func deployTestContract(t *testing.T, state *StateDB, code []byte, origin Address) Address {
	t.Helper()
	addr := BytesToAddress([]byte("deployed-contract"))
	if err := state.PutContractCode(addr, code); err != nil {
		t.Fatalf("PutContractCode: %v", err)
	}
	sc := &SmartContract{
		OriginAddress:   origin,
		ContractAddress: addr,
		Bytecode:        code,
		CodeHash:        BytesToHash(Keccak256(code)),
	}
	if err := state.PutSmartContract(sc); err != nil {
		t.Fatalf("PutSmartContract: %v", err)
	}
	return addr
}

// TestTriggerSmartContractActuatorExecuteCallsDeployedCode checks the
// ordinary success path: value moves into the contract account before the
// VM runs, and the VM's own execution is metered on top of that.
func TestTriggerSmartContractActuatorExecuteCallsDeployedCode(t *testing.T) {
	t.Parallel()

	const energyPrice = 100
	const energyLimit = 1000
	c, state, owner := newContractTestContext(t, energyLimit*energyPrice)
	contractAddr := deployTestContract(t, state, []byte{0x60, 0x05, 0x60, 0x00, 0xf3}, owner.Address)

	contract := &Contract{
		Kind:  KindTriggerSmartContract,
		Owner: owner.Address,
		TriggerSmartContract: &TriggerSmartContractPayload{
			ContractAddress: contractAddr,
			CallValue:       200,
		},
	}
	if err := (triggerSmartContractActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (triggerSmartContractActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if c.Tx.VMStatus != StatusSuccess {
		t.Fatalf("VMStatus = %v, want StatusSuccess", c.Tx.VMStatus)
	}
	if len(c.Tx.VMReturn) != 5 {
		t.Fatalf("VMReturn length = %d, want 5", len(c.Tx.VMReturn))
	}

	contractAcct, found, err := state.GetAccount(contractAddr)
	if err != nil || !found {
		t.Fatalf("GetAccount(contract) found=%v err=%v", found, err)
	}
	if contractAcct.Balance != 200 {
		t.Fatalf("contract.Balance = %d, want 200", contractAcct.Balance)
	}

	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil {
		t.Fatalf("GetAccount(owner): %v", err)
	}
	wantBalance := owner.Balance - 200 - 6*energyPrice
	if gotOwner.Balance != wantBalance {
		t.Fatalf("owner.Balance = %d, want %d", gotOwner.Balance, wantBalance)
	}
}

// TestTriggerSmartContractActuatorExecuteOutOfTimeChargesFullEnergy checks
// the preserved legacy quirk: a transaction already marked OutOfTime
// bypasses the VM and is charged the full energy limit with no value
// transfer attempted.
func TestTriggerSmartContractActuatorExecuteOutOfTimeChargesFullEnergy(t *testing.T) {
	t.Parallel()

	const energyPrice = 100
	const energyLimit = 1500
	c, state, owner := newContractTestContext(t, energyLimit*energyPrice)
	contractAddr := deployTestContract(t, state, []byte{0x00}, owner.Address)
	c.Tx.OutOfTime = true

	contract := &Contract{
		Kind:  KindTriggerSmartContract,
		Owner: owner.Address,
		TriggerSmartContract: &TriggerSmartContractPayload{
			ContractAddress: contractAddr,
			CallValue:       200,
		},
	}
	if err := (triggerSmartContractActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if c.Tx.VMStatus != StatusOutOfTime {
		t.Fatalf("VMStatus = %v, want StatusOutOfTime", c.Tx.VMStatus)
	}
	if got := c.Tx.CallerEnergyUsage + c.Tx.OriginEnergyUsage; got != energyLimit {
		t.Fatalf("energy charged = %d, want the full limit %d", got, energyLimit)
	}

	contractAcct, found, err := state.GetAccount(contractAddr)
	if err != nil {
		t.Fatalf("GetAccount(contract): %v", err)
	}
	if found && contractAcct.Balance != 0 {
		t.Fatalf("contract.Balance = %d, want 0: OutOfTime must not move call_value", contractAcct.Balance)
	}

	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil {
		t.Fatalf("GetAccount(owner): %v", err)
	}
	wantBalance := owner.Balance - energyLimit*energyPrice
	if gotOwner.Balance != wantBalance {
		t.Fatalf("owner.Balance = %d, want %d", gotOwner.Balance, wantBalance)
	}
}

// TestTriggerSmartContractActuatorExecuteTransfersTokenValue checks the
// TRC-10 half of "transfer value and token-value to the contract account"
// once AllowTvmTransferTrc10Upgrade is active.
func TestTriggerSmartContractActuatorExecuteTransfersTokenValue(t *testing.T) {
	t.Parallel()

	const energyPrice = 100
	const energyLimit = 1000
	c, state, owner := newContractTestContext(t, energyLimit*energyPrice)
	c.Dynamic.Set(AllowTvmTransferTrc10Upgrade, 1)
	owner.TokenBalance[7] = 1000
	if err := state.PutAccount(owner); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	contractAddr := deployTestContract(t, state, []byte{0x00}, owner.Address)

	contract := &Contract{
		Kind:  KindTriggerSmartContract,
		Owner: owner.Address,
		TriggerSmartContract: &TriggerSmartContractPayload{
			ContractAddress: contractAddr,
			CallTokenValue:  300,
			TokenID:         7,
		},
	}
	if err := (triggerSmartContractActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (triggerSmartContractActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	gotOwner, _, err := state.GetAccount(owner.Address)
	if err != nil {
		t.Fatalf("GetAccount(owner): %v", err)
	}
	if gotOwner.TokenBalance[7] != 700 {
		t.Fatalf("owner.TokenBalance[7] = %d, want 700", gotOwner.TokenBalance[7])
	}
	contractAcct, found, err := state.GetAccount(contractAddr)
	if err != nil || !found {
		t.Fatalf("GetAccount(contract) found=%v err=%v", found, err)
	}
	if contractAcct.TokenBalance[7] != 300 {
		t.Fatalf("contract.TokenBalance[7] = %d, want 300", contractAcct.TokenBalance[7])
	}
}

func TestTriggerSmartContractActuatorValidateRejectsUnknownContract(t *testing.T) {
	t.Parallel()

	c, _, owner := newContractTestContext(t, 100_000)
	contract := &Contract{
		Kind:  KindTriggerSmartContract,
		Owner: owner.Address,
		TriggerSmartContract: &TriggerSmartContractPayload{
			ContractAddress: BytesToAddress([]byte("nowhere")),
		},
	}
	if err := (triggerSmartContractActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(unknown contract) = %v, want ErrValidation", err)
	}
}

func TestUpdateSettingActuatorExecute(t *testing.T) {
	t.Parallel()

	c, state, owner := newContractTestContext(t, 100_000)
	contractAddr := deployTestContract(t, state, []byte{0x00}, owner.Address)

	contract := &Contract{
		Kind:  KindUpdateSetting,
		Owner: owner.Address,
		UpdateSetting: &UpdateSettingContract{
			ContractAddress:            contractAddr,
			ConsumeUserResourcePercent: 40,
		},
	}
	if err := (updateSettingActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (updateSettingActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	sc, _, err := state.GetSmartContract(contractAddr)
	if err != nil {
		t.Fatalf("GetSmartContract: %v", err)
	}
	if sc.ConsumeUserEnergyPercent != 40 {
		t.Fatalf("ConsumeUserEnergyPercent = %d, want 40", sc.ConsumeUserEnergyPercent)
	}
}

func TestUpdateSettingActuatorValidateRejectsNonOrigin(t *testing.T) {
	t.Parallel()

	c, state, owner := newContractTestContext(t, 100_000)
	contractAddr := deployTestContract(t, state, []byte{0x00}, BytesToAddress([]byte("someone-else")))

	contract := &Contract{
		Kind:  KindUpdateSetting,
		Owner: owner.Address,
		UpdateSetting: &UpdateSettingContract{
			ContractAddress:            contractAddr,
			ConsumeUserResourcePercent: 40,
		},
	}
	if err := (updateSettingActuator{}).Validate(c, contract); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate(non-origin) = %v, want ErrValidation", err)
	}
}

func TestUpdateEnergyLimitActuatorExecute(t *testing.T) {
	t.Parallel()

	c, state, owner := newContractTestContext(t, 100_000)
	contractAddr := deployTestContract(t, state, []byte{0x00}, owner.Address)

	contract := &Contract{
		Kind:  KindUpdateEnergyLimit,
		Owner: owner.Address,
		UpdateEnergyLimit: &UpdateEnergyLimitContract{
			ContractAddress:   contractAddr,
			OriginEnergyLimit: 9000,
		},
	}
	if err := (updateEnergyLimitActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (updateEnergyLimitActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	sc, _, err := state.GetSmartContract(contractAddr)
	if err != nil {
		t.Fatalf("GetSmartContract: %v", err)
	}
	if sc.OriginEnergyLimit != 9000 {
		t.Fatalf("OriginEnergyLimit = %d, want 9000", sc.OriginEnergyLimit)
	}
}

func TestClearAbiActuatorExecute(t *testing.T) {
	t.Parallel()

	c, state, owner := newContractTestContext(t, 100_000)
	contractAddr := deployTestContract(t, state, []byte{0x00}, owner.Address)
	sc, _, err := state.GetSmartContract(contractAddr)
	if err != nil {
		t.Fatalf("GetSmartContract: %v", err)
	}
	sc.ABI = []byte(`[{"type":"function"}]`)
	if err := state.PutSmartContract(sc); err != nil {
		t.Fatalf("PutSmartContract: %v", err)
	}

	contract := &Contract{
		Kind:     KindClearAbi,
		Owner:    owner.Address,
		ClearAbi: &ClearAbiContract{ContractAddress: contractAddr},
	}
	if err := (clearAbiActuator{}).Validate(c, contract); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (clearAbiActuator{}).Execute(c, contract); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, _, err := state.GetSmartContract(contractAddr)
	if err != nil {
		t.Fatalf("GetSmartContract: %v", err)
	}
	if got.ABI != nil {
		t.Fatalf("ABI = %q, want cleared", got.ABI)
	}
}
