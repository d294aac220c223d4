package core

import (
	"errors"
	"fmt"
)

// Executor runs the per-transaction pipeline of spec.md §4.7: signature
// recovery, permission check, validate, bandwidth consumption, execute,
// and inbound-result comparison. It is grounded on the same validate/
// execute shape as actuator.go but adds the steps that happen around an
// actuator call rather than inside one.
type Executor struct {
	state     *StateDB
	blackhole Address
	forkCtrl  *VersionForkController
}

// NewExecutor wires a state DB and the blackhole burn address into a new
// Executor. forkCtrl may be nil (no upgrade is ever considered passed),
// which is how pre_push_transaction/dry_run_transaction's disposable-layer
// callers and tests that don't care about fork-gated behavior construct
// one.
func NewExecutor(state *StateDB, blackhole Address, forkCtrl *VersionForkController) *Executor {
	return &Executor{state: state, blackhole: blackhole, forkCtrl: forkCtrl}
}

// ValidateCommon checks a transaction's size and expiration window
// against the chain head, independent of its contract kind (spec.md §4.8
// step 6 "common validity"). Callers run this, then TaPoS, before
// Execute.
func ValidateCommon(tx *Transaction, latestTimestamp int64) error {
	enc, err := EncodeTransaction(tx)
	if err != nil {
		return fmt.Errorf("%w: encode transaction for size check: %v", ErrValidation, err)
	}
	if len(enc) > MaxTransactionSize {
		return fmt.Errorf("%w: transaction size %d exceeds MaxTransactionSize", ErrValidation, len(enc))
	}
	if tx.RawData.Expiration <= latestTimestamp {
		return fmt.Errorf("%w: transaction already expired", ErrValidation)
	}
	maxExpirationMs := int64(MaxTransactionExpiration / 1_000_000)
	if tx.RawData.Expiration > latestTimestamp+maxExpirationMs {
		return fmt.Errorf("%w: transaction expiration too far in the future", ErrValidation)
	}
	return nil
}

// satisfiesPermission reports whether signers collectively meet the
// weight threshold of the account's permission selected by permissionID
// (0 = Owner, N = Actives[N-1]), per spec.md §3's multisig model. An
// account with no permission configured falls back to ordinary single-
// signature semantics: the address must sign for itself.
func satisfiesPermission(owner *Account, permissionID int32, signers []Address) error {
	perm := owner.Owner
	if permissionID != 0 {
		idx := int(permissionID) - 1
		if idx < 0 || idx >= len(owner.Actives) {
			return fmt.Errorf("%w: unknown permission id %d", ErrValidation, permissionID)
		}
		perm = owner.Actives[idx]
	}
	if len(perm.Keys) == 0 {
		perm = Permission{Threshold: 1, Keys: []PermissionKey{{Address: owner.Address, Weight: 1}}}
	}

	weight := int64(0)
	matched := make(map[Address]bool, len(perm.Keys))
	for _, signer := range signers {
		for _, k := range perm.Keys {
			if k.Address == signer && !matched[signer] {
				matched[signer] = true
				weight += k.Weight
			}
		}
	}
	if weight < perm.Threshold {
		return fmt.Errorf("%w: signature weight %d below permission threshold %d", ErrValidation, weight, perm.Threshold)
	}
	return nil
}

// recoverSigners recovers one address per signature over the
// transaction's identity hash (spec.md §4.7 step 1).
func recoverSigners(tx *Transaction) ([]Address, error) {
	if len(tx.Signatures) == 0 {
		return nil, fmt.Errorf("%w: transaction has no signatures", ErrValidation)
	}
	digest := tx.Hash()
	out := make([]Address, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		addr, err := RecoverSigner(digest, sig)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

func isTVMKind(kind ContractKind) bool {
	return kind == KindCreateSmartContract || kind == KindTriggerSmartContract
}

// Execute runs spec.md §4.7 steps 1-7 for a single transaction inside the
// caller's currently open state layer. header carries the block context
// (number/time), currentSlot the resource-decay slot, dynamic the
// governable parameters (mutated in place by adaptive-energy/maintenance
// elsewhere, read here). Arithmetic execution failures are caught and
// reported as a failed TransactionResult without aborting the caller's
// layer; every other error (malformed input, signature/permission
// failure, I/O) propagates so the caller can abort the whole block.
// signers may be passed pre-recovered (Manager's parallel step 5 of
// spec.md §4.8); pass nil to have Execute recover them itself, which
// pre_push_transaction and dry_run_transaction do since they process one
// transaction at a time.
func (e *Executor) Execute(header *BlockHeader, tx *Transaction, currentSlot int64, dynamic *DynamicProperties, signers []Address) (*TransactionReceipt, error) {
	contract := &tx.RawData.Contract
	actuator, err := LookupActuator(contract.Kind)
	if err != nil {
		return nil, err
	}

	if signers == nil {
		var err error
		signers, err = recoverSigners(tx)
		if err != nil {
			return nil, err
		}
	}
	owner, found, err := e.state.GetAccount(contract.Owner)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: transaction owner %s not found", ErrValidation, contract.Owner.Hex())
	}
	if err := satisfiesPermission(owner, contract.Permission, signers); err != nil {
		return nil, err
	}

	txHash := tx.Hash()
	txCtx := &TransactionContext{Header: header, TxHash: txHash}
	actx := &ActuatorContext{
		State:       e.state,
		Dynamic:     dynamic,
		Owner:       contract.Owner,
		CurrentSlot: currentSlot,
		BlockTime:   header.Timestamp,
		BlockNumber: int64(header.Number),
		TxHash:      txHash,
		Tx:          txCtx,
		Blackhole:   e.blackhole,
		FeeLimit:    tx.RawData.FeeLimit,
		ForkCtrl:    e.forkCtrl,
	}

	tvmKind := isTVMKind(contract.Kind)

	var bandwidthFee int64
	if tvmKind {
		// spec.md §4.7 step 5 note: for TVM contracts, bandwidth is charged
		// before validate to match the reference's ordering.
		if bandwidthFee, err = e.consumeBandwidth(actx, contract, tx, owner, dynamic); err != nil {
			return nil, err
		}
		if err := actuator.Validate(actx, contract); err != nil {
			return nil, err
		}
	} else {
		if err := actuator.Validate(actx, contract); err != nil {
			return nil, err
		}
		if bandwidthFee, err = e.consumeBandwidth(actx, contract, tx, owner, dynamic); err != nil {
			return nil, err
		}
	}

	e.state.NewLayer()
	execErr := actuator.Execute(actx, contract)
	result := TransactionResult{Status: TxSuccess, ContractStatus: StatusSuccess}
	if execErr != nil {
		if !errors.Is(execErr, ErrExecution) {
			_ = e.state.DiscardLastLayer()
			return nil, execErr
		}
		if err := e.state.DiscardLastLayer(); err != nil {
			return nil, err
		}
		result.Status = TxFailed
	} else {
		if err := e.state.SolidifyLayer(); err != nil {
			return nil, err
		}
		if tvmKind {
			result.ContractStatus = txCtx.VMStatus
			if txCtx.VMStatus != StatusSuccess {
				result.Status = TxFailed
			}
		}
	}

	result.EnergyUsage = txCtx.CallerEnergyUsage + txCtx.OriginEnergyUsage
	result.ContractAddress = txCtx.ContractAddress
	result.Ret = txCtx.VMReturn

	if tx.Result != nil {
		if tx.Result.Status != result.Status || tx.Result.ContractStatus != result.ContractStatus {
			return nil, fmt.Errorf("%w: transaction result mismatch for %s", ErrConsensus, txHash.Hex())
		}
	}

	receipt := &TransactionReceipt{
		BandwidthUsage:    txCtx.BandwidthUsage,
		BandwidthFee:      bandwidthFee,
		EnergyUsage:       result.EnergyUsage,
		EnergyFee:         txCtx.EnergyFee,
		OriginEnergyUsage: txCtx.OriginEnergyUsage,
		Result:            result,
	}
	if err := e.state.PutTransactionReceipt(txHash, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// consumeBandwidth charges the multisig fee (if any) and the bandwidth
// attempt chain, persisting the owner account's mutations. Run outside
// any per-transaction sub-layer: a resource charge stands regardless of
// whether the transaction's own execute later fails (spec.md §4.4/§4.7).
func (e *Executor) consumeBandwidth(actx *ActuatorContext, contract *Contract, tx *Transaction, owner *Account, dynamic *DynamicProperties) (int64, error) {
	bp := NewBandwidthProcessor(e.state)
	if err := bp.ChargeMultisigFee(owner, dynamic, contract.Permission); err != nil {
		return 0, err
	}

	enc, err := EncodeTransaction(tx)
	if err != nil {
		return 0, fmt.Errorf("%w: encode transaction for bandwidth accounting: %v", ErrIO, err)
	}

	_, willCreateAccount := e.newAccountTarget(contract)
	var assetTransfer *TransferAssetContract
	if contract.Kind == KindTransferAsset {
		assetTransfer = contract.TransferAsset
	}

	// spec.md §4.4: once the TVM fork is active, a smart-contract
	// transaction's bandwidth is charged against its encoded size plus
	// MaxTransactionResultSize, covering the result record the executor
	// attaches after running the VM.
	byteSize := int64(len(enc))
	if isTVMKind(contract.Kind) && dynamic.Allowed(AllowTvm) {
		byteSize += MaxTransactionResultSize
	}

	fee, err := bp.Consume(ConsumeParams{
		Owner:             contract.Owner,
		ByteSize:          byteSize,
		CurrentSlot:       actx.CurrentSlot,
		NewAccountCreated: willCreateAccount,
		AssetTransfer:     assetTransfer,
	}, owner, dynamic)
	if err != nil {
		return 0, err
	}
	actx.Tx.BandwidthUsage = byteSize
	actx.Tx.BandwidthFee = fee
	if err := e.state.PutAccount(owner); err != nil {
		return 0, err
	}
	return fee, nil
}

// newAccountTarget reports whether contract's recipient address (if any)
// is not yet a known account, the CreateNewAccountBandwidthRate trigger
// of spec.md §4.4 step 1.
func (e *Executor) newAccountTarget(contract *Contract) (Address, bool) {
	var to Address
	switch contract.Kind {
	case KindTransfer:
		to = contract.Transfer.ToAddress
	case KindTransferAsset:
		to = contract.TransferAsset.ToAddress
	case KindParticipateAssetIssue:
		to = contract.ParticipateIssue.ToAddress
	default:
		return Address{}, false
	}
	_, found, err := e.state.GetAccount(to)
	if err != nil || found {
		return to, false
	}
	return to, true
}
