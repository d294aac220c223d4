package core

import "fmt"

// ActuatorContext bundles everything an Actuator needs beyond the
// contract payload itself: the state DB it mutates, the governable chain
// parameters, and the per-transaction accumulator it reports back into
// (spec.md §4.6/§4.7).
type ActuatorContext struct {
	State       *StateDB
	Dynamic     *DynamicProperties
	Owner       Address
	CurrentSlot int64
	BlockTime   int64
	BlockNumber int64
	TxHash      Hash
	Tx          *TransactionContext
	Blackhole   Address

	// FeeLimit is the transaction's fee_limit (spec.md §3), the caller's
	// ceiling on energy cost; only the smart-contract actuators consult it
	// to bound how much energy a TVM run may spend.
	FeeLimit int64

	// ForkCtrl resolves whether a protocol upgrade checkpoint has passed
	// (spec.md §4.3); nil means no upgrade is ever considered passed, the
	// conservative default for disposable-layer query paths and tests.
	ForkCtrl *VersionForkController
}

// Actuator is the executor for one contract kind (spec.md §4.6): Validate
// is a pure check that must not mutate state, Execute performs every
// mutation for the kind and is expected to run inside a layer the caller
// can discard on error.
type Actuator interface {
	Validate(c *ActuatorContext, contract *Contract) error
	Execute(c *ActuatorContext, contract *Contract) error
}

var actuators = map[ContractKind]Actuator{
	KindTransfer:                transferActuator{},
	KindTransferAsset:           transferAssetActuator{},
	KindAssetIssue:              assetIssueActuator{},
	KindParticipateAssetIssue:   participateAssetIssueActuator{},
	KindFreezeBalance:           freezeBalanceActuator{},
	KindUnfreezeBalance:         unfreezeBalanceActuator{},
	KindWitnessCreate:           witnessCreateActuator{},
	KindWitnessUpdate:           witnessUpdateActuator{},
	KindAccountCreate:           accountCreateActuator{},
	KindAccountUpdate:           accountUpdateActuator{},
	KindAccountPermissionUpdate: accountPermissionUpdateActuator{},
	KindVoteWitness:             voteWitnessActuator{},
	KindProposalCreate:          proposalCreateActuator{},
	KindProposalApprove:         proposalApproveActuator{},
	KindProposalDelete:          proposalDeleteActuator{},
	KindExchangeCreate:          exchangeCreateActuator{},
	KindExchangeInject:          exchangeInjectActuator{},
	KindExchangeWithdraw:        exchangeWithdrawActuator{},
	KindExchangeTransaction:     exchangeTransactionActuator{},
	KindUpdateAsset:             updateAssetActuator{},
	KindUnfreezeAsset:           unfreezeAssetActuator{},
	KindSetAccountID:            setAccountIDActuator{},
	KindWithdrawBalance:         withdrawBalanceActuator{},
	KindUpdateBrokerage:         updateBrokerageActuator{},
	KindCreateSmartContract:     createSmartContractActuator{},
	KindTriggerSmartContract:    triggerSmartContractActuator{},
	KindUpdateSetting:           updateSettingActuator{},
	KindUpdateEnergyLimit:       updateEnergyLimitActuator{},
	KindClearAbi:                clearAbiActuator{},
	KindShieldedTransfer:        shieldedTransferActuator{},
}

// LookupActuator returns the registered executor for kind, or an error if
// none is registered (a malformed or future contract kind).
func LookupActuator(kind ContractKind) (Actuator, error) {
	a, ok := actuators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no actuator registered for %s", ErrValidation, kind)
	}
	return a, nil
}

// requireOwner fetches and returns the owner account, failing validation
// if it does not exist; nearly every actuator needs this first step.
func requireOwner(c *ActuatorContext) (*Account, error) {
	a, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: owner account %s not found", ErrValidation, c.Owner.Hex())
	}
	return a, nil
}
