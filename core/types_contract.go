package core

// ContractKind tags the closed union of ~25 transaction payload kinds
// (spec.md §3). Every kind has a matching Actuator registered in
// actuator.go's dispatch table.
type ContractKind int

const (
	KindTransfer ContractKind = iota
	KindTransferAsset
	KindAssetIssue
	KindParticipateAssetIssue
	KindFreezeBalance
	KindUnfreezeBalance
	KindWitnessCreate
	KindWitnessUpdate
	KindAccountCreate
	KindAccountUpdate
	KindAccountPermissionUpdate
	KindVoteWitness
	KindProposalCreate
	KindProposalApprove
	KindProposalDelete
	KindExchangeCreate
	KindExchangeInject
	KindExchangeWithdraw
	KindExchangeTransaction
	KindUpdateAsset
	KindUnfreezeAsset
	KindSetAccountID
	KindWithdrawBalance
	KindUpdateBrokerage
	KindCreateSmartContract
	KindTriggerSmartContract
	KindUpdateSetting
	KindUpdateEnergyLimit
	KindClearAbi
	KindShieldedTransfer
)

func (k ContractKind) String() string {
	names := [...]string{
		"TransferContract", "TransferAssetContract", "AssetIssueContract",
		"ParticipateAssetIssueContract", "FreezeBalanceContract",
		"UnfreezeBalanceContract", "WitnessCreateContract",
		"WitnessUpdateContract", "AccountCreateContract",
		"AccountUpdateContract", "AccountPermissionUpdateContract",
		"VoteWitnessContract", "ProposalCreateContract",
		"ProposalApproveContract", "ProposalDeleteContract",
		"ExchangeCreateContract", "ExchangeInjectContract",
		"ExchangeWithdrawContract", "ExchangeTransactionContract",
		"UpdateAssetContract", "UnfreezeAssetContract",
		"SetAccountIdContract", "WithdrawBalanceContract",
		"UpdateBrokerageContract", "CreateSmartContract",
		"TriggerSmartContract", "UpdateSettingContract",
		"UpdateEnergyLimitContract", "ClearAbiContract",
		"ShieldedTransferContract",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "UnknownContract"
	}
	return names[k]
}

// Contract is the tagged-union payload of a Transaction. Exactly one of the
// typed fields is populated, selected by Kind; this mirrors the reference's
// inheritance hierarchy without the unsafe downcast the design notes flag
// (spec.md §9).
type Contract struct {
	Kind       ContractKind
	Owner      Address
	Permission int32

	Transfer        *TransferContract
	TransferAsset   *TransferAssetContract
	AssetIssue      *AssetIssueContract
	ParticipateIssue *ParticipateAssetIssueContract
	FreezeBalance   *FreezeBalanceContract
	UnfreezeBalance *UnfreezeBalanceContract
	WitnessCreate   *WitnessCreateContract
	WitnessUpdate   *WitnessUpdateContract
	AccountCreate   *AccountCreateContract
	AccountUpdate   *AccountUpdateContract
	PermissionUpdate *AccountPermissionUpdateContract
	VoteWitness     *VoteWitnessContract
	ProposalCreate  *ProposalCreateContract
	ProposalApprove *ProposalApproveContract
	ProposalDelete  *ProposalDeleteContract
	ExchangeCreate  *ExchangeCreateContract
	ExchangeInject  *ExchangeInjectContract
	ExchangeWithdraw *ExchangeWithdrawContract
	ExchangeTxn     *ExchangeTransactionContract
	UpdateAsset     *UpdateAssetContract
	UnfreezeAsset   *UnfreezeAssetContract
	SetAccountID    *SetAccountIdContract
	WithdrawBalance *WithdrawBalanceContract
	UpdateBrokerage *UpdateBrokerageContract
	CreateSmartContract  *CreateSmartContractPayload
	TriggerSmartContract *TriggerSmartContractPayload
	UpdateSetting   *UpdateSettingContract
	UpdateEnergyLimit *UpdateEnergyLimitContract
	ClearAbi        *ClearAbiContract
	ShieldedTransfer *ShieldedTransferPayload
}

type TransferContract struct {
	ToAddress Address
	Amount    int64
}

type TransferAssetContract struct {
	AssetName []byte
	ToAddress Address
	Amount    int64
}

type AssetIssueContract struct {
	Name          []byte
	Abbr          []byte
	TotalSupply   int64
	Precision     int32
	FrozenSupply  []FrozenSupply
	PublicFreeAssetBandwidthLimit int64
	FreeAssetBandwidthLimit       int64
	StartTime     int64
	EndTime       int64
	Description   []byte
	URL           []byte
}

type FrozenSupply struct {
	FrozenAmount int64
	FrozenDays   int64
}

type ParticipateAssetIssueContract struct {
	ToAddress Address
	AssetName []byte
	Amount    int64
}

type FreezeBalanceContract struct {
	FrozenBalance  int64
	FrozenDuration int64
	Resource       ResourceKind
	ReceiverAddress Address
}

type UnfreezeBalanceContract struct {
	Resource        ResourceKind
	ReceiverAddress Address
}

type ResourceKind int

const (
	ResourceBandwidth ResourceKind = iota
	ResourceEnergy
)

type WitnessCreateContract struct {
	URL []byte
}

type WitnessUpdateContract struct {
	UpdateURL []byte
}

type AccountCreateContract struct {
	AccountAddress Address
	Type           AccountType
}

type AccountUpdateContract struct {
	AccountName []byte
}

type AccountPermissionUpdateContract struct {
	Owner   Permission
	Actives []Permission
}

type Permission struct {
	ID        int32
	Threshold int64
	Keys      []PermissionKey
}

type PermissionKey struct {
	Address Address
	Weight  int64
}

type VoteWitnessContract struct {
	Votes []Vote
}

type Vote struct {
	VoteAddress Address
	VoteCount   int64
}

// ParamEntry is a single governance-parameter override. Contract payloads
// use a slice of entries rather than a map so they remain RLP-encodable
// (RLP has no native map support); ParamsToMap/MapToParams convert at the
// proposal-processor boundary.
type ParamEntry struct {
	Key   int64
	Value int64
}

type ProposalCreateContract struct {
	Parameters []ParamEntry
}

func ParamsToMap(entries []ParamEntry) map[int64]int64 {
	m := make(map[int64]int64, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}

func MapToParams(m map[int64]int64) []ParamEntry {
	out := make([]ParamEntry, 0, len(m))
	for k, v := range m {
		out = append(out, ParamEntry{Key: k, Value: v})
	}
	return out
}

type ProposalApproveContract struct {
	ProposalID int64
	IsApprove  bool
}

type ProposalDeleteContract struct {
	ProposalID int64
}

type ExchangeCreateContract struct {
	FirstTokenID      []byte
	FirstTokenBalance int64
	SecondTokenID     []byte
	SecondTokenBalance int64
}

type ExchangeInjectContract struct {
	ExchangeID int64
	TokenID    []byte
	Quant      int64
}

type ExchangeWithdrawContract struct {
	ExchangeID int64
	TokenID    []byte
	Quant      int64
}

type ExchangeTransactionContract struct {
	ExchangeID int64
	TokenID    []byte
	Quant      int64
	Expected   int64
}

type UpdateAssetContract struct {
	Description []byte
	URL         []byte
	NewLimit    int64
	NewPublicLimit int64
}

type UnfreezeAssetContract struct{}

type SetAccountIdContract struct {
	AccountID []byte
}

type WithdrawBalanceContract struct{}

type UpdateBrokerageContract struct {
	BrokerageRate int64
}

type CreateSmartContractPayload struct {
	NewContract SmartContract
	CallValue   int64
	CallTokenValue int64
	TokenID     int64
}

type TriggerSmartContractPayload struct {
	ContractAddress Address
	CallValue       int64
	Data            []byte
	CallTokenValue  int64
	TokenID         int64
}

type UpdateSettingContract struct {
	ContractAddress Address
	ConsumeUserResourcePercent int64
}

type UpdateEnergyLimitContract struct {
	ContractAddress  Address
	OriginEnergyLimit int64
}

type ClearAbiContract struct {
	ContractAddress Address
}

// ShieldedTransferPayload is opaque per spec.md §1: the core treats it as
// a validated transaction and never inspects its contents beyond a
// presence check.
type ShieldedTransferPayload struct {
	Raw []byte
}
