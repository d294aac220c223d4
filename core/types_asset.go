package core

// Asset is the TRC-10 asset record of spec.md §3.
type Asset struct {
	ID          int64
	Name        []byte
	Abbr        []byte
	Owner       Address
	TotalSupply int64
	Precision   int32

	FrozenSupply []FrozenSupply

	PublicFreeAssetBandwidthLimit int64
	PublicFreeAssetBandwidthUsage ResourceUsage
	FreeAssetBandwidthLimit       int64

	StartTime   int64
	EndTime     int64
	Description []byte
	URL         []byte
}

// SmartContract is the spec.md §3 contract record: origin/contract
// address, bytecode, ABI, energy-sharing policy and code hash.
type SmartContract struct {
	OriginAddress  Address
	ContractAddress Address
	Bytecode       []byte
	ABI            []byte // opaque JSON/serialized ABI blob
	ConsumeUserEnergyPercent int64
	OriginEnergyLimit        int64
	CodeHash       Hash
}

// Witness is the spec.md §3 witness record.
type Witness struct {
	Address           Address
	URL               []byte
	VoteCount         int64
	TotalProduced     int64
	TotalMissed       int64
	LatestBlockNumber int64
	LatestSlotNumber  int64
	LatestBlockVersion int32
	BrokerageRate     int64
}

// Proposal is the governance-parameter-change record driving the
// maintenance proposal processor (spec.md §4.8 step 9).
type Proposal struct {
	ID         int64
	Proposer   Address
	Parameters []ParamEntry
	ExpirationTime int64
	CreateTime int64
	Approvals  []Address
	State      ProposalState
}

type ProposalState int

const (
	ProposalPending ProposalState = iota
	ProposalDisapproved
	ProposalApproved
	ProposalCancelled
)

// Exchange is a TRC-10/TRX bancor-style exchange pair.
type Exchange struct {
	ID                int64
	CreatorAddress    Address
	CreateTime        int64
	FirstTokenID      []byte
	FirstTokenBalance int64
	SecondTokenID     []byte
	SecondTokenBalance int64
}
