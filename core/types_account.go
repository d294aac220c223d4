package core

// AccountType enumerates the three account kinds of spec.md §3.
type AccountType int

const (
	AccountNormal AccountType = iota
	AccountAssetIssue
	AccountContract
)

// ResourceUsage tracks a decaying counter of consumed resource (bandwidth
// bytes or energy) along with the slot it was last updated at, per
// spec.md §3/§4.4.
type ResourceUsage struct {
	Used       int64
	LatestSlot int64
}

// Account is the spec.md §3 account record.
type Account struct {
	Address       Address
	Balance       int64
	IssuedAssetID int64
	TokenBalance  map[int64]int64

	Allowance int64

	Type AccountType
	Name []byte

	FrozenForBandwidth int64
	FrozenForEnergy    int64
	FrozenBandwidthExpire int64
	FrozenEnergyExpire   int64

	FreeBandwidthUsage   ResourceUsage
	FrozenBandwidthUsage ResourceUsage
	EnergyUsage          ResourceUsage
	AssetBandwidthUsage  map[int64]ResourceUsage

	LatestOperationTime int64

	AccountID []byte

	Owner   Permission
	Actives []Permission

	// Code/ABI live on SmartContract, not Account, but a contract account
	// keeps a back-reference for fast existence checks.
	IsContract bool
}

// NewAccount returns a zero-value account ready for first use, with all
// maps allocated (spec.md lifecycle: "created on first reception of
// value").
func NewAccount(addr Address) *Account {
	return &Account{
		Address:             addr,
		TokenBalance:        make(map[int64]int64),
		AssetBandwidthUsage: make(map[int64]ResourceUsage),
	}
}

// Clone returns a deep copy suitable for mutation inside a fresh state
// layer without aliasing the original's maps.
func (a *Account) Clone() *Account {
	cp := *a
	cp.TokenBalance = make(map[int64]int64, len(a.TokenBalance))
	for k, v := range a.TokenBalance {
		cp.TokenBalance[k] = v
	}
	cp.AssetBandwidthUsage = make(map[int64]ResourceUsage, len(a.AssetBandwidthUsage))
	for k, v := range a.AssetBandwidthUsage {
		cp.AssetBandwidthUsage[k] = v
	}
	cp.Actives = append([]Permission(nil), a.Actives...)
	return &cp
}
