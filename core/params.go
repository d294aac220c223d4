package core

import "time"

// Protocol-wide constants. Exact values must match the reference
// implementation byte-for-byte; see spec.md §6.
const (
	BlockProducingInterval = 3000 * time.Millisecond
	MaxActiveWitnesses     = 27

	// NUM_OF_CONSECUTIVE_BLOCKS_PER_ROUND: the reference rotates the active
	// witness schedule by one slot per witness. See DESIGN.md Open Question.
	ConsecutiveBlocksPerRound = 1

	SolidThresholdPercent = 70

	NumOfBlockFilledSlots = 128

	MaxTransactionSize       = 500 * 1024
	MaxTransactionExpiration = 24 * time.Hour
	MaxTransactionResultSize = 64

	FreeBandwidth      = 5000
	ResourceWindowSize = 28_800 // slots
	ResourcePrecision  = 1_000_000

	AdaptiveEnergyIncreaseRateNumerator = 1
	AdaptiveEnergyIncreaseDenominator   = 10
	AdaptiveEnergyDecreaseRateNumerator = 1
	AdaptiveEnergyDecreaseDenominator   = 100

	SaveCodeEnergyPerByte = 200
	MaxFeeLimit           = 1_000_000_000
	MinTokenID            = 1_000_000
	MaxContractNameLength = 32

	// RefBlockRingSize is the number of most-recent block hashes kept for
	// TaPoS validation; indices wrap modulo this value.
	RefBlockRingSize = 65_536

	// ProposalExpirationPeriod is how long a governance proposal stays
	// eligible for approval votes before maintenance disapproves it
	// (spec.md §4.8 step 9), in milliseconds to match BlockTime's unit.
	ProposalExpirationPeriod = 3 * 24 * 60 * 60 * 1000

	// MaintenanceInterval is the period between maintenance cycles (spec.md
	// §4.8 steps 9/11, GLOSSARY "Maintenance"): the witness roster reshuffle
	// and proposal processor both gate on the same NextMaintenanceTime
	// clock, advanced by this much every time it fires.
	MaintenanceInterval = 6 * 60 * 60 * 1000

	// MaxStandbyWitnesses is the exclusive upper vote rank of the standby
	// set: witnesses ranked MaxActiveWitnesses..MaxStandbyWitnesses-1 (the
	// runner-ups after the block producers) are eligible for a
	// brokerage-split reward share under AllowChangeDelegation (spec.md
	// §4.8 step 8).
	MaxStandbyWitnesses = 127

	// ApprovalRatioNumerator/Denominator is the supermajority fraction of
	// the active witness set a proposal's approvals must reach before
	// maintenance activates it (spec.md §4.8 step 9); DESIGN.md Open
	// Question resolves the unspecified reference threshold to 2/3.
	ApprovalRatioNumerator   = 2
	ApprovalRatioDenominator = 3
)

// ChainParameter is the closed enumeration of governable chain parameters
// named in spec.md §6. Values live in the state DB's DynamicProperties
// record and are only ever mutated by the proposal processor during
// maintenance.
type ChainParameter int

const (
	AllowTvm ChainParameter = iota
	AllowTvmTransferTrc10Upgrade
	AllowTvmConstantinopleUpgrade
	AllowTvmSolidity059Upgrade
	AllowMultisig
	AllowSameTokenName
	AllowAdaptiveEnergy
	AllowChangeDelegation
	BandwidthPrice
	EnergyFee
	EnergyPrice
	AccountCreateFee
	CreateNewAccountBandwidthRate
	WitnessPayPerBlock
	TotalEnergyLimit
	TotalEnergyCurrentLimit
	TotalEnergyWeight
	TotalEnergyTargetLimit
	TotalEnergyAverageUsage
	TotalBandwidthLimit
	TotalBandwidthWeight
	TotalFreeBandwidthLimit
	AdaptiveResourceLimitMultiplier
	MultisigFee
	NextMaintenanceTime

	numChainParameters
)

// DynamicProperties holds the mutable, governance-controlled chain
// parameters plus derived bookkeeping counters (adaptive energy average
// usage, global resource weights). It is versioned the same as any other
// State DB record.
type DynamicProperties struct {
	Values [numChainParameters]int64
}

func (d *DynamicProperties) Get(p ChainParameter) int64 { return d.Values[p] }
func (d *DynamicProperties) Set(p ChainParameter, v int64) {
	d.Values[p] = v
}

// Allowed reports whether a boolean-flavoured chain parameter is set.
func (d *DynamicProperties) Allowed(p ChainParameter) bool { return d.Values[p] != 0 }

// DefaultDynamicProperties returns the genesis defaults used by tests and by
// a fresh chain's genesis block.
func DefaultDynamicProperties() *DynamicProperties {
	d := &DynamicProperties{}
	d.Set(AllowTvm, 1)
	d.Set(BandwidthPrice, 10)
	d.Set(EnergyFee, 100)
	d.Set(EnergyPrice, 100)
	d.Set(AccountCreateFee, 100_000)
	d.Set(CreateNewAccountBandwidthRate, 1)
	d.Set(WitnessPayPerBlock, 32_000_000)
	d.Set(TotalEnergyLimit, 50_000_000_000)
	d.Set(TotalEnergyCurrentLimit, 50_000_000_000)
	d.Set(TotalEnergyWeight, 1)
	d.Set(TotalEnergyTargetLimit, 50_000_000_000/14400)
	d.Set(TotalBandwidthLimit, 43_200_000_000)
	d.Set(TotalBandwidthWeight, 1)
	d.Set(TotalFreeBandwidthLimit, 14_400_000_000)
	d.Set(AdaptiveResourceLimitMultiplier, 10)
	d.Set(MultisigFee, 1_000_000)
	return d
}
