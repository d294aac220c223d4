package core

import "sync"

// UpgradeCheckpoint names a protocol upgrade gated by witness-version
// supermajority (spec.md §4.3).
type UpgradeCheckpoint struct {
	Name       string
	MinVersion int32
}

var (
	UpgradeConstantinople = UpgradeCheckpoint{Name: "constantinople", MinVersion: 8}
	UpgradeSolidity059    = UpgradeCheckpoint{Name: "solidity059", MinVersion: 9}
	UpgradeTransferTRC10  = UpgradeCheckpoint{Name: "transfer_trc10", MinVersion: 10}
)

// VersionForkController tallies, per active witness, the highest block
// version it has produced, and reports whether an upgrade checkpoint has
// passed: a supermajority (spec.md §6 SolidThresholdPercent, 70%) of
// active witnesses have each produced at least one block at or above the
// checkpoint's minimum version. The tallying idiom is the same one-vote-
// per-identity pattern as quorum_tracker.go, repurposed from BFT vote
// counting to witness-version counting.
type VersionForkController struct {
	mu             sync.RWMutex
	activeWitness  map[Address]bool
	highestVersion map[Address]int32
}

// NewVersionForkController seeds the controller with the current active
// witness roster; ReportBlockVersion updates it as blocks are produced.
func NewVersionForkController(activeWitnesses []Address) *VersionForkController {
	active := make(map[Address]bool, len(activeWitnesses))
	for _, a := range activeWitnesses {
		active[a] = true
	}
	return &VersionForkController{
		activeWitness:  active,
		highestVersion: make(map[Address]int32),
	}
}

// SetActiveWitnesses replaces the roster consulted by PassVersion; called
// once per maintenance cycle as the active witness list rotates.
func (v *VersionForkController) SetActiveWitnesses(witnesses []Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	active := make(map[Address]bool, len(witnesses))
	for _, a := range witnesses {
		active[a] = true
	}
	v.activeWitness = active
}

// ReportBlockVersion records that witness produced a block at version,
// keeping only the highest version seen per witness (a witness cannot
// un-upgrade).
func (v *VersionForkController) ReportBlockVersion(witness Address, version int32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if cur, ok := v.highestVersion[witness]; !ok || version > cur {
		v.highestVersion[witness] = version
	}
}

// PassVersion reports whether upgrade has passed: at least
// SolidThresholdPercent% of the currently active witness set has each
// produced a block at or above upgrade.MinVersion.
func (v *VersionForkController) PassVersion(upgrade UpgradeCheckpoint) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.activeWitness) == 0 {
		return false
	}
	count := 0
	for witness := range v.activeWitness {
		if v.highestVersion[witness] >= upgrade.MinVersion {
			count++
		}
	}
	return count*100 >= len(v.activeWitness)*SolidThresholdPercent
}
