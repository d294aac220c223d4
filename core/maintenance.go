package core

import "sort"

// IsMaintenanceTime reports whether the maintenance cycle is due at
// blockTime (spec.md §4.8 steps 9/11, GLOSSARY "Maintenance"): both the
// proposal processor and the witness-schedule reshuffle gate on the same
// clock.
func IsMaintenanceTime(dynamic *DynamicProperties, blockTime int64) bool {
	return dynamic.Get(NextMaintenanceTime) <= blockTime
}

// RunMaintenance performs one maintenance cycle: process pending
// proposals (spec.md §4.8 step 9), reshuffle the active witness schedule
// by stake (step 11), recompute the global bandwidth/energy weights that
// feed globalLimit, and advance NextMaintenanceTime. Callers persist the
// mutated DynamicProperties themselves; every other mutation here is
// written directly to state.
func RunMaintenance(state *StateDB, dynamic *DynamicProperties, forkCtrl *VersionForkController, blockTime int64) error {
	if err := processProposals(state, dynamic, blockTime); err != nil {
		return err
	}
	schedule, err := reshuffleWitnessSchedule(state)
	if err != nil {
		return err
	}
	if forkCtrl != nil {
		forkCtrl.SetActiveWitnesses(schedule)
	}
	if err := recomputeGlobalWeights(state, dynamic); err != nil {
		return err
	}
	dynamic.Set(NextMaintenanceTime, blockTime+MaintenanceInterval)
	return nil
}

// processProposals activates proposals that have reached supermajority
// approval among the current active witness set, disapproves expired
// ones, and leaves the rest pending for a future cycle (spec.md §4.8 step
// 9; DESIGN.md Open Question resolves the reference's unspecified
// approval fraction to ApprovalRatioNumerator/Denominator).
func processProposals(state *StateDB, dynamic *DynamicProperties, blockTime int64) error {
	pending, err := state.ListPendingProposals()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	activeCount, err := activeWitnessCount(state)
	if err != nil {
		return err
	}
	threshold := (activeCount*ApprovalRatioNumerator + ApprovalRatioDenominator - 1) / ApprovalRatioDenominator

	for _, p := range pending {
		switch {
		case blockTime > p.ExpirationTime:
			p.State = ProposalDisapproved
		case activeCount > 0 && len(p.Approvals) >= threshold:
			p.State = ProposalApproved
			for _, entry := range p.Parameters {
				dynamic.Set(ChainParameter(entry.Key), entry.Value)
			}
		default:
			continue // still pending, nothing to persist
		}
		if err := state.PutProposal(p); err != nil {
			return err
		}
	}
	return nil
}

func activeWitnessCount(state *StateDB) (int, error) {
	schedule, err := state.GetWitnessSchedule()
	if err != nil {
		return 0, err
	}
	if len(schedule) > 0 {
		return len(schedule), nil
	}
	all, err := state.ListWitnesses()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// reshuffleWitnessSchedule rebuilds the active witness roster from every
// registered witness candidate, ranked by VoteCount and capped at
// MaxActiveWitnesses (spec.md §4.8 step 11).
func reshuffleWitnessSchedule(state *StateDB) ([]Address, error) {
	all, err := state.ListWitnesses()
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].VoteCount != all[j].VoteCount {
			return all[i].VoteCount > all[j].VoteCount
		}
		return string(all[i].Address.Bytes()) < string(all[j].Address.Bytes())
	})
	n := MaxActiveWitnesses
	if n > len(all) {
		n = len(all)
	}
	schedule := make([]Address, n)
	for i := 0; i < n; i++ {
		schedule[i] = all[i].Address
	}
	if err := state.PutWitnessSchedule(schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// recomputeGlobalWeights sums every account's frozen-for-bandwidth and
// frozen-for-energy balances (in whole TRX) into TotalBandwidthWeight and
// TotalEnergyWeight, the denominators globalLimit (resource_bandwidth.go)
// divides by. Run once per maintenance cycle rather than per transaction
// since it requires a full account scan (SPEC_FULL.md §4.8 SUPPLEMENT).
func recomputeGlobalWeights(state *StateDB, dynamic *DynamicProperties) error {
	var bandwidthWeight, energyWeight int64
	err := state.Iterate([]byte{byte(prefixAccount)}, func(_, value []byte) error {
		a, err := DecodeAccount(value)
		if err != nil {
			return err
		}
		bandwidthWeight += a.FrozenForBandwidth / ResourcePrecision
		energyWeight += a.FrozenForEnergy / ResourcePrecision
		return nil
	})
	if err != nil {
		return err
	}
	if bandwidthWeight <= 0 {
		bandwidthWeight = 1
	}
	if energyWeight <= 0 {
		energyWeight = 1
	}
	dynamic.Set(TotalBandwidthWeight, bandwidthWeight)
	dynamic.Set(TotalEnergyWeight, energyWeight)
	return nil
}
