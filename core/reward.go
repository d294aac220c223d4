package core

import (
	"fmt"
	"sort"
)

// PayBlockReward credits the block's producing witness (and, under
// AllowChangeDelegation, the standby witness pool) for one block, per
// spec.md §4.8 step 8. The legacy path (AllowChangeDelegation unset)
// credits the full WitnessPayPerBlock to the witness account's
// Allowance; the delegation path splits it by the witness's own
// BrokerageRate and spreads the remainder across the runner-up witnesses
// proportional to their vote count (the nearest in-scope analogue to "the
// delegation service... credit standby witnesses as well", since
// per-voter reward accrual is outside this core's account model).
func PayBlockReward(state *StateDB, dynamic *DynamicProperties, producer Address) error {
	total := dynamic.Get(WitnessPayPerBlock)
	if total <= 0 {
		return nil
	}

	w, found, err := state.GetWitness(producer)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: block producer %s is not a registered witness", ErrIntegrity, producer.Hex())
	}

	if !dynamic.Allowed(AllowChangeDelegation) {
		return creditAllowance(state, producer, total)
	}

	witnessShare := total * w.BrokerageRate / 100
	standbyPool := total - witnessShare
	if err := creditAllowance(state, producer, witnessShare); err != nil {
		return err
	}
	if standbyPool <= 0 {
		return nil
	}
	return payStandbyWitnesses(state, producer, standbyPool)
}

func creditAllowance(state *StateDB, addr Address, amount int64) error {
	if amount <= 0 {
		return nil
	}
	a, _, err := state.GetOrCreateAccount(addr)
	if err != nil {
		return err
	}
	a.Allowance += amount
	return state.PutAccount(a)
}

// payStandbyWitnesses spreads pool, weighted by VoteCount, across the
// witnesses ranked MaxActiveWitnesses..MaxStandbyWitnesses-1 by votes, the
// runner-up set the reference calls "standby witnesses". The producer and
// zero-vote witnesses in that range are skipped and their shares unpaid.
func payStandbyWitnesses(state *StateDB, producer Address, pool int64) error {
	all, err := state.ListWitnesses()
	if err != nil {
		return err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].VoteCount > all[j].VoteCount })

	standbyStart := MaxActiveWitnesses
	if standbyStart > len(all) {
		standbyStart = len(all)
	}
	standbyEnd := MaxStandbyWitnesses
	if standbyEnd > len(all) {
		standbyEnd = len(all)
	}
	standby := all[standbyStart:standbyEnd]

	var totalVotes int64
	for _, w := range standby {
		totalVotes += w.VoteCount
	}
	if totalVotes <= 0 {
		return nil
	}
	for _, w := range standby {
		if w.Address == producer || w.VoteCount <= 0 {
			continue
		}
		share := pool * w.VoteCount / totalVotes
		if err := creditAllowance(state, w.Address, share); err != nil {
			return err
		}
	}
	return nil
}
