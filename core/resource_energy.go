package core

import "fmt"

// EnergyProcessor implements spec.md §4.5: metering smart-contract energy
// consumption across a caller/origin split, burning any shortfall into the
// Blackhole account, and the end-of-block adaptive-limit feedback loop. It
// shares the sliding-window decay formula of resource_bandwidth.go (the
// same RESOURCE_WINDOW_SIZE/RESOURCE_PRECISION arithmetic, spec.md §4.4)
// since the reference reuses one decay routine for both resources.
type EnergyProcessor struct {
	state *StateDB
}

func NewEnergyProcessor(state *StateDB) *EnergyProcessor {
	return &EnergyProcessor{state: state}
}

// SplitResult records how an energy charge was divided and paid.
type SplitResult struct {
	CallerEnergyUsage int64
	OriginEnergyUsage int64
	CallerBurnedFee   int64
}

// Charge implements the two-party metering split of spec.md §4.5: when
// caller == origin every unit lands on the one account; otherwise origin
// covers up to (100-userPercent)% of the total, bounded by its own frozen
// energy and the contract's OriginEnergyLimit, and caller absorbs the
// remainder from its frozen energy first and balance-burn second.
func (e *EnergyProcessor) Charge(
	caller, origin *Account,
	originEnergyLimit int64,
	userPercent int64,
	energyUsed int64,
	currentSlot int64,
	dynamic *DynamicProperties,
	blackhole *Account,
) (SplitResult, error) {
	var result SplitResult

	if caller.Address == origin.Address {
		used, err := e.chargeFrozenThenBurn(caller, energyUsed, currentSlot, dynamic, blackhole)
		if err != nil {
			return result, err
		}
		result.CallerEnergyUsage = used
		return result, nil
	}

	originShare := energyUsed * (100 - userPercent) / 100
	if originShare > 0 {
		originLimit := globalLimit(origin.FrozenForEnergy, dynamic.Get(TotalEnergyCurrentLimit), dynamic.Get(TotalEnergyWeight))
		originUsed := decayedUsage(origin.EnergyUsage, currentSlot)
		originAvailable := originLimit - originUsed
		if originAvailable > originEnergyLimit-originUsed {
			originAvailable = originEnergyLimit - originUsed
		}
		if originAvailable < 0 {
			originAvailable = 0
		}
		if originShare > originAvailable {
			originShare = originAvailable
		}
		if originShare > 0 {
			origin.EnergyUsage.Used = slidingWindowUsage(origin.EnergyUsage.Used, currentSlot-origin.EnergyUsage.LatestSlot, originShare)
			origin.EnergyUsage.LatestSlot = currentSlot
			result.OriginEnergyUsage = originShare
		}
	}

	callerShare := energyUsed - result.OriginEnergyUsage
	used, err := e.chargeFrozenThenBurn(caller, callerShare, currentSlot, dynamic, blackhole)
	if err != nil {
		return result, err
	}
	result.CallerEnergyUsage = used
	return result, nil
}

// chargeFrozenThenBurn consumes frozen energy first, then burns any
// shortfall from balance at EnergyPrice into the Blackhole account
// (spec.md §4.5 "any shortfall is burned... insufficient balance to burn
// terminates the transaction with an error").
func (e *EnergyProcessor) chargeFrozenThenBurn(acct *Account, amount int64, currentSlot int64, dynamic *DynamicProperties, blackhole *Account) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}
	limit := globalLimit(acct.FrozenForEnergy, dynamic.Get(TotalEnergyCurrentLimit), dynamic.Get(TotalEnergyWeight))
	used := decayedUsage(acct.EnergyUsage, currentSlot)
	available := limit - used
	if available < 0 {
		available = 0
	}
	fromFrozen := amount
	if fromFrozen > available {
		fromFrozen = available
	}
	if fromFrozen > 0 {
		acct.EnergyUsage.Used = slidingWindowUsage(acct.EnergyUsage.Used, currentSlot-acct.EnergyUsage.LatestSlot, fromFrozen)
		acct.EnergyUsage.LatestSlot = currentSlot
	}
	shortfall := amount - fromFrozen
	if shortfall <= 0 {
		return amount, nil
	}
	fee := shortfall * dynamic.Get(EnergyPrice)
	if acct.Balance < fee {
		return 0, fmt.Errorf("%w: insufficient balance to burn for energy", ErrExecution)
	}
	acct.Balance -= fee
	if blackhole != nil {
		blackhole.Balance += fee
	}
	return amount, nil
}

// AdaptiveEnergyUpdate implements spec.md §4.5's end-of-block feedback
// loop: when AllowAdaptiveEnergy is set and any energy was consumed this
// block, TotalEnergyAverageUsage decays toward blockEnergyUsage and
// TotalEnergyCurrentLimit is raised or lowered multiplicatively, bounded
// to [TotalEnergyLimit, TotalEnergyLimit*AdaptiveResourceLimitMultiplier],
// depending on whether the decayed average sits above or below
// TotalEnergyTargetLimit.
func AdaptiveEnergyUpdate(dynamic *DynamicProperties, blockEnergyUsage int64) {
	if blockEnergyUsage <= 0 || !dynamic.Allowed(AllowAdaptiveEnergy) {
		return
	}

	avg := dynamic.Get(TotalEnergyAverageUsage)
	avg = (avg + blockEnergyUsage) / 2
	dynamic.Set(TotalEnergyAverageUsage, avg)

	limit := dynamic.Get(TotalEnergyCurrentLimit)
	floor := dynamic.Get(TotalEnergyLimit)
	ceiling := floor * dynamic.Get(AdaptiveResourceLimitMultiplier)

	if avg > dynamic.Get(TotalEnergyTargetLimit) {
		limit = limit * (AdaptiveEnergyIncreaseDenominator + AdaptiveEnergyIncreaseRateNumerator) / AdaptiveEnergyIncreaseDenominator
	} else {
		limit = limit * (AdaptiveEnergyDecreaseDenominator - AdaptiveEnergyDecreaseRateNumerator) / AdaptiveEnergyDecreaseDenominator
	}
	if limit < floor {
		limit = floor
	}
	if ceiling > 0 && limit > ceiling {
		limit = ceiling
	}
	dynamic.Set(TotalEnergyCurrentLimit, limit)
}
