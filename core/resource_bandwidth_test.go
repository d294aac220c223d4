package core

import (
	"context"
	"testing"

	"golang.org/x/time/rate"
)

func TestSlidingWindowUsageHalfDecay(t *testing.T) {
	t.Parallel()

	// spec.md §8 scenario 2: WINDOW=28_800, PRECISION=1_000_000,
	// latest_usage=28_800, Δslot=14_400, new_bytes=0 => half decay, 14_400.
	got := slidingWindowUsage(28_800, 14_400, 0)
	if got != 14_400 {
		t.Fatalf("slidingWindowUsage(28800, 14400, 0) = %d, want 14400", got)
	}
}

func TestSlidingWindowUsageFullDecayPastWindow(t *testing.T) {
	t.Parallel()

	got := slidingWindowUsage(28_800, ResourceWindowSize, 0)
	if got != 0 {
		t.Fatalf("usage at/after a full window should fully decay, got %d", got)
	}
	got2 := slidingWindowUsage(28_800, ResourceWindowSize+1, 0)
	if got2 != 0 {
		t.Fatalf("usage past a full window should fully decay, got %d", got2)
	}
}

func TestSlidingWindowUsageNoDecayAtZeroDelta(t *testing.T) {
	t.Parallel()

	got := slidingWindowUsage(0, 0, ResourceWindowSize)
	if got != ResourceWindowSize {
		t.Fatalf("slidingWindowUsage(0, 0, window) = %d, want %d", got, int64(ResourceWindowSize))
	}
}

func TestBandwidthConsumeBurnsBalanceWhenNoFreeOrFrozenBW(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	proc := NewBandwidthProcessor(state)
	dyn := DefaultDynamicProperties() // BandwidthPrice = 10

	owner := NewAccount(BytesToAddress([]byte("alice")))
	owner.Balance = 2000
	owner.FreeBandwidthUsage = ResourceUsage{Used: FreeBandwidth, LatestSlot: 1} // free allowance spent

	fee, err := proc.Consume(ConsumeParams{Owner: owner.Address, ByteSize: 200, CurrentSlot: 1}, owner, dyn)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	// spec.md §8 scenario 3: 200 bytes * BandwidthPrice(10) = 2000.
	if fee != 2000 {
		t.Fatalf("bandwidth fee = %d, want 2000", fee)
	}
	if owner.Balance != 0 {
		t.Fatalf("owner.Balance after burn = %d, want 0", owner.Balance)
	}
}

func TestBandwidthConsumeRejectsInsufficientBalanceForBurn(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	proc := NewBandwidthProcessor(state)
	dyn := DefaultDynamicProperties()

	owner := NewAccount(BytesToAddress([]byte("alice")))
	owner.Balance = 1999 // one short of the 2000 required
	// free allowance spent
	owner.FreeBandwidthUsage = ResourceUsage{Used: FreeBandwidth, LatestSlot: 1}

	before := owner.Balance
	if _, err := proc.Consume(ConsumeParams{Owner: owner.Address, ByteSize: 200, CurrentSlot: 1}, owner, dyn); err == nil {
		t.Fatalf("Consume with insufficient balance should fail")
	}
	if owner.Balance != before {
		t.Fatalf("owner.Balance mutated on a rejected transaction: got %d, want unchanged %d", owner.Balance, before)
	}
}

func TestBandwidthConsumePrefersFrozenOverBurn(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	proc := NewBandwidthProcessor(state)
	dyn := DefaultDynamicProperties()
	dyn.Set(TotalBandwidthLimit, 1000)
	dyn.Set(TotalBandwidthWeight, 1)

	owner := NewAccount(BytesToAddress([]byte("alice")))
	owner.Balance = 0
	owner.FrozenForBandwidth = 5_000_000 // 5 TRX frozen -> global limit 5*1000 = 5000

	fee, err := proc.Consume(ConsumeParams{Owner: owner.Address, ByteSize: 200, CurrentSlot: 1}, owner, dyn)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if fee != 0 {
		t.Fatalf("expected the frozen-bandwidth path to charge no fee, got %d", fee)
	}
	if owner.FrozenBandwidthUsage.Used == 0 {
		t.Fatalf("frozen bandwidth usage should have been credited, got 0")
	}
	if owner.Balance != 0 {
		t.Fatalf("frozen-bandwidth path must not touch balance, got %d", owner.Balance)
	}
}

func TestBandwidthConsumeNewAccountFeeResetsUsage(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	proc := NewBandwidthProcessor(state)
	dyn := DefaultDynamicProperties() // AccountCreateFee = 100_000

	owner := NewAccount(BytesToAddress([]byte("alice")))
	owner.Balance = 200_000
	owner.FreeBandwidthUsage = ResourceUsage{Used: 999, LatestSlot: 1}

	fee, err := proc.Consume(ConsumeParams{Owner: owner.Address, ByteSize: 200, CurrentSlot: 2, NewAccountCreated: true}, owner, dyn)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if fee != 100_000 {
		t.Fatalf("new-account fee = %d, want 100000", fee)
	}
	if owner.Balance != 100_000 {
		t.Fatalf("owner.Balance after fee = %d, want 100000", owner.Balance)
	}
	if owner.FreeBandwidthUsage != (ResourceUsage{}) {
		t.Fatalf("free bandwidth usage should reset to zero on the fee path, got %+v", owner.FreeBandwidthUsage)
	}
}

func TestBandwidthConsumeNewAccountInsufficientBalanceRejected(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	proc := NewBandwidthProcessor(state)
	dyn := DefaultDynamicProperties()

	owner := NewAccount(BytesToAddress([]byte("alice")))
	owner.Balance = 1 // can't afford frozen-create or fee-create

	if _, err := proc.Consume(ConsumeParams{Owner: owner.Address, ByteSize: 200, CurrentSlot: 1, NewAccountCreated: true}, owner, dyn); err == nil {
		t.Fatalf("Consume for new account with no balance should fail")
	}
}

func TestGlobalLimitZeroBelowOneTRX(t *testing.T) {
	t.Parallel()

	if got := globalLimit(999_999, 1_000_000, 1); got != 0 {
		t.Fatalf("globalLimit below 1 TRX = %d, want 0", got)
	}
	if got := globalLimit(1_000_000, 2_000_000, 1); got != 2_000_000 {
		t.Fatalf("globalLimit at 1 TRX = %d, want 2000000", got)
	}
}

// TestFreeBandwidthReplenishmentOverSimulatedSlots paces a sequence of free
// bandwidth consumptions through a rate.Limiter so each iteration models one
// real block-producing interval (spec.md §6 BLOCK_PRODUCING_INTERVAL), then
// asserts the sliding-window usage decays to zero once a full window of
// slots has elapsed with no further consumption.
func TestFreeBandwidthReplenishmentOverSimulatedSlots(t *testing.T) {
	t.Parallel()

	limiter := rate.NewLimiter(rate.Inf, 1) // Inf: pace the loop without slowing the test down
	ctx := context.Background()

	var usage ResourceUsage
	slot := int64(0)
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("limiter.Wait: %v", err)
		}
		slot++
		used := slidingWindowUsage(usage.Used, slot-usage.LatestSlot, 1000)
		usage = ResourceUsage{Used: used, LatestSlot: slot}
	}
	if usage.Used == 0 {
		t.Fatalf("usage should have accumulated across the simulated slots, got 0")
	}

	// Advance a full window with no further consumption: usage must fully
	// decay (spec.md §4.4's sliding-window formula, Δslot >= WINDOW branch).
	slot += ResourceWindowSize
	decayed := slidingWindowUsage(usage.Used, slot-usage.LatestSlot, 0)
	if decayed != 0 {
		t.Fatalf("usage after a full replenishment window = %d, want 0", decayed)
	}
}

func TestChargeMultisigFeeSkipsOwnerPermission(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	proc := NewBandwidthProcessor(state)
	dyn := DefaultDynamicProperties()

	owner := NewAccount(BytesToAddress([]byte("alice")))
	owner.Balance = 500

	if err := proc.ChargeMultisigFee(owner, dyn, 0); err != nil {
		t.Fatalf("ChargeMultisigFee(permission=0): %v", err)
	}
	if owner.Balance != 500 {
		t.Fatalf("owner permission id must never incur the multisig fee, balance changed to %d", owner.Balance)
	}

	dyn.Set(MultisigFee, 100)
	if err := proc.ChargeMultisigFee(owner, dyn, 2); err != nil {
		t.Fatalf("ChargeMultisigFee(permission=2): %v", err)
	}
	if owner.Balance != 400 {
		t.Fatalf("owner.Balance after multisig fee = %d, want 400", owner.Balance)
	}
}
