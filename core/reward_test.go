package core

import "testing"

func TestPayBlockRewardLegacyCreditsFullAmount(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	dyn := DefaultDynamicProperties() // WitnessPayPerBlock = 32_000_000

	producer := BytesToAddress([]byte("witness"))
	if err := state.PutWitness(&Witness{Address: producer, BrokerageRate: 20}); err != nil {
		t.Fatalf("PutWitness: %v", err)
	}

	if err := PayBlockReward(state, dyn, producer); err != nil {
		t.Fatalf("PayBlockReward: %v", err)
	}

	acct, found, err := state.GetAccount(producer)
	if err != nil || !found {
		t.Fatalf("GetAccount(producer): found=%v, err=%v", found, err)
	}
	if acct.Allowance != dyn.Get(WitnessPayPerBlock) {
		t.Fatalf("producer.Allowance = %d, want the full per-block pay %d", acct.Allowance, dyn.Get(WitnessPayPerBlock))
	}
}

func TestPayBlockRewardRejectsUnregisteredProducer(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	dyn := DefaultDynamicProperties()

	if err := PayBlockReward(state, dyn, BytesToAddress([]byte("ghost"))); err == nil {
		t.Fatalf("PayBlockReward for an unregistered witness should fail")
	}
}

func TestPayBlockRewardDelegationSplitsByBrokerageRate(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	dyn := DefaultDynamicProperties()
	dyn.Set(AllowChangeDelegation, 1)
	dyn.Set(WitnessPayPerBlock, 1000)

	producer := BytesToAddress([]byte("producer"))
	if err := state.PutWitness(&Witness{Address: producer, BrokerageRate: 70, VoteCount: 1_000_000}); err != nil {
		t.Fatalf("PutWitness producer: %v", err)
	}
	// Fill the rest of the active roster with high-vote witnesses so the
	// low-vote "standby" witness below ranks outside the top MaxActiveWitnesses.
	for i := 0; i < MaxActiveWitnesses-1; i++ {
		addr := BytesToAddress([]byte{byte(100 + i)})
		if err := state.PutWitness(&Witness{Address: addr, VoteCount: 1_000_000}); err != nil {
			t.Fatalf("PutWitness filler %d: %v", i, err)
		}
	}
	standby := BytesToAddress([]byte("standby"))
	if err := state.PutWitness(&Witness{Address: standby, VoteCount: 100}); err != nil {
		t.Fatalf("PutWitness standby: %v", err)
	}

	if err := PayBlockReward(state, dyn, producer); err != nil {
		t.Fatalf("PayBlockReward: %v", err)
	}

	producerAcct, _, err := state.GetAccount(producer)
	if err != nil {
		t.Fatalf("GetAccount(producer): %v", err)
	}
	if producerAcct.Allowance != 700 {
		t.Fatalf("producer.Allowance = %d, want 700 (70%% brokerage of 1000)", producerAcct.Allowance)
	}

	standbyAcct, found, err := state.GetAccount(standby)
	if err != nil || !found {
		t.Fatalf("GetAccount(standby): found=%v, err=%v", found, err)
	}
	if standbyAcct.Allowance <= 0 {
		t.Fatalf("standby witness should receive a share of the remaining %d pool, got %d", 300, standbyAcct.Allowance)
	}
}

func TestPayBlockRewardZeroPayIsNoOp(t *testing.T) {
	t.Parallel()

	state := NewStateDB(NewMemStore())
	state.NewLayer()
	dyn := DefaultDynamicProperties()
	dyn.Set(WitnessPayPerBlock, 0)

	producer := BytesToAddress([]byte("producer"))
	if err := state.PutWitness(&Witness{Address: producer}); err != nil {
		t.Fatalf("PutWitness: %v", err)
	}
	if err := PayBlockReward(state, dyn, producer); err != nil {
		t.Fatalf("PayBlockReward with zero pay should be a no-op, got error: %v", err)
	}
	if _, found, _ := state.GetAccount(producer); found {
		t.Fatalf("zero-pay reward should not create an account for the producer")
	}
}
