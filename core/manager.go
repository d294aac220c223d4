package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Manager is the single mutating entry point for both the state DB and the
// chain DB, driving push_block end to end (spec.md §4.8). Block processing
// is single-threaded (spec.md §5): mu serializes every call so the layer
// stack is never touched concurrently. The one permitted parallelism is
// per-transaction signature recovery inside PushBlock's step 5.
type Manager struct {
	mu sync.Mutex

	state     *StateDB
	chain     *ChainDB
	dynamic   *DynamicProperties
	scheduler *Scheduler
	forkCtrl  *VersionForkController
	blackhole Address
	log       *logrus.Entry
}

// NewManager wires the processors built across scheduler.go, executor.go,
// reward.go and maintenance.go into one orchestrator, grounded on the
// fixed-order sub-processor dispatch of the teacher's applyBlock.
func NewManager(state *StateDB, chain *ChainDB, dynamic *DynamicProperties, scheduler *Scheduler, forkCtrl *VersionForkController, blackhole Address) *Manager {
	return &Manager{
		state:     state,
		chain:     chain,
		dynamic:   dynamic,
		scheduler: scheduler,
		forkCtrl:  forkCtrl,
		blackhole: blackhole,
		log:       logrus.WithField("component", "manager"),
	}
}

// headState bundles the chain DB's view of "the current tip", read once at
// the top of PushBlock so every step operates on a consistent snapshot.
type headState struct {
	number    uint64
	timestamp int64
	hash      Hash
	version   int32
	exists    bool
}

func (m *Manager) head() (headState, error) {
	header, err := m.chain.GetLatestHeader()
	if err != nil {
		return headState{}, err
	}
	if header == nil {
		return headState{}, nil
	}
	return headState{number: header.Number, timestamp: header.Timestamp, hash: header.Hash(), version: header.Version, exists: true}, nil
}

// PushBlock runs the 14-step pipeline of spec.md §4.8. Any error during
// steps 2-12 rolls back every layer pushed by this call and leaves
// persistence untouched; only step 14 (commit) crosses the persistent
// boundary.
func (m *Manager) PushBlock(block *Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	head, err := m.head()
	if err != nil {
		return err
	}

	// Step 1: basic checks.
	if err := m.basicChecks(block, head); err != nil {
		return err
	}

	// Step 2: open a new state layer. Everything below this point that
	// returns an error must discard back down to this depth first.
	baseDepth := m.state.Depth()
	m.state.NewLayer()
	committed := false
	defer func() {
		if !committed {
			for m.state.Depth() > baseDepth {
				_ = m.state.DiscardLastLayer()
			}
		}
	}()

	// Step 3: validate_block_schedule. The genesis block has no prior
	// witness roster to schedule against, so it is exempt.
	schedule, err := m.state.GetWitnessSchedule()
	if err != nil {
		return err
	}
	var slot int64 = 1
	if head.exists {
		slot = m.scheduler.GetSlot(head.timestamp, block.Header.Timestamp)
		if slot <= 0 {
			return fmt.Errorf("%w: block timestamp does not advance a slot past head", ErrConsensus)
		}
		if len(schedule) > 0 {
			scheduled, err := m.scheduler.GetScheduledWitness(head.timestamp, slot, schedule)
			if err != nil {
				return err
			}
			if scheduled != block.Header.WitnessAddr {
				return fmt.Errorf("%w: block witness %s does not match scheduled witness %s", ErrConsensus, block.Header.WitnessAddr.Hex(), scheduled.Hex())
			}
		}
	}

	// Step 4: reset the per-block energy accumulator.
	var blockEnergyUsage int64

	// Step 5: recover signers for every transaction, in parallel.
	signers, err := m.recoverAllSigners(block.Transactions)
	if err != nil {
		return err
	}

	// Step 6: per-transaction TaPoS, common validity, duplicate check,
	// execute, receipt.
	executor := NewExecutor(m.state, m.blackhole, m.forkCtrl)
	for i, tx := range block.Transactions {
		if err := m.validateTransactionAdmission(tx, head); err != nil {
			return err
		}
		receipt, err := executor.Execute(&block.Header, tx, m.scheduler.AbsoluteSlot(head.timestamp), m.dynamic, signers[i])
		if err != nil {
			return err
		}
		blockEnergyUsage += receipt.EnergyUsage
	}

	// Step 7: adaptive-energy update.
	if blockEnergyUsage > 0 && m.dynamic.Allowed(AllowAdaptiveEnergy) {
		AdaptiveEnergyUpdate(m.dynamic, blockEnergyUsage)
	}

	// Step 8: block reward.
	if err := PayBlockReward(m.state, m.dynamic, block.Header.WitnessAddr); err != nil {
		return err
	}

	// Step 9: proposal processor, gated on the maintenance clock.
	if IsMaintenanceTime(m.dynamic, block.Header.Timestamp) {
		if err := processProposals(m.state, m.dynamic, block.Header.Timestamp); err != nil {
			return err
		}
	}

	// Step 10: witness statistics.
	if err := m.updateWitnessStatistics(block, head, slot); err != nil {
		return err
	}

	// Step 11: maintenance (witness reshuffle, global weights), same gate
	// as step 9 so both run together once the cycle is due.
	if IsMaintenanceTime(m.dynamic, block.Header.Timestamp) {
		if err := RunMaintenance(m.state, m.dynamic, m.forkCtrl, block.Header.Timestamp); err != nil {
			return err
		}
	}

	// Step 12: solid-block number.
	if err := m.updateSolidBlockNumber(); err != nil {
		return err
	}

	// Step 13: ref-block ring slot. The ring itself is derived on demand
	// from the chain DB's header-by-number index (ChainDB.VerifyRefBlock,
	// RefBlockHashesOfBlockNum); caching the tip hash here serves fast
	// "latest hash" reads without a chain DB round trip.
	if err := m.state.PutLatestBlockHash(block.Header.Hash()); err != nil {
		return err
	}

	// Step 14: commit. Solidify every state layer pushed by this call,
	// then append to the chain DB.
	for m.state.Depth() > baseDepth {
		if err := m.state.SolidifyLayer(); err != nil {
			return err
		}
	}
	if err := m.chain.InsertBlock(block); err != nil {
		return fmt.Errorf("%w: commit block %s: %v", ErrIO, block.Header.Hash().Hex(), err)
	}
	committed = true
	return nil
}

// basicChecks implements spec.md §4.8 step 1.
func (m *Manager) basicChecks(block *Block, head headState) error {
	root := ComputeMerkleRoot(block.Transactions)
	if root != block.Header.MerkleRoot {
		return fmt.Errorf("%w: merkle root mismatch for block %d", ErrConsensus, block.Header.Number)
	}
	if !head.exists {
		if block.Header.Number != 0 {
			return fmt.Errorf("%w: genesis block must be number 0, got %d", ErrConsensus, block.Header.Number)
		}
		if !block.Header.ParentHash.IsZero() {
			return fmt.Errorf("%w: genesis block must have a zero parent hash", ErrConsensus)
		}
		return nil
	}
	if block.Header.Number <= head.number {
		return fmt.Errorf("%w: block number %d does not exceed head %d", ErrConsensus, block.Header.Number, head.number)
	}
	if block.Header.ParentHash != head.hash {
		return fmt.Errorf("%w: block %d parent hash does not match head", ErrConsensus, block.Header.Number)
	}
	if head.exists && block.Header.Version > head.version {
		m.log.WithFields(logrus.Fields{
			"block":   block.Header.Number,
			"version": block.Header.Version,
		}).Warn("block carries a newer protocol version than this node has seen")
	}
	if m.forkCtrl != nil {
		m.forkCtrl.ReportBlockVersion(block.Header.WitnessAddr, block.Header.Version)
	}
	return nil
}

// recoverAllSigners recovers every transaction's signer set concurrently,
// preserving result order (spec.md §4.8 step 5, §5's one sanctioned
// parallelism point). Every recovery runs to completion (the errgroup has
// no cancelling context); the first error any of them reports is returned.
func (m *Manager) recoverAllSigners(txs []*Transaction) ([][]Address, error) {
	out := make([][]Address, len(txs))
	var g errgroup.Group
	for i, tx := range txs {
		i, tx := i, tx
		g.Go(func() error {
			signers, err := recoverSigners(tx)
			if err != nil {
				return err
			}
			out[i] = signers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// validateTransactionAdmission implements the TaPoS, common-validity and
// duplicate-check portion of spec.md §4.8 step 6.
func (m *Manager) validateTransactionAdmission(tx *Transaction, head headState) error {
	ok, err := m.chain.VerifyRefBlock(tx.RawData.RefBlockBytes, tx.RawData.RefBlockHash, head.number)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: TaPoS check failed for transaction %s", ErrConsensus, tx.Hash().Hex())
	}
	if err := ValidateCommon(tx, head.timestamp); err != nil {
		return err
	}
	if _, found, err := m.state.GetTransactionReceipt(tx.Hash()); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: duplicate transaction %s", ErrValidation, tx.Hash().Hex())
	}
	return nil
}

// updateWitnessStatistics implements spec.md §4.8 step 10: credit the
// producing witness, debit every witness whose scheduled slot between the
// previous and current block went unfilled, and rotate the BlockFilledSlots
// ring.
func (m *Manager) updateWitnessStatistics(block *Block, head headState, slot int64) error {
	producer, found, err := m.state.GetWitness(block.Header.WitnessAddr)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: block witness %s is not a registered witness", ErrIntegrity, block.Header.WitnessAddr.Hex())
	}
	producer.TotalProduced++
	producer.LatestBlockNumber = int64(block.Header.Number)
	producer.LatestSlotNumber = m.scheduler.AbsoluteSlot(head.timestamp) + slot
	producer.LatestBlockVersion = block.Header.Version
	if err := m.state.PutWitness(producer); err != nil {
		return err
	}

	schedule, err := m.state.GetWitnessSchedule()
	if err != nil {
		return err
	}
	for skipped := int64(1); skipped < slot; skipped++ {
		missed, err := m.scheduler.GetScheduledWitness(head.timestamp, skipped, schedule)
		if err != nil {
			return err
		}
		w, found, err := m.state.GetWitness(missed)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		w.TotalMissed++
		if err := m.state.PutWitness(w); err != nil {
			return err
		}
	}

	slots, err := m.state.GetBlockFilledSlots()
	if err != nil {
		return err
	}
	if len(slots) != NumOfBlockFilledSlots {
		slots = make([]bool, NumOfBlockFilledSlots)
	}
	idx := int(uint64(block.Header.Number) % uint64(NumOfBlockFilledSlots))
	slots[idx] = true
	for s := int64(1); s < slot; s++ {
		missIdx := int((uint64(block.Header.Number) - uint64(slot-s)) % uint64(NumOfBlockFilledSlots))
		slots[missIdx] = false
	}
	return m.state.PutBlockFilledSlots(slots)
}

// updateSolidBlockNumber implements spec.md §4.8 step 12: the solid
// (finalized) pointer is the value at position floor(N*(1-threshold/100))
// of the sorted latest_block_number reported by the top-N active
// witnesses, and must never regress.
func (m *Manager) updateSolidBlockNumber() error {
	schedule, err := m.state.GetWitnessSchedule()
	if err != nil {
		return err
	}
	if len(schedule) == 0 {
		return nil
	}
	numbers := make([]int64, 0, len(schedule))
	for _, addr := range schedule {
		w, found, err := m.state.GetWitness(addr)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		numbers = append(numbers, w.LatestBlockNumber)
	}
	if len(numbers) == 0 {
		return nil
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	idx := int(float64(len(numbers)) * (1 - float64(SolidThresholdPercent)/100))
	if idx >= len(numbers) {
		idx = len(numbers) - 1
	}
	if idx < 0 {
		idx = 0
	}
	candidate := numbers[idx]

	current, _, err := m.state.GetSolidBlockNumber()
	if err != nil {
		return err
	}
	if candidate > current {
		return m.state.PutSolidBlockNumber(candidate)
	}
	return nil
}

// PushIncomingBlock implements spec.md §6's push_incoming_block: verify the
// witness signature over the header digest, then run the ordinary
// push_block pipeline.
func (m *Manager) PushIncomingBlock(block *Block) (bool, error) {
	digest := block.Header.Hash()
	signer, err := RecoverSigner(digest, block.Header.WitnessSig)
	if err != nil {
		return false, fmt.Errorf("%w: recover block witness signature: %v", ErrConsensus, err)
	}
	if signer != block.Header.WitnessAddr {
		return false, fmt.Errorf("%w: block signature does not match declared witness %s", ErrConsensus, block.Header.WitnessAddr.Hex())
	}
	if err := m.PushBlock(block); err != nil {
		return false, err
	}
	return true, nil
}

// PrePushTransaction implements spec.md §6's pre_push_transaction: run
// TaPoS, common validity, signature/permission checks and execute inside a
// disposable layer, then roll back regardless of outcome. Used by mempool
// admission, which wants the would-be result without mutating state.
func (m *Manager) PrePushTransaction(tx *Transaction) (*TransactionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	head, err := m.head()
	if err != nil {
		return nil, err
	}
	if err := m.validateTransactionAdmission(tx, head); err != nil {
		return nil, err
	}

	baseDepth := m.state.Depth()
	m.state.NewLayer()
	defer func() {
		for m.state.Depth() > baseDepth {
			_ = m.state.DiscardLastLayer()
		}
	}()

	header := &BlockHeader{Number: head.number + 1, Timestamp: head.timestamp}
	executor := NewExecutor(m.state, m.blackhole, m.forkCtrl)
	receipt, err := executor.Execute(header, tx, m.scheduler.AbsoluteSlot(head.timestamp), m.dynamic, nil)
	if err != nil {
		return nil, err
	}
	return &receipt.Result, nil
}

// DryRunTransaction implements spec.md §6's dry_run_transaction: the same
// disposable-layer execute as PrePushTransaction but skips the TaPoS check,
// used by the query API to preview a transaction against current state
// without requiring a live ref-block pin.
func (m *Manager) DryRunTransaction(tx *Transaction) (*TransactionResult, *TransactionReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	correlationID := uuid.New().String()
	log := m.log.WithFields(logrus.Fields{"correlation_id": correlationID, "tx": tx.Hash().Hex()})
	log.Debug("dry run transaction starting")

	head, err := m.head()
	if err != nil {
		return nil, nil, err
	}

	baseDepth := m.state.Depth()
	m.state.NewLayer()
	defer func() {
		for m.state.Depth() > baseDepth {
			_ = m.state.DiscardLastLayer()
		}
	}()

	header := &BlockHeader{Number: head.number + 1, Timestamp: head.timestamp}
	executor := NewExecutor(m.state, m.blackhole, m.forkCtrl)
	receipt, err := executor.Execute(header, tx, m.scheduler.AbsoluteSlot(head.timestamp), m.dynamic, nil)
	if err != nil {
		log.WithError(err).Debug("dry run transaction failed")
		return nil, nil, err
	}
	log.Debug("dry run transaction finished")
	return &receipt.Result, receipt, nil
}

// GetBlockByNumber implements spec.md §6's get_block_by_number.
func (m *Manager) GetBlockByNumber(n uint64) (*Block, error) {
	header, err := m.chain.GetBlockByNumber(n)
	if err != nil {
		return nil, err
	}
	return m.chain.GetBlockFromHeader(header)
}

// GetBlockByHash implements spec.md §6's get_block_by_hash.
func (m *Manager) GetBlockByHash(hash Hash) (*Block, error) {
	header, err := m.chain.GetBlockByNumber(hash.BlockNumber())
	if err != nil {
		return nil, err
	}
	if header.Hash() != hash {
		return nil, fmt.Errorf("%w: no block with hash %s", ErrIntegrity, hash.Hex())
	}
	return m.chain.GetBlockFromHeader(header)
}

// BlockHashesFrom implements spec.md §6's block_hashes_from(start, count).
func (m *Manager) BlockHashesFrom(start uint64, count uint64) ([]Hash, error) {
	hashes := make([]Hash, 0, count)
	for n := start; n < start+count; n++ {
		header, err := m.chain.GetBlockByNumber(n)
		if err != nil {
			return hashes, err
		}
		hashes = append(hashes, header.Hash())
	}
	return hashes, nil
}
