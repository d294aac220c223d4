package core

import "fmt"

// Scheduler implements the DPoS block-production schedule of spec.md
// §4.8 step 3: slot arithmetic over BlockProducingInterval plus a witness
// roster rotated by ConsecutiveBlocksPerRound. It is grounded on the same
// active-roster idea as forkcontroller.go's VersionForkController, but
// answers "whose turn is it" rather than "has this upgrade passed".
type Scheduler struct {
	genesisTimestamp int64
}

// NewScheduler ties slot arithmetic to the chain's genesis timestamp, set
// once at startup and never revised by governance.
func NewScheduler(genesisTimestamp int64) *Scheduler {
	return &Scheduler{genesisTimestamp: genesisTimestamp}
}

func (s *Scheduler) interval() int64 {
	return int64(BlockProducingInterval / 1_000_000) // ms
}

// AbsoluteSlot computes absolute_slot = (timestamp - genesis_ts)/INTERVAL
// (spec.md §4.8 step 3), the slot index since genesis.
func (s *Scheduler) AbsoluteSlot(timestamp int64) int64 {
	if timestamp <= s.genesisTimestamp {
		return 0
	}
	return (timestamp - s.genesisTimestamp) / s.interval()
}

// GetSlot returns the slot of timestamp relative to headTimestamp: zero
// means timestamp does not reach a slot past head's, one is the slot right
// after head. It follows the reference's getSlotAtTime convention, used both to validate an incoming block's
// schedule position and to decide how many slots were skipped for
// witness-missed-block accounting (spec.md §4.8 steps 3 and 10).
func (s *Scheduler) GetSlot(headTimestamp, timestamp int64) int64 {
	if timestamp <= headTimestamp {
		return 0
	}
	return s.AbsoluteSlot(timestamp) - s.AbsoluteSlot(headTimestamp)
}

// GetScheduledWitness returns the witness scheduled to produce the block
// at slot (relative to headTimestamp), rotating through schedule in
// blocks of ConsecutiveBlocksPerRound per witness before advancing to the
// next (spec.md §4.8 step 3: "the active witness list rotated by
// NUM_OF_CONSECUTIVE_BLOCKS_PER_ROUND").
func (s *Scheduler) GetScheduledWitness(headTimestamp int64, slot int64, schedule []Address) (Address, error) {
	if len(schedule) == 0 {
		return Address{}, fmt.Errorf("%w: empty witness schedule", ErrConsensus)
	}
	currentSlot := s.AbsoluteSlot(headTimestamp) + slot
	roundSize := int64(len(schedule)) * ConsecutiveBlocksPerRound
	participant := currentSlot % roundSize
	if participant < 0 {
		participant += roundSize
	}
	return schedule[participant/ConsecutiveBlocksPerRound], nil
}

// NextScheduledTimestamp returns the timestamp at which slot n (relative
// to headTimestamp) is produced.
func (s *Scheduler) NextScheduledTimestamp(headTimestamp int64, slot int64) int64 {
	return s.genesisTimestamp + (s.AbsoluteSlot(headTimestamp)+slot)*s.interval()
}
