package core

import (
	"encoding/binary"
)

// keyPrefix tags each State DB key family with a single byte, keeping the
// key space a closed sum type the way spec.md §4.1 describes (a Rust enum
// there, a byte-prefixed []byte here since the overlay layers and the
// Pebble backend both key on raw bytes).
type keyPrefix byte

const (
	prefixAccount keyPrefix = iota
	prefixAsset
	prefixContract
	prefixContractCode
	prefixContractStorage
	prefixWitness
	prefixProposal
	prefixExchange
	prefixVote
	prefixChainParameter
	prefixDynamicProperty
	prefixTxReceipt
	prefixWitnessSchedule
	prefixBlockFilledSlots
	prefixLatestBlockHash
)

func accountKey(a Address) []byte {
	return append([]byte{byte(prefixAccount)}, a.Bytes()...)
}

func assetKey(id int64) []byte {
	k := make([]byte, 1+8)
	k[0] = byte(prefixAsset)
	binary.BigEndian.PutUint64(k[1:], uint64(id))
	return k
}

func contractKey(a Address) []byte {
	return append([]byte{byte(prefixContract)}, a.Bytes()...)
}

func contractCodeKey(a Address) []byte {
	return append([]byte{byte(prefixContractCode)}, a.Bytes()...)
}

// contractStorageKey scopes a TVM storage slot under its owning contract
// address so a prefix scan of one contract's storage never crosses into
// another's (spec.md §4.6 storage model).
func contractStorageKey(contract Address, slot Hash) []byte {
	k := make([]byte, 0, 1+21+32)
	k = append(k, byte(prefixContractStorage))
	k = append(k, contract.Bytes()...)
	k = append(k, slot.Bytes()...)
	return k
}

func witnessKey(a Address) []byte {
	return append([]byte{byte(prefixWitness)}, a.Bytes()...)
}

func proposalKey(id int64) []byte {
	k := make([]byte, 1+8)
	k[0] = byte(prefixProposal)
	binary.BigEndian.PutUint64(k[1:], uint64(id))
	return k
}

func exchangeKey(id int64) []byte {
	k := make([]byte, 1+8)
	k[0] = byte(prefixExchange)
	binary.BigEndian.PutUint64(k[1:], uint64(id))
	return k
}

// voteKey indexes a voter's ballot by the voter address alone, so each
// voter has one stored vote record; witness tallies are not keyed here and
// are recomputed from the ballots during maintenance.
func voteKey(voter Address) []byte {
	return append([]byte{byte(prefixVote)}, voter.Bytes()...)
}

func chainParameterKey(p ChainParameter) []byte {
	k := make([]byte, 1+4)
	k[0] = byte(prefixChainParameter)
	binary.BigEndian.PutUint32(k[1:], uint32(p))
	return k
}

var dynamicPropertyKeySentinel = []byte{byte(prefixDynamicProperty)}

func txReceiptKey(h Hash) []byte {
	return append([]byte{byte(prefixTxReceipt)}, h.Bytes()...)
}

var witnessScheduleKeySentinel = []byte{byte(prefixWitnessSchedule)}

func blockFilledSlotsKeySentinel() []byte {
	return []byte{byte(prefixBlockFilledSlots)}
}

var latestBlockHashKeySentinel = []byte{byte(prefixLatestBlockHash)}

var globalFreeBandwidthKeySentinel = []byte{byte(prefixDynamicProperty), 0x01}

// nextAssetIDKeySentinel persists the TRC-10 id allocator counter
// (spec.md §6 MIN_TOKEN_ID) outside the governable DynamicProperties
// record so asset issuance never collides with a proposal-settable
// parameter slot.
var nextAssetIDKeySentinel = []byte{byte(prefixDynamicProperty), 0x02}

// nextProposalIDKeySentinel and nextExchangeIDKeySentinel are the id
// allocator counters for governance proposals and bancor exchange pairs,
// kept outside their own record families for the same reason as
// nextAssetIDKeySentinel above.
var nextProposalIDKeySentinel = []byte{byte(prefixDynamicProperty), 0x03}
var nextExchangeIDKeySentinel = []byte{byte(prefixDynamicProperty), 0x04}

// solidBlockNumberKeySentinel persists the finalized solid-block pointer
// (spec.md §4.8 step 12) outside the governable DynamicProperties record:
// it is derived chain state the Manager updates every block, never a
// proposal-settable parameter.
var solidBlockNumberKeySentinel = []byte{byte(prefixDynamicProperty), 0x05}
