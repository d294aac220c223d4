package core

import (
	"encoding/binary"
	"encoding/hex"
)

// Address is a 21-byte account identifier: a 1-byte network prefix plus a
// 20-byte Keccak hash tail (spec.md §3).
type Address [21]byte

// AddressPrefix is the single byte every Address begins with.
const AddressPrefix = 0x41

func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) Bytes() []byte {
	out := make([]byte, len(a))
	copy(out, a[:])
	return out
}
func (a Address) IsZero() bool { return a == Address{} }

// BytesToAddress left-pads/truncates b into an Address, matching the
// reference's "low bytes win" convention.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) >= len(a) {
		copy(a[:], b[len(b)-len(a):])
	} else {
		copy(a[len(a)-len(b):], b)
	}
	return a
}

// Hash is a 32-byte content identifier. Block hashes additionally encode
// the block number in their first 8 bytes (spec.md §3 invariant).
type Hash [32]byte

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) Bytes() []byte {
	out := make([]byte, len(h))
	copy(out, h[:])
	return out
}
func (h Hash) IsZero() bool { return h == Hash{} }

func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) >= len(h) {
		copy(h[:], b[len(b)-len(h):])
	} else {
		copy(h[len(h)-len(b):], b)
	}
	return h
}

// BlockNumber extracts the big-endian block number encoded in the high 8
// bytes of a block hash (spec.md §3/§4.2).
func (h Hash) BlockNumber() uint64 { return binary.BigEndian.Uint64(h[:8]) }

// RefSlot returns the 2-byte ref-block-ring index (hash[6:8] as BE u16)
// ChainDB uses to place block hashes in the ref-block ring.
func (h Hash) RefSlot() uint16 { return binary.BigEndian.Uint16(h[6:8]) }

// RefHashFragment returns hash[8:16], the 8-byte fragment a transaction's
// ref_block_hash must match for TaPoS validation (spec.md §4.8 step 6).
func (h Hash) RefHashFragment() [8]byte {
	var out [8]byte
	copy(out[:], h[8:16])
	return out
}

// NewBlockHash composes a block hash whose high 8 bytes encode number,
// preserving the remaining bytes (typically a content digest) unchanged in
// their low-order position.
func NewBlockHash(number uint64, digest [24]byte) Hash {
	var h Hash
	binary.BigEndian.PutUint64(h[:8], number)
	copy(h[8:], digest[:])
	return h
}
