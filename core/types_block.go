package core

// BlockHeader is the spec.md §3 block header: version, number, timestamp,
// parent hash, transaction merkle root, witness address and signature.
type BlockHeader struct {
	Version       int32
	Number        uint64
	Timestamp     int64 // milliseconds since epoch
	ParentHash    Hash
	MerkleRoot    Hash
	WitnessAddr   Address
	WitnessSig    []byte `rlp:"tail"`
	AccountStateRoot Hash
}

// Block pairs a header with its ordered transaction list. Hash is computed
// over the header only; transactions hash into MerkleRoot.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// Hash returns the block's identity hash. The reference derives this from
// a digest of the header fields; the high 8 bytes are overwritten with the
// block number per spec.md §3's invariant so that prefix scans by number
// work. The remaining 24 bytes come from headerDigest, a digest of the
// remaining header fields (timestamp, parent hash, merkle root, witness,
// version).
func (b *BlockHeader) Hash() Hash {
	digest := headerDigest(b)
	return NewBlockHash(b.Number, digest)
}

// headerDigest produces the 24 low-order bytes of a block's hash from the
// header fields other than Number (which is carried verbatim in the high
// 8 bytes per the block-hash invariant).
func headerDigest(h *BlockHeader) [24]byte {
	sum := Keccak256(
		i64ToBytes(h.Timestamp),
		h.ParentHash.Bytes(),
		h.MerkleRoot.Bytes(),
		h.WitnessAddr.Bytes(),
		i32ToBytes(h.Version),
	)
	var out [24]byte
	copy(out[:], sum[8:])
	return out
}

func i64ToBytes(v int64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
	return b
}

func i32ToBytes(v int32) []byte {
	b := make([]byte, 4)
	for i := 0; i < 4; i++ {
		b[3-i] = byte(v >> (8 * i))
	}
	return b
}
