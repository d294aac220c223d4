package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// chainKeyPrefix tags the Chain DB's four keyspaces (spec.md §4.2). This is
// a separate, smaller key space than keys.go's State DB prefixes since the
// Chain DB is backed by its own PersistentStore instance.
type chainKeyPrefix byte

const (
	chainPrefixMetadata chainKeyPrefix = iota
	chainPrefixHeader
	chainPrefixTransaction
	chainPrefixReverseIndex
	chainPrefixOrphan
)

var (
	metaBlockHeight         = []byte{byte(chainPrefixMetadata), 0}
	metaNodeID              = []byte{byte(chainPrefixMetadata), 1}
	metaParentHashVerified  = []byte{byte(chainPrefixMetadata), 2}
	metaMerkleTreeVerified  = []byte{byte(chainPrefixMetadata), 3}
)

func headerKey(hash Hash) []byte {
	return append([]byte{byte(chainPrefixHeader)}, hash.Bytes()...)
}

func headerPrefixForNumber(n uint64) []byte {
	k := make([]byte, 1+8)
	k[0] = byte(chainPrefixHeader)
	binary.BigEndian.PutUint64(k[1:], n)
	return k
}

func txKey(blockHash Hash, index uint64, txHash Hash) []byte {
	k := make([]byte, 0, 1+32+8+32)
	k = append(k, byte(chainPrefixTransaction))
	k = append(k, blockHash.Bytes()...)
	idx := make([]byte, 8)
	binary.BigEndian.PutUint64(idx, index)
	k = append(k, idx...)
	k = append(k, txHash.Bytes()...)
	return k
}

func txPrefixForBlock(blockHash Hash) []byte {
	return append([]byte{byte(chainPrefixTransaction)}, blockHash.Bytes()...)
}

func reverseIndexKey(txHash Hash) []byte {
	return append([]byte{byte(chainPrefixReverseIndex)}, txHash.Bytes()...)
}

// encodeReverseIndex packs blockHash‖index_be_u64 into the fixed-length
// record spec.md §4.2 calls "suitable for a cuckoo-style table".
func encodeReverseIndex(blockHash Hash, index uint64) []byte {
	out := make([]byte, 32+8)
	copy(out, blockHash.Bytes())
	binary.BigEndian.PutUint64(out[32:], index)
	return out
}

func decodeReverseIndex(v []byte) (Hash, uint64) {
	return BytesToHash(v[:32]), binary.BigEndian.Uint64(v[32:])
}

// ChainDB is the append-mostly block/transaction store of spec.md §4.2:
// four keyspaces over a single ordered KV backend, with fork detection,
// purge, and a TaPoS ref-block ring derived from header order.
type ChainDB struct {
	mu    sync.RWMutex
	store PersistentStore
}

// NewChainDB wraps store as a Chain DB. Callers typically pass a
// *pebbleStore for production use or NewMemStore() for tests.
func NewChainDB(store PersistentStore) *ChainDB {
	return &ChainDB{store: store}
}

// InsertBlock writes the header, every transaction, and every reverse-index
// entry for block atomically (spec.md §4.2 insert_block).
func (c *ChainDB) InsertBlock(b *Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := b.Header.Hash()
	headerBytes, err := EncodeHeader(&b.Header)
	if err != nil {
		return fmt.Errorf("%w: encode header: %v", ErrIO, err)
	}

	batch := c.store.Batch()
	batch.Set(headerKey(hash), headerBytes)
	for i, tx := range b.Transactions {
		txBytes, err := EncodeTransaction(tx)
		if err != nil {
			return fmt.Errorf("%w: encode transaction %d: %v", ErrIO, i, err)
		}
		txHash := tx.Hash()
		batch.Set(txKey(hash, uint64(i), txHash), txBytes)
		batch.Set(reverseIndexKey(txHash), encodeReverseIndex(hash, uint64(i)))
	}
	batch.Set(metaBlockHeight, i64ToBytes(int64(hash.BlockNumber())))
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("%w: insert block %d: %v", ErrIO, hash.BlockNumber(), err)
	}
	logrus.WithFields(logrus.Fields{
		"block":  hash.BlockNumber(),
		"hash":   hash.Hex(),
		"txs":    len(b.Transactions),
	}).Info("chaindb: block inserted")
	return nil
}

// GetLatestBlockNumber returns the height of the most recently inserted
// block, or (0, false) on an empty chain.
func (c *ChainDB) GetLatestBlockNumber() (uint64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, found, err := c.store.Get(metaBlockHeight)
	if err != nil || !found {
		return 0, found, err
	}
	return uint64(bytesToI64(v)), true, nil
}

// GetLatestHeader returns the canonical header at the chain's current
// height, or nil on an empty chain.
func (c *ChainDB) GetLatestHeader() (*BlockHeader, error) {
	n, found, err := c.GetLatestBlockNumber()
	if err != nil || !found {
		return nil, err
	}
	return c.GetBlockByNumber(n)
}

// GetBlockHeadersByNumber returns every header at height n: normally one,
// more than one iff a fork currently exists at that height (spec.md §4.2).
func (c *ChainDB) GetBlockHeadersByNumber(n uint64) ([]*BlockHeader, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headersByNumberLocked(n)
}

func (c *ChainDB) headersByNumberLocked(n uint64) ([]*BlockHeader, error) {
	it, err := c.store.NewIter(headerPrefixForNumber(n))
	if err != nil {
		return nil, fmt.Errorf("%w: iterate headers at %d: %v", ErrIO, n, err)
	}
	defer it.Close()
	var out []*BlockHeader
	for it.Next() {
		h, err := DecodeHeader(it.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: decode header at %d: %v", ErrIntegrity, n, err)
		}
		out = append(out, &h)
	}
	return out, nil
}

// GetBlockByNumber returns the single canonical header at height n,
// failing with ErrForkDetected if more than one header shares that height
// (spec.md §4.2 get_block_by_number).
func (c *ChainDB) GetBlockByNumber(n uint64) (*BlockHeader, error) {
	headers, err := c.GetBlockHeadersByNumber(n)
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no block at height %d", ErrIntegrity, n)
	}
	if len(headers) > 1 {
		return nil, fmt.Errorf("%w: %d headers at height %d", ErrForkDetected, len(headers), n)
	}
	return headers[0], nil
}

// GetBlockFromHeader decodes the full block (header plus transactions in
// order) given its header's hash (spec.md §4.2 get_block_from_header).
func (c *ChainDB) GetBlockFromHeader(h *BlockHeader) (*Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getBlockFromHeaderLocked(h)
}

// getBlockFromHeaderLocked is GetBlockFromHeader for callers that already
// hold c.mu.
func (c *ChainDB) getBlockFromHeaderLocked(h *BlockHeader) (*Block, error) {
	hash := h.Hash()
	it, err := c.store.NewIter(txPrefixForBlock(hash))
	if err != nil {
		return nil, fmt.Errorf("%w: iterate transactions of %s: %v", ErrIO, hash.Hex(), err)
	}
	defer it.Close()

	type indexed struct {
		index uint64
		tx    *Transaction
	}
	var txs []indexed
	for it.Next() {
		key := it.Key()
		index := binary.BigEndian.Uint64(key[1+32 : 1+32+8])
		tx, err := DecodeTransaction(it.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: decode transaction in block %s: %v", ErrIntegrity, hash.Hex(), err)
		}
		txs = append(txs, indexed{index: index, tx: tx})
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].index < txs[j].index })
	ordered := make([]*Transaction, len(txs))
	for i, it := range txs {
		ordered[i] = it.tx
	}
	return &Block{Header: *h, Transactions: ordered}, nil
}

// DeleteBlock removes a header, all of its transactions, and their
// reverse-index entries atomically (spec.md §4.2 delete_block).
// HandleChainForkAt purges through deleteBlockLocked instead, which
// leaves reverse-index entries in place.
func (c *ChainDB) DeleteBlock(b *Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := b.Header.Hash()
	batch := c.store.Batch()
	batch.Delete(headerKey(hash))
	for i, tx := range b.Transactions {
		txHash := tx.Hash()
		batch.Delete(txKey(hash, uint64(i), txHash))
		batch.Delete(reverseIndexKey(txHash))
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("%w: delete block %s: %v", ErrIO, hash.Hex(), err)
	}
	return nil
}

// forkBranch is one sibling chain of headers sharing a common ancestor at
// height n-1, walked forward from that ancestor.
type forkBranch struct {
	headers []*BlockHeader
}

// HandleChainForkAt reconciles a fork detected at height n: it requires
// exactly one header at n-1 and more than one at n on entry (spec.md §4.2
// precondition), walks forward grouping siblings by parent hash, keeps the
// longest branch as canonical, rewrites the reverse index for transactions
// shared by both branches to point at the canonical blocks, deletes the
// purged branch's headers/transactions, and logs any transaction found
// only in a purged branch to the orphan log. With dryRun=true no mutation
// happens; the method only reports what it would purge.
func (c *ChainDB) HandleChainForkAt(n uint64, dryRun bool) ([]*BlockHeader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prevHeaders, err := c.headersByNumberLocked(n - 1)
	if err != nil {
		return nil, err
	}
	if len(prevHeaders) != 1 {
		return nil, fmt.Errorf("%w: fork precondition failed: %d headers at %d", ErrIntegrity, len(prevHeaders), n-1)
	}
	atN, err := c.headersByNumberLocked(n)
	if err != nil {
		return nil, err
	}
	if len(atN) <= 1 {
		return nil, fmt.Errorf("%w: fork precondition failed: %d headers at %d", ErrIntegrity, len(atN), n)
	}

	branches := c.walkBranches(atN)
	sort.Slice(branches, func(i, j int) bool { return len(branches[i].headers) > len(branches[j].headers) })
	canonical := branches[0]
	purged := branches[1:]

	canonicalTxs := make(map[Hash]struct{})
	for _, h := range canonical.headers {
		blk, err := c.getBlockFromHeaderLocked(h)
		if err != nil {
			return nil, err
		}
		for i, tx := range blk.Transactions {
			txHash := tx.Hash()
			canonicalTxs[txHash] = struct{}{}
			if !dryRun {
				batch := c.store.Batch()
				batch.Set(reverseIndexKey(txHash), encodeReverseIndex(h.Hash(), uint64(i)))
				if err := batch.Commit(); err != nil {
					return nil, fmt.Errorf("%w: rewrite reverse index: %v", ErrIO, err)
				}
			}
		}
	}

	var purgedHeaders []*BlockHeader
	for _, branch := range purged {
		for _, h := range branch.headers {
			purgedHeaders = append(purgedHeaders, h)
			blk, err := c.getBlockFromHeaderLocked(h)
			if err != nil {
				return nil, err
			}
			for _, tx := range blk.Transactions {
				txHash := tx.Hash()
				if _, isCanonical := canonicalTxs[txHash]; !isCanonical {
					if !dryRun {
						c.logOrphan(h.Hash().BlockNumber(), txHash)
					}
				}
			}
			if !dryRun {
				if err := c.deleteBlockLocked(blk); err != nil {
					return nil, err
				}
			}
		}
	}

	if !dryRun {
		logrus.WithFields(logrus.Fields{
			"height":  n,
			"kept":    len(canonical.headers),
			"purged":  len(purgedHeaders),
		}).Warn("chaindb: fork reconciled")
	}
	return purgedHeaders, nil
}

func (c *ChainDB) deleteBlockLocked(b *Block) error {
	hash := b.Header.Hash()
	batch := c.store.Batch()
	batch.Delete(headerKey(hash))
	for i, tx := range b.Transactions {
		txHash := tx.Hash()
		batch.Delete(txKey(hash, uint64(i), txHash))
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("%w: delete purged block %s: %v", ErrIO, hash.Hex(), err)
	}
	return nil
}

// walkBranches groups the headers at a fork height into maximal forward
// chains by parent hash, starting from the distinct headers passed in.
func (c *ChainDB) walkBranches(atN []*BlockHeader) []forkBranch {
	branches := make([]forkBranch, len(atN))
	for i, h := range atN {
		branches[i] = forkBranch{headers: []*BlockHeader{h}}
	}
	for i := range branches {
		cur := branches[i].headers[len(branches[i].headers)-1]
		for {
			next, err := c.headersByNumberLocked(cur.Hash().BlockNumber() + 1)
			if err != nil || len(next) == 0 {
				break
			}
			var child *BlockHeader
			for _, h := range next {
				if h.ParentHash == cur.Hash() {
					child = h
					break
				}
			}
			if child == nil {
				break
			}
			branches[i].headers = append(branches[i].headers, child)
			cur = child
		}
	}
	return branches
}

func (c *ChainDB) logOrphan(blockNumber uint64, txHash Hash) {
	key := append([]byte{byte(chainPrefixOrphan)}, make([]byte, 8)...)
	binary.BigEndian.PutUint64(key[1:9], blockNumber)
	key = append(key, txHash.Bytes()...)
	_ = c.store.Set(key, txHash.Bytes())
}

// ListOrphansSince returns every orphaned transaction hash logged at or
// after blockNumber (SPEC_FULL.md §3 SUPPLEMENT list_orphans_since).
func (c *ChainDB) ListOrphansSince(blockNumber uint64) ([]Hash, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, err := c.store.NewIter([]byte{byte(chainPrefixOrphan)})
	if err != nil {
		return nil, fmt.Errorf("%w: iterate orphan log: %v", ErrIO, err)
	}
	defer it.Close()
	var out []Hash
	for it.Next() {
		key := it.Key()
		num := binary.BigEndian.Uint64(key[1:9])
		if num >= blockNumber {
			out = append(out, BytesToHash(it.Value()))
		}
	}
	return out, nil
}

// VerifyParentHashes sweeps headers in hash order (equivalently block-
// number order, per the hash-prefix invariant) confirming the parent-hash
// chain holds; it persists progress in the PARENT_HASH_VERIFIED metadata
// key so a later call resumes rather than rescanning from genesis
// (spec.md §4.2 verify_parent_hashes).
func (c *ChainDB) VerifyParentHashes() (ok bool, forkAt uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := uint64(0)
	if v, found, e := c.store.Get(metaParentHashVerified); e == nil && found {
		start = uint64(bytesToI64(v)) + 1
	} else if e != nil {
		return false, 0, fmt.Errorf("%w: read verification progress: %v", ErrIO, e)
	}

	heightBytes, found, e := c.store.Get(metaBlockHeight)
	if e != nil {
		return false, 0, fmt.Errorf("%w: read chain height: %v", ErrIO, e)
	}
	if !found {
		return true, 0, nil
	}
	height := uint64(bytesToI64(heightBytes))

	var prev *BlockHeader
	if start > 0 {
		headers, e := c.headersByNumberLocked(start - 1)
		if e != nil {
			return false, 0, e
		}
		if len(headers) != 1 {
			return false, start - 1, fmt.Errorf("%w: %d headers at %d", ErrForkDetected, len(headers), start-1)
		}
		prev = headers[0]
	}

	for n := start; n <= height; n++ {
		headers, e := c.headersByNumberLocked(n)
		if e != nil {
			return false, n, e
		}
		if len(headers) > 1 {
			return false, n, nil
		}
		if len(headers) == 0 {
			return false, n, nil
		}
		cur := headers[0]
		if prev != nil && cur.ParentHash != prev.Hash() {
			return false, n, nil
		}
		prev = cur
		if err := c.store.Set(metaParentHashVerified, i64ToBytes(int64(n))); err != nil {
			return false, n, fmt.Errorf("%w: persist verification progress: %v", ErrIO, err)
		}
	}
	return true, 0, nil
}

// RefBlockHashesOfBlockNum returns the ring of up to RefBlockRingSize
// most-recent block hashes ending at n, in the order TaPoS validation
// expects (spec.md §4.2/§8 scenario 6): ring index = hash[6:8] as a
// big-endian uint16, wrapping modulo RefBlockRingSize.
func (c *ChainDB) RefBlockHashesOfBlockNum(n uint64) ([]Hash, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := uint64(RefBlockRingSize)
	if n+1 < count {
		count = n + 1
	}
	ring := make([]Hash, RefBlockRingSize)
	for i := uint64(0); i < count; i++ {
		num := n - i
		headers, err := c.headersByNumberLocked(num)
		if err != nil {
			return nil, err
		}
		if len(headers) == 0 {
			continue
		}
		h := headers[0].Hash()
		ring[h.RefSlot()] = h
	}
	return ring, nil
}

// VerifyRefBlock implements TaPoS validation (spec.md §4.8 step 6): a
// transaction's 2-byte ref_block_bytes select the low 16 bits of a recent
// block number; that block's hash fragment hash[8:16] must match the
// transaction's 8-byte ref_block_hash. Unlike RefBlockHashesOfBlockNum
// (kept for the §8 ring boundary property), this looks up the single
// candidate block directly instead of rebuilding the full 65536-entry
// ring, since per-transaction validation runs far more often than a ring
// dump.
func (c *ChainDB) VerifyRefBlock(refBlockBytes [2]byte, refBlockHash [8]byte, headNumber uint64) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	target := uint64(binary.BigEndian.Uint16(refBlockBytes[:]))
	candidate := (headNumber &^ 0xFFFF) | target
	if candidate > headNumber {
		if candidate < 0x10000 {
			return false, nil
		}
		candidate -= 0x10000
	}
	if headNumber-candidate >= RefBlockRingSize {
		return false, nil
	}
	headers, err := c.headersByNumberLocked(candidate)
	if err != nil {
		return false, err
	}
	if len(headers) != 1 {
		return false, nil
	}
	return headers[0].Hash().RefHashFragment() == refBlockHash, nil
}

func bytesToI64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

var _ = bytes.Equal
