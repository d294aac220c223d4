package core

import (
	"encoding/binary"
	"fmt"
)

// Typed accessors over StateDB's raw key/value layer stack, one pair per
// record kind in keys.go. Each Get returns (nil, false, nil) on a clean
// miss and a wrapped error only on a decode/backend failure.

func (s *StateDB) GetAccount(addr Address) (*Account, bool, error) {
	v, ok, err := s.Get(accountKey(addr))
	if err != nil || !ok {
		return nil, ok, err
	}
	a, err := DecodeAccount(v)
	if err != nil {
		return nil, false, fmt.Errorf("state: account %s: %w", addr.Hex(), err)
	}
	return a, true, nil
}

func (s *StateDB) PutAccount(a *Account) error {
	v, err := EncodeAccount(a)
	if err != nil {
		return fmt.Errorf("state: encode account %s: %w", a.Address.Hex(), err)
	}
	s.Put(accountKey(a.Address), v)
	return nil
}

func (s *StateDB) GetAsset(id int64) (*Asset, bool, error) {
	v, ok, err := s.Get(assetKey(id))
	if err != nil || !ok {
		return nil, ok, err
	}
	a, err := DecodeAsset(v)
	if err != nil {
		return nil, false, fmt.Errorf("state: asset %d: %w", id, err)
	}
	return a, true, nil
}

func (s *StateDB) PutAsset(a *Asset) error {
	v, err := EncodeAsset(a)
	if err != nil {
		return fmt.Errorf("state: encode asset %d: %w", a.ID, err)
	}
	s.Put(assetKey(a.ID), v)
	return nil
}

func (s *StateDB) GetSmartContract(addr Address) (*SmartContract, bool, error) {
	v, ok, err := s.Get(contractKey(addr))
	if err != nil || !ok {
		return nil, ok, err
	}
	sc, err := DecodeSmartContract(v)
	if err != nil {
		return nil, false, fmt.Errorf("state: smart contract %s: %w", addr.Hex(), err)
	}
	return sc, true, nil
}

func (s *StateDB) PutSmartContract(sc *SmartContract) error {
	v, err := EncodeSmartContract(sc)
	if err != nil {
		return fmt.Errorf("state: encode smart contract %s: %w", sc.ContractAddress.Hex(), err)
	}
	s.Put(contractKey(sc.ContractAddress), v)
	return nil
}

func (s *StateDB) GetContractCode(addr Address) ([]byte, bool, error) {
	return s.Get(contractCodeKey(addr))
}

func (s *StateDB) PutContractCode(addr Address, code []byte) error {
	s.Put(contractCodeKey(addr), code)
	return nil
}

func (s *StateDB) GetContractStorage(contract Address, slot Hash) (Hash, bool, error) {
	v, ok, err := s.Get(contractStorageKey(contract, slot))
	if err != nil || !ok {
		return Hash{}, ok, err
	}
	return BytesToHash(v), true, nil
}

func (s *StateDB) PutContractStorage(contract Address, slot, value Hash) error {
	s.Put(contractStorageKey(contract, slot), value.Bytes())
	return nil
}

func (s *StateDB) GetWitness(addr Address) (*Witness, bool, error) {
	v, ok, err := s.Get(witnessKey(addr))
	if err != nil || !ok {
		return nil, ok, err
	}
	w, err := DecodeWitness(v)
	if err != nil {
		return nil, false, fmt.Errorf("state: witness %s: %w", addr.Hex(), err)
	}
	return w, true, nil
}

func (s *StateDB) PutWitness(w *Witness) error {
	v, err := EncodeWitness(w)
	if err != nil {
		return fmt.Errorf("state: encode witness %s: %w", w.Address.Hex(), err)
	}
	s.Put(witnessKey(w.Address), v)
	return nil
}

// ListWitnesses returns every witness record currently live in the
// combined layer/base view, used by the maintenance cycle to rebuild the
// active roster and by the standby-witness reward payout.
func (s *StateDB) ListWitnesses() ([]*Witness, error) {
	var out []*Witness
	err := s.Iterate([]byte{byte(prefixWitness)}, func(_, value []byte) error {
		w, err := DecodeWitness(value)
		if err != nil {
			return fmt.Errorf("state: decode witness during scan: %w", err)
		}
		out = append(out, w)
		return nil
	})
	return out, err
}

func (s *StateDB) GetProposal(id int64) (*Proposal, bool, error) {
	v, ok, err := s.Get(proposalKey(id))
	if err != nil || !ok {
		return nil, ok, err
	}
	p, err := DecodeProposal(v)
	if err != nil {
		return nil, false, fmt.Errorf("state: proposal %d: %w", id, err)
	}
	return p, true, nil
}

func (s *StateDB) PutProposal(p *Proposal) error {
	v, err := EncodeProposal(p)
	if err != nil {
		return fmt.Errorf("state: encode proposal %d: %w", p.ID, err)
	}
	s.Put(proposalKey(p.ID), v)
	return nil
}

// ListPendingProposals returns every proposal still in ProposalPending
// state, used by the maintenance-cycle proposal processor.
func (s *StateDB) ListPendingProposals() ([]*Proposal, error) {
	var out []*Proposal
	err := s.Iterate([]byte{byte(prefixProposal)}, func(_, value []byte) error {
		p, err := DecodeProposal(value)
		if err != nil {
			return fmt.Errorf("state: decode proposal during scan: %w", err)
		}
		if p.State == ProposalPending {
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

func (s *StateDB) GetExchange(id int64) (*Exchange, bool, error) {
	v, ok, err := s.Get(exchangeKey(id))
	if err != nil || !ok {
		return nil, ok, err
	}
	e, err := DecodeExchange(v)
	if err != nil {
		return nil, false, fmt.Errorf("state: exchange %d: %w", id, err)
	}
	return e, true, nil
}

func (s *StateDB) PutExchange(e *Exchange) error {
	v, err := EncodeExchange(e)
	if err != nil {
		return fmt.Errorf("state: encode exchange %d: %w", e.ID, err)
	}
	s.Put(exchangeKey(e.ID), v)
	return nil
}

func (s *StateDB) GetDynamicProperties() (*DynamicProperties, error) {
	v, ok, err := s.Get(dynamicPropertyKeySentinel)
	if err != nil {
		return nil, err
	}
	if !ok {
		return DefaultDynamicProperties(), nil
	}
	return DecodeDynamicProperties(v)
}

func (s *StateDB) PutDynamicProperties(d *DynamicProperties) error {
	v, err := EncodeDynamicProperties(d)
	if err != nil {
		return fmt.Errorf("state: encode dynamic properties: %w", err)
	}
	s.Put(dynamicPropertyKeySentinel, v)
	return nil
}

// GetOrCreateAccount returns the account at addr, creating (but not yet
// persisting) a fresh zero-value one if absent — the "created on first
// reception of value" lifecycle of spec.md §3.
func (s *StateDB) GetOrCreateAccount(addr Address) (*Account, bool, error) {
	a, found, err := s.GetAccount(addr)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return NewAccount(addr), false, nil
	}
	return a, true, nil
}

func (s *StateDB) GetTransactionReceipt(h Hash) (*TransactionReceipt, bool, error) {
	v, ok, err := s.Get(txReceiptKey(h))
	if err != nil || !ok {
		return nil, ok, err
	}
	r, err := DecodeTransactionReceipt(v)
	if err != nil {
		return nil, false, fmt.Errorf("state: receipt %s: %w", h.Hex(), err)
	}
	return r, true, nil
}

func (s *StateDB) PutTransactionReceipt(h Hash, r *TransactionReceipt) error {
	v, err := EncodeTransactionReceipt(r)
	if err != nil {
		return fmt.Errorf("state: encode receipt %s: %w", h.Hex(), err)
	}
	s.Put(txReceiptKey(h), v)
	return nil
}

// GetWitnessSchedule returns the active, stake-ordered witness roster used
// by the scheduler; empty until the first maintenance cycle populates it.
func (s *StateDB) GetWitnessSchedule() ([]Address, error) {
	v, ok, err := s.Get(witnessScheduleKeySentinel)
	if err != nil || !ok {
		return nil, err
	}
	return DecodeAddressList(v)
}

func (s *StateDB) PutWitnessSchedule(schedule []Address) error {
	v, err := EncodeAddressList(schedule)
	if err != nil {
		return fmt.Errorf("state: encode witness schedule: %w", err)
	}
	s.Put(witnessScheduleKeySentinel, v)
	return nil
}

// GetBlockFilledSlots returns the NumOfBlockFilledSlots-length ring
// tracking recent slot-filled/skipped bits (spec.md §4.8 step 10).
func (s *StateDB) GetBlockFilledSlots() ([]bool, error) {
	v, ok, err := s.Get(blockFilledSlotsKeySentinel())
	if err != nil {
		return nil, err
	}
	if !ok {
		return make([]bool, NumOfBlockFilledSlots), nil
	}
	out := make([]bool, len(v))
	for i, b := range v {
		out[i] = b != 0
	}
	return out, nil
}

func (s *StateDB) PutBlockFilledSlots(slots []bool) error {
	v := make([]byte, len(slots))
	for i, b := range slots {
		if b {
			v[i] = 1
		}
	}
	s.Put(blockFilledSlotsKeySentinel(), v)
	return nil
}

func (s *StateDB) GetLatestBlockHash() (Hash, bool, error) {
	v, ok, err := s.Get(latestBlockHashKeySentinel)
	if err != nil || !ok {
		return Hash{}, ok, err
	}
	return BytesToHash(v), true, nil
}

func (s *StateDB) PutLatestBlockHash(h Hash) error {
	s.Put(latestBlockHashKeySentinel, h.Bytes())
	return nil
}

// GetGlobalFreeBandwidthUsage returns the shared free-bandwidth decay
// counter consulted alongside an account's personal free limit (spec.md
// §4.4 step 5's "global free-BW limit").
func (s *StateDB) GetGlobalFreeBandwidthUsage() (ResourceUsage, error) {
	v, ok, err := s.Get(globalFreeBandwidthKeySentinel)
	if err != nil {
		return ResourceUsage{}, err
	}
	if !ok {
		return ResourceUsage{}, nil
	}
	return decodeResourceUsage(v), nil
}

// GetSolidBlockNumber returns the finalized solid-block pointer (spec.md
// §4.8 step 12), or (0, false) before the first update.
func (s *StateDB) GetSolidBlockNumber() (int64, bool, error) {
	v, ok, err := s.Get(solidBlockNumberKeySentinel)
	if err != nil || !ok {
		return 0, ok, err
	}
	return bytesToI64(v), true, nil
}

// PutSolidBlockNumber persists the solid-block pointer. Callers (Manager's
// updateSolidBlockNumber) are responsible for the monotone-non-decreasing
// invariant; this accessor does not re-check it.
func (s *StateDB) PutSolidBlockNumber(n int64) error {
	s.Put(solidBlockNumberKeySentinel, i64ToBytes(n))
	return nil
}

func (s *StateDB) PutGlobalFreeBandwidthUsage(u ResourceUsage) error {
	s.Put(globalFreeBandwidthKeySentinel, encodeResourceUsage(u))
	return nil
}

// nextCounter reads an 8-byte big-endian counter (floor if absent or
// lower), persists that id plus one as the next value, and returns the
// allocated id. Used by the id allocators below so TRC-10 assets,
// proposals and exchange pairs each get their own monotonic id space
// outside the governable DynamicProperties record.
func (s *StateDB) nextCounter(key []byte, floor int64) (int64, error) {
	v, ok, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	next := floor
	if ok {
		if cur := bytesToI64(v); cur > next {
			next = cur
		}
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(next+1))
	s.Put(key, buf)
	return next, nil
}

// NextAssetID allocates a fresh TRC-10 id starting at MinTokenID (spec.md §6
// MIN_TOKEN_ID).
func (s *StateDB) NextAssetID() (int64, error) {
	return s.nextCounter(nextAssetIDKeySentinel, MinTokenID)
}

// NextProposalID allocates a fresh governance proposal id starting at 1,
// matching the reference implementation's 1-based proposal numbering.
func (s *StateDB) NextProposalID() (int64, error) {
	return s.nextCounter(nextProposalIDKeySentinel, 1)
}

// NextExchangeID allocates a fresh bancor exchange pair id starting at 1.
func (s *StateDB) NextExchangeID() (int64, error) {
	return s.nextCounter(nextExchangeIDKeySentinel, 1)
}

// GetVoteBallot returns the witnesses a voter currently has active votes
// for, used by voteWitnessActuator to release a prior ballot before
// recording a new one (spec.md §3 vote record).
func (s *StateDB) GetVoteBallot(voter Address) ([]Vote, error) {
	v, ok, err := s.Get(voteKey(voter))
	if err != nil || !ok {
		return nil, err
	}
	return DecodeVoteList(v)
}

func (s *StateDB) PutVoteBallot(voter Address, votes []Vote) error {
	v, err := EncodeVoteList(votes)
	if err != nil {
		return fmt.Errorf("state: encode vote ballot %s: %w", voter.Hex(), err)
	}
	s.Put(voteKey(voter), v)
	return nil
}

func (s *StateDB) DeleteVoteBallot(voter Address) {
	s.Delete(voteKey(voter))
}
