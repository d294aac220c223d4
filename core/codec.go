package core

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// rlpHeader/rlpTx are plain-field mirrors of BlockHeader/Transaction used
// only for RLP encode/decode, since RLP cannot serialize fixed-size byte
// arrays nested inside other structs as directly as it can slices. This
// keeps the public types ergonomic ([21]byte Address, [32]byte Hash)
// while still giving the chain DB a deterministic wire format, per the
// DESIGN.md Open Question decision to standardize on RLP.
type rlpHeader struct {
	Version       int32
	Number        uint64
	Timestamp     int64
	ParentHash    []byte
	MerkleRoot    []byte
	WitnessAddr   []byte
	WitnessSig    []byte
	AccountStateRoot []byte
}

func toRLPHeader(h *BlockHeader) *rlpHeader {
	return &rlpHeader{
		Version:       h.Version,
		Number:        h.Number,
		Timestamp:     h.Timestamp,
		ParentHash:    h.ParentHash.Bytes(),
		MerkleRoot:    h.MerkleRoot.Bytes(),
		WitnessAddr:   h.WitnessAddr.Bytes(),
		WitnessSig:    h.WitnessSig,
		AccountStateRoot: h.AccountStateRoot.Bytes(),
	}
}

func fromRLPHeader(r *rlpHeader) BlockHeader {
	return BlockHeader{
		Version:       r.Version,
		Number:        r.Number,
		Timestamp:     r.Timestamp,
		ParentHash:    BytesToHash(r.ParentHash),
		MerkleRoot:    BytesToHash(r.MerkleRoot),
		WitnessAddr:   BytesToAddress(r.WitnessAddr),
		WitnessSig:    r.WitnessSig,
		AccountStateRoot: BytesToHash(r.AccountStateRoot),
	}
}

// EncodeHeader RLP-encodes a block header for chain-DB storage.
func EncodeHeader(h *BlockHeader) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, toRLPHeader(h)); err != nil {
		return nil, fmt.Errorf("%w: encode header: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeHeader decodes bytes written by EncodeHeader.
func DecodeHeader(data []byte) (BlockHeader, error) {
	var r rlpHeader
	if err := rlp.DecodeBytes(data, &r); err != nil {
		return BlockHeader{}, fmt.Errorf("%w: decode header: %v", ErrIntegrity, err)
	}
	return fromRLPHeader(&r), nil
}

// rlpContractUnion is the wire shape for Contract: the tag plus an
// RLP-encoded payload blob for the active arm, re-decoded by kind on read.
// This sidesteps RLP's lack of native sum-type support while keeping the
// in-memory Contract type a plain struct with typed pointer fields.
type rlpContractUnion struct {
	Kind       uint8
	Owner      []byte
	Permission int32
	Payload    []byte
}

func encodeContract(c *Contract) (rlpContractUnion, error) {
	payload, err := contractPayload(c)
	if err != nil {
		return rlpContractUnion{}, err
	}
	buf := new(bytes.Buffer)
	if payload != nil {
		if err := rlp.Encode(buf, payload); err != nil {
			return rlpContractUnion{}, fmt.Errorf("%w: encode contract payload: %v", ErrIO, err)
		}
	}
	return rlpContractUnion{
		Kind:       uint8(c.Kind),
		Owner:      c.Owner.Bytes(),
		Permission: c.Permission,
		Payload:    buf.Bytes(),
	}, nil
}

// contractPayload returns the pointer to the active union arm so the
// generic encode/decode helpers above can treat it uniformly.
func contractPayload(c *Contract) (interface{}, error) {
	switch c.Kind {
	case KindTransfer:
		return c.Transfer, nil
	case KindTransferAsset:
		return c.TransferAsset, nil
	case KindAssetIssue:
		return c.AssetIssue, nil
	case KindParticipateAssetIssue:
		return c.ParticipateIssue, nil
	case KindFreezeBalance:
		return c.FreezeBalance, nil
	case KindUnfreezeBalance:
		return c.UnfreezeBalance, nil
	case KindWitnessCreate:
		return c.WitnessCreate, nil
	case KindWitnessUpdate:
		return c.WitnessUpdate, nil
	case KindAccountCreate:
		return c.AccountCreate, nil
	case KindAccountUpdate:
		return c.AccountUpdate, nil
	case KindAccountPermissionUpdate:
		return c.PermissionUpdate, nil
	case KindVoteWitness:
		return c.VoteWitness, nil
	case KindProposalCreate:
		return c.ProposalCreate, nil
	case KindProposalApprove:
		return c.ProposalApprove, nil
	case KindProposalDelete:
		return c.ProposalDelete, nil
	case KindExchangeCreate:
		return c.ExchangeCreate, nil
	case KindExchangeInject:
		return c.ExchangeInject, nil
	case KindExchangeWithdraw:
		return c.ExchangeWithdraw, nil
	case KindExchangeTransaction:
		return c.ExchangeTxn, nil
	case KindUpdateAsset:
		return c.UpdateAsset, nil
	case KindUnfreezeAsset:
		return c.UnfreezeAsset, nil
	case KindSetAccountID:
		return c.SetAccountID, nil
	case KindWithdrawBalance:
		return c.WithdrawBalance, nil
	case KindUpdateBrokerage:
		return c.UpdateBrokerage, nil
	case KindCreateSmartContract:
		return c.CreateSmartContract, nil
	case KindTriggerSmartContract:
		return c.TriggerSmartContract, nil
	case KindUpdateSetting:
		return c.UpdateSetting, nil
	case KindUpdateEnergyLimit:
		return c.UpdateEnergyLimit, nil
	case KindClearAbi:
		return c.ClearAbi, nil
	case KindShieldedTransfer:
		return c.ShieldedTransfer, nil
	default:
		return nil, fmt.Errorf("%w: unknown contract kind %d", ErrValidation, c.Kind)
	}
}

type rlpTxRawData struct {
	Expiration    int64
	RefBlockBytes []byte
	RefBlockHash  []byte
	FeeLimit      int64
	Memo          []byte
	Timestamp     int64
	Contract      rlpContractUnion
}

func rlpEncodeTxRawData(r *TransactionRawData) ([]byte, error) {
	cu, err := encodeContract(&r.Contract)
	if err != nil {
		return nil, err
	}
	w := rlpTxRawData{
		Expiration:    r.Expiration,
		RefBlockBytes: r.RefBlockBytes[:],
		RefBlockHash:  r.RefBlockHash[:],
		FeeLimit:      r.FeeLimit,
		Memo:          r.Memo,
		Timestamp:     r.Timestamp,
		Contract:      cu,
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, &w); err != nil {
		return nil, fmt.Errorf("%w: encode tx raw data: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// EncodeTransaction RLP-encodes a full transaction (raw data plus
// signatures) for chain-DB storage.
func EncodeTransaction(t *Transaction) ([]byte, error) {
	raw, err := rlpEncodeTxRawData(&t.RawData)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, []interface{}{raw, t.Signatures}); err != nil {
		return nil, fmt.Errorf("%w: encode transaction: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeTransaction decodes bytes written by EncodeTransaction, including
// the contract union payload, which decodeContract decodes into its typed
// arm according to the kind byte.
func DecodeTransaction(data []byte) (*Transaction, error) {
	var outer struct {
		Raw  []byte
		Sigs [][]byte
	}
	if err := rlp.DecodeBytes(data, &outer); err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", ErrIntegrity, err)
	}
	var rw rlpTxRawData
	if err := rlp.DecodeBytes(outer.Raw, &rw); err != nil {
		return nil, fmt.Errorf("%w: decode tx raw data: %v", ErrIntegrity, err)
	}
	contract, err := decodeContract(&rw.Contract)
	if err != nil {
		return nil, err
	}
	t := &Transaction{
		Signatures: outer.Sigs,
		RawData: TransactionRawData{
			Expiration: rw.Expiration,
			FeeLimit:   rw.FeeLimit,
			Memo:       rw.Memo,
			Timestamp:  rw.Timestamp,
			Contract:   *contract,
		},
	}
	copy(t.RawData.RefBlockBytes[:], rw.RefBlockBytes)
	copy(t.RawData.RefBlockHash[:], rw.RefBlockHash)
	return t, nil
}

func decodeContract(cu *rlpContractUnion) (*Contract, error) {
	c := &Contract{
		Kind:       ContractKind(cu.Kind),
		Owner:      BytesToAddress(cu.Owner),
		Permission: cu.Permission,
	}
	target, err := emptyPayload(c.Kind)
	if err != nil {
		return nil, err
	}
	if target != nil {
		if err := rlp.DecodeBytes(cu.Payload, target); err != nil {
			return nil, fmt.Errorf("%w: decode contract payload: %v", ErrIntegrity, err)
		}
	}
	if err := setPayload(c, target); err != nil {
		return nil, err
	}
	return c, nil
}

func emptyPayload(k ContractKind) (interface{}, error) {
	switch k {
	case KindTransfer:
		return &TransferContract{}, nil
	case KindTransferAsset:
		return &TransferAssetContract{}, nil
	case KindAssetIssue:
		return &AssetIssueContract{}, nil
	case KindParticipateAssetIssue:
		return &ParticipateAssetIssueContract{}, nil
	case KindFreezeBalance:
		return &FreezeBalanceContract{}, nil
	case KindUnfreezeBalance:
		return &UnfreezeBalanceContract{}, nil
	case KindWitnessCreate:
		return &WitnessCreateContract{}, nil
	case KindWitnessUpdate:
		return &WitnessUpdateContract{}, nil
	case KindAccountCreate:
		return &AccountCreateContract{}, nil
	case KindAccountUpdate:
		return &AccountUpdateContract{}, nil
	case KindAccountPermissionUpdate:
		return &AccountPermissionUpdateContract{}, nil
	case KindVoteWitness:
		return &VoteWitnessContract{}, nil
	case KindProposalCreate:
		return &ProposalCreateContract{}, nil
	case KindProposalApprove:
		return &ProposalApproveContract{}, nil
	case KindProposalDelete:
		return &ProposalDeleteContract{}, nil
	case KindExchangeCreate:
		return &ExchangeCreateContract{}, nil
	case KindExchangeInject:
		return &ExchangeInjectContract{}, nil
	case KindExchangeWithdraw:
		return &ExchangeWithdrawContract{}, nil
	case KindExchangeTransaction:
		return &ExchangeTransactionContract{}, nil
	case KindUpdateAsset:
		return &UpdateAssetContract{}, nil
	case KindUnfreezeAsset:
		return &UnfreezeAssetContract{}, nil
	case KindSetAccountID:
		return &SetAccountIdContract{}, nil
	case KindWithdrawBalance:
		return &WithdrawBalanceContract{}, nil
	case KindUpdateBrokerage:
		return &UpdateBrokerageContract{}, nil
	case KindCreateSmartContract:
		return &CreateSmartContractPayload{}, nil
	case KindTriggerSmartContract:
		return &TriggerSmartContractPayload{}, nil
	case KindUpdateSetting:
		return &UpdateSettingContract{}, nil
	case KindUpdateEnergyLimit:
		return &UpdateEnergyLimitContract{}, nil
	case KindClearAbi:
		return &ClearAbiContract{}, nil
	case KindShieldedTransfer:
		return &ShieldedTransferPayload{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown contract kind %d", ErrValidation, k)
	}
}

func setPayload(c *Contract, payload interface{}) error {
	switch v := payload.(type) {
	case *TransferContract:
		c.Transfer = v
	case *TransferAssetContract:
		c.TransferAsset = v
	case *AssetIssueContract:
		c.AssetIssue = v
	case *ParticipateAssetIssueContract:
		c.ParticipateIssue = v
	case *FreezeBalanceContract:
		c.FreezeBalance = v
	case *UnfreezeBalanceContract:
		c.UnfreezeBalance = v
	case *WitnessCreateContract:
		c.WitnessCreate = v
	case *WitnessUpdateContract:
		c.WitnessUpdate = v
	case *AccountCreateContract:
		c.AccountCreate = v
	case *AccountUpdateContract:
		c.AccountUpdate = v
	case *AccountPermissionUpdateContract:
		c.PermissionUpdate = v
	case *VoteWitnessContract:
		c.VoteWitness = v
	case *ProposalCreateContract:
		c.ProposalCreate = v
	case *ProposalApproveContract:
		c.ProposalApprove = v
	case *ProposalDeleteContract:
		c.ProposalDelete = v
	case *ExchangeCreateContract:
		c.ExchangeCreate = v
	case *ExchangeInjectContract:
		c.ExchangeInject = v
	case *ExchangeWithdrawContract:
		c.ExchangeWithdraw = v
	case *ExchangeTransactionContract:
		c.ExchangeTxn = v
	case *UpdateAssetContract:
		c.UpdateAsset = v
	case *UnfreezeAssetContract:
		c.UnfreezeAsset = v
	case *SetAccountIdContract:
		c.SetAccountID = v
	case *WithdrawBalanceContract:
		c.WithdrawBalance = v
	case *UpdateBrokerageContract:
		c.UpdateBrokerage = v
	case *CreateSmartContractPayload:
		c.CreateSmartContract = v
	case *TriggerSmartContractPayload:
		c.TriggerSmartContract = v
	case *UpdateSettingContract:
		c.UpdateSetting = v
	case *UpdateEnergyLimitContract:
		c.UpdateEnergyLimit = v
	case *ClearAbiContract:
		c.ClearAbi = v
	case *ShieldedTransferPayload:
		c.ShieldedTransfer = v
	default:
		return fmt.Errorf("%w: unhandled contract payload type %T", ErrValidation, payload)
	}
	return nil
}

// --- Value codecs for the State DB's Account/Asset/SmartContract/Witness/
// Proposal/Exchange records. Each mirrors its public type but flattens maps
// into key/value slice pairs (RLP has no native map support) and fixed byte
// arrays into []byte, matching the header/transaction codecs above.

type kv64 struct {
	Key   int64
	Value int64
}

func mapToKV(m map[int64]int64) []kv64 {
	out := make([]kv64, 0, len(m))
	for k, v := range m {
		out = append(out, kv64{Key: k, Value: v})
	}
	return out
}

func kvToMap(entries []kv64) map[int64]int64 {
	m := make(map[int64]int64, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}

type resourceEntry struct {
	Key   int64
	Used  int64
	Slot  int64
}

func resourceMapToEntries(m map[int64]ResourceUsage) []resourceEntry {
	out := make([]resourceEntry, 0, len(m))
	for k, v := range m {
		out = append(out, resourceEntry{Key: k, Used: v.Used, Slot: v.LatestSlot})
	}
	return out
}

func entriesToResourceMap(entries []resourceEntry) map[int64]ResourceUsage {
	m := make(map[int64]ResourceUsage, len(entries))
	for _, e := range entries {
		m[e.Key] = ResourceUsage{Used: e.Used, LatestSlot: e.Slot}
	}
	return m
}

type rlpAccount struct {
	Address       []byte
	Balance       int64
	IssuedAssetID int64
	TokenBalance  []kv64
	Allowance     int64
	Type          int32
	Name          []byte
	FrozenForBandwidth int64
	FrozenForEnergy    int64
	FrozenBandwidthExpire int64
	FrozenEnergyExpire    int64
	FreeBandwidthUsed, FreeBandwidthSlot     int64
	FrozenBandwidthUsed, FrozenBandwidthSlot int64
	EnergyUsed, EnergySlot                  int64
	AssetBandwidthUsage []resourceEntry
	LatestOperationTime int64
	AccountID []byte
	Owner     rlpPermission
	Actives   []rlpPermission
	IsContract bool
}

type rlpPermission struct {
	ID        int32
	Threshold int64
	Keys      []rlpPermKey
}

type rlpPermKey struct {
	Address []byte
	Weight  int64
}

func toRLPPermission(p Permission) rlpPermission {
	keys := make([]rlpPermKey, len(p.Keys))
	for i, k := range p.Keys {
		keys[i] = rlpPermKey{Address: k.Address.Bytes(), Weight: k.Weight}
	}
	return rlpPermission{ID: p.ID, Threshold: p.Threshold, Keys: keys}
}

func fromRLPPermission(r rlpPermission) Permission {
	keys := make([]PermissionKey, len(r.Keys))
	for i, k := range r.Keys {
		keys[i] = PermissionKey{Address: BytesToAddress(k.Address), Weight: k.Weight}
	}
	return Permission{ID: r.ID, Threshold: r.Threshold, Keys: keys}
}

// EncodeAccount RLP-encodes an account record for State DB storage.
func EncodeAccount(a *Account) ([]byte, error) {
	actives := make([]rlpPermission, len(a.Actives))
	for i, p := range a.Actives {
		actives[i] = toRLPPermission(p)
	}
	w := rlpAccount{
		Address:               a.Address.Bytes(),
		Balance:               a.Balance,
		IssuedAssetID:         a.IssuedAssetID,
		TokenBalance:          mapToKV(a.TokenBalance),
		Allowance:             a.Allowance,
		Type:                  int32(a.Type),
		Name:                  a.Name,
		FrozenForBandwidth:    a.FrozenForBandwidth,
		FrozenForEnergy:       a.FrozenForEnergy,
		FrozenBandwidthExpire: a.FrozenBandwidthExpire,
		FrozenEnergyExpire:    a.FrozenEnergyExpire,
		FreeBandwidthUsed:     a.FreeBandwidthUsage.Used,
		FreeBandwidthSlot:     a.FreeBandwidthUsage.LatestSlot,
		FrozenBandwidthUsed:   a.FrozenBandwidthUsage.Used,
		FrozenBandwidthSlot:   a.FrozenBandwidthUsage.LatestSlot,
		EnergyUsed:            a.EnergyUsage.Used,
		EnergySlot:            a.EnergyUsage.LatestSlot,
		AssetBandwidthUsage:   resourceMapToEntries(a.AssetBandwidthUsage),
		LatestOperationTime:   a.LatestOperationTime,
		AccountID:             a.AccountID,
		Owner:                 toRLPPermission(a.Owner),
		Actives:               actives,
		IsContract:            a.IsContract,
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, &w); err != nil {
		return nil, fmt.Errorf("%w: encode account: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeAccount decodes bytes written by EncodeAccount.
func DecodeAccount(data []byte) (*Account, error) {
	var w rlpAccount
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode account: %v", ErrIntegrity, err)
	}
	actives := make([]Permission, len(w.Actives))
	for i, p := range w.Actives {
		actives[i] = fromRLPPermission(p)
	}
	return &Account{
		Address:               BytesToAddress(w.Address),
		Balance:               w.Balance,
		IssuedAssetID:         w.IssuedAssetID,
		TokenBalance:          kvToMap(w.TokenBalance),
		Allowance:             w.Allowance,
		Type:                  AccountType(w.Type),
		Name:                  w.Name,
		FrozenForBandwidth:    w.FrozenForBandwidth,
		FrozenForEnergy:       w.FrozenForEnergy,
		FrozenBandwidthExpire: w.FrozenBandwidthExpire,
		FrozenEnergyExpire:    w.FrozenEnergyExpire,
		FreeBandwidthUsage:    ResourceUsage{Used: w.FreeBandwidthUsed, LatestSlot: w.FreeBandwidthSlot},
		FrozenBandwidthUsage:  ResourceUsage{Used: w.FrozenBandwidthUsed, LatestSlot: w.FrozenBandwidthSlot},
		EnergyUsage:           ResourceUsage{Used: w.EnergyUsed, LatestSlot: w.EnergySlot},
		AssetBandwidthUsage:   entriesToResourceMap(w.AssetBandwidthUsage),
		LatestOperationTime:   w.LatestOperationTime,
		AccountID:             w.AccountID,
		Owner:                 fromRLPPermission(w.Owner),
		Actives:               actives,
		IsContract:            w.IsContract,
	}, nil
}

type rlpSmartContract struct {
	OriginAddress   []byte
	ContractAddress []byte
	Bytecode        []byte
	ABI             []byte
	ConsumeUserEnergyPercent int64
	OriginEnergyLimit        int64
	CodeHash        []byte
}

// EncodeSmartContract RLP-encodes a deployed contract's record.
func EncodeSmartContract(sc *SmartContract) ([]byte, error) {
	w := rlpSmartContract{
		OriginAddress:            sc.OriginAddress.Bytes(),
		ContractAddress:          sc.ContractAddress.Bytes(),
		Bytecode:                 sc.Bytecode,
		ABI:                      sc.ABI,
		ConsumeUserEnergyPercent: sc.ConsumeUserEnergyPercent,
		OriginEnergyLimit:        sc.OriginEnergyLimit,
		CodeHash:                 sc.CodeHash.Bytes(),
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, &w); err != nil {
		return nil, fmt.Errorf("%w: encode smart contract: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeSmartContract decodes bytes written by EncodeSmartContract.
func DecodeSmartContract(data []byte) (*SmartContract, error) {
	var w rlpSmartContract
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode smart contract: %v", ErrIntegrity, err)
	}
	return &SmartContract{
		OriginAddress:            BytesToAddress(w.OriginAddress),
		ContractAddress:          BytesToAddress(w.ContractAddress),
		Bytecode:                 w.Bytecode,
		ABI:                      w.ABI,
		ConsumeUserEnergyPercent: w.ConsumeUserEnergyPercent,
		OriginEnergyLimit:        w.OriginEnergyLimit,
		CodeHash:                 BytesToHash(w.CodeHash),
	}, nil
}

type rlpAsset struct {
	ID          int64
	Name        []byte
	Abbr        []byte
	Owner       []byte
	TotalSupply int64
	Precision   int32
	FrozenSupply []FrozenSupply
	PublicFreeAssetBandwidthLimit int64
	PublicFreeUsed, PublicFreeSlot int64
	FreeAssetBandwidthLimit int64
	StartTime, EndTime int64
	Description, URL []byte
}

// EncodeAsset RLP-encodes a TRC-10 asset record.
func EncodeAsset(a *Asset) ([]byte, error) {
	w := rlpAsset{
		ID: a.ID, Name: a.Name, Abbr: a.Abbr, Owner: a.Owner.Bytes(),
		TotalSupply: a.TotalSupply, Precision: a.Precision,
		FrozenSupply: a.FrozenSupply,
		PublicFreeAssetBandwidthLimit: a.PublicFreeAssetBandwidthLimit,
		PublicFreeUsed:                a.PublicFreeAssetBandwidthUsage.Used,
		PublicFreeSlot:                a.PublicFreeAssetBandwidthUsage.LatestSlot,
		FreeAssetBandwidthLimit:       a.FreeAssetBandwidthLimit,
		StartTime: a.StartTime, EndTime: a.EndTime,
		Description: a.Description, URL: a.URL,
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, &w); err != nil {
		return nil, fmt.Errorf("%w: encode asset: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeAsset decodes bytes written by EncodeAsset.
func DecodeAsset(data []byte) (*Asset, error) {
	var w rlpAsset
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode asset: %v", ErrIntegrity, err)
	}
	return &Asset{
		ID: w.ID, Name: w.Name, Abbr: w.Abbr, Owner: BytesToAddress(w.Owner),
		TotalSupply: w.TotalSupply, Precision: w.Precision,
		FrozenSupply: w.FrozenSupply,
		PublicFreeAssetBandwidthLimit: w.PublicFreeAssetBandwidthLimit,
		PublicFreeAssetBandwidthUsage: ResourceUsage{Used: w.PublicFreeUsed, LatestSlot: w.PublicFreeSlot},
		FreeAssetBandwidthLimit:       w.FreeAssetBandwidthLimit,
		StartTime: w.StartTime, EndTime: w.EndTime,
		Description: w.Description, URL: w.URL,
	}, nil
}

type rlpWitness struct {
	Address           []byte
	URL               []byte
	VoteCount         int64
	TotalProduced     int64
	TotalMissed       int64
	LatestBlockNumber int64
	LatestSlotNumber  int64
	LatestBlockVersion int32
	BrokerageRate     int64
}

// EncodeWitness RLP-encodes a witness record.
func EncodeWitness(w *Witness) ([]byte, error) {
	e := rlpWitness{
		Address: w.Address.Bytes(), URL: w.URL, VoteCount: w.VoteCount,
		TotalProduced: w.TotalProduced, TotalMissed: w.TotalMissed,
		LatestBlockNumber: w.LatestBlockNumber, LatestSlotNumber: w.LatestSlotNumber,
		LatestBlockVersion: w.LatestBlockVersion, BrokerageRate: w.BrokerageRate,
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, &e); err != nil {
		return nil, fmt.Errorf("%w: encode witness: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeWitness decodes bytes written by EncodeWitness.
func DecodeWitness(data []byte) (*Witness, error) {
	var e rlpWitness
	if err := rlp.DecodeBytes(data, &e); err != nil {
		return nil, fmt.Errorf("%w: decode witness: %v", ErrIntegrity, err)
	}
	return &Witness{
		Address: BytesToAddress(e.Address), URL: e.URL, VoteCount: e.VoteCount,
		TotalProduced: e.TotalProduced, TotalMissed: e.TotalMissed,
		LatestBlockNumber: e.LatestBlockNumber, LatestSlotNumber: e.LatestSlotNumber,
		LatestBlockVersion: e.LatestBlockVersion, BrokerageRate: e.BrokerageRate,
	}, nil
}

// EncodeDynamicProperties RLP-encodes the chain-parameter record persisted
// under a single state DB key.
func EncodeDynamicProperties(d *DynamicProperties) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, &d.Values); err != nil {
		return nil, fmt.Errorf("%w: encode dynamic properties: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeDynamicProperties decodes bytes written by EncodeDynamicProperties.
func DecodeDynamicProperties(data []byte) (*DynamicProperties, error) {
	var values [numChainParameters]int64
	if err := rlp.DecodeBytes(data, &values); err != nil {
		return nil, fmt.Errorf("%w: decode dynamic properties: %v", ErrIntegrity, err)
	}
	return &DynamicProperties{Values: values}, nil
}

type rlpProposal struct {
	ID             int64
	Proposer       []byte
	Parameters     []ParamEntry
	ExpirationTime int64
	CreateTime     int64
	Approvals      [][]byte
	State          int32
}

// EncodeProposal RLP-encodes a governance proposal record.
func EncodeProposal(p *Proposal) ([]byte, error) {
	approvals := make([][]byte, len(p.Approvals))
	for i, a := range p.Approvals {
		approvals[i] = a.Bytes()
	}
	w := rlpProposal{
		ID: p.ID, Proposer: p.Proposer.Bytes(), Parameters: p.Parameters,
		ExpirationTime: p.ExpirationTime, CreateTime: p.CreateTime,
		Approvals: approvals, State: int32(p.State),
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, &w); err != nil {
		return nil, fmt.Errorf("%w: encode proposal: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeProposal decodes bytes written by EncodeProposal.
func DecodeProposal(data []byte) (*Proposal, error) {
	var w rlpProposal
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode proposal: %v", ErrIntegrity, err)
	}
	approvals := make([]Address, len(w.Approvals))
	for i, a := range w.Approvals {
		approvals[i] = BytesToAddress(a)
	}
	return &Proposal{
		ID: w.ID, Proposer: BytesToAddress(w.Proposer), Parameters: w.Parameters,
		ExpirationTime: w.ExpirationTime, CreateTime: w.CreateTime,
		Approvals: approvals, State: ProposalState(w.State),
	}, nil
}

type rlpExchange struct {
	ID                 int64
	CreatorAddress     []byte
	CreateTime         int64
	FirstTokenID       []byte
	FirstTokenBalance  int64
	SecondTokenID      []byte
	SecondTokenBalance int64
}

// EncodeExchange RLP-encodes a bancor-style exchange pair record.
func EncodeExchange(e *Exchange) ([]byte, error) {
	w := rlpExchange{
		ID: e.ID, CreatorAddress: e.CreatorAddress.Bytes(), CreateTime: e.CreateTime,
		FirstTokenID: e.FirstTokenID, FirstTokenBalance: e.FirstTokenBalance,
		SecondTokenID: e.SecondTokenID, SecondTokenBalance: e.SecondTokenBalance,
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, &w); err != nil {
		return nil, fmt.Errorf("%w: encode exchange: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeExchange decodes bytes written by EncodeExchange.
func DecodeExchange(data []byte) (*Exchange, error) {
	var w rlpExchange
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode exchange: %v", ErrIntegrity, err)
	}
	return &Exchange{
		ID: w.ID, CreatorAddress: BytesToAddress(w.CreatorAddress), CreateTime: w.CreateTime,
		FirstTokenID: w.FirstTokenID, FirstTokenBalance: w.FirstTokenBalance,
		SecondTokenID: w.SecondTokenID, SecondTokenBalance: w.SecondTokenBalance,
	}, nil
}

type rlpTransactionResult struct {
	Status          int32
	ContractStatus  int32
	EnergyUsage     int64
	EnergyFee       int64
	EnergyPenalty   int64
	ContractAddress []byte
	Ret             []byte
}

type rlpTransactionReceipt struct {
	BandwidthUsage    int64
	BandwidthFee      int64
	EnergyUsage       int64
	EnergyFee         int64
	OriginEnergyUsage int64
	Result            rlpTransactionResult
}

// EncodeTransactionReceipt RLP-encodes a committed transaction's resource
// receipt for state DB storage under its transaction hash.
func EncodeTransactionReceipt(r *TransactionReceipt) ([]byte, error) {
	w := rlpTransactionReceipt{
		BandwidthUsage: r.BandwidthUsage, BandwidthFee: r.BandwidthFee,
		EnergyUsage: r.EnergyUsage, EnergyFee: r.EnergyFee,
		OriginEnergyUsage: r.OriginEnergyUsage,
		Result: rlpTransactionResult{
			Status:          int32(r.Result.Status),
			ContractStatus:  int32(r.Result.ContractStatus),
			EnergyUsage:     r.Result.EnergyUsage,
			EnergyFee:       r.Result.EnergyFee,
			EnergyPenalty:   r.Result.EnergyPenalty,
			ContractAddress: r.Result.ContractAddress.Bytes(),
			Ret:             r.Result.Ret,
		},
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, &w); err != nil {
		return nil, fmt.Errorf("%w: encode receipt: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeTransactionReceipt decodes bytes written by EncodeTransactionReceipt.
func DecodeTransactionReceipt(data []byte) (*TransactionReceipt, error) {
	var w rlpTransactionReceipt
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode receipt: %v", ErrIntegrity, err)
	}
	return &TransactionReceipt{
		BandwidthUsage: w.BandwidthUsage, BandwidthFee: w.BandwidthFee,
		EnergyUsage: w.EnergyUsage, EnergyFee: w.EnergyFee,
		OriginEnergyUsage: w.OriginEnergyUsage,
		Result: TransactionResult{
			Status:          TxStatus(w.Result.Status),
			ContractStatus:  ContractStatus(w.Result.ContractStatus),
			EnergyUsage:     w.Result.EnergyUsage,
			EnergyFee:       w.Result.EnergyFee,
			EnergyPenalty:   w.Result.EnergyPenalty,
			ContractAddress: BytesToAddress(w.Result.ContractAddress),
			Ret:             w.Result.Ret,
		},
	}, nil
}

// EncodeAddressList RLP-encodes an ordered address slice (the witness
// schedule, the active-witness roster snapshot).
func EncodeAddressList(addrs []Address) ([]byte, error) {
	raw := make([][]byte, len(addrs))
	for i, a := range addrs {
		raw[i] = a.Bytes()
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, raw); err != nil {
		return nil, fmt.Errorf("%w: encode address list: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeAddressList decodes bytes written by EncodeAddressList.
func DecodeAddressList(data []byte) ([]Address, error) {
	var raw [][]byte
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode address list: %v", ErrIntegrity, err)
	}
	out := make([]Address, len(raw))
	for i, b := range raw {
		out[i] = BytesToAddress(b)
	}
	return out, nil
}

type rlpVote struct {
	VoteAddress []byte
	VoteCount   int64
}

// EncodeVoteList RLP-encodes a voter's ballot (spec.md §3 vote record):
// the set of witnesses a single account currently votes for.
func EncodeVoteList(votes []Vote) ([]byte, error) {
	raw := make([]rlpVote, len(votes))
	for i, v := range votes {
		raw[i] = rlpVote{VoteAddress: v.VoteAddress.Bytes(), VoteCount: v.VoteCount}
	}
	buf := new(bytes.Buffer)
	if err := rlp.Encode(buf, raw); err != nil {
		return nil, fmt.Errorf("%w: encode vote list: %v", ErrIO, err)
	}
	return buf.Bytes(), nil
}

// DecodeVoteList decodes bytes written by EncodeVoteList.
func DecodeVoteList(data []byte) ([]Vote, error) {
	var raw []rlpVote
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode vote list: %v", ErrIntegrity, err)
	}
	out := make([]Vote, len(raw))
	for i, r := range raw {
		out[i] = Vote{VoteAddress: BytesToAddress(r.VoteAddress), VoteCount: r.VoteCount}
	}
	return out, nil
}
