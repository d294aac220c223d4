package core

// Transaction is the spec.md §3 transaction: raw data plus signatures. A
// transaction carries exactly one Contract.
type Transaction struct {
	RawData    TransactionRawData
	Signatures [][]byte

	// Result is the inbound result record the executor must reproduce and
	// compare against (spec.md §4.7 step 7). Nil for a freshly-built
	// transaction that has not yet been executed.
	Result *TransactionResult
}

type TransactionRawData struct {
	Expiration    int64
	RefBlockBytes [2]byte
	RefBlockHash  [8]byte
	FeeLimit      int64
	Memo          []byte
	Contract      Contract
	Timestamp     int64
}

// Hash returns the transaction's identity hash: Keccak256 over the raw
// data fields (the reference hashes the serialized protobuf; this rewrite
// hashes the RLP encoding per the DESIGN.md wire-format decision).
func (t *Transaction) Hash() Hash {
	enc, err := rlpEncodeTxRawData(&t.RawData)
	if err != nil {
		// Serialization failures are programmer errors per spec.md §4.1.
		panic(err)
	}
	return BytesToHash(Keccak256(enc))
}

// TransactionResult is the outcome the executor computes and, if the
// transaction carried an inbound result, must agree with (spec.md §4.7
// step 7).
type TransactionResult struct {
	Status         TxStatus
	ContractStatus ContractStatus
	EnergyUsage    int64
	EnergyFee      int64
	EnergyPenalty  int64
	ContractAddress Address
	Ret            []byte
}

type TxStatus int

const (
	TxSuccess TxStatus = iota
	TxFailed
)

// TransactionReceipt records the resource consumption and bandwidth/energy
// split for a committed transaction, returned to dry-run callers and
// persisted into the state DB keyed by transaction hash.
type TransactionReceipt struct {
	BandwidthUsage int64
	BandwidthFee   int64
	EnergyUsage    int64
	EnergyFee      int64
	OriginEnergyUsage int64
	Result         TransactionResult
}

// TransactionContext is the per-transaction accumulator threaded through
// validate/execute (spec.md §4.7). It is created fresh for every
// transaction and discarded after the receipt is recorded.
type TransactionContext struct {
	Header *BlockHeader
	TxHash Hash

	Signers []Address

	BandwidthUsage int64
	BandwidthFee   int64
	ContractFee    int64
	MultisigFee    int64

	NewAccountCreated bool

	WithdrawAmount  int64
	UnfrozenAmount  int64

	CallerEnergyUsage int64
	OriginEnergyUsage int64
	EnergyFee         int64

	VMReturn        []byte
	VMLogs          []Log
	VMStatus        ContractStatus
	ContractAddress Address

	// OutOfTime marks a transaction whose execution window already
	// elapsed; TriggerSmartContract bypasses the VM for it (spec.md §4.6,
	// a deliberate legacy quirk preserved per DESIGN.md).
	OutOfTime bool
}

// Log is a TVM event log entry.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}
