package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 hashes the concatenation of data, matching the reference
// implementation's hash function throughout (contract address derivation,
// block/header digests, the TVM's SHA3 opcode).
func Keccak256(data ...[]byte) []byte {
	return crypto.Keccak256(data...)
}

// RecoverSigner recovers the signer address of a signature over digest,
// used by the executor's per-transaction signature recovery (spec.md
// §4.7 step 1) and by the Manager's witness-signature check on incoming
// blocks.
func RecoverSigner(digest [32]byte, sig []byte) (Address, error) {
	if len(sig) != 65 {
		return Address{}, fmt.Errorf("%w: signature length %d, want 65", ErrValidation, len(sig))
	}
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return Address{}, fmt.Errorf("%w: recover signer: %v", ErrValidation, err)
	}
	ethAddr := crypto.PubkeyToAddress(*pub)
	var out Address
	out[0] = AddressPrefix
	copy(out[1:], ethAddr[:])
	return out, nil
}

// GenerateCreatedContractAddress derives the address of a contract created
// by a CreateSmartContract transaction: keccak256(txn_hash || owner)[12:],
// wrapped with the address prefix byte (spec.md §8 testable property).
func GenerateCreatedContractAddress(txnHash Hash, owner Address) Address {
	sum := Keccak256(txnHash.Bytes(), owner.Bytes())
	var out Address
	out[0] = AddressPrefix
	copy(out[1:], sum[12:])
	return out
}
