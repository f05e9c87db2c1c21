package aa

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// UserOperation mirrors the EntryPoint v0.6 UserOperation struct.
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *big.Int       `json:"nonce"`
	InitCode             []byte         `json:"initCode"`
	CallData             []byte         `json:"callData"`
	CallGasLimit         uint64         `json:"callGasLimit"`
	VerificationGasLimit uint64         `json:"verificationGasLimit"`
	PreVerificationGas   uint64         `json:"preVerificationGas"`
	MaxFeePerGas         *big.Int       `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int       `json:"maxPriorityFeePerGas"`
	PaymasterAndData     []byte         `json:"paymasterAndData"` // first 20 bytes = paymaster address
	Signature            []byte         `json:"signature"`
}

// PaymasterAddress extracts the paymaster address from PaymasterAndData.
// Returns zero address if no paymaster.
func (op *UserOperation) PaymasterAddress() common.Address {
	if op == nil || len(op.PaymasterAndData) < common.AddressLength {
		return common.Address{}
	}
	return common.BytesToAddress(op.PaymasterAndData[:common.AddressLength])
}

// HasPaymaster returns true if this operation has a paymaster.
func (op *UserOperation) HasPaymaster() bool {
	return op.PaymasterAddress() != (common.Address{})
}

// Hash returns the userOpHash the EntryPoint at entryPoint on chainID would
// compute: keccak256(abi.encode(keccak256(pack(op)), entryPoint, chainID)).
// The signature field is not part of the hash.
func (op *UserOperation) Hash(entryPoint common.Address, chainID *big.Int) common.Hash {
	if op == nil {
		return common.Hash{}
	}
	inner := keccak256(op.pack())

	outer := make([]byte, 0, 3*32)
	outer = append(outer, inner...)
	outer = append(outer, common.LeftPadBytes(entryPoint.Bytes(), 32)...)
	outer = append(outer, word(chainID)...)
	return common.BytesToHash(keccak256(outer))
}

// pack is the abi.encode of the op with dynamic fields replaced by their hashes.
func (op *UserOperation) pack() []byte {
	packed := make([]byte, 0, 10*32)
	packed = append(packed, common.LeftPadBytes(op.Sender.Bytes(), 32)...)
	packed = append(packed, word(op.Nonce)...)
	packed = append(packed, keccak256(op.InitCode)...)
	packed = append(packed, keccak256(op.CallData)...)
	packed = append(packed, wordUint64(op.CallGasLimit)...)
	packed = append(packed, wordUint64(op.VerificationGasLimit)...)
	packed = append(packed, wordUint64(op.PreVerificationGas)...)
	packed = append(packed, word(op.MaxFeePerGas)...)
	packed = append(packed, word(op.MaxPriorityFeePerGas)...)
	packed = append(packed, keccak256(op.PaymasterAndData)...)
	return packed
}

func word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.BigToHash(v).Bytes()
}

func wordUint64(v uint64) []byte {
	return common.BigToHash(new(big.Int).SetUint64(v)).Bytes()
}

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}
