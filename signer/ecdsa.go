package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the [R || S || V] length accepted by ECDSA.
const SignatureLength = crypto.SignatureLength

var (
	// ErrMalformedSignature is returned for signatures of the wrong length.
	ErrMalformedSignature = errors.New("malformed signature")
	// ErrInvalidSignature is returned when r, s or v are out of range.
	ErrInvalidSignature = errors.New("invalid signature values")
)

// Recoverer maps a digest and signature to the signing address.
type Recoverer interface {
	Recover(digest common.Hash, sig []byte) (common.Address, error)
}

// ECDSA recovers secp256k1 signers over the EIP-191 wrapped digest.
type ECDSA struct{}

// NewECDSA returns the default Recoverer.
func NewECDSA() ECDSA {
	return ECDSA{}
}

// EthSignedHash returns keccak256("\x19Ethereum Signed Message:\n32" || digest).
func EthSignedHash(digest common.Hash) common.Hash {
	return common.BytesToHash(accounts.TextHash(digest.Bytes()))
}

// Recover returns the address whose key signed EthSignedHash(digest).
// V may be 0/1 or 27/28.
func (ECDSA) Recover(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrMalformedSignature, len(sig))
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(normalized[64], r, s, true) {
		return common.Address{}, ErrInvalidSignature
	}

	pubKey, err := crypto.Ecrecover(EthSignedHash(digest).Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return common.BytesToAddress(crypto.Keccak256(pubKey[1:])[12:]), nil
}

// SignDigest signs EthSignedHash(digest) with key and returns a signature
// with V in {27, 28}, the form wallets emit.
func SignDigest(key *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(EthSignedHash(digest).Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
