// Package signer recovers the address that produced a signature over a
// 32-byte digest.
//
// The default Recoverer applies the EIP-191 personal-message prefix
// ("\x19Ethereum Signed Message:\n32") before secp256k1 recovery, which is
// the hash wallets produce for eth_sign over a userOpHash.
//
// # Architecture boundaries
//
// Recovery is pure computation. Deciding whether the recovered address is
// authorized (owner, session key) is the Account's job.
//
// # What this package must NOT do
//
//   - Read account state or stores.
//   - Accept high-s signatures. They are malleable and rejected as invalid.
package signer
