// Package wallet holds the catalog owner's signing identity.
//
// A Key is an Ed25519 key pair. Its address is derived the way account
// addresses are on EVM ledgers: the last 20 bytes of the Keccak-256 hash of
// the public key, hex encoded with a 0x prefix.
//
// Two kinds of signatures are produced:
//   - SignMessage signs human-readable text (reveal challenges). The text is
//     hashed with the "\x19Ethereum Signed Message:\n<len>" prefix first.
//   - SignDigest signs a precomputed write digest (ledger writes).
package wallet
