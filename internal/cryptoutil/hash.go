// Package cryptoutil implements the node's two signature suites (Ed25519 and
// secp256k1), its two hash functions (SHA-256 and Keccak-256), and address
// derivation, per spec.md §4.1. Keep HOW the teacher hashes blocks (plain
// sha256.Sum256 over concatenated fields), replace WHAT is hashed.
package cryptoutil

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashSize is the width in bytes of every hash produced in this package.
const HashSize = 32

// Hash is a 32-byte digest, rendered with a 0x prefix per spec.md §3.
type Hash [HashSize]byte

// SHA256 hashes b with SHA-256, used for all domain-object preimages
// (transactions, headers, blocks) per spec.md §4.1.
func SHA256(b []byte) Hash {
	return sha256.Sum256(b)
}

// Keccak256 hashes b with Keccak-256 (NIST SHA-3 candidate, pre-standardization
// padding), used only for EVM-style addressing and contract code hashing per
// spec.md §4.1 and §9 — deliberately distinct from the SHA-256 path.
func Keccak256(b ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, part := range b {
		h.Write(part)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// String renders the hash in its canonical 0x-prefixed lowercase hex form.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash, used to recognize the
// genesis block's prev_hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns a copy of the underlying 32 bytes.
func (h Hash) Bytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// HashFromBytes copies b (which must be exactly HashSize long) into a Hash.
func HashFromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != HashSize {
		return h, false
	}
	copy(h[:], b)
	return h, true
}
