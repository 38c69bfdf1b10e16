package cryptoutil

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressSize is the width in bytes of a node address (spec.md §3).
const AddressSize = 20

// Address is a 20-byte account identifier, rendered as 0x + 40 hex chars.
type Address [AddressSize]byte

// String renders the address in its canonical 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns a copy of the underlying 20 bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressSize)
	copy(out, a[:])
	return out
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// ParseAddress parses a 0x-prefixed 40-hex-char address string, per the
// structural validation rule in spec.md §4.4 step 1.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s) != AddressSize*2 {
		return a, fmt.Errorf("address %q: want %d hex chars, got %d", s, AddressSize*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("address %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// Ed25519Address derives the address for an Ed25519 public key: the low 20
// bytes of SHA-256(public_key), per spec.md §3/§4.1.
func Ed25519Address(pub []byte) Address {
	h := SHA256(pub)
	var a Address
	copy(a[:], h[HashSize-AddressSize:])
	return a
}

// Secp256k1Address derives the address for a secp256k1 uncompressed public
// key: the low 20 bytes of Keccak-256(public_key[1:]) — the leading 0x04
// prefix byte of the uncompressed encoding is dropped first, per spec.md
// §3/§4.1.
func Secp256k1Address(uncompressedPub []byte) (Address, error) {
	if len(uncompressedPub) != 65 || uncompressedPub[0] != 0x04 {
		return Address{}, fmt.Errorf("secp256k1 public key must be 65-byte uncompressed form with 0x04 prefix, got %d bytes", len(uncompressedPub))
	}
	h := Keccak256(uncompressedPub[1:])
	var a Address
	copy(a[:], h[HashSize-AddressSize:])
	return a, nil
}

// ContractAddress derives a deployed contract's address as the low 20 bytes
// of Keccak-256(deployer || nonce_byte), the simplified single-byte-nonce
// scheme spec.md §4.5/§9 mandates in place of Ethereum's RLP scheme.
func ContractAddress(deployer Address, nonce uint64) Address {
	h := Keccak256(deployer.Bytes(), []byte{byte(nonce)})
	var a Address
	copy(a[:], h[HashSize-AddressSize:])
	return a
}
