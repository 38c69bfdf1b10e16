package cryptoutil

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Algorithm names the signature suite a signed transaction or block was signed
// with, per spec.md §3.
type Algorithm string

const (
	AlgorithmEd25519   Algorithm = "ed25519"
	AlgorithmSecp256k1 Algorithm = "secp256k1"
)

// Ed25519KeyPair holds a generated identity; used by walletkey for the
// proposer's signing key (key_file, spec.md §6).
type Ed25519KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateEd25519 creates a fresh Ed25519 key pair.
func GenerateEd25519() (*Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &Ed25519KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Ed25519FromPrivateKeyBytes rebuilds a key pair from a previously
// persisted full (64-byte) Ed25519 private key, as walletkey reads back
// from key_file.
func Ed25519FromPrivateKeyBytes(priv []byte) (*Ed25519KeyPair, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	key := ed25519.PrivateKey(priv)
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("ed25519 private key did not yield a public key")
	}
	return &Ed25519KeyPair{PublicKey: pub, PrivateKey: key}, nil
}

// SignEd25519 signs msg (the raw preimage bytes, not re-hashed — Ed25519
// hashes internally) with priv.
func SignEd25519(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// VerifyEd25519 verifies sig over msg under pub. Rejects malformed keys/sigs
// by length before delegating, per spec.md §4.1's "reject malformed keys and
// non-canonical signatures" requirement.
func VerifyEd25519(pub, sig, msg []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}

// GenerateSecp256k1 creates a fresh secp256k1 key pair, returning the private
// scalar and the 65-byte uncompressed public key (0x04 || X || Y).
func GenerateSecp256k1() (priv *secp256k1.PrivateKey, uncompressedPub []byte, err error) {
	priv, err = secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	return priv, priv.PubKey().SerializeUncompressed(), nil
}

// SignSecp256k1 signs SHA-256(msg) with priv using ECDSA, per spec.md §4.1's
// "ECDSA over SHA-256 of the preimage (not Keccak)" rule. The signature is
// the canonical fixed 64-byte r||s encoding (no DER, no recovery id), so
// verifiers can enforce an exact-length check for non-canonical rejection.
func SignSecp256k1(priv *secp256k1.PrivateKey, msg []byte) ([]byte, error) {
	digest := SHA256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, priv.ToECDSA(), digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign secp256k1: %w", err)
	}
	out := make([]byte, 64)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out, nil
}

// VerifySecp256k1 verifies a 64-byte r||s signature over SHA-256(msg) under
// the given 65-byte uncompressed public key.
func VerifySecp256k1(uncompressedPub, sig, msg []byte) bool {
	if len(sig) != 64 {
		return false
	}
	pub, err := secp256k1.ParsePubKey(uncompressedPub)
	if err != nil {
		return false
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	digest := SHA256(msg)
	return ecdsa.Verify(pub.ToECDSA(), digest[:], r, s)
}
