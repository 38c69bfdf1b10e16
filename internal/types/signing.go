package types

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// SignEd25519 builds a SignedTransaction signed with an Ed25519 key, deriving
// Hash from the canonical preimage per spec.md §4.2.
func SignEd25519(tx Transaction, chainID string, priv ed25519.PrivateKey) SignedTransaction {
	preimage := tx.Preimage(chainID)
	hash := cryptoutil.SHA256(preimage)
	sig := cryptoutil.SignEd25519(priv, preimage)
	return SignedTransaction{
		Tx:        tx,
		Signature: sig,
		PublicKey: []byte(priv.Public().(ed25519.PublicKey)),
		Algorithm: cryptoutil.AlgorithmEd25519,
		Hash:      hash,
	}
}

// SignSecp256k1 builds a SignedTransaction signed with a secp256k1 key.
func SignSecp256k1(tx Transaction, chainID string, priv *secp256k1.PrivateKey) (SignedTransaction, error) {
	preimage := tx.Preimage(chainID)
	hash := cryptoutil.SHA256(preimage)
	sig, err := cryptoutil.SignSecp256k1(priv, preimage)
	if err != nil {
		return SignedTransaction{}, fmt.Errorf("sign secp256k1 transaction: %w", err)
	}
	return SignedTransaction{
		Tx:        tx,
		Signature: sig,
		PublicKey: priv.PubKey().SerializeUncompressed(),
		Algorithm: cryptoutil.AlgorithmSecp256k1,
		Hash:      hash,
	}, nil
}

// VerifyHashAndSignature recomputes the preimage hash and verifies the
// signature, implementing spec.md §4.4 step 2 in one call. It does not check
// the derived address against tx.From; callers do that separately so the
// distinct failure reasons stay distinguishable.
func (stx *SignedTransaction) VerifyHashAndSignature(chainID string) (hashOK, sigOK bool) {
	preimage := stx.Tx.Preimage(chainID)
	recomputed := cryptoutil.SHA256(preimage)
	hashOK = recomputed == stx.Hash
	switch stx.Algorithm {
	case cryptoutil.AlgorithmEd25519:
		sigOK = cryptoutil.VerifyEd25519(stx.PublicKey, stx.Signature, preimage)
	case cryptoutil.AlgorithmSecp256k1:
		sigOK = cryptoutil.VerifySecp256k1(stx.PublicKey, stx.Signature, preimage)
	default:
		sigOK = false
	}
	return hashOK, sigOK
}

// DerivedAddress returns the address implied by the signed transaction's
// public key and algorithm, for the spec.md §4.4 step 2 address-match check.
func (stx *SignedTransaction) DerivedAddress() (cryptoutil.Address, error) {
	switch stx.Algorithm {
	case cryptoutil.AlgorithmEd25519:
		return cryptoutil.Ed25519Address(stx.PublicKey), nil
	case cryptoutil.AlgorithmSecp256k1:
		return cryptoutil.Secp256k1Address(stx.PublicKey)
	default:
		return cryptoutil.Address{}, fmt.Errorf("unknown signature algorithm %q", stx.Algorithm)
	}
}
