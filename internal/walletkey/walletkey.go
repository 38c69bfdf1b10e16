// Package walletkey loads or generates the node's proposer signing
// identity from the configured key_file. Adapted from the teacher's
// internal/wallet package's key-material handling, narrowed to the single
// Ed25519 proposer key spec.md §4.8 requires (the teacher's wallet
// supported arbitrary user keys; a node here has exactly one signing
// identity).
package walletkey

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
)

// Identity is the node's signing key pair plus the address it derives.
type Identity struct {
	PrivateKey []byte
	PublicKey  []byte
	Address    cryptoutil.Address
}

// Load reads a hex-encoded Ed25519 private key from path, generating and
// persisting a fresh one if the file does not exist — the same
// "create on first run" convenience the teacher's wallet offered.
func Load(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return generateAndSave(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read key_file %q: %w", path, err)
	}
	priv, err := hex.DecodeString(string(trimNewline(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode key_file %q: %w", path, err)
	}
	kp, err := cryptoutil.Ed25519FromPrivateKeyBytes(priv)
	if err != nil {
		return nil, fmt.Errorf("load identity from %q: %w", path, err)
	}
	return identityFromKeyPair(kp), nil
}

func generateAndSave(path string) (*Identity, error) {
	kp, err := cryptoutil.GenerateEd25519()
	if err != nil {
		return nil, fmt.Errorf("generate proposer identity: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create key directory %q: %w", dir, err)
		}
	}
	encoded := hex.EncodeToString(kp.PrivateKey)
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("persist key_file %q: %w", path, err)
	}
	return identityFromKeyPair(kp), nil
}

func identityFromKeyPair(kp *cryptoutil.Ed25519KeyPair) *Identity {
	return &Identity{
		PrivateKey: kp.PrivateKey,
		PublicKey:  kp.PublicKey,
		Address:    cryptoutil.Ed25519Address(kp.PublicKey),
	}
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
