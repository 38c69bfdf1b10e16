package codec

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
)

// MerkleRoot computes the root over a list of transaction hashes per
// spec.md §4.2: bottom-up, hashing the concatenated hex strings of sibling
// pairs with SHA-256; on odd counts the last element pairs with itself;
// the empty list hashes the empty string. Implementers must reproduce this
// exact ladder — it is not the usual raw-byte-concatenation Merkle tree.
func MerkleRoot(hashes []cryptoutil.Hash) cryptoutil.Hash {
	if len(hashes) == 0 {
		return cryptoutil.SHA256([]byte(""))
	}

	level := make([]string, len(hashes))
	for i, h := range hashes {
		level[i] = "0x" + hex.EncodeToString(h[:])
	}

	// A lone leaf is an odd count too: it pairs with itself, so the root is
	// always the output of at least one SHA-256 ladder step.
	if len(level) == 1 {
		sum := sha256.Sum256([]byte(level[0] + level[0]))
		return cryptoutil.Hash(sum)
	}

	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			sum := sha256.Sum256([]byte(left + right))
			next = append(next, "0x"+hex.EncodeToString(sum[:]))
		}
		level = next
	}

	h, _ := cryptoutil.HashFromBytes(mustDecodeHex(level[0]))
	return h
}

func mustDecodeHex(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		// Every value fed back in here was produced by hex.EncodeToString
		// above; a decode failure would mean in-process corruption.
		panic("codec: malformed internal merkle hex: " + err.Error())
	}
	return b
}
