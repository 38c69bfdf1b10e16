package codec_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/codec"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
)

func hashOf(b byte) cryptoutil.Hash {
	var h cryptoutil.Hash
	h[0] = b
	return h
}

func TestMerkleRootEmptyListHashesEmptyString(t *testing.T) {
	want := sha256.Sum256([]byte(""))
	got := codec.MerkleRoot(nil)
	require.Equal(t, cryptoutil.Hash(want), got)
}

func TestMerkleRootSingleElement(t *testing.T) {
	h := hashOf(0xAB)
	hexStr := h.String()
	want := sha256.Sum256([]byte(hexStr + hexStr))
	got := codec.MerkleRoot([]cryptoutil.Hash{h})
	require.Equal(t, cryptoutil.Hash(want), got, "a lone leaf must pair with itself per spec.md §4.2")
}

func TestMerkleRootOddCountPairsLastWithItself(t *testing.T) {
	h1, h2, h3 := hashOf(1), hashOf(2), hashOf(3)
	level1 := sha256.Sum256([]byte(h1.String() + h2.String()))
	level1b := sha256.Sum256([]byte(h3.String() + h3.String()))
	level1Hex := "0x" + hex.EncodeToString(level1[:])
	level1bHex := "0x" + hex.EncodeToString(level1b[:])
	want := sha256.Sum256([]byte(level1Hex + level1bHex))

	got := codec.MerkleRoot([]cryptoutil.Hash{h1, h2, h3})
	require.Equal(t, cryptoutil.Hash(want), got)
}

func TestMerkleRootIsOrderSensitive(t *testing.T) {
	h1, h2 := hashOf(1), hashOf(2)
	a := codec.MerkleRoot([]cryptoutil.Hash{h1, h2})
	b := codec.MerkleRoot([]cryptoutil.Hash{h2, h1})
	require.NotEqual(t, a, b)
}
