// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package ocv2

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Checksum is a rolling keccak commitment to a sequence of offsets. The zero
// value is the empty chain.
//
// Nested dynamic arrays announce the positions of their inner arrays in an
// offset table before any inner array is seen. Instead of storing the table,
// the decoder folds every announced position into a preview chain and every
// position an inner array is actually found at into a value chain. The two
// chains are equal at the end of the group iff both sequences were identical.
type Checksum [32]byte

// keccakPool is a pool of keccak states to avoid hitting Go's GC on every
// extension of a chain.
var keccakPool = &sync.Pool{
	New: func() any {
		return crypto.NewKeccakState()
	},
}

// ExtendChecksum folds a normalized offset into a checksum chain, returning
// keccak256(prev || offset) with the offset encoded as a 32 byte big endian
// word.
func ExtendChecksum(prev Checksum, offset *uint256.Int) (Checksum, error) {
	hasher := keccakPool.Get().(crypto.KeccakState)
	defer keccakPool.Put(hasher)

	hasher.Reset()

	var next Checksum
	word := offset.Bytes32()
	if _, err := hasher.Write(prev[:]); err != nil {
		return next, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	if _, err := hasher.Write(word[:]); err != nil {
		return next, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	if _, err := hasher.Read(next[:]); err != nil {
		return next, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	return next, nil
}

// previewOffset normalizes an offset table entry into a calldata position.
// Entries are relative to the first word of the table, found at base. The sum
// wraps at 256 bits so distinct claims always map to distinct positions.
func previewOffset(claim *[WordSize]byte, base uint32) *uint256.Int {
	n := new(uint256.Int).SetBytes32(claim[:])
	return n.AddUint64(n, uint64(base))
}

// valueOffset normalizes the position an inner array length word was found at.
// It is already absolute, so no base is needed.
func valueOffset(pos uint32) *uint256.Int {
	return uint256.NewInt(uint64(pos))
}
