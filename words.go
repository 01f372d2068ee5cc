// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package ocv2

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// WordSize is the width of a single ABI encoded argument slot.
const WordSize = 32

// addressPadding is the number of zero bytes preceding an address in a word.
const addressPadding = WordSize - common.AddressLength

// readLength parses an array length. Lengths are bounded to 16 bits, anything
// larger could never fit into a transaction the host is willing to sign.
func readLength(word *[WordSize]byte) (uint16, error) {
	var n uint256.Int
	n.SetBytes32(word[:])

	if !n.IsUint64() || n.Uint64() > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %#x", ErrMalformedLength, word[:])
	}
	return uint16(n.Uint64()), nil
}

// unreachablePosition is a calldata position no word is ever delivered at, as
// delivered words sit at SelectorSize past a multiple of WordSize.
const unreachablePosition = math.MaxUint32

// readOffset parses a head offset and converts it into a calldata position by
// adding the selector width in front of the argument area. Offsets too large to
// be tracked collapse onto unreachablePosition and fail at the section start.
func readOffset(word *[WordSize]byte) uint32 {
	var n uint256.Int
	n.SetBytes32(word[:])

	if !n.IsUint64() || n.Uint64() > unreachablePosition-SelectorSize {
		return unreachablePosition
	}
	return uint32(n.Uint64()) + SelectorSize
}

// expectHeadOffset checks that the first head offset points right past the
// fixed head of size bytes.
func expectHeadOffset(word *[WordSize]byte, size uint16) error {
	var n uint256.Int
	n.SetBytes32(word[:])

	if !n.IsUint64() || n.Uint64() != uint64(size) {
		return fmt.Errorf("%w: have %#x, want %d", ErrMalformedOffset, word[:], size)
	}
	return nil
}

// expectPosition checks that a dynamic section starts where its head offset
// promised it would.
func expectPosition(pos uint32, promised uint32) error {
	if pos != promised {
		if promised == unreachablePosition {
			return fmt.Errorf("%w: section at %d, head promised out of range offset", ErrOffsetMismatch, pos)
		}
		return fmt.Errorf("%w: section at %d, head promised %d", ErrOffsetMismatch, pos, promised)
	}
	return nil
}

// readUint16 extracts the low 16 bits of a word.
func readUint16(word *[WordSize]byte) uint16 {
	return uint16(word[WordSize-2])<<8 | uint16(word[WordSize-1])
}

// readAddress extracts an address from a word, reporting whether the padding
// in front of it was clean.
func readAddress(word *[WordSize]byte) (common.Address, bool) {
	for _, b := range word[:addressPadding] {
		if b != 0 {
			return common.Address{}, false
		}
	}
	return common.BytesToAddress(word[addressPadding:]), true
}
