// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package ocv2

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SelectorSize is the width of the function selector preceding the arguments.
const SelectorSize = 4

// Function is an enum of the contract calls the decoders understand.
type Function uint8

const (
	FunctionStake       Function = iota // stake()
	FunctionRequestExit                 // requestExit(uint256)
	FunctionMultiClaim                  // multiClaim(address[],uint256[][],uint32[][])
	FunctionClaim                       // claim(uint256[],uint32[],uint16)
)

// functionInfos is the static selector table, indexed by Function.
var functionInfos = [...]struct {
	name      string
	signature string
	selector  [SelectorSize]byte
}{
	FunctionStake:       {"stake", "stake()", [4]byte{0x3a, 0x4b, 0x66, 0xf1}},
	FunctionRequestExit: {"requestExit", "requestExit(uint256)", [4]byte{0x72, 0x1c, 0x65, 0x13}},
	FunctionMultiClaim:  {"multiClaim", "multiClaim(address[],uint256[][],uint32[][])", [4]byte{0xb7, 0xba, 0x18, 0xc7}},
	FunctionClaim:       {"claim", "claim(uint256[],uint32[],uint16)", [4]byte{0xad, 0xcf, 0x11, 0x63}},
}

// String implements fmt.Stringer.
func (fn Function) String() string {
	if int(fn) < len(functionInfos) {
		return functionInfos[fn].name
	}
	return fmt.Sprintf("function(%d)", uint8(fn))
}

// Signature returns the canonical solidity signature the selector is derived
// from.
func (fn Function) Signature() string {
	if int(fn) < len(functionInfos) {
		return functionInfos[fn].signature
	}
	return ""
}

// Selector returns the 4 byte selector of a supported function.
func Selector(fn Function) [SelectorSize]byte {
	if int(fn) < len(functionInfos) {
		return functionInfos[fn].selector
	}
	return [SelectorSize]byte{}
}

// Resolve maps a function selector onto one of the supported functions.
func Resolve(selector [SelectorSize]byte) (Function, error) {
	for fn, info := range functionInfos {
		if info.selector == selector {
			return Function(fn), nil
		}
	}
	return 0, fmt.Errorf("%w: %#x", ErrUnsupportedSelector, selector)
}

// exitQueues is the allow-list of exit queue contracts a multiClaim may route
// funds through, in EIP-55 display form.
var exitQueues = [...]string{
	canonicalAddress("0x8d6Fd650500f82c7D978a440348e5a9b886943bF"), // Kiln
	canonicalAddress("0x86358F7B33b599c484e0335B8Ee4f7f7f92d8b60"), // Coinbase
}

// ExitQueues returns a copy of the exit queue allow-list.
func ExitQueues() []string {
	return append([]string(nil), exitQueues[:]...)
}

// DisplayAddress converts a raw address into the checksummed form shown to
// the user and used for allow-list comparisons.
func DisplayAddress(addr common.Address) string {
	return addr.Hex()
}

// IsKnownExitQueue reports whether addr names an allow-listed exit queue. Any
// hex casing is accepted, comparison is done on the EIP-55 form.
func IsKnownExitQueue(addr string) bool {
	if !common.IsHexAddress(addr) {
		return false
	}
	addr = canonicalAddress(addr)
	for _, queue := range exitQueues {
		if queue == addr {
			return true
		}
	}
	return false
}

func canonicalAddress(addr string) string {
	return DisplayAddress(common.HexToAddress(addr))
}
