// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package ocv2

import "fmt"

// requestExit(uint256 amount)
//
//	[  0] selector
//	[  4] amount
const (
	requestExitDone uint8 = iota
	requestExitAmount
)

func (dec *Decoder) decodeRequestExit(word *[WordSize]byte) (Outcome, error) {
	switch dec.state {
	case requestExitAmount:
		dec.amount.SetBytes32(word[:])
		dec.state = requestExitDone
		return Complete, nil

	default:
		return Rejected, fmt.Errorf("%w: requestExit takes a single amount", ErrUnexpectedWord)
	}
}
