// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package ocv2

import "fmt"

// claim(uint256[] ticketIds, uint32[] caskIds, uint16 maxClaimDepth)
//
// Layout for 2 tickets and 3 cask ids:
//
//	[  0] selector
//	[  4] ticketIds_offset
//	[ 36] caskIds_offset
//	[ 68] maxClaimDepth
//	[100] ticketIds_length
//	[132] ticketIds_0
//	[164] ticketIds_1
//	[196] caskIds_length
//	[228] caskIds_0
//	[260] caskIds_1
//	[292] caskIds_2
const (
	claimDone uint8 = iota
	claimTicketIDsOffset
	claimCaskIDsOffset
	claimMaxClaimDepth
	claimTicketIDsLength
	claimTicketIDsItems
	claimCaskIDsLength
	claimCaskIDsItems
)

// claimHeadSize is the size of the fixed head of a claim call.
const claimHeadSize = 3 * WordSize

type claimParams struct {
	caskIDsOffset uint32 // Position promised for the caskIds length word
	remaining     uint16 // Items left in the array being consumed

	ticketIDs     uint16
	caskIDs       uint16
	maxClaimDepth uint16
}

func (dec *Decoder) decodeClaim(pos uint32, word *[WordSize]byte) (Outcome, error) {
	params := &dec.claim

	switch dec.state {
	case claimTicketIDsOffset:
		if err := expectHeadOffset(word, claimHeadSize); err != nil {
			return Rejected, err
		}
		dec.state = claimCaskIDsOffset

	case claimCaskIDsOffset:
		params.caskIDsOffset = readOffset(word)
		dec.state = claimMaxClaimDepth

	case claimMaxClaimDepth:
		params.maxClaimDepth = readUint16(word)
		dec.state = claimTicketIDsLength

	case claimTicketIDsLength:
		if err := expectPosition(pos, claimHeadSize+SelectorSize); err != nil {
			return Rejected, err
		}
		items, err := readLength(word)
		if err != nil {
			return Rejected, err
		}
		params.ticketIDs, params.remaining = items, items
		if items == 0 {
			dec.state = claimCaskIDsLength
		} else {
			dec.state = claimTicketIDsItems
		}

	case claimTicketIDsItems:
		params.remaining--
		if params.remaining == 0 {
			dec.state = claimCaskIDsLength
		}

	case claimCaskIDsLength:
		if err := expectPosition(pos, params.caskIDsOffset); err != nil {
			return Rejected, err
		}
		items, err := readLength(word)
		if err != nil {
			return Rejected, err
		}
		params.caskIDs, params.remaining = items, items
		if items == 0 {
			dec.state = claimDone
			return Complete, nil
		}
		dec.state = claimCaskIDsItems

	case claimCaskIDsItems:
		params.remaining--
		if params.remaining == 0 {
			dec.state = claimDone
			return Complete, nil
		}

	default:
		return Rejected, fmt.Errorf("%w: claim already complete", ErrUnexpectedWord)
	}
	return Accepted, nil
}
