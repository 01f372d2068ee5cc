// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package ocv2

import "fmt"

// multiClaim(address[] exitQueues, uint256[][] ticketIds, uint32[][] caskIds)
//
// Layout for 2 exit queues, 2x2 tickets and 2x2 cask ids:
//
//	[  0] selector
//	[  4] exitQueues_offset
//	[ 36] ticketIds_offset
//	[ 68] caskIds_offset
//	[100] exitQueues_length
//	[132] exitQueues_0
//	[164] exitQueues_1
//	[196] ticketIds_length
//	[228] ticketIds_0_offset
//	[260] ticketIds_1_offset
//	[292] ticketIds_0_length
//	[324] ticketIds_0_0
//	[356] ticketIds_0_1
//	[388] ticketIds_1_length
//	[420] ticketIds_1_0
//	[452] ticketIds_1_1
//	[484] caskIds_length
//	[516] caskIds_0_offset
//	[548] caskIds_1_offset
//	[580] caskIds_0_length
//	[612] caskIds_0_0
//	[644] caskIds_0_1
//	[676] caskIds_1_length
//	[708] caskIds_1_0
//	[740] caskIds_1_1
const (
	multiClaimDone uint8 = iota
	multiClaimExitQueuesOffset
	multiClaimTicketIDsOffset
	multiClaimCaskIDsOffset

	multiClaimExitQueuesLength
	multiClaimExitQueuesItems

	multiClaimTicketIDsLength
	multiClaimTicketIDsOffsetItems
	multiClaimTicketIDsItemLength
	multiClaimTicketIDsItemItems

	multiClaimCaskIDsLength
	multiClaimCaskIDsOffsetItems
	multiClaimCaskIDsItemLength
	multiClaimCaskIDsItemItems
)

// multiClaimHeadSize is the size of the fixed head of a multiClaim call.
const multiClaimHeadSize = 3 * WordSize

type multiClaimParams struct {
	ticketIDsOffset uint32 // Position promised for the ticketIds length word
	caskIDsOffset   uint32 // Position promised for the caskIds length word

	preview Checksum // Chain of inner array positions announced by the offset table
	value   Checksum // Chain of inner array positions actually seen
	base    uint32   // Position of the offset table, inner offsets are relative to it

	parent    uint16 // Inner arrays left in the current group
	remaining uint16 // Items left in the array being consumed

	exitQueues uint16
	ticketIDs  uint16
	caskIDs    uint16
}

// nestedGroup describes the states an array of dynamic arrays walks through.
// The ticketIds and caskIds groups run the exact same algorithm.
type nestedGroup struct {
	name       string
	length     uint8 // outer length word
	offsets    uint8 // offset table entries
	itemLength uint8 // inner array length word
	items      uint8 // inner array elements
	next       uint8 // state after the group is verified
}

var (
	ticketIDsGroup = nestedGroup{
		name:       "ticketIds",
		length:     multiClaimTicketIDsLength,
		offsets:    multiClaimTicketIDsOffsetItems,
		itemLength: multiClaimTicketIDsItemLength,
		items:      multiClaimTicketIDsItemItems,
		next:       multiClaimCaskIDsLength,
	}
	caskIDsGroup = nestedGroup{
		name:       "caskIds",
		length:     multiClaimCaskIDsLength,
		offsets:    multiClaimCaskIDsOffsetItems,
		itemLength: multiClaimCaskIDsItemLength,
		items:      multiClaimCaskIDsItemItems,
		next:       multiClaimDone,
	}
)

func (dec *Decoder) decodeMultiClaim(pos uint32, word *[WordSize]byte) (Outcome, error) {
	params := &dec.multiClaim

	switch dec.state {
	case multiClaimExitQueuesOffset:
		if err := expectHeadOffset(word, multiClaimHeadSize); err != nil {
			return Rejected, err
		}
		dec.state = multiClaimTicketIDsOffset

	case multiClaimTicketIDsOffset:
		params.ticketIDsOffset = readOffset(word)
		dec.state = multiClaimCaskIDsOffset

	case multiClaimCaskIDsOffset:
		params.caskIDsOffset = readOffset(word)
		dec.state = multiClaimExitQueuesLength

	case multiClaimExitQueuesLength:
		if err := expectPosition(pos, multiClaimHeadSize+SelectorSize); err != nil {
			return Rejected, err
		}
		items, err := readLength(word)
		if err != nil {
			return Rejected, err
		}
		params.exitQueues, params.remaining = items, items
		if items == 0 {
			dec.state = multiClaimTicketIDsLength
		} else {
			dec.state = multiClaimExitQueuesItems
		}

	case multiClaimExitQueuesItems:
		// Funds are released through the exit queues, so each one must be a
		// contract we know about.
		addr, ok := readAddress(word)
		if !ok {
			return Rejected, fmt.Errorf("%w: dirty address word %#x", ErrUnknownExitQueue, word[:])
		}
		if display := DisplayAddress(addr); !IsKnownExitQueue(display) {
			return Rejected, fmt.Errorf("%w: %s", ErrUnknownExitQueue, display)
		}
		params.remaining--
		if params.remaining == 0 {
			dec.state = multiClaimTicketIDsLength
		}

	case multiClaimTicketIDsLength, multiClaimTicketIDsOffsetItems, multiClaimTicketIDsItemLength, multiClaimTicketIDsItemItems:
		return dec.decodeNested(&ticketIDsGroup, params.ticketIDsOffset, &params.ticketIDs, pos, word)

	case multiClaimCaskIDsLength, multiClaimCaskIDsOffsetItems, multiClaimCaskIDsItemLength, multiClaimCaskIDsItemItems:
		return dec.decodeNested(&caskIDsGroup, params.caskIDsOffset, &params.caskIDs, pos, word)

	default:
		return Rejected, fmt.Errorf("%w: multiClaim already complete", ErrUnexpectedWord)
	}
	return Accepted, nil
}

// decodeNested runs one word of an array of dynamic arrays. The outer length
// word must sit where the head promised; the offset table is folded into the
// preview chain and the inner array positions into the value chain, the two
// being compared once the last inner array is consumed.
func (dec *Decoder) decodeNested(group *nestedGroup, promised uint32, count *uint16, pos uint32, word *[WordSize]byte) (Outcome, error) {
	params := &dec.multiClaim

	switch dec.state {
	case group.length:
		if err := expectPosition(pos, promised); err != nil {
			return Rejected, err
		}
		items, err := readLength(word)
		if err != nil {
			return Rejected, err
		}
		*count = items

		params.preview, params.value, params.base = Checksum{}, Checksum{}, 0
		params.parent, params.remaining = items, items
		if items == 0 {
			return dec.leaveNested(group)
		}
		dec.state = group.offsets

	case group.offsets:
		if params.remaining == params.parent {
			params.base = pos
		}
		preview, err := ExtendChecksum(params.preview, previewOffset(word, params.base))
		if err != nil {
			return Rejected, err
		}
		params.preview = preview

		params.remaining--
		if params.remaining == 0 {
			dec.state = group.itemLength
		}

	case group.itemLength:
		items, err := readLength(word)
		if err != nil {
			return Rejected, err
		}
		value, err := ExtendChecksum(params.value, valueOffset(pos))
		if err != nil {
			return Rejected, err
		}
		params.value = value

		params.remaining = items
		if items == 0 {
			return dec.finishInner(group)
		}
		dec.state = group.items

	case group.items:
		params.remaining--
		if params.remaining == 0 {
			return dec.finishInner(group)
		}
	}
	return Accepted, nil
}

// finishInner is called when an inner array has been fully consumed.
func (dec *Decoder) finishInner(group *nestedGroup) (Outcome, error) {
	params := &dec.multiClaim

	params.parent--
	if params.parent > 0 {
		dec.state = group.itemLength
		return Accepted, nil
	}
	if params.preview != params.value {
		return Rejected, fmt.Errorf("%w: %s[][] offsets inconsistent", ErrChecksumMismatch, group.name)
	}
	return dec.leaveNested(group)
}

// leaveNested moves past a verified group.
func (dec *Decoder) leaveNested(group *nestedGroup) (Outcome, error) {
	dec.state = group.next
	if dec.state == multiClaimDone {
		return Complete, nil
	}
	return Accepted, nil
}
