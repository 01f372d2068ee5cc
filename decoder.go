// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package ocv2

import (
	"fmt"
	"unsafe"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// MaxContextSize is the memory budget of a live decoder. The signing host hands
// out a fixed 5 word scratch area per call, decoding state may not exceed it.
const MaxContextSize = 5 * WordSize

// Compile time check that the decoder fits its budget; overflows if not.
const _ uintptr = MaxContextSize - unsafe.Sizeof(Decoder{})

// stateDone is the terminal state shared by every function's state machine.
// Any word delivered in it is unexpected.
const stateDone uint8 = 0

// Decoder validates the arguments of a single supported call, one word at a
// time, as they are streamed in by the host. It has the following behaviors:
//
//  1. The decoder never buffers. Each word is inspected when delivered and is
//     then forgotten, only a handful of counters and two checksum chains are
//     retained, independent of the size of the arrays in the call.
//
//  2. The first rejection is sticky. Any further delivery returns the same
//     error without touching the state, and so does Finish.
//
// Only the parameter block belonging to the active function is ever touched,
// the others stay zero for the lifetime of the decoder.
type Decoder struct {
	kind  Function // Function being decoded, fixed for the whole call
	state uint8    // Position in the function's state machine
	next  uint32   // Offset the next word is expected at
	err   error    // Any decoding error to halt future deliveries

	amount     uint256.Int      // requestExit parameters
	claim      claimParams      // claim parameters
	multiClaim multiClaimParams // multiClaim parameters
}

// Fields are the values extracted from a call for display.
type Fields struct {
	Amount        *uint256.Int // requestExit: shares to exit
	MaxClaimDepth uint16       // claim: maximum claim depth
	TicketIDs     uint16       // claim: ticket count; multiClaim: ticket groups
	CaskIDs       uint16       // claim: cask count; multiClaim: cask groups
	ExitQueues    uint16       // multiClaim: validated exit queues
}

// New creates a decoder for the arguments of the given function.
func New(fn Function) *Decoder {
	dec := new(Decoder)
	dec.Reset(fn)
	return dec
}

// NewFromSelector resolves a function selector and creates a decoder for it.
func NewFromSelector(selector [SelectorSize]byte) (*Decoder, error) {
	fn, err := Resolve(selector)
	if err != nil {
		return nil, err
	}
	return New(fn), nil
}

// Reset discards all state and prepares the decoder for a new call. Resetting
// to a function outside the selector table leaves the decoder rejected.
func (dec *Decoder) Reset(fn Function) {
	*dec = Decoder{kind: fn}

	switch fn {
	case FunctionStake:
	case FunctionRequestExit:
		dec.state = requestExitAmount
	case FunctionClaim:
		dec.state = claimTicketIDsOffset
	case FunctionMultiClaim:
		dec.state = multiClaimExitQueuesOffset
	default:
		dec.err = fmt.Errorf("%w: %v", ErrUnsupportedSelector, fn)
	}
}

// Function returns the function whose arguments are being decoded.
func (dec *Decoder) Function() Function {
	return dec.kind
}

// Done reports whether the call was fully and successfully decoded.
func (dec *Decoder) Done() bool {
	return dec.err == nil && dec.state == stateDone
}

// Deliver feeds the next argument word into the decoder. The offset is counted
// in bytes from the first word after the selector.
func (dec *Decoder) Deliver(offset uint32, word *[WordSize]byte) (Outcome, error) {
	if dec.err != nil {
		return Rejected, dec.err
	}
	log.Trace("Delivering calldata word", "function", dec.kind, "offset", offset, "word", hexutil.Bytes(word[:]))

	if offset != dec.next {
		return dec.reject(offset, fmt.Errorf("%w: have %d, want %d", ErrWordOutOfOrder, offset, dec.next))
	}
	dec.next += WordSize

	// Head offsets are measured from the start of the arguments, which on the
	// wire sits behind the selector. Track positions in calldata terms.
	pos := offset + SelectorSize

	var (
		outcome Outcome
		err     error
	)
	switch dec.kind {
	case FunctionStake:
		err = fmt.Errorf("%w: stake takes no arguments", ErrUnexpectedWord)
	case FunctionRequestExit:
		outcome, err = dec.decodeRequestExit(word)
	case FunctionClaim:
		outcome, err = dec.decodeClaim(pos, word)
	case FunctionMultiClaim:
		outcome, err = dec.decodeMultiClaim(pos, word)
	default:
		err = fmt.Errorf("%w: %v", ErrUnsupportedSelector, dec.kind)
	}
	if err != nil {
		return dec.reject(offset, err)
	}
	return outcome, nil
}

// Finish is called when the host runs out of words. It returns nil only if the
// call was decoded up to its terminal state.
func (dec *Decoder) Finish() error {
	if dec.err != nil {
		return dec.err
	}
	if dec.state != stateDone {
		return fmt.Errorf("%w: %v stopped at offset %d", ErrIncompleteCall, dec.kind, dec.next)
	}
	return nil
}

// Fields returns the values extracted so far.
func (dec *Decoder) Fields() Fields {
	switch dec.kind {
	case FunctionRequestExit:
		if dec.state != stateDone {
			return Fields{}
		}
		return Fields{Amount: dec.amount.Clone()}

	case FunctionClaim:
		return Fields{
			MaxClaimDepth: dec.claim.maxClaimDepth,
			TicketIDs:     dec.claim.ticketIDs,
			CaskIDs:       dec.claim.caskIDs,
		}
	case FunctionMultiClaim:
		return Fields{
			TicketIDs:  dec.multiClaim.ticketIDs,
			CaskIDs:    dec.multiClaim.caskIDs,
			ExitQueues: dec.multiClaim.exitQueues,
		}
	}
	return Fields{}
}

// reject halts the decoder with the given error.
func (dec *Decoder) reject(offset uint32, err error) (Outcome, error) {
	dec.err = err
	log.Debug("Rejected calldata word", "function", dec.kind, "offset", offset, "err", err)
	return Rejected, err
}
