// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ocv2 validates the calldata of Kiln on-chain v2 staking calls as it
// is streamed in, word by word, under a fixed memory budget.
//
// Four calls are understood: stake(), requestExit(uint256), claim(uint256[],
// uint32[],uint16) and multiClaim(address[],uint256[][],uint32[][]). Each word
// is checked against the ABI layout of the call, every dynamic section has to
// start where its head offset promised, and the offset tables of the nested
// arrays are verified with keccak checksum chains instead of being stored.
package ocv2

import (
	"errors"
	"fmt"
	"io"
)

// Outcome is the verdict of the decoder on a single delivered word.
type Outcome uint8

const (
	Accepted Outcome = iota // Word is consistent, more words are expected
	Rejected                // Call is malformed, no further words are processed
	Complete                // Word is consistent and ends the call
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// DecodeFromBytes validates a complete calldata blob, selector included. The
// decoder is returned even on failure so the caller may inspect it, unless the
// selector itself could not be resolved.
func DecodeFromBytes(calldata []byte) (*Decoder, error) {
	return DecodeFromBytesTraced(calldata, nil)
}

// TraceFunc is notified of the verdict on every delivered word.
type TraceFunc func(offset uint32, word *[WordSize]byte, outcome Outcome)

// DecodeFromBytesTraced is DecodeFromBytes, additionally reporting the verdict
// on each word to trace, if set, as it is delivered.
func DecodeFromBytesTraced(calldata []byte, trace TraceFunc) (*Decoder, error) {
	if len(calldata) < SelectorSize {
		return nil, io.ErrUnexpectedEOF
	}
	dec, err := NewFromSelector([SelectorSize]byte(calldata[:SelectorSize]))
	if err != nil {
		return nil, err
	}
	args := calldata[SelectorSize:]
	for offset := 0; offset < len(args); offset += WordSize {
		if len(args)-offset < WordSize {
			return dec, io.ErrUnexpectedEOF
		}
		word := (*[WordSize]byte)(args[offset:])

		outcome, err := dec.Deliver(uint32(offset), word)
		if trace != nil {
			trace(uint32(offset), word, outcome)
		}
		if err != nil {
			return dec, err
		}
	}
	return dec, dec.Finish()
}

// DecodeFromStream validates calldata read from a stream, one word at a time,
// without ever holding more than a single word in memory.
func DecodeFromStream(r io.Reader) (*Decoder, error) {
	var selector [SelectorSize]byte
	if _, err := io.ReadFull(r, selector[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	dec, err := NewFromSelector(selector)
	if err != nil {
		return nil, err
	}
	var word [WordSize]byte
	for offset := uint32(0); ; offset += WordSize {
		if _, err := io.ReadFull(r, word[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return dec, err
		}
		if _, err := dec.Deliver(offset, &word); err != nil {
			return dec, err
		}
	}
	return dec, dec.Finish()
}
