// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package ocv2

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// innerLayouts enumerates every inner length combination for outer counts of
// 0 to 3 and inner counts of 0 to 3.
func innerLayouts() [][]int {
	layouts := [][]int{{}}
	for outer := 1; outer <= 3; outer++ {
		layout := make([]int, outer)
		for {
			layouts = append(layouts, append([]int(nil), layout...))

			i := 0
			for ; i < outer; i++ {
				if layout[i]++; layout[i] <= 3 {
					break
				}
				layout[i] = 0
			}
			if i == outer {
				break
			}
		}
	}
	return layouts
}

// multiClaimLayout locates the interesting words of a multiClaim call.
type multiClaimLayout struct {
	ticketIDsLength int // index of the ticketIds outer length word
	caskIDsLength   int // index of the caskIds outer length word
	words           int // total number of argument words
}

func locateMultiClaim(calldata []byte) multiClaimLayout {
	return multiClaimLayout{
		ticketIDsLength: int(wordAt(calldata, 1) / WordSize),
		caskIDsLength:   int(wordAt(calldata, 2) / WordSize),
		words:           (len(calldata) - SelectorSize) / WordSize,
	}
}

// Tests that honestly encoded multiClaims of every small shape are accepted and
// complete on their last word.
func TestMultiClaim(t *testing.T) {
	queues := []common.Address{kilnExitQueue, coinbaseExitQueue}

	for _, tickets := range innerLayouts() {
		for _, casks := range [][]int{{}, {0}, {2, 1}} {
			calldata := pack(t, "multiClaim", queues, makeTicketIDs(tickets...), makeCaskIDs(casks...))

			outs, dec := outcomes(t, calldata)
			for i, out := range outs[:len(outs)-1] {
				if out != Accepted {
					t.Fatalf("tickets %v, casks %v: word %d outcome mismatch: have %v, want %v", tickets, casks, i, out, Accepted)
				}
			}
			if out := outs[len(outs)-1]; out != Complete {
				t.Fatalf("tickets %v, casks %v: last word outcome mismatch: have %v, want %v", tickets, casks, out, Complete)
			}
			if err := dec.Finish(); err != nil {
				t.Fatalf("tickets %v, casks %v: failed to finish: %v", tickets, casks, err)
			}
			fields := dec.Fields()
			if fields.ExitQueues != 2 || fields.TicketIDs != uint16(len(tickets)) || fields.CaskIDs != uint16(len(casks)) {
				t.Fatalf("tickets %v, casks %v: fields mismatch: have %+v", tickets, casks, fields)
			}
		}
	}
}

// Tests that an empty multiClaim needs nothing beyond the head and the three
// zero lengths.
func TestMultiClaimEmpty(t *testing.T) {
	calldata := pack(t, "multiClaim", []common.Address{}, makeTicketIDs(), makeCaskIDs())

	outs, _ := outcomes(t, calldata)
	if len(outs) != 6 {
		t.Fatalf("word count mismatch: have %d, want %d", len(outs), 6)
	}
	if outs[5] != Complete {
		t.Fatalf("last word outcome mismatch: have %v, want %v", outs[5], Complete)
	}
}

// Tests that any exit queue not on the allow-list is rejected on the very word
// carrying it, wherever it sits in the array.
func TestMultiClaimUnknownExitQueue(t *testing.T) {
	rogue := common.HexToAddress("0x1111111111111111111111111111111111111111")

	for n := 1; n <= 3; n++ {
		for pos := 0; pos < n; pos++ {
			queues := make([]common.Address, n)
			for i := range queues {
				queues[i] = kilnExitQueue
			}
			queues[pos] = rogue

			calldata := pack(t, "multiClaim", queues, makeTicketIDs(1), makeCaskIDs(1))
			words, err := deliverAll(New(FunctionMultiClaim), calldata)
			if !errors.Is(err, ErrUnknownExitQueue) {
				t.Fatalf("queues %d, rogue at %d: error mismatch: have %v, want %v", n, pos, err, ErrUnknownExitQueue)
			}
			if want := 4 + pos; words != want {
				t.Fatalf("queues %d, rogue at %d: failing word mismatch: have %d, want %d", n, pos, words, want)
			}
		}
	}
}

// Tests that an allow-listed address with garbage in its padding is rejected.
func TestMultiClaimDirtyExitQueue(t *testing.T) {
	calldata := pack(t, "multiClaim", []common.Address{kilnExitQueue}, makeTicketIDs(1), makeCaskIDs(1))
	calldata[SelectorSize+4*WordSize] = 0x01

	if words, err := deliverAll(New(FunctionMultiClaim), calldata); !errors.Is(err, ErrUnknownExitQueue) || words != 4 {
		t.Fatalf("have %v at word %d, want %v at word 4", err, words, ErrUnknownExitQueue)
	}
}

// Tests that changing any single inner offset claim of either nested array,
// without moving the inner arrays themselves, is always caught by the checksum
// at the end of that array's group.
func TestMultiClaimChecksumTampering(t *testing.T) {
	deltas := []int64{1, -1, WordSize, -WordSize, 1 << 20}

	for _, tickets := range innerLayouts() {
		for _, casks := range [][]int{{1}, {0, 2}} {
			calldata := pack(t, "multiClaim", []common.Address{coinbaseExitQueue}, makeTicketIDs(tickets...), makeCaskIDs(casks...))
			layout := locateMultiClaim(calldata)

			groups := []struct {
				name   string
				length int // index of the outer length word
				end    int // index of the word closing the group
			}{
				{"ticketIds", layout.ticketIDsLength, layout.caskIDsLength - 1},
				{"caskIds", layout.caskIDsLength, layout.words - 1},
			}
			for _, group := range groups {
				outer := int(wordAt(calldata, group.length))
				for claim := 0; claim < outer; claim++ {
					index := group.length + 1 + claim
					for _, delta := range deltas {
						name := fmt.Sprintf("tickets %v, casks %v, %s claim %d, delta %d", tickets, casks, group.name, claim, delta)

						tampered := setWord(calldata, index, uint64(int64(wordAt(calldata, index))+delta))
						words, err := deliverAll(New(FunctionMultiClaim), tampered)
						if !errors.Is(err, ErrChecksumMismatch) {
							t.Fatalf("%s: error mismatch: have %v, want %v", name, err, ErrChecksumMismatch)
						}
						if words != group.end {
							t.Fatalf("%s: failing word mismatch: have %d, want %d", name, words, group.end)
						}
					}
				}
			}
		}
	}
}

// Tests that swapping two claims is caught too, the chains being order sensitive.
func TestMultiClaimChecksumReordering(t *testing.T) {
	calldata := pack(t, "multiClaim", []common.Address{kilnExitQueue}, makeTicketIDs(1, 2), makeCaskIDs(1))
	layout := locateMultiClaim(calldata)

	first, second := layout.ticketIDsLength+1, layout.ticketIDsLength+2
	swapped := setWord(setWord(calldata, first, wordAt(calldata, second)), second, wordAt(calldata, first))

	if words, err := deliverAll(New(FunctionMultiClaim), swapped); !errors.Is(err, ErrChecksumMismatch) || words != layout.caskIDsLength-1 {
		t.Fatalf("have %v at word %d, want %v at word %d", err, words, ErrChecksumMismatch, layout.caskIDsLength-1)
	}
}

// Tests that the head offsets of the nested arrays are verified against the
// position their outer length words are found at.
func TestMultiClaimOffsetTampering(t *testing.T) {
	calldata := pack(t, "multiClaim", []common.Address{kilnExitQueue}, makeTicketIDs(2, 1), makeCaskIDs(1, 1))
	layout := locateMultiClaim(calldata)

	tests := []struct {
		head   int
		length int
	}{
		{1, layout.ticketIDsLength},
		{2, layout.caskIDsLength},
	}
	for _, tt := range tests {
		for _, delta := range []int64{-WordSize, WordSize, 4} {
			tampered := setWord(calldata, tt.head, uint64(int64(wordAt(calldata, tt.head))+delta))

			words, err := deliverAll(New(FunctionMultiClaim), tampered)
			if !errors.Is(err, ErrOffsetMismatch) || words != tt.length {
				t.Fatalf("head %d, delta %d: have %v at word %d, want %v at word %d", tt.head, delta, err, words, ErrOffsetMismatch, tt.length)
			}
		}
	}
	// The exit queue offset is fixed by the layout
	if words, err := deliverAll(New(FunctionMultiClaim), setWord(calldata, 0, 4*WordSize)); !errors.Is(err, ErrMalformedOffset) || words != 0 {
		t.Fatalf("exit queue offset: have %v at word %d, want %v at word 0", err, words, ErrMalformedOffset)
	}
}

// Tests that head offsets too large for any call fail where the section they
// point to should have started.
func TestMultiClaimHugeOffset(t *testing.T) {
	calldata := pack(t, "multiClaim", []common.Address{kilnExitQueue}, makeTicketIDs(1, 2), makeCaskIDs(2))
	layout := locateMultiClaim(calldata)

	tests := []struct {
		head   int
		length int
	}{
		{1, layout.ticketIDsLength},
		{2, layout.caskIDsLength},
	}
	for _, tt := range tests {
		for _, tampered := range [][]byte{setWord(calldata, tt.head, 0xfffc), setWord(calldata, tt.head, 1<<40), fillWord(calldata, tt.head, 0xff)} {
			words, err := deliverAll(New(FunctionMultiClaim), tampered)
			if !errors.Is(err, ErrOffsetMismatch) || words != tt.length {
				t.Fatalf("head %d: have %v at word %d, want %v at word %d", tt.head, err, words, ErrOffsetMismatch, tt.length)
			}
		}
	}
}

// Tests that an outer count of zero followed by stray offset claims cannot be
// accepted: the stray words land where the next section should start.
func TestMultiClaimZeroOuterWithClaims(t *testing.T) {
	calldata := pack(t, "multiClaim", []common.Address{kilnExitQueue}, makeTicketIDs(1), makeCaskIDs(1))
	layout := locateMultiClaim(calldata)

	tampered := setWord(calldata, layout.ticketIDsLength, 0)
	if words, err := deliverAll(New(FunctionMultiClaim), tampered); !errors.Is(err, ErrOffsetMismatch) || words != layout.ticketIDsLength+1 {
		t.Fatalf("ticketIds: have %v at word %d, want %v at word %d", err, words, ErrOffsetMismatch, layout.ticketIDsLength+1)
	}
	tampered = setWord(calldata, layout.caskIDsLength, 0)
	if words, err := deliverAll(New(FunctionMultiClaim), tampered); !errors.Is(err, ErrUnexpectedWord) || words != layout.caskIDsLength+1 {
		t.Fatalf("caskIds: have %v at word %d, want %v at word %d", err, words, ErrUnexpectedWord, layout.caskIDsLength+1)
	}
}

// Tests the multiClaim produced by the reference integration suite.
func TestMultiClaimReference(t *testing.T) {
	calldata := pack(t, "multiClaim",
		[]common.Address{coinbaseExitQueue, kilnExitQueue},
		makeTicketIDs(2, 2),
		[][]uint32{{0, 1}, {0, 1}},
	)
	dec, err := DecodeFromBytes(calldata)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !dec.Done() {
		t.Fatalf("decoder not done")
	}
	if have := len(calldata) - SelectorSize; have != 24*WordSize {
		t.Fatalf("calldata size mismatch: have %d, want %d", have, 24*WordSize)
	}
}
