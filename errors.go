// ocv2: Streaming calldata validator for Kiln on-chain v2 staking
// Copyright 2024 ocv2 Authors
// SPDX-License-Identifier: BSD-3-Clause

package ocv2

import "errors"

// ErrUnsupportedSelector is returned when the leading 4 bytes of a call do not
// match any of the supported function selectors.
var ErrUnsupportedSelector = errors.New("ocv2: unsupported selector")

// ErrUnexpectedWord is returned when a word is delivered to a decoder that has
// already reached its terminal state (or, for stake, takes no words at all).
var ErrUnexpectedWord = errors.New("ocv2: unexpected word")

// ErrMalformedOffset is returned when a head offset does not match the fixed
// layout position the function requires, or does not fit the offset width.
var ErrMalformedOffset = errors.New("ocv2: malformed offset")

// ErrOffsetMismatch is returned when a dynamic section starts at a position
// different from the one its head offset promised.
var ErrOffsetMismatch = errors.New("ocv2: offset mismatch")

// ErrChecksumMismatch is returned when the inner array offsets announced in a
// nested array's offset table disagree with where the inner arrays were found.
var ErrChecksumMismatch = errors.New("ocv2: checksum mismatch")

// ErrUnknownExitQueue is returned when a multiClaim exit queue is not on the
// allow-list of known exit queue contracts.
var ErrUnknownExitQueue = errors.New("ocv2: unknown exit queue address")

// ErrCryptoFailure is returned if the keccak primitive fails to absorb or emit
// data while extending a checksum chain.
var ErrCryptoFailure = errors.New("ocv2: keccak failure")

// ErrWordOutOfOrder is returned when a word is delivered at an offset other
// than the one directly following the previous word.
var ErrWordOutOfOrder = errors.New("ocv2: word out of order")

// ErrMalformedLength is returned when an array length word is not a canonical
// 16 bit integer.
var ErrMalformedLength = errors.New("ocv2: malformed array length")

// ErrIncompleteCall is returned when the word stream ends before the decoder
// reached its terminal state.
var ErrIncompleteCall = errors.New("ocv2: incomplete call")
