// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"math/big"

	"github.com/samber/oops"
)

// Alphanumeric is the alphabet used for device codes.
const Alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Default session id shape.
const (
	DefaultSessionIDAlphabet = Alphanumeric + "_-"
	DefaultSessionIDLength   = 21
)

// DeviceCodeLength is the length of a device verification code.
const DeviceCodeLength = 6

// IDGenerator produces random strings over a fixed alphabet.
type IDGenerator struct {
	alphabet []rune
	length   int
}

// NewIDGenerator validates the alphabet and length. The alphabet needs at
// least two distinct symbols.
func NewIDGenerator(alphabet string, length int) (*IDGenerator, error) {
	runes := []rune(alphabet)
	seen := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		if _, dup := seen[r]; dup {
			return nil, oops.Code("ID_ALPHABET_INVALID").With("symbol", string(r)).
				Errorf("alphabet contains duplicate symbol %q", r)
		}
		seen[r] = struct{}{}
	}
	if len(runes) < 2 {
		return nil, oops.Code("ID_ALPHABET_INVALID").Errorf("alphabet needs at least two symbols")
	}
	if length <= 0 {
		return nil, oops.Code("ID_LENGTH_INVALID").With("length", length).Errorf("length must be positive")
	}
	return &IDGenerator{alphabet: runes, length: length}, nil
}

// Generate returns a new random string.
func (g *IDGenerator) Generate() (string, error) {
	out := make([]rune, g.length)
	limit := big.NewInt(int64(len(g.alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", oops.Code("ID_RANDOM_FAILED").Wrap(err)
		}
		out[i] = g.alphabet[n.Int64()]
	}
	return string(out), nil
}

var deviceCodes = &IDGenerator{alphabet: []rune(Alphanumeric), length: DeviceCodeLength}

// GenerateDeviceCode returns a fresh six character code over [0-9A-Za-z].
func GenerateDeviceCode() (string, error) {
	return deviceCodes.Generate()
}
