// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package domain

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/rivo/uniseg"
)

// SubscriptionTokenLength is the number of characters in a subscription token.
const SubscriptionTokenLength = 25

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	ErrIncorrectLength = errors.New("subscription token has incorrect length")
	ErrNotAlphanumeric = errors.New("subscription token contains non-alphanumeric characters")
)

// SubscriptionToken is a validated subscription token.
// The zero value is not a valid token.
type SubscriptionToken struct {
	value string
}

// ParseSubscriptionToken validates raw as a subscription token.
//
// The character class is checked before the length, so input with a foreign
// character always reports ErrNotAlphanumeric regardless of its length. The
// length is counted in grapheme clusters.
func ParseSubscriptionToken(raw string) (SubscriptionToken, error) {
	for i := 0; i < len(raw); i++ {
		if !isASCIIAlphanumeric(raw[i]) {
			return SubscriptionToken{}, ErrNotAlphanumeric
		}
	}
	if uniseg.GraphemeClusterCount(raw) != SubscriptionTokenLength {
		return SubscriptionToken{}, ErrIncorrectLength
	}
	return SubscriptionToken{value: raw}, nil
}

// NewSubscriptionToken generates a random token from crypto/rand.
func NewSubscriptionToken() (SubscriptionToken, error) {
	buf := make([]byte, SubscriptionTokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return SubscriptionToken{}, err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return SubscriptionToken{value: string(buf)}, nil
}

// String returns the token text.
func (t SubscriptionToken) String() string {
	return t.value
}

func isASCIIAlphanumeric(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
