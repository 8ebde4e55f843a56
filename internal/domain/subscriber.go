// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package domain holds validated value types for subscribers and tokens.
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rivo/uniseg"
)

// MaxNameLength is the maximum subscriber name length in grapheme clusters.
const MaxNameLength = 256

const forbiddenNameChars = `/()"<>\{}`

var (
	ErrInvalidEmail = errors.New("invalid subscriber email")
	ErrInvalidName  = errors.New("invalid subscriber name")
)

var validate = validator.New()

// SubscriberEmail is a syntactically valid email address.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail validates raw as an email address.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	if err := validate.Var(raw, "required,email"); err != nil {
		return SubscriberEmail{}, fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return SubscriberEmail{value: raw}, nil
}

func (e SubscriberEmail) String() string {
	return e.value
}

// SubscriberName is a non-empty display name without markup characters.
type SubscriberName struct {
	value string
}

// ParseSubscriberName validates raw as a subscriber name.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	switch {
	case strings.TrimSpace(raw) == "":
		return SubscriberName{}, fmt.Errorf("%w: empty", ErrInvalidName)
	case uniseg.GraphemeClusterCount(raw) > MaxNameLength:
		return SubscriberName{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	case strings.ContainsAny(raw, forbiddenNameChars):
		return SubscriberName{}, fmt.Errorf("%w: %q contains forbidden characters", ErrInvalidName, raw)
	}
	return SubscriberName{value: raw}, nil
}

func (n SubscriberName) String() string {
	return n.value
}
