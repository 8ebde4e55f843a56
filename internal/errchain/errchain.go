// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package errchain wraps errors with context while keeping the cause chain
// available for diagnostics.
package errchain

import (
	"fmt"
	"log/slog"
	"strings"
)

// Error is a contextual message with an optional underlying cause.
// Error() returns only the message; Format renders the whole chain.
type Error struct {
	Msg string
	Err error
}

// Wrap returns err wrapped with msg. A nil err still yields an *Error.
func Wrap(err error, msg string) *Error {
	return &Error{Msg: msg, Err: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Format renders err followed by every underlying cause:
//
//	failed to send newsletter issue to a@example.com
//
//	Caused by:
//		sending email: dial tcp: connection refused
func Format(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(err.Error())

	writeCauses(&sb, err)

	return sb.String()
}

// writeCauses walks the tree below err depth-first. Errors joined with
// errors.Join or several %w verbs contribute every branch in order.
func writeCauses(sb *strings.Builder, err error) {
	var causes []error
	switch u := err.(type) { //nolint:errorlint // inspecting the direct wrapper only
	case interface{ Unwrap() error }:
		causes = []error{u.Unwrap()}
	case interface{ Unwrap() []error }:
		causes = u.Unwrap()
	}

	for _, cause := range causes {
		if cause == nil {
			continue
		}
		sb.WriteString("\n\nCaused by:\n\t")
		sb.WriteString(cause.Error())
		writeCauses(sb, cause)
	}
}

// Attr returns a slog attribute carrying the formatted chain.
func Attr(err error) slog.Attr {
	return slog.String("error.cause_chain", Format(err))
}
