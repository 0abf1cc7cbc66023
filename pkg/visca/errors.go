// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"errors"
	"fmt"
)

// Transport errors
var (
	ErrNotConnected    = errors.New("visca: not connected")
	ErrPortUnavailable = errors.New("visca: port unavailable")
	ErrAlreadyOpen     = errors.New("visca: transport already open on another port")
	ErrTimeout         = errors.New("visca: timeout waiting for reply")
)

// Frame errors
var (
	ErrNotTerminated      = errors.New("visca: frame not terminated")
	ErrFrameTooLong       = errors.New("visca: frame too long")
	ErrPayloadLength      = errors.New("visca: payload length out of range")
	ErrEmbeddedTerminator = errors.New("visca: terminator byte inside payload")
	ErrBadHeader          = errors.New("visca: header missing top bit")
)

// Protocol errors
var (
	ErrSyntax          = errors.New("visca: syntax error")
	ErrNotExecutable   = errors.New("visca: command not executable in current mode")
	ErrBufferFull      = errors.New("visca: command buffer full")
	ErrUnexpectedReply = errors.New("visca: unexpected reply")
	ErrMalformedReply  = errors.New("visca: malformed reply")
	ErrExhausted       = errors.New("visca: retries exhausted")
)

// Catalog errors
var (
	ErrUnknownProperty = errors.New("visca: unknown property")
	ErrUnknownAction   = errors.New("visca: unknown action")
	ErrReadOnly        = errors.New("visca: property is read-only")
	ErrInvalidValue    = errors.New("visca: invalid value")
)

// ReplyError reports a handshake that ended on a reply other than the one
// expected. Err is one of the protocol sentinels; Cause is the lower level
// failure (a transport or frame error), if any.
type ReplyError struct {
	Op    Op
	Reply Reply
	Err   error
	Cause error
}

// Error implements the error interface
func (e *ReplyError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Err)
	if len(e.Reply.Raw) > 0 {
		msg += fmt.Sprintf(" (reply % X)", e.Reply.Raw)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the protocol sentinel and the cause to errors.Is.
func (e *ReplyError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Rejected reports whether err is the camera declining a well-formed
// request, as opposed to a failure of the link or the handshake.
func Rejected(err error) bool {
	return errors.Is(err, ErrSyntax) || errors.Is(err, ErrNotExecutable)
}
