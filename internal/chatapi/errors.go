// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for programmatic handling.
type ErrorType string

const (
	// ErrTypeConnection indicates the backend is unreachable.
	ErrTypeConnection ErrorType = "connection"

	// ErrTypeTimeout indicates the request or stream timed out.
	ErrTypeTimeout ErrorType = "timeout"

	// ErrTypeServer indicates the backend returned a non-2xx status.
	ErrTypeServer ErrorType = "server"

	// ErrTypeStream indicates the backend reported an error mid-stream.
	ErrTypeStream ErrorType = "stream"

	// ErrTypeInvalidInput indicates a request the client refused to send.
	ErrTypeInvalidInput ErrorType = "invalid_input"

	// ErrTypeCancelled indicates the caller cancelled the request.
	ErrTypeCancelled ErrorType = "cancelled"
)

// Sentinel errors for use with errors.Is.
var (
	ErrConnectionRefused = errors.New("backend connection refused")
	ErrTimeout           = errors.New("request timed out")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrRequestInFlight   = errors.New("a request is already in flight")
)

// ClientError is a categorized error with an optional wrapped cause.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// NewClientError creates a categorized error wrapping an optional cause.
func NewClientError(errType ErrorType, message string, cause error) *ClientError {
	return &ClientError{Type: errType, Message: message, Cause: cause}
}

// IsConnectionError reports whether err is a connection failure.
func IsConnectionError(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == ErrTypeConnection
	}
	return errors.Is(err, ErrConnectionRefused)
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsStreamError reports whether err was raised by an error frame mid-stream.
func IsStreamError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeStream
}

// UserMessage converts an error into a short message suitable for display.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConnectionError(err):
		return "Cannot reach the chatbot server. Is it running?"
	case IsTimeoutError(err):
		return "The server took too long to respond."
	case IsStreamError(err):
		var ce *ClientError
		errors.As(err, &ce)
		return ce.Message
	default:
		return err.Error()
	}
}
