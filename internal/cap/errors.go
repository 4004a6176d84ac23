package cap

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a vendor call failure
type ErrorKind string

const (
	// KindHTTP is a non-2xx response from the vendor endpoint
	KindHTTP ErrorKind = "http"
	// KindParse is a structurally unexpected response body
	KindParse ErrorKind = "parse"
	// KindValidation is a response whose values could not be interpreted
	// (e.g. an unparseable valuation date)
	KindValidation ErrorKind = "validation"
	// KindNotFound is a well-formed response reporting no data for the
	// vehicle (e.g. a lookup with Success=false)
	KindNotFound ErrorKind = "not_found"
	// KindTransport is a network-level failure before any response arrived
	KindTransport ErrorKind = "transport"
)

// VendorError represents a failure of a single vendor call
type VendorError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Body       string
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *VendorError) Error() string {
	if e == nil {
		return "unknown vendor error"
	}
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("[%s] %s: server returned status %d: %s", e.Kind, e.Op, e.StatusCode, e.Body)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Op, e.Message, e.Cause)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *VendorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewHTTPError creates an error for a non-2xx vendor response
func NewHTTPError(op string, status int, body string) *VendorError {
	return &VendorError{Kind: KindHTTP, Op: op, StatusCode: status, Body: body}
}

// NewParseError creates an error for a structurally unexpected response
func NewParseError(op, message string, cause error) *VendorError {
	return &VendorError{Kind: KindParse, Op: op, Message: message, Cause: cause}
}

// NewValidationError creates an error for an uninterpretable vendor value
func NewValidationError(op, message string, cause error) *VendorError {
	return &VendorError{Kind: KindValidation, Op: op, Message: message, Cause: cause}
}

// NewNotFoundError creates an error for a lookup the vendor reported as unsuccessful
func NewNotFoundError(op, message string) *VendorError {
	return &VendorError{Kind: KindNotFound, Op: op, Message: message}
}

// NewTransportError creates an error for a network-level failure
func NewTransportError(op string, cause error) *VendorError {
	return &VendorError{Kind: KindTransport, Op: op, Message: "request failed", Cause: cause}
}

// KindOf returns the ErrorKind of err when it is a VendorError, or "" otherwise
func KindOf(err error) ErrorKind {
	var ve *VendorError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}
