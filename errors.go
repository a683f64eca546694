package goadssec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrpasztoradam/goadssec/internal/ads"
	"github.com/mrpasztoradam/goadssec/internal/secure"
	"github.com/mrpasztoradam/goadssec/internal/tlspsk"
	"github.com/mrpasztoradam/goadssec/internal/transport"
)

// ErrorCategory represents the type of error for better error handling.
type ErrorCategory int

const (
	// ErrorCategoryUnknown represents an unclassified error.
	ErrorCategoryUnknown ErrorCategory = iota

	// ErrorCategoryNetwork represents network-level errors (connection, socket I/O).
	ErrorCategoryNetwork

	// ErrorCategoryTLS represents TLS and PSK handshake errors.
	ErrorCategoryTLS

	// ErrorCategoryProtocol represents AMS framing and ConnectInfo protocol errors.
	ErrorCategoryProtocol

	// ErrorCategoryADS represents ADS device errors returned by the target.
	ErrorCategoryADS

	// ErrorCategoryValidation represents input validation errors.
	ErrorCategoryValidation

	// ErrorCategoryConfiguration represents configuration errors.
	ErrorCategoryConfiguration

	// ErrorCategoryTimeout represents connect and request timeouts.
	ErrorCategoryTimeout

	// ErrorCategoryState represents state-related errors (e.g., client not connected).
	ErrorCategoryState
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryNetwork:
		return "network"
	case ErrorCategoryTLS:
		return "tls"
	case ErrorCategoryProtocol:
		return "protocol"
	case ErrorCategoryADS:
		return "ads"
	case ErrorCategoryValidation:
		return "validation"
	case ErrorCategoryConfiguration:
		return "configuration"
	case ErrorCategoryTimeout:
		return "timeout"
	case ErrorCategoryState:
		return "state"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	Category  ErrorCategory
	Operation string // The operation that failed (e.g., "connect", "ReadState")
	Err       error
	Retryable bool // Whether the operation can be retried
	ADSError  *ads.Error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s operation failed: %v", e.Operation, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether the error indicates a retryable condition.
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError classifies an error into a category. Errors already
// classified pass through unchanged.
func ClassifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var already *ClassifiedError
	if errors.As(err, &already) {
		return err
	}

	ce := &ClassifiedError{
		Category:  ErrorCategoryUnknown,
		Operation: operation,
		Err:       err,
	}

	var adsErr ads.Error
	if errors.As(err, &adsErr) {
		ce.Category = ErrorCategoryADS
		ce.ADSError = &adsErr
		ce.Retryable = isRetryableADSError(adsErr)
		return ce
	}

	var hsErr *tlspsk.HandshakeError
	if errors.As(err, &hsErr) {
		if hsErr.Code == tlspsk.CodeHandshakeTimeout {
			ce.Category = ErrorCategoryTimeout
			ce.Retryable = true
		} else {
			ce.Category = ErrorCategoryTLS
		}
		return ce
	}

	var respErr *secure.ResponseError
	if errors.As(err, &respErr) {
		ce.Category = ErrorCategoryProtocol
		return ce
	}

	switch {
	case errors.Is(err, transport.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		ce.Category = ErrorCategoryTimeout
		ce.Retryable = true

	case errors.Is(err, transport.ErrClosed):
		ce.Category = ErrorCategoryState
		ce.Retryable = true

	default:
		ce.classifyByMessage(err.Error())
	}
	return ce
}

// classifyByMessage is the last resort for errors from layers that expose no
// typed cause.
func (e *ClassifiedError) classifyByMessage(msg string) {
	switch {
	case containsAny(msg, "connection refused", "connection reset", "broken pipe",
		"network is unreachable", "no route to host", "i/o timeout", "dial tcp"):
		e.Category = ErrorCategoryNetwork
		e.Retryable = true

	case containsAny(msg, "timeout", "deadline exceeded"):
		e.Category = ErrorCategoryTimeout
		e.Retryable = true

	case containsAny(msg, "tls:", "handshake"):
		e.Category = ErrorCategoryTLS

	case containsAny(msg, "frame", "connect info", "marshal", "unmarshal", "parse"):
		e.Category = ErrorCategoryProtocol
	}
}

func isRetryableADSError(err ads.Error) bool {
	switch err {
	case ads.ErrTargetPortNotFound, ads.ErrTargetMachineNotFound, ads.ErrDeviceBusy:
		return true
	default:
		return false
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// Common error constructors with classification.

// NewNetworkError creates a classified network error.
func NewNetworkError(operation string, err error) error {
	return &ClassifiedError{
		Category:  ErrorCategoryNetwork,
		Operation: operation,
		Err:       err,
		Retryable: true,
	}
}

// NewValidationError creates a classified validation error.
func NewValidationError(operation, message string) error {
	return &ClassifiedError{
		Category:  ErrorCategoryValidation,
		Operation: operation,
		Err:       errors.New(message),
	}
}

// NewADSError creates a classified ADS error.
func NewADSError(operation string, adsErr ads.Error) error {
	return &ClassifiedError{
		Category:  ErrorCategoryADS,
		Operation: operation,
		Err:       adsErr,
		ADSError:  &adsErr,
		Retryable: isRetryableADSError(adsErr),
	}
}

// NewStateError creates a classified state error.
func NewStateError(operation, message string) error {
	return &ClassifiedError{
		Category:  ErrorCategoryState,
		Operation: operation,
		Err:       errors.New(message),
	}
}
