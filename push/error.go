package push

import (
	"errors"
	"fmt"
)

type ErrorReason string

const (
	// REASON_TOKEN_INVALID is a permanent failure: the push network
	// reported the token as unregistered or malformed. Never retried.
	REASON_TOKEN_INVALID ErrorReason = "TOKEN_INVALID"
	// REASON_DELIVERY_FAILED is a transient failure: network trouble or a
	// retryable rejection. The next trigger cycle retries naturally.
	REASON_DELIVERY_FAILED ErrorReason = "DELIVERY_FAILED"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewTokenInvalidError(message string, cause error) *Error {
	return &Error{
		Reason:  REASON_TOKEN_INVALID,
		Message: message,
		Cause:   cause,
	}
}

func NewDeliveryFailedError(message string, cause error) *Error {
	return &Error{
		Reason:  REASON_DELIVERY_FAILED,
		Message: message,
		Cause:   cause,
	}
}

// IsPermanent reports whether err means the token should be deactivated
// rather than retried.
func IsPermanent(err error) bool {
	var pushErr *Error
	if !errors.As(err, &pushErr) {
		return false
	}
	return pushErr.Reason == REASON_TOKEN_INVALID
}
