package passes

import "fmt"

type ErrorReason string

const (
	REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL ErrorReason = "FAILED_TO_TRANSLATE_TO_DB_MODEL"
	REASON_FAILED_TO_WRITE                 ErrorReason = "FAILED_TO_WRITE"
	REASON_PASS_DOES_NOT_EXIST             ErrorReason = "PASS_DOES_NOT_EXIST"
	REASON_PASS_ALREADY_EXISTS             ErrorReason = "PASS_ALREADY_EXISTS"
	REASON_FAILED_TO_FETCH                 ErrorReason = "FAILED_TO_FETCH"
	REASON_TIMEOUT                         ErrorReason = "TIMEOUT"
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

func newPassError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewFailedToWriteError(message string, cause error) *Error {
	return newPassError(REASON_FAILED_TO_WRITE, message, cause)
}

func NewFailedToTranslateToDBModelError(message string, cause error) *Error {
	return newPassError(REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL, message, cause)
}

func NewPassDoesNotExistError(message string, cause error) *Error {
	return newPassError(REASON_PASS_DOES_NOT_EXIST, message, cause)
}

func NewPassAlreadyExistsError(message string, cause error) *Error {
	return newPassError(REASON_PASS_ALREADY_EXISTS, message, cause)
}

func NewFailedToFetchError(message string, cause error) *Error {
	return newPassError(REASON_FAILED_TO_FETCH, message, cause)
}

func NewTimeoutError(message string) *Error {
	return newPassError(REASON_TIMEOUT, message, nil)
}
