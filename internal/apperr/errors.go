package apperr

import (
	"errors"
	"fmt"
)

// Code identifies an error kind independently of its message.
type Code string

const (
	CodeInvalidCurrencyCode   Code = "INVALID_CURRENCY_CODE"
	CodeInvalidAmountFormat   Code = "INVALID_AMOUNT_FORMAT"
	CodeNonIntegralMinorUnits Code = "NON_INTEGRAL_MINOR_UNITS"
	CodeUnknownVariant        Code = "UNKNOWN_VARIANT"
	CodeDecodeFailure         Code = "DECODE_FAILURE"
	CodeEmptyMessage          Code = "EMPTY_MESSAGE"
	CodeConnectionClosed      Code = "CONNECTION_CLOSED"
	CodeIO                    Code = "IO_FAILURE"
	CodeNotReady              Code = "NOT_READY"
	CodeBusy                  Code = "BUSY"
)

// Error is a coded error. Two errors match under errors.Is when their codes match.
type Error struct {
	Code    Code
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error around err.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Sentinels for errors.Is.
var (
	ErrInvalidCurrencyCode   = New(CodeInvalidCurrencyCode, "invalid currency code")
	ErrInvalidAmountFormat   = New(CodeInvalidAmountFormat, "invalid amount format")
	ErrNonIntegralMinorUnits = New(CodeNonIntegralMinorUnits, "amount is not a whole number of minor units")
	ErrUnknownVariant        = New(CodeUnknownVariant, "unknown variant")
	ErrDecodeFailure         = New(CodeDecodeFailure, "decode failure")
	ErrEmptyMessage          = New(CodeEmptyMessage, "empty message")
	ErrConnectionClosed      = New(CodeConnectionClosed, "connection closed")
	ErrIO                    = New(CodeIO, "i/o failure")
	ErrNotReady              = New(CodeNotReady, "session not ready")
	ErrBusy                  = New(CodeBusy, "request already in flight")
)
