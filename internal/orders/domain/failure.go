package domain

import (
	"errors"
	"fmt"
)

// Code is a public error code returned to callers of the order service.
type Code string

const (
	CodeInvalidMobile         Code = "INVALID_MOBILE"
	CodeMessageTooLong        Code = "MESSAGE_TOO_LONG"
	CodeParseError            Code = "PARSE_ERROR"
	CodeTooManyItems          Code = "TOO_MANY_ITEMS"
	CodeUnknownItem           Code = "UNKNOWN_ITEM"
	CodeInvalidQuantity       Code = "INVALID_QUANTITY"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeOrderNotFound         Code = "ORDER_NOT_FOUND"
	CodeOrderAlreadyFulfilled Code = "ORDER_ALREADY_FULFILLED"
	CodeDatabaseError         Code = "DATABASE_ERROR"
	CodeInternalError         Code = "INTERNAL_ERROR"
)

// IsClientInput reports whether the code describes bad caller input.
func (c Code) IsClientInput() bool {
	switch c {
	case CodeInvalidMobile, CodeMessageTooLong, CodeParseError,
		CodeTooManyItems, CodeUnknownItem, CodeInvalidQuantity:
		return true
	default:
		return false
	}
}

// Failure is a typed, user-facing error carrying a code and optional details.
type Failure struct {
	Code    Code
	Message string
	Details map[string]any
}

// NewFailure constructs a Failure.
func NewFailure(code Code, message string, details map[string]any) *Failure {
	return &Failure{Code: code, Message: message, Details: details}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// AsFailure extracts a Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}
