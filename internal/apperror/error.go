// Package apperror classifies errors so the HTTP layer can pick a status
// code without knowing where the error came from.
package apperror

import (
	"errors"
	"sort"
	"strings"
)

// Code tells the HTTP layer which status to answer with:
//
//	CodeValidation  422
//	CodeNotFound    404
//	CodeInternal    500, message hidden from the client
type Code string

const (
	CodeValidation Code = "validation"
	CodeNotFound   Code = "not_found"
	CodeInternal   Code = "internal"
)

// Error is an error with a Code. Message is safe to show to the client.
type Error struct {
	Code    Code
	Message string
	// Fields maps an input field name to its message. Only set for
	// CodeValidation.
	Fields map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// New returns an *Error without field messages.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Validation builds a CodeValidation error from per-field messages.
// Message is every field message joined in field order so it reads the
// same on every call.
func Validation(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}

	return &Error{
		Code:    CodeValidation,
		Message: strings.Join(msgs, ", "),
		Fields:  fields,
	}
}

// GetCode finds the *Error in err's chain and returns its code. A nil
// error has no code; any other error is CodeInternal.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}

// FieldErrors returns the per-field messages carried by err, or nil.
func FieldErrors(err error) map[string]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
