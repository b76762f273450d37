package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need more than an HTTP status.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindStorage      Kind = "storage"
	KindPersistence  Kind = "persistence"
	KindUndo         Kind = "undo"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

type Error struct {
	Status int
	Kind   Kind
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, kind Kind, code string, err error) *Error {
	return &Error{Status: status, Kind: kind, Code: code, Err: err}
}

func Validation(code string, err error) *Error {
	return New(http.StatusBadRequest, KindValidation, code, err)
}

func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, KindNotFound, code, err)
}

func Conflict(code string, err error) *Error {
	return New(http.StatusConflict, KindConflict, code, err)
}

func Storage(code string, err error) *Error {
	return New(http.StatusBadGateway, KindStorage, code, err)
}

func Persistence(code string, err error) *Error {
	return New(http.StatusInternalServerError, KindPersistence, code, err)
}

func Undo(code string, err error) *Error {
	return New(http.StatusConflict, KindUndo, code, err)
}

func Unauthorized(code string, err error) *Error {
	return New(http.StatusUnauthorized, KindUnauthorized, code, err)
}

func Internal(code string, err error) *Error {
	return New(http.StatusInternalServerError, KindInternal, code, err)
}

func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

func IsValidation(err error) bool { return IsKind(err, KindValidation) }
func IsNotFound(err error) bool   { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool   { return IsKind(err, KindConflict) }
func IsUndo(err error) bool       { return IsKind(err, KindUndo) }

// StatusOf maps any error to an HTTP status, defaulting to 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the machine-readable code, or "internal_error".
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return "internal_error"
}
