package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes returned in the "error" field of failed JSON responses.
const (
	CodeAuth          = "auth_error"
	CodeNotFound      = "not_found"
	CodeValidation    = "validation_error"
	CodeUnauthorized  = "unauthorized"
	CodeUpstreamModel = "upstream_model_error"
	CodePersistence   = "persistence_error"
)

type Error struct {
	Status int
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
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so errors.Is(err, apierr.ErrNotFound) works
// on wrapped values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Err == nil && t.Code == e.Code
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Sentinels for errors.Is.
var (
	ErrAuth          = &Error{Status: http.StatusUnauthorized, Code: CodeAuth}
	ErrNotFound      = &Error{Status: http.StatusNotFound, Code: CodeNotFound}
	ErrValidation    = &Error{Status: http.StatusBadRequest, Code: CodeValidation}
	ErrUnauthorized  = &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized}
	ErrUpstreamModel = &Error{Status: http.StatusBadGateway, Code: CodeUpstreamModel}
	ErrPersistence   = &Error{Status: http.StatusInternalServerError, Code: CodePersistence}
)

func Auth(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, CodeAuth, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Errorf(format, args...))
}

func UpstreamModel(err error) *Error {
	return New(http.StatusBadGateway, CodeUpstreamModel, err)
}

func Persistence(err error) *Error {
	return New(http.StatusInternalServerError, CodePersistence, err)
}
