package models

import (
	"errors"
	"net/http"
)

// ErrorKind classifies failures reported back to clients.
type ErrorKind string

const (
	KindImageProcessing ErrorKind = "image_processing_failed"
	KindModelSetup      ErrorKind = "model_setup_failed"
	KindDataConversion  ErrorKind = "data_conversion_failed"
	KindImageFetch      ErrorKind = "image_fetch_failed"
	KindNotFound        ErrorKind = "not_found"
)

type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func WrapError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindDataConversion, KindImageProcessing:
		return http.StatusUnprocessableEntity
	case KindImageFetch:
		return http.StatusBadGateway
	case KindModelSetup:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
