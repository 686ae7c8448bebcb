// Package bridgeerr defines the Bridge's error taxonomy: every failure
// inside the /call pipeline maps to exactly one of these taxa, each with a
// stable code and HTTP status, mirroring the original Bridge's
// BridgeError enum.
package bridgeerr

import (
	"errors"
	"net/http"
)

// Taxon is one of the seven error categories named in the error-handling
// design: BadRequest, Unauthorized, Forbidden, NotFound, TooManyRequests,
// Internal, plus the zero value for "not a BridgeError".
type Taxon string

const (
	TaxonBadRequest      Taxon = "BAD_REQUEST"
	TaxonUnauthorized    Taxon = "UNAUTHORIZED"
	TaxonForbidden       Taxon = "FORBIDDEN"
	TaxonNotFound        Taxon = "NOT_FOUND"
	TaxonTooManyRequests Taxon = "TOO_MANY_REQUESTS"
	TaxonInternal        Taxon = "INTERNAL_ERROR"
)

// Error is a Bridge pipeline error carrying its taxon, a stable machine
// code, and a human message. It implements error and is the only error
// type /call handlers are expected to return.
type Error struct {
	Taxon   Taxon
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Status maps a taxon to its HTTP status code.
func (e *Error) Status() int {
	switch e.Taxon {
	case TaxonBadRequest:
		return http.StatusBadRequest
	case TaxonUnauthorized:
		return http.StatusUnauthorized
	case TaxonForbidden:
		return http.StatusForbidden
	case TaxonNotFound:
		return http.StatusNotFound
	case TaxonTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func BadRequest(code, message string) *Error {
	return &Error{Taxon: TaxonBadRequest, Code: code, Message: message}
}

func Unauthorized(code, message string) *Error {
	return &Error{Taxon: TaxonUnauthorized, Code: code, Message: message}
}

func Forbidden(code, message string) *Error {
	return &Error{Taxon: TaxonForbidden, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Taxon: TaxonNotFound, Code: code, Message: message}
}

func TooManyRequests(code, message string) *Error {
	return &Error{Taxon: TaxonTooManyRequests, Code: code, Message: message}
}

func Internal(code, message string) *Error {
	return &Error{Taxon: TaxonInternal, Code: code, Message: message}
}

// As extracts a *Error from err, returning (nil, false) for anything else.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
