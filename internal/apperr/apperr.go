// Package apperr defines the error categories shared by the service layer.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// HTTPStatus maps an error to the status code a handler should return.
// Anything outside the known categories is an internal failure.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to return to a client for err.
// Internal failures never leak their cause.
func PublicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusUnauthorized:
		return "Authentication required"
	case http.StatusForbidden:
		return "Access denied"
	case http.StatusBadRequest, http.StatusConflict:
		return err.Error()
	default:
		return "Internal server error"
	}
}
