package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("case 42: %w", ErrNotFound), http.StatusNotFound},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: title is required", ErrInvalidInput), http.StatusBadRequest},
		{ErrConflict, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "err=%v", tt.err)
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Resource not found", PublicMessage(fmt.Errorf("case abc: %w", ErrNotFound)))
	assert.Equal(t, "Access denied", PublicMessage(ErrForbidden))
	assert.Equal(t, "invalid input: title is required", PublicMessage(fmt.Errorf("%w: title is required", ErrInvalidInput)))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("pq: connection refused")))
}
