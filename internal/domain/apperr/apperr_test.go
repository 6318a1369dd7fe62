package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{fmt.Errorf("%w: quantity must be positive", ErrValidation), "validation_error", http.StatusBadRequest},
		{fmt.Errorf("%w: buyer not found", ErrNotFound), "not_found", http.StatusNotFound},
		{fmt.Errorf("%w: not your transaction", ErrUnauthorized), "unauthorized", http.StatusForbidden},
		{fmt.Errorf("%w from pending to delivered", ErrInvalidTransition), "invalid_transition", http.StatusBadRequest},
		{ErrConflict, "conflict", http.StatusConflict},
		{errors.New("boom"), "internal", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, Code(tc.err), tc.err.Error())
		assert.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
	}

	assert.False(t, Exposed(errors.New("db down")))
	assert.True(t, Exposed(ErrNotFound))
}

func TestNewKeepsMessageAndKind(t *testing.T) {
	err := New(ErrNotFound, "buyer %s not found", "b-1")

	assert.Equal(t, "buyer b-1 not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("lookup: %w", err)))
}
