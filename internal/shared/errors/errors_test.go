package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"wrapped not found", fmt.Errorf("load booking: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped forbidden", fmt.Errorf("%w: not your ledger", ErrForbidden), http.StatusForbidden},
		{"wrapped conflict", fmt.Errorf("%w: already cancelled", ErrConflict), http.StatusConflict},
		{"wrapped unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"app error wins", NewAppError("CONFLICT", "already cancelled", http.StatusConflict, ErrConflict), http.StatusConflict},
		{"unknown error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetStatusCode(tt.err))
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := NewAppError("NOT_FOUND", "booking not found", http.StatusNotFound, ErrNotFound)
	assert.ErrorIs(t, appErr, ErrNotFound)
	assert.Contains(t, appErr.Error(), "booking not found")
}
