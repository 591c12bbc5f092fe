package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/settlement"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"overflow", fmt.Errorf("credit creator: %w", settlement.ErrArithmeticOverflow), http.StatusInternalServerError},
		{"commit in doubt", fmt.Errorf("%w: %w", settlement.ErrCommitInDoubt, settlement.ErrTransactionFailed), http.StatusInternalServerError},
		{"reserved party", settlement.ErrReservedParty, http.StatusForbidden},
		{"unauthorized", settlement.ErrUnauthorized, http.StatusForbidden},
		{"not found", settlement.ErrInvoiceNotFound, http.StatusNotFound},
		{"insufficient funds", settlement.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"pool paused", settlement.ErrPoolPaused, http.StatusConflict},
		{"transaction failed", settlement.ErrTransactionFailed, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
