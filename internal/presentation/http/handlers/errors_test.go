package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bernice-stories/bernice/internal/apperrors"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperrors.Validation("bad"), http.StatusBadRequest},
		{apperrors.NotFound("gone"), http.StatusNotFound},
		{apperrors.Conflict("twice"), http.StatusConflict},
		{apperrors.Unavailable("no contract", nil), http.StatusServiceUnavailable},
		{apperrors.Unauthorized("who"), http.StatusUnauthorized},
		{apperrors.Transaction("transaction failed, see logs", errors.New("nonce too low")), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", apperrors.NotFound("story")), http.StatusNotFound},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}
