package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOfFollowsWrapChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("story not found"))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
	assert.Equal(t, ErrorTypeNotFound, TypeOf(err))
	assert.Equal(t, ErrorTypeInternal, TypeOf(errors.New("plain")))
}

func TestWrapKeepsOriginalType(t *testing.T) {
	wrapped := Wrap(Conflict("user has already voted for this submission"), "vote failed", ErrorTypeInternal)

	assert.True(t, IsConflict(wrapped))
	assert.Contains(t, wrapped.Error(), "vote failed: user has already voted")
}

func TestWrapClassifiesPlainErrors(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	wrapped := Wrap(cause, "rpc unreachable", ErrorTypeUnavailable)

	assert.True(t, IsUnavailable(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Nil(t, Wrap(nil, "ignored", ErrorTypeInternal))
}

func TestCodes(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR", Validation("x").Code)
	assert.Equal(t, "TRANSACTION_FAILED", Transaction("x", nil).Code)
	assert.Equal(t, "UNAVAILABLE", Unavailable("x", nil).Code)
}
