package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	svc, err := NewAuthService("test-secret", logging.NewDiscardLogger())
	require.NoError(t, err)

	session, err := svc.IssueSession(" 0xalice ", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "0xalice", session.Address)
	assert.NotEmpty(t, session.Token)

	claims, err := svc.Authenticate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "0xalice", claims.Address)
	assert.Equal(t, "Alice", claims.Username)

	_, err = svc.Authenticate(session.Token + "x")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeUnauthorized))

	_, err = svc.IssueSession("  ", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthServiceGeneratesSecret(t *testing.T) {
	a, err := NewAuthService("", logging.NewDiscardLogger())
	require.NoError(t, err)
	b, err := NewAuthService("", logging.NewDiscardLogger())
	require.NoError(t, err)

	session, err := a.IssueSession("0xalice", "")
	require.NoError(t, err)

	_, err = b.Authenticate(session.Token)
	assert.Error(t, err, "per-process secrets differ")
}
