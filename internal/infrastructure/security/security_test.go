package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDHasPrefix(t *testing.T) {
	id := NewID("story")
	assert.True(t, strings.HasPrefix(id, "story_"))
	assert.Len(t, id, len("story_")+26)
	assert.NotEqual(t, id, NewID("story"))
}

func TestGenerateSecureKey(t *testing.T) {
	key, err := GenerateSecureKey(64)
	require.NoError(t, err)
	assert.Len(t, key, 64)
}

func TestMockTransactionRef(t *testing.T) {
	a := MockTransactionRef("submission_1", "0xabc", "1")
	b := MockTransactionRef("submission_1", "0xabc", "1")
	c := MockTransactionRef("submission_1", "0xabc1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "0x"))
	assert.Len(t, a, 66)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, expires, err := GenerateSessionToken(" 0xabc ", "CyberScribe", "secret", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := ParseSessionToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", claims.Address)
	assert.Equal(t, "CyberScribe", claims.Username)
}

func TestSessionTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := GenerateSessionToken("0xabc", "", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, "other")
	assert.Error(t, err)
}

func TestSessionTokenRejectsExpired(t *testing.T) {
	token, _, err := GenerateSessionToken("0xabc", "", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, "secret")
	assert.Error(t, err)
}

func TestGenerateSessionTokenNeedsSecret(t *testing.T) {
	_, _, err := GenerateSessionToken("0xabc", "", "", time.Hour)
	assert.Error(t, err)
}
