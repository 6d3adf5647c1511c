package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestKeygenPrintsUsableKeys(t *testing.T) {
	out := execute(t, "keygen")

	values := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			values[k] = v
		}
	}
	require.Contains(t, values, "BERNICE_JWT_SECRET")
	require.Contains(t, values, "BERNICE_SIGNER_KEY")
	assert.NotEmpty(t, values["BERNICE_JWT_SECRET"])

	key, err := crypto.HexToECDSA(strings.TrimPrefix(values["BERNICE_SIGNER_KEY"], "0x"))
	require.NoError(t, err)
	assert.Contains(t, out, crypto.PubkeyToAddress(key.PublicKey).Hex())
}

func TestNetworksListsDeployments(t *testing.T) {
	out := execute(t, "networks")

	var networks []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &networks))
	assert.NotEmpty(t, networks)
	for _, n := range networks {
		assert.NotEmpty(t, n["name"])
	}
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv("BERNICE_JWT_SECRET", "")
	rootCmd.SetArgs([]string{"token", "0xabc"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	assert.Error(t, rootCmd.Execute())
}

func TestTokenIssuesSession(t *testing.T) {
	t.Setenv("BERNICE_JWT_SECRET", "ctl-test")
	out := execute(t, "token", "0xabc", "--username", "abby")

	var session map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &session))
	assert.Equal(t, "0xabc", session["address"])
	assert.Equal(t, "abby", session["username"])
	assert.NotEmpty(t, session["token"])
}
