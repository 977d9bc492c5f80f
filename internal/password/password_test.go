package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/microbes-potential/conatoc-net/internal/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v="))

	ok, err := password.Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = password.Verify("wrong password", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	first, err := password.Hash("same input")
	require.NoError(t, err)
	second, err := password.Hash("same input")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$c3Vt",
		"$argon2id$v=19$m=65536$c2FsdA$c3Vt",
		"$argon2id$v=19$m=65536,t=3,p=2$not-base64!$c3Vt",
	} {
		_, err := password.Verify("anything", encoded)
		require.Error(t, err, "encoded=%q", encoded)
	}
}
