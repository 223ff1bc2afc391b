package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv map[string]string

func (e testEnv) Get(_ context.Context, name string) (string, bool) {
	v, ok := e[name]
	return v, ok
}

var _ Env = (testEnv)(nil)

func TestEnvTokenProvider(t *testing.T) {
	p := NewEnvTokenProvider("MDATTACH_TOKEN")

	_, err := p.WithEnv(testEnv{"OTHER": "x"}).Token(t.Context())
	assert.Error(t, err)

	_, err = p.WithEnv(testEnv{"MDATTACH_TOKEN": "   "}).Token(t.Context())
	assert.Error(t, err)

	tok, err := p.WithEnv(testEnv{"MDATTACH_TOKEN": " abc "}).Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func TestEnvTokenProvider_ReadsProcessEnv(t *testing.T) {
	t.Setenv("MDATTACH_TEST_TOKEN", "from-env")

	tok, err := NewEnvTokenProvider("MDATTACH_TEST_TOKEN").Token(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
}

func TestEnvTokenProvider_RequiresName(t *testing.T) {
	_, err := NewEnvTokenProvider(" ").Token(t.Context())
	assert.Error(t, err)
}

func TestProviderFor(t *testing.T) {
	assert.IsType(t, &NoopProvider{}, ProviderFor(""))
	assert.IsType(t, &EnvTokenProvider{}, ProviderFor("TOKEN"))

	tok, err := ProviderFor("").Token(t.Context())
	require.NoError(t, err)
	assert.Empty(t, tok)
}
