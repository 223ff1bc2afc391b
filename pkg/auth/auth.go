// Package auth resolves the bearer token shared between the upload client
// and the upload server.
package auth

import (
	"context"
	"os"
)

// DefaultTokenEnv is read when no token_env is configured and a token is
// explicitly requested.
const DefaultTokenEnv = "MDATTACH_TOKEN"

// Provider abstracts how a token is obtained. Implementations are called
// once per request so short-lived tokens can be refreshed.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// Env looks up environment variables.
type Env interface {
	Get(ctx context.Context, name string) (string, bool)
}

// OSEnv reads the process environment.
type OSEnv struct{}

func (OSEnv) Get(_ context.Context, name string) (string, bool) {
	return os.LookupEnv(name)
}
