package auth

import (
	"context"
	"fmt"
	"strings"
)

type EnvTokenProvider struct {
	EnvVar string
	env    Env
}

func NewEnvTokenProvider(envVar string) *EnvTokenProvider {
	return &EnvTokenProvider{EnvVar: envVar, env: OSEnv{}}
}

// WithEnv returns a copy of p reading from env.
func (p *EnvTokenProvider) WithEnv(env Env) *EnvTokenProvider {
	return &EnvTokenProvider{EnvVar: p.EnvVar, env: env}
}

func (p *EnvTokenProvider) Token(ctx context.Context) (string, error) {
	name := strings.TrimSpace(p.EnvVar)
	if name == "" {
		return "", fmt.Errorf("env var name is required")
	}
	env := p.env
	if env == nil {
		env = OSEnv{}
	}
	v, _ := env.Get(ctx, name)
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s environment variable is required", name)
	}
	return strings.TrimSpace(v), nil
}
