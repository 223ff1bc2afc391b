package auth

import "context"

type NoopProvider struct{}

func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

func (p *NoopProvider) Token(context.Context) (string, error) {
	return "", nil
}
