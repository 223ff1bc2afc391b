package auth

// ProviderFor returns the Provider for a configured token_env value. An
// empty name means the server runs without authentication.
func ProviderFor(tokenEnv string) Provider {
	if tokenEnv == "" {
		return NewNoopProvider()
	}
	return NewEnvTokenProvider(tokenEnv)
}
