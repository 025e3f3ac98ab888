package testutil

// FixedTokenGenerator generates the same session token every time.
//
// This enables deterministic test execution and golden trace comparison:
// the same scenario with the same FixedTokenGenerator produces
// byte-identical traces.
//
// Unlike session.FixedGenerator which returns tokens in sequence, this
// generator always returns the same token. Useful when every session in a
// test should share one token.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a new fixed session token generator.
//
// If token is empty, Generate() returns "test-session-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-session-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed session token.
//
// Implements session.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
