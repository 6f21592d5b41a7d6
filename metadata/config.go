// Package metadata embeds signed provenance payloads into plain text as
// invisible variation-selector runs and verifies them back out. Embedding is
// fail-fast with structured errors; verification reports outcomes as values
// so batch-checking untrusted text never needs exception handling.
package metadata

import "github.com/rs/zerolog"

// Version is the library version recorded in default claim generators.
const Version = "2.3.0"

// DefaultClaimGenerator identifies this library when the caller supplies no
// claim generator of its own.
const DefaultClaimGenerator = "encypher-go/" + Version

// Config carries the injected collaborators shared by embed and verify
// calls. The zero value is usable: silent logging and the default claim
// generator.
type Config struct {
	// ClaimGenerator overrides the software-agent string recorded in
	// manifests. Empty means DefaultClaimGenerator.
	ClaimGenerator string

	// Logger receives diagnostic events. The zero value logs nothing.
	Logger zerolog.Logger
}

// NewConfig returns a Config with an explicitly disabled logger.
func NewConfig() Config {
	return Config{Logger: zerolog.Nop()}
}

func (c Config) claimGenerator() string {
	if c.ClaimGenerator != "" {
		return c.ClaimGenerator
	}
	return DefaultClaimGenerator
}
