package scanapi

import "github.com/codescan-io/codescan/internal/version"

type ClientConfig struct {
	MaxRetryAttempts int
	JitterMultiplier float64
	// BackoffDurationMultiplier scales the quadratic backoff, in seconds
	BackoffDurationMultiplier float64
	UserAgent                 string
}

// DefaultConfig makes a default client config
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxRetryAttempts:          4,
		JitterMultiplier:          2,
		BackoffDurationMultiplier: 1,
		UserAgent:                 "codescan-" + version.CodescanVersion,
	}
}
