package evm

import "time"

// Config bounds every RPC call made by a Client.
type Config struct {
	CallTimeout  time.Duration // Timeout for a single attempt
	MaxRetries   int           // Retries after the first failed attempt
	RetryBackoff time.Duration // Pause between attempts
	RateLimit    float64       // Requests per second, 0 disables limiting
	RateBurst    int           // Burst allowed by the limiter
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CallTimeout:  5 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 250 * time.Millisecond,
		RateBurst:    1,
	}
}
