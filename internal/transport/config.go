// Package transport sends HTTP requests to the parking backend, retrying
// failed attempts with exponential backoff.
package transport

import "time"

// Default fetch settings. A zero DefaultTimeout leaves attempts unbounded.
const (
	DefaultTimeout     time.Duration = 0
	DefaultMaxAttempts               = 3
	DefaultBaseDelay                 = 1 * time.Second
)

// Config holds the fetch settings.
type Config struct {
	// BaseURL is prefixed to every relative request path.
	BaseURL string

	// Timeout bounds each individual attempt. Zero means no timeout.
	Timeout time.Duration

	// MaxAttempts is the total number of attempts Send makes.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; it doubles for
	// every attempt after that.
	BaseDelay time.Duration
}

// DefaultConfig returns a Config with default settings for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// WithRetries returns a copy of the config with the specified retry settings.
func (c Config) WithRetries(maxAttempts int, baseDelay time.Duration) Config {
	c.MaxAttempts = maxAttempts
	c.BaseDelay = baseDelay
	return c
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

// Backoff returns the wait before the given 0-indexed attempt: nothing for
// the first, then BaseDelay, 2·BaseDelay, 4·BaseDelay and so on.
func (c Config) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return c.BaseDelay << (attempt - 1)
}
