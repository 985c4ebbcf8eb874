package qbittorrent

import "time"

// Option configures a SyncFetcher.
type Option func(*clientOptions)

// clientOptions holds configuration options for the SyncFetcher.
type clientOptions struct {
	timeout    time.Duration
	userAgent  string
	verifyCert bool
}

func defaultOptions() clientOptions {
	return clientOptions{
		timeout:    30 * time.Second,
		userAgent:  "qbitsync",
		verifyCert: true,
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithInsecureSkipVerify disables certificate verification.
// Use with caution and only for development/testing.
func WithInsecureSkipVerify() Option {
	return func(o *clientOptions) {
		o.verifyCert = false
	}
}
