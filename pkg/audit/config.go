// Package audit records an access trail of policy search requests. Only
// request metadata is kept: the query text is never stored.
package audit

// Config controls audit behavior.
type Config struct {
	Enabled       bool // Whether the audit middleware is active. Default false.
	RetentionDays int  // How long events are kept. Default 90, 0 keeps them forever.
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       false,
		RetentionDays: 90,
	}
}
