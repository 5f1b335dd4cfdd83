package httprequest

import (
	"fmt"
	"time"
)

// Defaults for the HTTP request workflow node. Node definitions may lower
// the timeouts but the size ceilings are platform-wide.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 600 * time.Second
	DefaultWriteTimeout   = 600 * time.Second

	DefaultMaxBinarySize = 10 * 1024 * 1024
	DefaultMaxTextSize   = 1 * 1024 * 1024

	DefaultSSRFRetries = 3
)

// Timeout is the per-phase timeout set applied to one outbound request.
// Zero fields mean "use the platform default".
type Timeout struct {
	Connect time.Duration `json:"connect"`
	Read    time.Duration `json:"read"`
	Write   time.Duration `json:"write"`
}

// Config is the resolved HTTP request node configuration.
type Config struct {
	Timeout       Timeout
	MaxBinarySize int64
	MaxTextSize   int64
	SSLVerify     bool
	SSRFRetries   int
}

// DefaultConfig returns the platform defaults: generous read/write windows
// for long-running upstream calls, SSL verification on.
func DefaultConfig() Config {
	return Config{
		Timeout: Timeout{
			Connect: DefaultConnectTimeout,
			Read:    DefaultReadTimeout,
			Write:   DefaultWriteTimeout,
		},
		MaxBinarySize: DefaultMaxBinarySize,
		MaxTextSize:   DefaultMaxTextSize,
		SSLVerify:     true,
		SSRFRetries:   DefaultSSRFRetries,
	}
}

// ResolveTimeout merges a node-supplied timeout over the defaults. Absent
// phases fall back; negative values are rejected.
func (c Config) ResolveTimeout(override *Timeout) (Timeout, error) {
	resolved := c.Timeout
	if override == nil {
		return resolved, nil
	}
	if override.Connect < 0 || override.Read < 0 || override.Write < 0 {
		return Timeout{}, fmt.Errorf("timeout values must be non-negative")
	}
	if override.Connect > 0 {
		resolved.Connect = override.Connect
	}
	if override.Read > 0 {
		resolved.Read = override.Read
	}
	if override.Write > 0 {
		resolved.Write = override.Write
	}
	return resolved, nil
}

// Overrides carries the node-supplied settings; nil fields fall back to the
// platform defaults.
type Overrides struct {
	Timeout       *Timeout `json:"timeout,omitempty"`
	MaxBinarySize *int64   `json:"max_binary_size,omitempty"`
	MaxTextSize   *int64   `json:"max_text_size,omitempty"`
	SSLVerify     *bool    `json:"ssl_verify,omitempty"`
	SSRFRetries   *int     `json:"ssrf_retries,omitempty"`
}

// ResolveConfig merges node settings over the platform defaults. A fully
// absent settings block is an error so callers cannot silently run with an
// unconfigured node.
func ResolveConfig(raw *Overrides) (Config, error) {
	if raw == nil {
		return Config{}, fmt.Errorf("http request node config is required")
	}

	resolved := DefaultConfig()
	timeout, err := resolved.ResolveTimeout(raw.Timeout)
	if err != nil {
		return Config{}, err
	}
	resolved.Timeout = timeout

	if raw.MaxBinarySize != nil {
		if *raw.MaxBinarySize <= 0 {
			return Config{}, fmt.Errorf("max_binary_size must be positive")
		}
		resolved.MaxBinarySize = *raw.MaxBinarySize
	}
	if raw.MaxTextSize != nil {
		if *raw.MaxTextSize <= 0 {
			return Config{}, fmt.Errorf("max_text_size must be positive")
		}
		resolved.MaxTextSize = *raw.MaxTextSize
	}
	if raw.SSRFRetries != nil {
		if *raw.SSRFRetries < 0 {
			return Config{}, fmt.Errorf("ssrf retries must be non-negative")
		}
		resolved.SSRFRetries = *raw.SSRFRetries
	}
	if raw.SSLVerify != nil {
		resolved.SSLVerify = *raw.SSLVerify
	}

	return resolved, nil
}
