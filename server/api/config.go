package api

import (
	"fmt"
	"net"
	"time"

	"github.com/compose-network/aebridge/x/dispatch"
)

// replySlack is the time a handler needs after a dispatch reply arrives to
// encode and write the response.
const replySlack = 30 * time.Second

// Config defines runtime parameters for the HTTP API server.
type Config struct {
	ListenAddr        string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes" yaml:"max_header_bytes"`
	EnableCORS        bool          `mapstructure:"enable_cors" yaml:"enable_cors"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:        ":8088",
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      dispatch.DefaultTimeout + replySlack,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
}

// CoverDispatch returns c with a write timeout long enough for a dispatch
// that waits up to timeout for its reply. A zero timeout waits forever, so
// writes are not bounded either.
func (c Config) CoverDispatch(timeout time.Duration) Config {
	switch {
	case timeout == 0:
		c.WriteTimeout = 0
	case c.WriteTimeout > 0 && c.WriteTimeout < timeout+replySlack:
		c.WriteTimeout = timeout + replySlack
	}
	return c
}

// Validate checks the listen address and limits.
func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("listen_addr %q: %w", c.ListenAddr, err)
	}
	if c.ReadHeaderTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("max_header_bytes must not be negative, got %d", c.MaxHeaderBytes)
	}
	return nil
}
