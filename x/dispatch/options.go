package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/compose-network/aebridge/x/terminology"
	"github.com/compose-network/aebridge/x/transport"
)

// DefaultTimeout bounds a dispatch when neither the config nor the call
// sets a timeout.
const DefaultTimeout = 120 * time.Second

// RelaunchMode says when a dispatch to a vanished process is resent after
// looking the target up again.
type RelaunchMode int

const (
	// RelaunchLimited retries only the commands that launch or ping an
	// application.
	RelaunchLimited RelaunchMode = iota
	RelaunchNever
	RelaunchAlways
)

func (m RelaunchMode) String() string {
	switch m {
	case RelaunchNever:
		return "never"
	case RelaunchAlways:
		return "always"
	default:
		return "limited"
	}
}

// ParseRelaunchMode accepts "never", "limited" and "always".
func ParseRelaunchMode(s string) (RelaunchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never":
		return RelaunchNever, nil
	case "limited", "":
		return RelaunchLimited, nil
	case "always":
		return RelaunchAlways, nil
	default:
		return 0, fmt.Errorf("dispatch: unknown relaunch mode %q", s)
	}
}

// relaunchAllowed lists the commands RelaunchLimited retries.
var relaunchAllowed = map[[2]uint32]bool{
	{terminology.ClassScript, terminology.IDNoop}:      true,
	{terminology.ClassRequired, terminology.IDOpenApp}: true,
}

// Config holds dispatcher configuration
type Config struct {
	Logger          zerolog.Logger
	Terms           terminology.Terms
	Registerer      prometheus.Registerer
	Relaunch        RelaunchMode
	Timeout         time.Duration
	SendFlags       transport.SendFlags
	Ignoring        []string
	DeferReferences bool
}

// Option configures the dispatcher
type Option func(*Config)

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithTerminology sets the vocabulary names are resolved with. A
// *terminology.Handle is loaded on the first dispatch and every dispatch
// fails with its *terminology.SourceError until it loads.
func WithTerminology(terms terminology.Terms) Option {
	return func(c *Config) {
		c.Terms = terms
	}
}

// WithMetrics registers dispatch metrics with reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registerer = reg
	}
}

// WithRelaunchMode sets the relaunch policy
func WithRelaunchMode(mode RelaunchMode) Option {
	return func(c *Config) {
		c.Relaunch = mode
	}
}

// WithTimeout sets the default reply timeout. Zero waits forever.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithSendFlags sets the default send flags
func WithSendFlags(flags transport.SendFlags) Option {
	return func(c *Config) {
		c.SendFlags = flags
	}
}

// WithIgnoring sets the default text comparison attributes to ignore
func WithIgnoring(names ...string) Option {
	return func(c *Config) {
		c.Ignoring = names
	}
}

// WithDeferredReferences makes replies decode reference containers lazily
func WithDeferredReferences(deferred bool) Option {
	return func(c *Config) {
		c.DeferReferences = deferred
	}
}

func defaultConfig() Config {
	return Config{
		Logger:    zerolog.Nop(),
		Relaunch:  RelaunchLimited,
		Timeout:   DefaultTimeout,
		SendFlags: transport.DefaultSendFlags,
		Ignoring:  []string{"case"},
	}
}
