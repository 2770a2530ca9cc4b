package event

import (
	"log/slog"
	"time"
)

// DefaultMaxDepth is the default limit on nested deliveries.
const DefaultMaxDepth = 16

// RouterOption configures a Router.
type RouterOption func(*routerConfig)

// routerConfig contains configuration for the router.
type routerConfig struct {
	// maxDepth bounds synchronous re-entrant deliveries.
	maxDepth int

	// logger receives diagnostics (never status lines).
	logger *slog.Logger

	// panicHandler is called when a pull panics.
	panicHandler PanicHandler

	// slowPull is the pull duration above which a warning is logged.
	// Zero disables the check.
	slowPull time.Duration
}

// defaultRouterConfig returns sensible default configuration.
func defaultRouterConfig() routerConfig {
	return routerConfig{
		maxDepth: DefaultMaxDepth,
		logger:   slog.New(slog.DiscardHandler),
	}
}

// WithMaxDepth sets the maximum nesting of deliveries triggered from pulls.
func WithMaxDepth(depth int) RouterOption {
	return func(c *routerConfig) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for router diagnostics.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(c *routerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPanicHandler sets the handler called when a subscriber panics.
func WithPanicHandler(h PanicHandler) RouterOption {
	return func(c *routerConfig) {
		if h != nil {
			c.panicHandler = h
		}
	}
}

// WithSlowPull logs a warning for every pull that holds the loop longer
// than d.
func WithSlowPull(d time.Duration) RouterOption {
	return func(c *routerConfig) {
		if d >= 0 {
			c.slowPull = d
		}
	}
}
