package session

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/logging"
)

const (
	DefaultDuration         = 10 * time.Minute
	DefaultWarningThreshold = time.Minute
)

// Config holds session manager configuration.
type Config struct {
	Duration         time.Duration // idle timeout
	WarningThreshold time.Duration // warn this long before expiry (0 = never)
	Clock            Clock
	Logger           logging.Logger
	OnWarning        func(identity string, remaining time.Duration)
	OnExpire         func(identity string)
}

func defaultConfig() *Config {
	return &Config{
		Duration:         DefaultDuration,
		WarningThreshold: DefaultWarningThreshold,
		Clock:            systemClock{},
		Logger:           logging.Nop(),
	}
}

func (c *Config) validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	}
	if c.WarningThreshold < 0 || c.WarningThreshold >= c.Duration {
		return fmt.Errorf("%w: warning threshold %s must be within duration %s", ErrInvalidConfig, c.WarningThreshold, c.Duration)
	}
	if c.Clock == nil {
		return fmt.Errorf("%w: nil clock", ErrInvalidConfig)
	}
	return nil
}

// Option is a functional option for configuring the session manager.
type Option func(*Config)

// WithDuration sets the idle timeout.
func WithDuration(d time.Duration) Option {
	return func(c *Config) { c.Duration = d }
}

// WithWarningThreshold sets how long before expiry the warning fires.
func WithWarningThreshold(d time.Duration) Option {
	return func(c *Config) { c.WarningThreshold = d }
}

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(c *Config) { c.Clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// OnWarning registers the callback fired once when a session enters the
// warning period. It runs outside the manager lock.
func OnWarning(fn func(identity string, remaining time.Duration)) Option {
	return func(c *Config) { c.OnWarning = fn }
}

// OnExpire registers the callback fired after an idle session was logged out.
// It is not called for explicit Logout.
func OnExpire(fn func(identity string)) Option {
	return func(c *Config) { c.OnExpire = fn }
}
