package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
)

// Config holds runtime settings for the journal CLI.
//
// Units: SessionDuration and WarningThreshold are time.Duration values;
// KDFMemoryKiB is in kibibytes.
type Config struct {
	DatabasePath     string
	SessionDuration  time.Duration
	WarningThreshold time.Duration
	LogLevel         string

	KDFTime      uint32
	KDFMemoryKiB uint32
	KDFThreads   uint8
}

var ErrInvalidConfig = errors.New("invalid configuration")

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	p := cryptox.DefaultKDFParams()

	c.DatabasePath = "gophjournal.db"
	c.SessionDuration = 10 * time.Minute
	c.WarningThreshold = time.Minute
	c.LogLevel = "warn"
	c.KDFTime = p.Time
	c.KDFMemoryKiB = p.MemoryKiB
	c.KDFThreads = p.Threads
}

// KDFParams returns the derivation parameters for new identities.
func (c *Config) KDFParams() cryptox.KDFParams {
	p := cryptox.DefaultKDFParams()
	p.Time = c.KDFTime
	p.MemoryKiB = c.KDFMemoryKiB
	p.Threads = c.KDFThreads
	return p
}

// Validate rejects settings the session manager or the KDF would refuse.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("%w: session duration must be positive", ErrInvalidConfig)
	}
	if c.WarningThreshold < 0 || c.WarningThreshold >= c.SessionDuration {
		return fmt.Errorf("%w: warning threshold %s must be shorter than session duration %s",
			ErrInvalidConfig, c.WarningThreshold, c.SessionDuration)
	}
	if err := c.KDFParams().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Load builds a Config from defaults, then the JSON file named by -c/-config
// (if any), then the remaining flags. Later sources take precedence.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
