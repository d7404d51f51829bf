package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path of the journal database file
//	-s int      idle session timeout in seconds
//	-w int      warning lead time before expiry in seconds
//	-l string   log level (debug, info, warn, error)
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, []string{"-d", "-s", "-w", "-l"})

	fs := flagx.NewFlagSet("main")

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "journal database file")
	sessionSecs := fs.Int("s", int(cfg.SessionDuration.Seconds()), "idle session timeout (in seconds)")
	warnSecs := fs.Int("w", int(cfg.WarningThreshold.Seconds()), "expiry warning lead time (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.SessionDuration = time.Duration(*sessionSecs) * time.Second
	cfg.WarningThreshold = time.Duration(*warnSecs) * time.Second
	return nil
}
