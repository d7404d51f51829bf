package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophjournal/internal/flagx"
	"github.com/dmitrijs2005/gophjournal/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// distinguish "absent" from zero so a file may set only some values.
type JsonConfig struct {
	DatabasePath     *string         `json:"database_path"`
	SessionDuration  *timex.Duration `json:"session_duration"`
	WarningThreshold *timex.Duration `json:"warning_threshold"`
	LogLevel         *string         `json:"log_level"`
	KDFTime          *uint32         `json:"kdf_time"`
	KDFMemoryKiB     *uint32         `json:"kdf_memory_kib"`
	KDFThreads       *uint8          `json:"kdf_threads"`
}

// parseJson overlays cfg with the JSON file given by -c or -config. Without
// either flag it does nothing. Unknown keys are rejected.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var jc JsonConfig
	if err := dec.Decode(&jc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.SessionDuration != nil {
		cfg.SessionDuration = jc.SessionDuration.Duration
	}
	if jc.WarningThreshold != nil {
		cfg.WarningThreshold = jc.WarningThreshold.Duration
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.KDFTime != nil {
		cfg.KDFTime = *jc.KDFTime
	}
	if jc.KDFMemoryKiB != nil {
		cfg.KDFMemoryKiB = *jc.KDFMemoryKiB
	}
	if jc.KDFThreads != nil {
		cfg.KDFThreads = *jc.KDFThreads
	}
	return nil
}
