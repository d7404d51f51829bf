// Package config loads runtime configuration for the journal CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string   journal database file
//	-s int      idle session timeout (seconds)
//	-w int      expiry warning lead time (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "90s" or
// integer nanoseconds. KDF cost is only configurable here:
//
//	{
//	  "database_path": "/home/me/.gophjournal/journal.db",
//	  "session_duration": "10m",
//	  "warning_threshold": "1m",
//	  "log_level": "info",
//	  "kdf_time": 3,
//	  "kdf_memory_kib": 65536,
//	  "kdf_threads": 4
//	}
//
// Changing the KDF cost only affects identities created or re-keyed
// afterwards; existing identities keep the parameters stored with them.
package config
