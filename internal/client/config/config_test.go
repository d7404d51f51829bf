package config

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophjournal/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "gophjournal.db", c.DatabasePath)
	assert.Equal(t, 10*time.Minute, c.SessionDuration)
	assert.Equal(t, time.Minute, c.WarningThreshold)
	assert.Equal(t, cryptox.DefaultKDFParams(), c.KDFParams())
	require.NoError(t, c.Validate())
}

func TestLoad_NoArgsUsesDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "empty database path", mutate: func(c *Config) { c.DatabasePath = "" }},
		{name: "zero duration", mutate: func(c *Config) { c.SessionDuration = 0 }},
		{name: "warning equals duration", mutate: func(c *Config) { c.WarningThreshold = c.SessionDuration }},
		{name: "negative warning", mutate: func(c *Config) { c.WarningThreshold = -time.Second }},
		{name: "zero kdf time", mutate: func(c *Config) { c.KDFTime = 0 }},
		{name: "zero kdf threads", mutate: func(c *Config) { c.KDFThreads = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			require.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad_RejectsInvalidCombination(t *testing.T) {
	_, err := Load([]string{"-s", "30", "-w", "60"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
