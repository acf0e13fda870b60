package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesion-track-server/internal/domain"
)

func TestNewManager_Defaults(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.InDelta(t, 0.02, cfg.Tracking.StabilityThreshold, 1e-9)

	// Bundled tables fill in when the file supplies none.
	assert.Equal(t, "lung-rads-default", cfg.Guideline.Name)
	assert.NotEmpty(t, cfg.Guideline.Rules)
	assert.Len(t, cfg.Priors, 3)
	assert.NotEmpty(t, cfg.Likelihood.Factors)

	assert.NoError(t, manager.Validate())
}

func TestManager_EnvOverride(t *testing.T) {
	t.Setenv("LESION_TRACK_SERVER_PORT", "9090")
	t.Setenv("LESION_TRACK_LOGGING_LEVEL", "debug")

	manager, err := NewManager()
	require.NoError(t, err)

	cfg := manager.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, manager.Validate())
}

func TestManager_Validate(t *testing.T) {
	manager, err := NewManager()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*domain.Config)
	}{
		{
			name:   "invalid port",
			mutate: func(c *domain.Config) { c.Server.Port = 0 },
		},
		{
			name:   "invalid log level",
			mutate: func(c *domain.Config) { c.Logging.Level = "verbose" },
		},
		{
			name:   "unknown storage driver",
			mutate: func(c *domain.Config) { c.Storage.Driver = "dynamo" },
		},
		{
			name: "sqlite without path",
			mutate: func(c *domain.Config) {
				c.Storage.Driver = "sqlite"
				c.Storage.SQLitePath = ""
			},
		},
		{
			name: "postgres without dsn",
			mutate: func(c *domain.Config) {
				c.Storage.Driver = "postgres"
				c.Storage.PostgresDSN = ""
			},
		},
		{
			name:   "stability threshold out of range",
			mutate: func(c *domain.Config) { c.Tracking.StabilityThreshold = 0.75 },
		},
		{
			name:   "guideline rule without name",
			mutate: func(c *domain.Config) { c.Guideline.Rules[0].Name = "" },
		},
		{
			name:   "guideline rule with unknown risk level",
			mutate: func(c *domain.Config) { c.Guideline.Rules[0].RiskLevel = "EXTREME" },
		},
		{
			name: "guideline rule with empty size band",
			mutate: func(c *domain.Config) {
				v := 8.0
				c.Guideline.Rules[0].MinSizeMM = &v
				c.Guideline.Rules[0].MaxSizeMM = &v
			},
		},
		{
			name:   "duplicate hypothesis label",
			mutate: func(c *domain.Config) { c.Priors[1].Label = c.Priors[0].Label },
		},
		{
			name:   "non-positive prior weight",
			mutate: func(c *domain.Config) { c.Priors[0].Weight = 0 },
		},
		{
			name: "likelihood factor for unknown hypothesis",
			mutate: func(c *domain.Config) {
				c.Likelihood.Factors[domain.GROWING]["mystery"] = 2.0
			},
		},
		{
			name: "non-positive likelihood factor",
			mutate: func(c *domain.Config) {
				c.Likelihood.Factors[domain.GROWING]["malignancy"] = -1.0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, manager.Reload())
			tt.mutate(manager.GetConfig())
			assert.Error(t, manager.Validate())
		})
	}
}

func TestDefaultGuidelineTable_Ordering(t *testing.T) {
	table := DefaultGuidelineTable()

	require.NotEmpty(t, table.Rules)
	// Interval regression precedes everything so shrinkage is never escalated.
	assert.Equal(t, "interval-regression", table.Rules[0].Name)
	// The VDT-banded escalation rule precedes the plain size bands it overlaps.
	var rapidIdx, intermediateIdx int
	for i, r := range table.Rules {
		switch r.Name {
		case "solid-rapid-growth":
			rapidIdx = i
		case "solid-intermediate":
			intermediateIdx = i
		}
	}
	assert.Less(t, rapidIdx, intermediateIdx)
}

func TestDefaultPriors_Normalizable(t *testing.T) {
	var sum float64
	for _, p := range DefaultPriors() {
		assert.Greater(t, p.Weight, 0.0)
		sum += p.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
