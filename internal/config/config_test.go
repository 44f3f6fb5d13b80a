package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/stagepool/pkg/pipe"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tmpipe.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 64, cfg.Simulation.Vehicles)
	assert.Len(t, cfg.Pipeline.Stages, 4)

	cfg, exists, err = Load("")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, "auto", cfg.Logging.Format)
}

func TestLoad_OverridesAndNormalizes(t *testing.T) {
	path := writeConfig(t, `
[logging]
format = " JSON "
level = "Debug"

[simulation]
vehicles = 10
ticks = 3

[[pipeline.stages]]
name = "localization"
pool_size = 2
capacity = 8
overflow = "DROP_OLDEST"

[[pipeline.stages]]
name = "motion"
pool_size = 1
overflow = "unbounded"
`)

	cfg, exists, err := Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Simulation.Vehicles)
	assert.Equal(t, 5, cfg.Simulation.TickTimeoutSeconds, "untouched fields keep defaults")
	require.Len(t, cfg.Pipeline.Stages, 2)

	loc, ok := cfg.Pipeline.Stage("localization")
	require.True(t, ok)
	pc, err := loc.PipeConfig()
	require.NoError(t, err)
	assert.Equal(t, pipe.Config{Capacity: 8, Overflow: pipe.DropOldest}, pc)

	_, ok = cfg.Pipeline.Stage("collision")
	assert.False(t, ok)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "[logging]\ncolour = true\n",
		"bad level":       "[logging]\nlevel = \"loud\"\n",
		"no vehicles":     "[simulation]\nvehicles = 0\n",
		"zero pool":       "[[pipeline.stages]]\nname = \"a\"\npool_size = 0\noverflow = \"unbounded\"\n",
		"duplicate stage": "[[pipeline.stages]]\nname = \"a\"\npool_size = 1\noverflow = \"unbounded\"\n[[pipeline.stages]]\nname = \"a\"\npool_size = 1\noverflow = \"unbounded\"\n",
		"block no cap":    "[[pipeline.stages]]\nname = \"a\"\npool_size = 1\noverflow = \"block\"\n",
		"bad policy":      "[pipeline]\ninput_overflow = \"maybe\"\n",
		"malformed":       "[logging\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	data, err := Encode(&cfg)
	require.NoError(t, err)

	var back Config
	require.NoError(t, Decode(data, &back))
	assert.Equal(t, cfg, back)
}
