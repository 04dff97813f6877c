package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference/objective"
	"conference/solver"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "results/conference_7.json", cfg.SnapshotPath(7))
	assert.Equal(t, "conference_7", cfg.SnapshotName(7))
}

func TestDefaultDoesNotShareSlices(t *testing.T) {
	a := Default()
	a.Format.Columns.Friends[0] = "changed"
	b := Default()
	assert.Equal(t, "Buddy1", b.Format.Columns.Friends[0])
}

func TestParseOverridesDefaults(t *testing.T) {
	in := `
roster: people.tsv
num_groups: 12
seeds: [152323, 194302]
objective:
  weights:
    friend: 5
  required_groupings:
    - [Ann, Bo]
  enforce_single_buddies: true
optimizer:
  strategy: mixed
  progress_interval: 30s
format:
  delimiter: ","
`
	cfg, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "people.tsv", cfg.Roster)
	assert.Equal(t, 12, cfg.NumGroups)
	assert.Equal(t, []int64{152323, 194302}, cfg.Seeds)
	assert.Equal(t, 5.0, cfg.Objective.Weights.Friend)
	// untouched keys keep their defaults
	assert.Equal(t, 1.0, cfg.Objective.Weights.Age)
	assert.Equal(t, objective.DefaultConfig.MaxAgeRange, cfg.Objective.MaxAgeRange)
	assert.Equal(t, [][]string{{"Ann", "Bo"}}, cfg.Objective.RequiredGroupings)
	assert.True(t, cfg.Objective.EnforceSingleBuddies)
	assert.Equal(t, solver.StrategyMixed, cfg.Optimizer.Strategy)
	assert.Equal(t, 30*time.Second, cfg.Optimizer.ProgressInterval)
	assert.Equal(t, solver.DefaultParams.MaxFailedTries, cfg.Optimizer.MaxFailedTries)
	assert.Equal(t, ",", cfg.Format.Delimiter)
	assert.Equal(t, "Participant Code", cfg.Format.Columns.Name)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("num_group: 3\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no groups", func(c *Config) { c.NumGroups = 0 }, "NumGroups"},
		{"no seeds", func(c *Config) { c.Seeds = nil }, "Seeds"},
		{"strategy", func(c *Config) { c.Optimizer.Strategy = "annealing" }, "Optimizer.Strategy"},
		{"negative weight", func(c *Config) { c.Objective.Weights.Friend = -1 }, "Objective.Weights.Friend"},
		{"short grouping", func(c *Config) { c.Objective.RequiredGroupings = [][]string{{"Ann"}} }, "RequiredGroupings"},
		{"delimiter", func(c *Config) { c.Format.Delimiter = "::" }, "Format.Delimiter"},
		{"no snapshot target", func(c *Config) { c.Snapshot.Dir = "" }, "Snapshot.Dir"},
		{"workers", func(c *Config) { c.Partition.Workers = 0 }, "Partition.Workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := Default()
	cfg.Snapshot.Dir = ""
	cfg.Snapshot.Postgres = "postgres://localhost/conference"
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.NumGroups)

	path := filepath.Join(t.TempDir(), "conference.yaml")
	require.NoError(t, os.WriteFile(path, []byte("num_groups: 4\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NumGroups)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
