// Package config loads run settings from YAML on top of built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"conference/mip"
	"conference/objective"
	"conference/partition"
	"conference/roster"
	"conference/solver"
)

type Config struct {
	Roster    string        `yaml:"roster" validate:"required"`
	Format    roster.Format `yaml:"format"`
	NumGroups int           `yaml:"num_groups" validate:"gt=0"`
	// Each seed gives a separate run with its own snapshot.
	Seeds []int64 `yaml:"seeds" validate:"min=1"`

	Snapshot  Snapshot         `yaml:"snapshot"`
	Objective objective.Config `yaml:"objective"`
	Optimizer solver.Params    `yaml:"optimizer"`
	Partition partition.Params `yaml:"partition"`
	MIP       mip.Params       `yaml:"mip"`
	Windowed  Windowed         `yaml:"windowed"`

	// MetricsFile, when set, receives optimizer metrics in the Prometheus
	// text format at the end of each run.
	MetricsFile string `yaml:"metrics_file"`
}

type Snapshot struct {
	// Dir holds one conference_<seed>.json per seed.
	Dir string `yaml:"dir" validate:"required_without=Postgres"`
	// Postgres is a lib/pq connection string. When set, snapshots go to the
	// database instead of Dir.
	Postgres string `yaml:"postgres"`
	Name     string `yaml:"name" validate:"required"`
}

// Windowed configures a full re-partition of the roster by age windows.
type Windowed struct {
	GroupsPerSearch int    `yaml:"groups_per_search" validate:"gt=0"`
	YoungestFirst   bool   `yaml:"youngest_first"`
	Output          string `yaml:"output" validate:"required"`
}

func Default() Config {
	format := roster.DefaultFormat
	format.Columns.Friends = slices.Clone(format.Columns.Friends)
	return Config{
		Roster:    "data/input.txt",
		Format:    format,
		NumGroups: 10,
		Seeds:     []int64{0},
		Snapshot: Snapshot{
			Dir:  "results",
			Name: "conference",
		},
		Objective: objective.DefaultConfig,
		Optimizer: solver.DefaultParams,
		Partition: partition.DefaultParams,
		MIP:       mip.DefaultParams,
		Windowed: Windowed{
			GroupsPerSearch: 3,
			YoungestFirst:   true,
			Output:          "results/partition.json",
		},
	}
}

// SnapshotPath is the snapshot file for a seed.
func (c *Config) SnapshotPath(seed int64) string {
	return filepath.Join(c.Snapshot.Dir, fmt.Sprintf("conference_%d.json", seed))
}

// SnapshotName is the Postgres snapshot name for a seed.
func (c *Config) SnapshotName(seed int64) string {
	return fmt.Sprintf("%s_%d", c.Snapshot.Name, seed)
}

var validate = validator.New()

func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, e := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q", strings.TrimPrefix(e.Namespace(), "Config."), e.Tag())
		if e.Param() != "" {
			msgs[i] += " (" + e.Param() + ")"
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Load reads path, or returns the defaults when path is empty. The result is
// not validated so flags can still override it.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
