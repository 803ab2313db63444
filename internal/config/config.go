// Package config loads the devtools daemon's configuration using Viper:
// flags, then DEVTOOLS_* environment variables, then an optional TOML file
// at the state directory, then built-in defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

// Config holds every daemon tunable named in spec.md §6.4 plus the
// internal timeouts §5 declares as caller/implementation defaults.
type Config struct {
	Port      int    `mapstructure:"port"`
	StateDir  string `mapstructure:"state_dir"`
	JSONLogs  bool   `mapstructure:"json_logs"`

	InspectTimeout        time.Duration `mapstructure:"inspect_timeout"`
	DefaultWaitTimeout     time.Duration `mapstructure:"default_wait_timeout"`
	ProfileStopGrace       time.Duration `mapstructure:"profile_stop_grace"`
	HealthRingCapacity     int           `mapstructure:"health_ring_capacity"`
	ReconnectWindow        time.Duration `mapstructure:"reconnect_window"`
	ShutdownDrainTimeout   time.Duration `mapstructure:"shutdown_drain_timeout"`
}

// DefaultStateDir returns $HOME/.agent-react-devtools, or the OS equivalent.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".agent-react-devtools")
}

// SetDefaults configures default values on a Viper instance, mirroring the
// teacher's am.SetDefaults shape: one SetDefault call per knob, grouped by
// subsystem.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8097)
	v.SetDefault("state_dir", DefaultStateDir())
	v.SetDefault("json_logs", false)

	v.SetDefault("inspect_timeout", 5*time.Second)
	v.SetDefault("default_wait_timeout", 30*time.Second)
	v.SetDefault("profile_stop_grace", 200*time.Millisecond)
	v.SetDefault("health_ring_capacity", 8)
	v.SetDefault("reconnect_window", 5*time.Second)
	v.SetDefault("shutdown_drain_timeout", 5*time.Second)
}

// Load builds a Viper instance bound to DEVTOOLS_* environment variables
// and, if present, a config.toml in the resolved state directory, applies
// defaults, and unmarshals into a Config.
func Load(portFlag int, stateDirFlag string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEVTOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	stateDir := stateDirFlag
	if stateDir == "" {
		stateDir = v.GetString("state_dir")
	}

	if data, err := os.ReadFile(filepath.Join(stateDir, "config.toml")); err == nil {
		var fileValues map[string]interface{}
		if _, err := toml.Decode(string(data), &fileValues); err != nil {
			return nil, wireerr.Wrapf(err, "parsing config.toml in %s", stateDir)
		}
		// SetDefault, not Set: Set would outrank the env vars AutomaticEnv
		// already wired in, inverting the documented flags > env > file >
		// defaults precedence.
		for k, val := range fileValues {
			v.SetDefault(k, val)
		}
	}

	if portFlag != 0 {
		v.Set("port", portFlag)
	}
	if stateDirFlag != "" {
		v.Set("state_dir", stateDirFlag)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, wireerr.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}
