// Package config loads Chitti's settings via Viper: a YAML file at a
// conventional location, overridable by environment variables, with the
// defaults spec.md §6 names.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BrainConfig configures the pkg/brainclient.Client construction.
type BrainConfig struct {
	Credential     string        `mapstructure:"credential"`
	BaseURL        string        `mapstructure:"base_url"`
	DefaultModel   string        `mapstructure:"default_model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BashToolConfig configures the built-in bash reference tool.
type BashToolConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxOutputBytes int           `mapstructure:"max_output_bytes"`
}

// ToolsConfig groups every built-in tool's settings.
type ToolsConfig struct {
	Bash BashToolConfig `mapstructure:"bash"`
}

// ConductorConfig configures the turn state machine.
type ConductorConfig struct {
	MaxTurnRoundtrips  int  `mapstructure:"max_turn_roundtrips"`
	AuthorizeByDefault bool `mapstructure:"authorize_by_default"`
}

// FrontendConfig configures the reference terminal Frontend Bridge.
type FrontendConfig struct {
	Prompt string `mapstructure:"prompt"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level string `mapstructure:"level"` // off|error|warn|info|debug|trace
}

// Settings is Chitti's fully-resolved configuration.
type Settings struct {
	Brain     BrainConfig     `mapstructure:"brain"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Conductor ConductorConfig `mapstructure:"conductor"`
	Frontend  FrontendConfig  `mapstructure:"frontend"`
	Log       LogConfig       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	// An empty default makes brain.credential a known key, so AutomaticEnv
	// feeds CHITTI_BRAIN_CREDENTIAL into Unmarshal; Validate still rejects
	// it when nothing sets it.
	v.SetDefault("brain.credential", "")
	v.SetDefault("brain.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("brain.default_model", "gemini-2.0-flash")
	v.SetDefault("brain.request_timeout", 60*time.Second)

	v.SetDefault("tools.bash.enabled", true)
	v.SetDefault("tools.bash.timeout", 30*time.Second)
	v.SetDefault("tools.bash.max_output_bytes", 1<<20)

	v.SetDefault("conductor.max_turn_roundtrips", 12)
	v.SetDefault("conductor.authorize_by_default", false)

	v.SetDefault("frontend.prompt", "> ")

	v.SetDefault("log.level", "info")
}

// Load reads chitti.yaml from the current directory or /etc/chitti (or the
// file named by the CHITTI_CONFIG env var), overlays CHITTI_*-prefixed
// environment variables, and unmarshals the result into a Settings.
// When CHITTI_CONFIG is unset, a missing chitti.yaml is not an error: the
// defaults plus environment overrides alone are a valid configuration
// (e.g. CHITTI_BRAIN_CREDENTIAL set directly in the shell). A file named
// by CHITTI_CONFIG must exist.
func Load() (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("chitti")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path := os.Getenv("CHITTI_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("chitti")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/chitti")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: failed to read chitti.yaml: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate enforces the invariants the rest of the program assumes hold.
func (s *Settings) Validate() error {
	if s.Brain.Credential == "" {
		return fmt.Errorf("config: brain.credential is required")
	}
	if s.Brain.DefaultModel == "" {
		return fmt.Errorf("config: brain.default_model is required")
	}
	switch s.Log.Level {
	case "off", "error", "warn", "info", "debug", "trace":
	default:
		return fmt.Errorf("config: log.level %q is not one of off|error|warn|info|debug|trace", s.Log.Level)
	}
	return nil
}
