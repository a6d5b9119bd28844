// Package config loads the application configuration: defaults, an
// optional YAML file, and MARIONETTE_* environment overrides, merged in
// that order through viper. Consumers depend on the Interface rather than
// the concrete struct so tests can substitute narrow fakes.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mottledev/marionette/internal/rig"
)

// Interface is the read surface of the configuration plus the few setters
// the CLI overrides from flags.
type Interface interface {
	Logger() LoggerConfig
	Pipeline() PipelineConfig
	Simulation() SimulationConfig
	Character() rig.Config

	SetPipelineWorkers(int)
	SetSimulationFrames(int)
	SetSimulationFrameRate(float64)
	SetSimulationMoveSpeed(float64)
	SetCharacterSeed(int64)
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the console color per log level.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// PipelineConfig sizes the frame executor.
type PipelineConfig struct {
	// Workers caps concurrent jobs. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// SimulationConfig drives the headless demo loop.
type SimulationConfig struct {
	// FrameRate is the fixed step rate in frames per second.
	FrameRate float64 `mapstructure:"frame_rate" yaml:"frame_rate"`
	// Frames is how many steps to run. Zero runs until interrupted.
	Frames int `mapstructure:"frames" yaml:"frames"`
	// MoveSpeed is the forward ground speed commanded to the walker.
	MoveSpeed float64 `mapstructure:"move_speed" yaml:"move_speed"`
	// TelemetryEvery logs walker telemetry every N frames.
	TelemetryEvery int `mapstructure:"telemetry_every" yaml:"telemetry_every"`
}

// Config is the full application configuration. Fields are exported for
// unmarshaling; consumers go through the Interface getters.
type Config struct {
	Log  LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Pipe PipelineConfig   `mapstructure:"pipeline" yaml:"pipeline"`
	Sim  SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Char rig.Config       `mapstructure:"character" yaml:"character"`
}

func (c *Config) Logger() LoggerConfig         { return c.Log }
func (c *Config) Pipeline() PipelineConfig     { return c.Pipe }
func (c *Config) Simulation() SimulationConfig { return c.Sim }
func (c *Config) Character() rig.Config        { return c.Char }

func (c *Config) SetPipelineWorkers(n int)         { c.Pipe.Workers = n }
func (c *Config) SetSimulationFrames(n int)        { c.Sim.Frames = n }
func (c *Config) SetSimulationFrameRate(r float64) { c.Sim.FrameRate = r }
func (c *Config) SetSimulationMoveSpeed(s float64) { c.Sim.MoveSpeed = s }
func (c *Config) SetCharacterSeed(seed int64)      { c.Char.Seed = seed }

// NewDefaultConfig returns the configuration with every default applied
// and no file or environment input.
func NewDefaultConfig() *Config {
	return &Config{
		Log: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "marionette",
			MaxSize:     100,
			MaxBackups:  5,
			MaxAge:      30,
			Compress:    true,
		},
		Pipe: PipelineConfig{Workers: 0},
		Sim: SimulationConfig{
			FrameRate:      60,
			Frames:         600,
			MoveSpeed:      0.6,
			TelemetryEvery: 60,
		},
		Char: rig.DefaultConfig(),
	}
}

// SetDefaults registers the scalar defaults on a viper instance so file
// and environment values merge over them key by key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "marionette")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	v.SetDefault("pipeline.workers", 0)

	v.SetDefault("simulation.frame_rate", 60.0)
	v.SetDefault("simulation.frames", 600)
	v.SetDefault("simulation.move_speed", 0.6)
	v.SetDefault("simulation.telemetry_every", 60)
}

// Load reads the configuration: defaults, then the YAML file at path if
// path is non-empty, then MARIONETTE_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("MARIONETTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper unmarshals a prepared viper instance over the
// defaults and validates the result.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks for values no subsystem can clamp into sanity on its
// own.
func (c *Config) Validate() error {
	if c.Pipe.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative, got %d", c.Pipe.Workers)
	}
	if c.Sim.FrameRate <= 0 {
		return fmt.Errorf("simulation.frame_rate must be positive, got %v", c.Sim.FrameRate)
	}
	if c.Sim.Frames < 0 {
		return fmt.Errorf("simulation.frames must not be negative, got %d", c.Sim.Frames)
	}
	if c.Char.Locomotion.StandHeight <= 0 {
		return fmt.Errorf("character.locomotion.stand_height must be positive, got %v",
			c.Char.Locomotion.StandHeight)
	}
	if c.Char.Locomotion.Gait.CycleDuration <= 0 {
		return fmt.Errorf("character.locomotion.gait.cycle_duration must be positive, got %v",
			c.Char.Locomotion.Gait.CycleDuration)
	}
	return nil
}
