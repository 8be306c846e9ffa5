// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Grid() GridConfig
	Exploration() ExplorationConfig
	Planning() PlanningConfig
	Mission() MissionConfig
	Scenario() ScenarioConfig
	Store() StoreConfig

	SetMissionStepBudget(int)
	SetMissionSeed(int64)
	SetScenarioFile(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	GridCfg        GridConfig        `mapstructure:"grid" yaml:"grid"`
	ExplorationCfg ExplorationConfig `mapstructure:"exploration" yaml:"exploration"`
	PlanningCfg    PlanningConfig    `mapstructure:"planning" yaml:"planning"`
	MissionCfg     MissionConfig     `mapstructure:"mission" yaml:"mission"`
	ScenarioCfg    ScenarioConfig    `mapstructure:"scenario" yaml:"scenario"`
	StoreCfg       StoreConfig       `mapstructure:"store" yaml:"store"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Grid() GridConfig               { return c.GridCfg }
func (c *Config) Exploration() ExplorationConfig { return c.ExplorationCfg }
func (c *Config) Planning() PlanningConfig       { return c.PlanningCfg }
func (c *Config) Mission() MissionConfig         { return c.MissionCfg }
func (c *Config) Scenario() ScenarioConfig       { return c.ScenarioCfg }
func (c *Config) Store() StoreConfig             { return c.StoreCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetMissionStepBudget(n int) { c.MissionCfg.StepBudget = n }
func (c *Config) SetMissionSeed(s int64)     { c.MissionCfg.Seed = s }
func (c *Config) SetScenarioFile(p string)   { c.ScenarioCfg.File = p }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	Format      string      `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size" validate:"gte=0"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age" validate:"gte=0"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Occupancy test selectors understood by the local grid.
const (
	OccupancyBelowThreshold = "below_threshold"
	OccupancyAboveThreshold = "above_threshold"
	OccupancyAlphaThreshold = "alpha_threshold"
)

// GridConfig describes the agent-centred occupancy patch.
type GridConfig struct {
	CellCount     int     `mapstructure:"cell_count" yaml:"cell_count" validate:"gte=3"`
	CellSize      float64 `mapstructure:"cell_size" yaml:"cell_size" validate:"gt=0"`
	OccupancyTest string  `mapstructure:"occupancy_test" yaml:"occupancy_test" validate:"oneof=below_threshold above_threshold alpha_threshold"`
	Threshold     uint8   `mapstructure:"threshold" yaml:"threshold"`
}

// Length is the side length of the patch in meters.
func (g GridConfig) Length() float64 {
	return float64(g.CellCount) * g.CellSize
}

// Frontier sampler selectors.
const (
	SamplerDonut   = "donut"
	SamplerAngular = "angular"
)

// ExplorationConfig tunes frontier generation, pruning and arrival checks.
type ExplorationConfig struct {
	Sampler              string  `mapstructure:"sampler" yaml:"sampler" validate:"oneof=donut angular"`
	NumSamples           int     `mapstructure:"n_samples" yaml:"n_samples" validate:"gte=1"`
	SampleRingWidth      float64 `mapstructure:"sample_ring_width" yaml:"sample_ring_width" validate:"gt=0,lte=1"`
	MaxSampleAttempts    int     `mapstructure:"max_sample_attempts" yaml:"max_sample_attempts" validate:"gte=1"`
	PruneRadiusFactor    float64 `mapstructure:"prune_radius_factor" yaml:"prune_radius_factor" validate:"gt=0"`
	ArrivalMargin        float64 `mapstructure:"arrival_margin" yaml:"arrival_margin" validate:"gt=0"`
	PrevPosMargin        float64 `mapstructure:"prev_pos_margin" yaml:"prev_pos_margin" validate:"gt=0"`
	LocalizationMargin   float64 `mapstructure:"localization_margin" yaml:"localization_margin" validate:"gt=0"`
	ShortcutMarginFactor float64 `mapstructure:"shortcut_margin_factor" yaml:"shortcut_margin_factor" validate:"gt=0,lte=1"`
}

// Path finding method selectors.
const (
	PathFindingAStar    = "astar"
	PathFindingDijkstra = "dijkstra"
)

// PlanningConfig selects the shortest path algorithm and optional per-objective
// reward overrides, keyed by objective name.
type PlanningConfig struct {
	PathFinding string             `mapstructure:"path_finding" yaml:"path_finding" validate:"oneof=astar dijkstra"`
	Rewards     map[string]float64 `mapstructure:"rewards" yaml:"rewards" validate:"dive,gte=0"`
}

// MissionConfig controls the tick loop.
type MissionConfig struct {
	StepBudget      int     `mapstructure:"step_budget" yaml:"step_budget" validate:"gte=1"`
	TickRate        float64 `mapstructure:"tick_rate" yaml:"tick_rate" validate:"gte=0"`
	Seed            int64   `mapstructure:"seed" yaml:"seed"`
	TelemetryBuffer int     `mapstructure:"telemetry_buffer" yaml:"telemetry_buffer" validate:"gte=1"`
}

// ScenarioConfig points at the simulated world description.
type ScenarioConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// Snapshot store selectors.
const (
	StoreNone     = "none"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreFile     = "file"
)

// StoreConfig selects where mission-view snapshots are recorded, if anywhere.
type StoreConfig struct {
	Type    string        `mapstructure:"type" yaml:"type" validate:"oneof=none postgres sqlite file"`
	DSN     string        `mapstructure:"dsn" yaml:"-"`
	Path    string        `mapstructure:"path" yaml:"path"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "sgexplore")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Grid --
	v.SetDefault("grid.cell_count", 65)
	v.SetDefault("grid.cell_size", 0.1)
	v.SetDefault("grid.occupancy_test", OccupancyBelowThreshold)
	v.SetDefault("grid.threshold", 220)

	// -- Exploration --
	v.SetDefault("exploration.sampler", SamplerDonut)
	v.SetDefault("exploration.n_samples", 8)
	v.SetDefault("exploration.sample_ring_width", 0.1)
	v.SetDefault("exploration.max_sample_attempts", 100)
	v.SetDefault("exploration.prune_radius_factor", 0.25)
	v.SetDefault("exploration.arrival_margin", 0.5)
	v.SetDefault("exploration.prev_pos_margin", 0.5)
	v.SetDefault("exploration.localization_margin", 0.5)
	v.SetDefault("exploration.shortcut_margin_factor", 0.9)

	// -- Planning --
	v.SetDefault("planning.path_finding", PathFindingAStar)

	// -- Mission --
	v.SetDefault("mission.step_budget", 200)
	v.SetDefault("mission.tick_rate", 0)
	v.SetDefault("mission.seed", 1)
	v.SetDefault("mission.telemetry_buffer", 64)

	// -- Scenario --
	v.SetDefault("scenario.file", "scenario.yaml")

	// -- Store --
	v.SetDefault("store.type", StoreNone)
	v.SetDefault("store.path", "snapshots")
	v.SetDefault("store.timeout", "10s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("store.dsn", "SGEXPLORE_STORE_DSN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// validate is shared; validator.Validate caches struct metadata and is safe for concurrent use.
var validate = validator.New()

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s' (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	if c.GridCfg.CellCount%2 == 0 {
		return fmt.Errorf("grid.cell_count must be odd so the agent sits on the centre cell")
	}
	if err := c.StoreCfg.Validate(); err != nil {
		return fmt.Errorf("store configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the store configuration.
func (s *StoreConfig) Validate() error {
	switch s.Type {
	case StorePostgres:
		if s.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres store. Ensure SGEXPLORE_STORE_DSN is set")
		}
	case StoreSQLite, StoreFile:
		if s.Path == "" {
			return fmt.Errorf("path is required for the %s store", s.Type)
		}
	}
	return nil
}
