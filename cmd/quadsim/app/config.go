package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/sim"
)

// Config represents the simulator configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Flight   config.Config  `yaml:"flight"`
	Airframe sim.Params     `yaml:"airframe"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Radio    RadioConfig    `yaml:"radio"`
	Blackbox BlackboxConfig `yaml:"blackbox"`
	Script   []Step         `yaml:"script"`
}

// Settings represents global simulator settings
type Settings struct {
	LogLevel slog.Level    `yaml:"logLevel"`
	Duration time.Duration `yaml:"duration"`
	// Realtime paces the simulation to the wall clock. Otherwise it runs as fast as possible.
	Realtime bool `yaml:"realtime"`
}

// SensorConfig represents the simulated IMU imperfections
type SensorConfig struct {
	Noise    sim.Noise  `yaml:"noise"`
	Seed     int64      `yaml:"seed"`
	GyroBias [3]float64 `yaml:"gyroBias"`
}

// RadioConfig represents the pilot input source
type RadioConfig struct {
	// SerialPort flies the simulation from a real receiver instead of the script.
	SerialPort string `yaml:"serialPort"`
}

// BlackboxConfig represents flight recorder settings
type BlackboxConfig struct {
	Path      string `yaml:"path"`
	QueueSize int    `yaml:"queueSize"`
	BatchSize int    `yaml:"batchSize"`
}

// Step is a scripted pilot action at a simulated time.
type Step struct {
	At       time.Duration `yaml:"at"`
	Throttle float64       `yaml:"throttle"`
	Roll     float64       `yaml:"roll"`
	Pitch    float64       `yaml:"pitch"`
	Yaw      float64       `yaml:"yaw"`
	Mode     uint8         `yaml:"mode"`
	Aux      float64       `yaml:"aux"`
	Dropout  bool          `yaml:"dropout"`
	Gust     [3]float64    `yaml:"gust"` // deg/s added to roll, pitch and yaw rate
}

// DefaultConfig returns the configuration used for anything the file leaves out.
func DefaultConfig() Config {
	return Config{
		Settings: Settings{
			LogLevel: slog.LevelInfo,
			Duration: 10 * time.Second,
		},
		Flight:   config.Default(),
		Airframe: sim.DefaultParams(),
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	sort.SliceStable(cfg.Script, func(i, j int) bool {
		return cfg.Script[i].At < cfg.Script[j].At
	})
	return &cfg, nil
}

// Validate checks the simulator settings and the flight configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Settings.Duration <= 0 {
		errs = append(errs, fmt.Errorf("settings.duration must be positive, got %s", c.Settings.Duration))
	}
	if c.Airframe.ThrustToWeight <= 1 {
		errs = append(errs, fmt.Errorf("airframe.thrustToWeight must exceed 1, got %v", c.Airframe.ThrustToWeight))
	}
	for i, s := range c.Script {
		if s.At < 0 {
			errs = append(errs, fmt.Errorf("script[%d].at must not be negative", i))
		}
	}
	if err := c.Flight.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("flight: %w", err))
	}
	return errors.Join(errs...)
}
