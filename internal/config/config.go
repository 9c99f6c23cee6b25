// Package config loads orient settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jwulff/orient/internal/db"
)

// Source kinds.
const (
	SourceNone    = "none"
	SourceMock    = "mock"
	SourceSocket  = "socket"
	SourceMQTT    = "mqtt"
	SourceSerial  = "serial"
	SourceMPU9250 = "mpu9250"
)

// SourceKinds lists the accepted values of Source.Kind.
var SourceKinds = []string{SourceNone, SourceMock, SourceSocket, SourceMQTT, SourceSerial, SourceMPU9250}

// ─── Sections ───────────────────────────────────────────────────────────

type SamplingConfig struct {
	Interval      time.Duration `yaml:"interval"`
	SkipUnchanged bool          `yaml:"skip_unchanged"`
	Tolerance     float64       `yaml:"tolerance"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

type SocketConfig struct {
	Path   string `yaml:"path"`
	Sensor string `yaml:"sensor"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate uint   `yaml:"baud_rate"`
}

type MPU9250Config struct {
	SPIDevice string `yaml:"spi_device"`
	CSPin     string `yaml:"cs_pin"`
}

type SourceConfig struct {
	Kind    string        `yaml:"kind"`
	RateHz  int           `yaml:"rate_hz"`
	Socket  SocketConfig  `yaml:"socket"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Serial  SerialConfig  `yaml:"serial"`
	MPU9250 MPU9250Config `yaml:"mpu9250"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the top-level structure of config.yaml.
type Config struct {
	DBPath   string         `yaml:"db_path"`
	LogFile  string         `yaml:"log_file"`
	Sampling SamplingConfig `yaml:"sampling"`
	Source   SourceConfig   `yaml:"source"`
	Export   ExportConfig   `yaml:"export"`
	Web      WebConfig      `yaml:"web"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "orient", "config.yaml")
	}
	return "config.yaml"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DBPath: db.DefaultDBPath(),
		Sampling: SamplingConfig{
			Interval:     time.Second,
			Tolerance:    0.01,
			PollInterval: db.DefaultPollInterval,
		},
		Source: SourceConfig{
			Kind:   SourceMock,
			RateHz: 20,
			MQTT: MQTTConfig{
				Broker:   "tcp://localhost:1883",
				Topic:    "orient/accel",
				ClientID: "orient-recorder",
			},
			Serial: SerialConfig{
				Port:     "/dev/ttyUSB0",
				BaudRate: 115200,
			},
			MPU9250: MPU9250Config{
				SPIDevice: "/dev/spidev0.0",
				CSPin:     "8",
			},
		},
		Web: WebConfig{Addr: ":8080"},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Sampling.Interval <= 0 {
		return fmt.Errorf("sampling.interval must be positive, got %s", c.Sampling.Interval)
	}
	if c.Sampling.Tolerance < 0 {
		return fmt.Errorf("sampling.tolerance must not be negative, got %g", c.Sampling.Tolerance)
	}
	if c.Source.RateHz <= 0 {
		return fmt.Errorf("source.rate_hz must be positive, got %d", c.Source.RateHz)
	}
	for _, k := range SourceKinds {
		if c.Source.Kind == k {
			return nil
		}
	}
	return fmt.Errorf("invalid source.kind %q: must be one of %v", c.Source.Kind, SourceKinds)
}
