// Package config loads the reader's runtime configuration: which transport
// to talk to the PN532 over, its physical parameters, the GPIO lines
// wired to it, and the command timeout/retry policy.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the reader process.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Timing    TimingConfig    `yaml:"timing"`
	Logger    LoggerConfig    `yaml:"logger"`
}

// TransportConfig selects and parameterizes the physical link to the PN532.
type TransportConfig struct {
	// Mode is one of "hsu", "i2c", "spi".
	Mode string `yaml:"mode"`

	Serial SerialConfig `yaml:"serial"`
	I2C    I2CConfig    `yaml:"i2c"`
	SPI    SPIConfig    `yaml:"spi"`
}

// SerialConfig parameterizes the HSU (UART) transport.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// I2CConfig parameterizes the I2C transport.
type I2CConfig struct {
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
}

// SPIConfig parameterizes the SPI transport.
type SPIConfig struct {
	Bus   string `yaml:"bus"`
	Speed int64  `yaml:"speed_hz"`
}

// GPIOConfig names the board pins wired to the PN532's control lines. A
// value of -1 means "not wired" — the driver treats that line as unusable
// and falls back accordingly (no IRQ-gated read readiness, poll-based
// wake only).
type GPIOConfig struct {
	ResetPin int `yaml:"reset_pin"`
	IRQPin   int `yaml:"irq_pin"`
}

// TimingConfig holds the default/long command timeouts and RF-detection
// retry policy.
type TimingConfig struct {
	CommandTimeout     time.Duration `yaml:"command_timeout"`
	LongCommandTimeout time.Duration `yaml:"long_command_timeout"`
	RFRetries          int           `yaml:"rf_retries"`
}

// LoggerConfig mirrors logger.Config so it can be loaded from the same file.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// defaults returns the configuration used when no file is given and a
// value is absent from the loaded file.
func defaults() Config {
	return Config{
		Transport: TransportConfig{
			Mode:   "hsu",
			Serial: SerialConfig{Port: "/dev/ttyUSB0", BaudRate: 115200},
			I2C:    I2CConfig{Bus: "", Address: 0x24},
			SPI:    SPIConfig{Bus: "", Speed: 1_000_000},
		},
		GPIO: GPIOConfig{ResetPin: -1, IRQPin: -1},
		Timing: TimingConfig{
			CommandTimeout:     time.Second,
			LongCommandTimeout: 3 * time.Second,
			RFRetries:          2,
		},
		Logger: LoggerConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from an optional YAML file, overlaying it onto
// the built-in defaults. An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the loaded configuration names a supported
// transport and carries a sane timing policy.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "hsu", "i2c", "spi":
	default:
		return fmt.Errorf("config.transport.mode must be hsu, i2c, or spi, got %q", c.Transport.Mode)
	}
	if c.Timing.CommandTimeout <= 0 {
		return fmt.Errorf("config.timing.command_timeout must be positive")
	}
	if c.Timing.LongCommandTimeout <= 0 {
		return fmt.Errorf("config.timing.long_command_timeout must be positive")
	}
	if c.Timing.RFRetries < 0 {
		return fmt.Errorf("config.timing.rf_retries must be >= 0")
	}
	return nil
}
