// Package config holds the station configuration and the build version.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// Version is injected at build time.
var Version = "dev"

// Bus adapters
const (
	AdapterPeriph  = "periph"
	AdapterGobot   = "gobot"
	AdapterMCP2221 = "mcp2221"
	AdapterMock    = "mock"
)

var ErrInvalidConfig = errors.New("invalid config")

type Bus struct {
	Adapter string `yaml:"adapter"`
	// Device names the host bus for the periph adapter, e.g. "/dev/i2c-1".
	Device string `yaml:"device"`
	// Number selects the gobot bus; negative means the adaptor default.
	Number int    `yaml:"number"`
	Speed  string `yaml:"speed"`
}

// Frequency parses Speed; an empty value leaves the bus at its current clock.
func (b Bus) Frequency() (physic.Frequency, error) {
	var f physic.Frequency
	if b.Speed == "" {
		return 0, nil
	}
	if err := f.Set(b.Speed); err != nil {
		return 0, fmt.Errorf("%w: bus speed %q: %v", ErrInvalidConfig, b.Speed, err)
	}
	return f, nil
}

type Device struct {
	Enabled     bool          `yaml:"enabled"`
	Address     uint8         `yaml:"address"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

type CCS811 struct {
	Device    `yaml:",inline"`
	DriveMode uint8 `yaml:"drive_mode"`
	// Baseline is restored after bring-up when set.
	Baseline uint16 `yaml:"baseline,omitempty"`
}

type Si7021 struct {
	Device   `yaml:",inline"`
	CheckCRC bool `yaml:"check_crc"`
}

type Config struct {
	Bus      Bus           `yaml:"bus"`
	Interval time.Duration `yaml:"interval"`
	CCS811   CCS811        `yaml:"ccs811"`
	BMP280   Device        `yaml:"bmp280"`
	Si7021   Si7021        `yaml:"si7021"`
}

// Default matches the reference station: all three sensors on /dev/i2c-1.
func Default() Config {
	return Config{
		Bus: Bus{
			Adapter: AdapterPeriph,
			Device:  "/dev/i2c-1",
			Number:  -1,
		},
		Interval: 5 * time.Second,
		CCS811: CCS811{
			Device:    Device{Enabled: true, Address: 0x5B, SettleDelay: 3 * time.Second},
			DriveMode: 1,
		},
		BMP280: Device{Enabled: true, Address: 0x76, SettleDelay: 3 * time.Second},
		Si7021: Si7021{
			Device:   Device{Enabled: true, Address: 0x40, SettleDelay: 3 * time.Second},
			CheckCRC: true,
		},
	}
}

// Load reads path over the defaults, so a file only needs the values it changes.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Bus.Adapter {
	case AdapterPeriph, AdapterGobot, AdapterMCP2221, AdapterMock:
	default:
		return fmt.Errorf("%w: unknown bus adapter %q", ErrInvalidConfig, c.Bus.Adapter)
	}
	if _, err := c.Bus.Frequency(); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.CCS811.DriveMode > 4 {
		return fmt.Errorf("%w: ccs811 drive mode %d", ErrInvalidConfig, c.CCS811.DriveMode)
	}
	for name, d := range map[string]Device{"ccs811": c.CCS811.Device, "bmp280": c.BMP280, "si7021": c.Si7021.Device} {
		if d.Enabled && d.Address > 0x7F {
			return fmt.Errorf("%w: %s address %#02x is not a 7-bit address", ErrInvalidConfig, name, d.Address)
		}
	}
	return nil
}

// Save writes the configuration as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}
	return nil
}
