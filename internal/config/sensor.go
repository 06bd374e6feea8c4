package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/airquality.report/internal/pms"
	"github.com/banshee-data/airquality.report/internal/serialport"
	"github.com/banshee-data/airquality.report/internal/units"
)

// Defaults used when a field is absent from the configuration file.
const (
	DefaultPort         = "/dev/ttyUSB0"
	DefaultVariant      = "pms5003"
	DefaultTickInterval = 100 * time.Millisecond
	DefaultListen       = ":8080"
	DefaultTempUnits    = units.Celsius
)

// SensorConfig is the daemon configuration. All fields are optional; the
// Get* methods return the default for any field left unset.
type SensorConfig struct {
	Port   *string                 `json:"port,omitempty"`
	Serial *serialport.PortOptions `json:"serial,omitempty"`

	// Variant is "pms5003" or "pms5003t".
	Variant *string `json:"variant,omitempty"`

	TickInterval *string `json:"tick_interval,omitempty"` // duration string like "100ms"
	FailCountMax *int    `json:"fail_count_max,omitempty"`
	BufferLimit  *int    `json:"buffer_limit,omitempty"`

	Listen    *string `json:"listen,omitempty"`
	TempUnits *string `json:"temperature_units,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptySensorConfig returns a SensorConfig with all fields set to nil.
func EmptySensorConfig() *SensorConfig {
	return &SensorConfig{}
}

// LoadSensorConfig loads a SensorConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadSensorConfig(path string) (*SensorConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySensorConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *SensorConfig) Validate() error {
	if c.Port != nil && *c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}

	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("invalid serial options: %w", err)
		}
	}

	if c.Variant != nil {
		if _, err := pms.ParseVariant(*c.Variant); err != nil {
			return err
		}
	}

	if c.TickInterval != nil && *c.TickInterval != "" {
		d, err := time.ParseDuration(*c.TickInterval)
		if err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("tick_interval must be positive, got %s", d)
		}
	}

	if c.FailCountMax != nil && *c.FailCountMax < 1 {
		return fmt.Errorf("fail_count_max must be at least 1, got %d", *c.FailCountMax)
	}

	if c.BufferLimit != nil && *c.BufferLimit < pms.FrameLength {
		return fmt.Errorf("buffer_limit must be at least %d, got %d", pms.FrameLength, *c.BufferLimit)
	}

	if c.TempUnits != nil && !units.IsValid(*c.TempUnits) {
		return fmt.Errorf("invalid temperature_units %q: must be one of %s", *c.TempUnits, units.GetValidUnitsString())
	}

	return nil
}

// GetPort returns the serial device path or the default.
func (c *SensorConfig) GetPort() string {
	if c.Port == nil {
		return DefaultPort
	}
	return *c.Port
}

// GetSerial returns the normalized serial options. Invalid options fall back
// to the sensor's 9600 8N1.
func (c *SensorConfig) GetSerial() serialport.PortOptions {
	var opts serialport.PortOptions
	if c.Serial != nil {
		opts = *c.Serial
	}
	norm, err := opts.Normalize()
	if err != nil {
		norm, _ = serialport.PortOptions{}.Normalize()
	}
	return norm
}

// GetVariant returns the parsed sensor variant or the default.
func (c *SensorConfig) GetVariant() pms.Variant {
	if c.Variant == nil {
		return pms.PMS5003
	}
	v, err := pms.ParseVariant(*c.Variant)
	if err != nil {
		return pms.PMS5003
	}
	return v
}

// GetTickInterval parses and returns the main loop tick interval.
func (c *SensorConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return DefaultTickInterval
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil || d <= 0 {
		return DefaultTickInterval // default on parse error
	}
	return d
}

// GetFailCountMax returns the fail_count_max value or the default.
func (c *SensorConfig) GetFailCountMax() int {
	if c.FailCountMax == nil {
		return pms.DefaultFailCountMax
	}
	return *c.FailCountMax
}

// GetBufferLimit returns the buffer_limit value or the default.
func (c *SensorConfig) GetBufferLimit() int {
	if c.BufferLimit == nil {
		return serialport.DefaultBufferLimit
	}
	return *c.BufferLimit
}

// GetListen returns the HTTP listen address or the default.
func (c *SensorConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetTempUnits returns the temperature display units or the default.
func (c *SensorConfig) GetTempUnits() string {
	if c.TempUnits == nil {
		return DefaultTempUnits
	}
	return *c.TempUnits
}

// WithOverrides returns a copy of c with any non-empty command-line values
// applied on top.
func (c *SensorConfig) WithOverrides(port, listen string) *SensorConfig {
	out := *c
	if port != "" {
		out.Port = ptrString(port)
	}
	if listen != "" {
		out.Listen = ptrString(listen)
	}
	return &out
}
