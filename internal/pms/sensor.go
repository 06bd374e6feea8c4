package pms

import (
	"fmt"
	"strings"

	"github.com/banshee-data/airquality.report/internal/monitoring"
)

// Variant identifies the sensor model, which decides how the last two count
// fields are interpreted.
type Variant int

const (
	PMS5003 Variant = iota
	// PMS5003T reports temperature and humidity instead of the >5.0µm and
	// >10µm particle counts.
	PMS5003T
)

func (v Variant) String() string {
	switch v {
	case PMS5003:
		return "pms5003"
	case PMS5003T:
		return "pms5003t"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant parses a variant name as used in configuration files.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pms5003":
		return PMS5003, nil
	case "pms5003t":
		return PMS5003T, nil
	default:
		return 0, fmt.Errorf("unknown sensor variant %q: expected pms5003 or pms5003t", s)
	}
}

// HasTempHum reports whether the variant carries temperature and humidity.
func (v Variant) HasTempHum() bool { return v == PMS5003T }

// Sensor is a PMS5003-family sensor attached to one serial stream.
type Sensor struct {
	variant Variant
	engine  *Engine
	begun   bool
	logf    func(format string, v ...any)
}

// NewSensor creates a Sensor of the given variant. Options are passed to the
// underlying Engine.
func NewSensor(variant Variant, opts ...Option) *Sensor {
	return &Sensor{
		variant: variant,
		engine:  NewEngine(opts...),
		logf:    monitoring.WithPrefix(variant.String() + ": "),
	}
}

// Begin brings the sensor up on stream. Calling Begin on a sensor that is
// already initialised is a no-op that returns true; call End first to
// re-initialise.
func (s *Sensor) Begin(stream Stream) bool {
	if s.begun {
		s.logf("already initialized, call End() then try again")
		return true
	}
	if !s.engine.Begin(stream) {
		s.logf("failed to initialize")
		return false
	}
	s.begun = true
	return true
}

// End detaches the sensor from its stream. The owner remains responsible for
// closing the stream itself.
func (s *Sensor) End() {
	if !s.begun {
		return
	}
	s.begun = false
	s.engine.stream = nil
	s.logf("de-initialized")
}

// IsBegin reports whether Begin has succeeded since the last End.
func (s *Sensor) IsBegin() bool {
	if !s.begun {
		s.logf("not initialized")
	}
	return s.begun
}

// Handle polls the sensor. It should be called from the owner's main loop.
func (s *Sensor) Handle() { s.engine.Handle() }

// IsFailed reports a link timeout or a sensor that never came up.
func (s *Sensor) IsFailed() bool { return s.engine.IsFailed() }

func (s *Sensor) Variant() Variant { return s.variant }
func (s *Sensor) Engine() *Engine  { return s.engine }

func (s *Sensor) UpdateFailCount()  { s.engine.UpdateFailCount() }
func (s *Sensor) ResetFailCount()   { s.engine.ResetFailCount() }
func (s *Sensor) FailCount() int    { return s.engine.FailCount() }
func (s *Sensor) FailCountMax() int { return s.engine.FailCountMax() }

// PM01Ae returns the atmospheric PM1.0 concentration in µg/m³.
func (s *Sensor) PM01Ae() int { return int(s.engine.record.PM01()) }

// PM25Ae returns the atmospheric PM2.5 concentration in µg/m³.
func (s *Sensor) PM25Ae() int { return int(s.engine.record.PM25()) }

// PM10Ae returns the atmospheric PM10 concentration in µg/m³.
func (s *Sensor) PM10Ae() int { return int(s.engine.record.PM10()) }

// PM03ParticleCount returns the >0.3µm particle count per 0.1L.
func (s *Sensor) PM03ParticleCount() int { return int(s.engine.record.Count03()) }

// ConvertPM25ToUSAQI converts a PM2.5 concentration to US AQI.
func (s *Sensor) ConvertPM25ToUSAQI(pm25 int) int { return PM25ToAQI(float64(pm25)) }

// TemperatureC returns the PMS5003T temperature in °C. ok is false for
// variants without the sensor.
func (s *Sensor) TemperatureC() (temp float64, ok bool) {
	if !s.variant.HasTempHum() {
		return 0, false
	}
	return float64(s.engine.record.Temperature()) / 10, true
}

// RelativeHumidity returns the PMS5003T relative humidity in percent. ok is
// false for variants without the sensor.
func (s *Sensor) RelativeHumidity() (rh float64, ok bool) {
	if !s.variant.HasTempHum() {
		return 0, false
	}
	return float64(s.engine.record.Humidity()) / 10, true
}
