package pms

import (
	"time"

	"github.com/banshee-data/airquality.report/internal/units"
)

// Reading is a self-contained copy of the values derived from the latest
// measurement. It is safe to hand to other goroutines.
//
// While the link is failed every concentration is reported as the matching
// invalid sentinel from package units.
type Reading struct {
	Time    time.Time `json:"time"`
	Variant string    `json:"variant"`

	PM01  int `json:"pm01"`
	PM25  int `json:"pm25"`
	PM10  int `json:"pm10"`
	PM03  int `json:"pm03_count"`
	AQI   int `json:"aqi"`
	Raw25 int `json:"pm25_cf1"`

	// Set only for variants with a humidity sensor.
	PM25Compensated  *int     `json:"pm25_compensated,omitempty"`
	TemperatureC     *float64 `json:"temperature_c,omitempty"`
	RelativeHumidity *float64 `json:"relative_humidity,omitempty"`

	FirmwareVersion uint8 `json:"firmware_version"`
	ErrorCode       uint8 `json:"error_code"`

	Link  LinkState `json:"link"`
	Stats Stats     `json:"stats"`
}

// Valid reports whether the reading carries live values.
func (r Reading) Valid() bool { return !r.Link.Failed }

// Reading captures the current state of the sensor.
func (s *Sensor) Reading() Reading {
	e := s.engine
	r := Reading{
		Time:    e.clock.Now(),
		Variant: s.variant.String(),
		Link:    e.LinkState(),
		Stats:   e.Stats(),
	}
	if e.IsFailed() {
		r.PM01, r.PM25, r.PM10 = units.InvalidPM, units.InvalidPM, units.InvalidPM
		r.PM03, r.AQI, r.Raw25 = units.InvalidPM, units.InvalidPM, units.InvalidPM
		return r
	}

	m := e.Measurement()
	r.PM01 = int(m.PM01())
	r.PM25 = int(m.PM25())
	r.PM10 = int(m.PM10())
	r.PM03 = int(m.Count03())
	r.Raw25 = int(m.RawPM25())
	r.FirmwareVersion = m.FirmwareVersion()
	r.ErrorCode = m.ErrorCode()
	r.AQI = PM25ToAQI(float64(r.PM25))
	if !units.IsValidPM(r.PM25) {
		r.AQI = units.InvalidPM
		return r
	}

	if s.variant.HasTempHum() {
		temp, _ := s.TemperatureC()
		rh, _ := s.RelativeHumidity()
		if units.IsValidTemperature(temp) {
			r.TemperatureC = &temp
		}
		if units.IsValidHumidity(rh) {
			r.RelativeHumidity = &rh
			adj := Compensate(r.Raw25, rh)
			r.PM25Compensated = &adj
			r.AQI = PM25ToAQI(float64(adj))
		}
	}
	return r
}
