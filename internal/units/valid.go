package units

// Sentinels reported in place of a value that is unknown, for example while
// the sensor link is failed.
const (
	InvalidTemperature = -1000.0
	InvalidHumidity    = -1.0
	InvalidPM          = -1
)

// Ranges accepted as plausible readings.
const (
	MinTemperature = -40.0
	MaxTemperature = 125.0
	MaxPM          = 1000
)

// IsValidTemperature reports whether v is a plausible temperature in °C.
func IsValidTemperature(v float64) bool {
	return v >= MinTemperature && v <= MaxTemperature
}

// IsValidHumidity reports whether v is a relative humidity in percent.
func IsValidHumidity(v float64) bool {
	return v >= 0 && v <= 100
}

// IsValidPM reports whether v is a plausible mass concentration in µg/m³.
func IsValidPM(v int) bool {
	return v >= 0 && v <= MaxPM
}

// IsValidPM03Count reports whether v is a plausible >0.3µm particle count.
func IsValidPM03Count(v int) bool {
	return v >= 0
}
