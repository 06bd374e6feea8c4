// Package units provides shared constants, conversions and validity checks
// for reported air-quality values.
package units

import "math"

// Temperature unit constants
const (
	Celsius    = "c"
	Fahrenheit = "f"
)

// ValidUnits contains all valid temperature unit values
var ValidUnits = []string{Celsius, Fahrenheit}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "c, f"
}

// ConvertTemperature converts a temperature from degrees Celsius to the
// target units. Unknown units leave the value in Celsius.
func ConvertTemperature(celsius float64, targetUnits string) float64 {
	switch targetUnits {
	case Fahrenheit:
		return celsius*9/5 + 32
	default:
		return celsius
	}
}

// Round1 rounds to one decimal place, the resolution of the sensor's
// temperature and humidity fields.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
