package pms

// Compensate applies the AirGradient humidity correction to a raw CF=1 PM2.5
// reading and returns the corrected concentration in µg/m³.
//
// The correction blends the EPA low-concentration regression with the
// high-concentration quadratic fit across two transition bands (30-50 and
// 210-260). Arithmetic is carried out in float32 to match the values
// reported by AirGradient devices; explicit conversions keep every step
// rounded the same way on platforms that would otherwise fuse multiply-adds.
// Humidity is clamped to [0, 100], negative results are clamped to zero and
// the result is truncated towards zero.
func Compensate(pm25 int, humidity float64) int {
	if humidity < 0 {
		humidity = 0
	}
	if humidity > 100 {
		humidity = 100
	}
	p := float32(pm25)
	h := float32(humidity)

	var value float32
	switch {
	case pm25 < 30:
		value = float32(p*0.524) - float32(h*0.0862) + 5.75

	case pm25 < 50:
		t := float32(p*0.05) - 1.5
		blend := float32(0.786*t) + float32(0.524*(1-t))
		value = float32(blend*p) - float32(0.0862*h) + 5.75

	case pm25 < 210:
		value = float32(0.786*p) - float32(0.0862*h) + 5.75

	case pm25 < 260:
		t := float32(p*0.02) - 4.2
		u := 1 - t
		blend := float32(0.69*t) + float32(0.786*u)
		v := float32(blend * p)
		v -= float32(float32(0.0862*h) * u)
		v += float32(2.966 * t)
		v += float32(5.75 * u)
		value = float32(float64(v) + quadraticTerm(p)*float64(t))

	default:
		v := 2.966 + float32(0.69*p)
		value = float32(float64(v) + quadraticTerm(p))
	}

	if value < 0 {
		value = 0
	}
	return int(value)
}

// quadraticTerm is the 8.84e-4·pm² component of the high-concentration fit,
// evaluated in float64 with the coefficient rounded to float32 first.
func quadraticTerm(p float32) float64 {
	pp := float64(p)
	return float64(float64(float64(float32(8.84))*1e-4)*pp) * pp
}

type aqiSegment struct {
	concLo, concHi float64
	aqiLo, aqiHi   int
}

// US EPA PM2.5 breakpoints. Each upper bound is inclusive.
var pm25Segments = []aqiSegment{
	{0.0, 12.0, 0, 50},
	{12.0, 35.4, 50, 100},
	{35.4, 55.4, 100, 150},
	{55.4, 150.4, 150, 200},
	{150.4, 250.4, 200, 300},
	{250.4, 350.4, 300, 400},
	{350.4, 500.4, 400, 500},
}

// MaxAQI is reported for any concentration above the last breakpoint.
const MaxAQI = 500

// PM25ToAQI converts a PM2.5 concentration in µg/m³ into the US EPA Air
// Quality Index by linear interpolation between breakpoints. The result is
// truncated. Negative concentrations are treated as zero.
func PM25ToAQI(pm25 float64) int {
	if pm25 < 0 {
		pm25 = 0
	}
	for _, s := range pm25Segments {
		if pm25 <= s.concHi {
			slope := float64(s.aqiHi-s.aqiLo) / (s.concHi - s.concLo)
			return int(float64(slope*(pm25-s.concLo)) + float64(s.aqiLo))
		}
	}
	return MaxAQI
}
