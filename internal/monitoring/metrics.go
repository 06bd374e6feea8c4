package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a Prometheus registry with the Go runtime and process
// collectors already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// SensorMetrics are the acquisition and air quality metrics of one sensor.
type SensorMetrics struct {
	BytesRead    prometheus.Counter
	Frames       *prometheus.CounterVec // labels: result=valid|invalid|skipped
	Drains       prometheus.Counter
	LinkFailed   prometheus.Gauge
	FailCount    prometheus.Gauge
	Restarts     prometheus.Counter
	PM           *prometheus.GaugeVec // labels: size=pm01|pm25|pm10
	PM25Adjusted prometheus.Gauge
	AQI          prometheus.Gauge
}

// NewSensorMetrics registers and returns the sensor metrics.
func NewSensorMetrics(reg prometheus.Registerer) *SensorMetrics {
	m := &SensorMetrics{
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pms_bytes_read_total",
			Help: "Bytes drained from the sensor serial stream.",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pms_frames_total",
			Help: "Candidate frames by validation result.",
		}, []string{"result"}),
		Drains: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pms_drains_total",
			Help: "Drain attempts of the serial stream.",
		}),
		LinkFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pms_link_failed",
			Help: "1 while no valid frame has arrived within the failure timeout.",
		}),
		FailCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pms_fail_count",
			Help: "Consecutive failed handle cycles seen by the recovery policy.",
		}),
		Restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pms_restarts_total",
			Help: "Sensor re-initialisations triggered by the recovery policy.",
		}),
		PM: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pms_mass_concentration_ugm3",
			Help: "Atmospheric mass concentration by particle size.",
		}, []string{"size"}),
		PM25Adjusted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pms_pm25_compensated_ugm3",
			Help: "Humidity compensated PM2.5.",
		}),
		AQI: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pms_pm25_us_aqi",
			Help: "US EPA AQI derived from PM2.5.",
		}),
	}
	reg.MustRegister(m.BytesRead, m.Frames, m.Drains, m.LinkFailed, m.FailCount, m.Restarts, m.PM, m.PM25Adjusted, m.AQI)
	return m
}

// ObserveDrain records the outcome of one drain of the serial stream.
func (m *SensorMetrics) ObserveDrain(bytes, valid, invalid, skipped int) {
	m.Drains.Inc()
	m.BytesRead.Add(float64(bytes))
	m.Frames.WithLabelValues("valid").Add(float64(valid))
	m.Frames.WithLabelValues("invalid").Add(float64(invalid))
	m.Frames.WithLabelValues("skipped").Add(float64(skipped))
}

// SetLink records the current link health.
func (m *SensorMetrics) SetLink(failed bool, failCount int) {
	if failed {
		m.LinkFailed.Set(1)
	} else {
		m.LinkFailed.Set(0)
	}
	m.FailCount.Set(float64(failCount))
}

// SetConcentrations records the latest mass concentrations and derived values.
func (m *SensorMetrics) SetConcentrations(pm01, pm25, pm10, pm25Adjusted, aqi int) {
	m.PM.WithLabelValues("pm01").Set(float64(pm01))
	m.PM.WithLabelValues("pm25").Set(float64(pm25))
	m.PM.WithLabelValues("pm10").Set(float64(pm10))
	m.PM25Adjusted.Set(float64(pm25Adjusted))
	m.AQI.Set(float64(aqi))
}
