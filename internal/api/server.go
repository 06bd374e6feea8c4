package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/banshee-data/airquality.report/internal/httputil"
	"github.com/banshee-data/airquality.report/internal/monitoring"
	"github.com/banshee-data/airquality.report/internal/pms"
	"github.com/banshee-data/airquality.report/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	source   ReadingSource
	units    string
	registry *prometheus.Registry
}

// NewServer creates a Server reading snapshots from source. Temperatures are
// reported in units. If registry is non-nil it is served at /metrics.
func NewServer(source ReadingSource, units string, registry *prometheus.Registry) *Server {
	return &Server{
		source:   source,
		units:    units,
		registry: registry,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/reading", s.showReading)
	mux.HandleFunc("/api/health", s.showHealth)
	mux.HandleFunc("/api/aqi", s.convertAQI)
	mux.HandleFunc("/api/compensate", s.compensate)
	mux.HandleFunc("/api/config", s.showConfig)
	if s.registry != nil {
		mux.Handle("/metrics", monitoring.Handler(s.registry))
	}
	return mux
}

// readingResponse adds the display temperature to a Reading.
type readingResponse struct {
	pms.Reading
	Temperature *float64 `json:"temperature,omitempty"`
	Units       string   `json:"units"`
}

func (s *Server) showReading(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	reading := s.source.Reading()
	resp := readingResponse{Reading: reading, Units: s.units}
	if reading.TemperatureC != nil {
		t := units.Round1(units.ConvertTemperature(*reading.TemperatureC, s.units))
		resp.Temperature = &t
	}
	httputil.WriteJSONOK(w, resp)
}

type healthResponse struct {
	Status string        `json:"status"`
	Link   pms.LinkState `json:"link"`
	Stats  pms.Stats     `json:"stats"`
}

// showHealth answers 200 while frames are arriving and 503 once the link has
// failed, so it can back a liveness probe.
func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	reading := s.source.Reading()
	resp := healthResponse{Status: "ok", Link: reading.Link, Stats: reading.Stats}
	status := http.StatusOK
	if reading.Link.Failed {
		resp.Status = "failed"
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

func (s *Server) convertAQI(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	pm25, err := httputil.QueryFloat(r, "pm25")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if pm25 < 0 {
		httputil.BadRequest(w, "'pm25' must be non-negative")
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"pm25": pm25,
		"aqi":  pms.PM25ToAQI(pm25),
	})
}

func (s *Server) compensate(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	pm25, err := httputil.QueryInt(r, "pm25")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if pm25 < 0 {
		httputil.BadRequest(w, "'pm25' must be non-negative")
		return
	}
	rh, err := httputil.QueryFloat(r, "rh")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	adjusted := pms.Compensate(pm25, rh)
	httputil.WriteJSONOK(w, map[string]any{
		"pm25":             pm25,
		"rh":               rh,
		"pm25_compensated": adjusted,
		"aqi":              pms.PM25ToAQI(float64(adjusted)),
	})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"units":   s.units,
		"variant": s.source.Reading().Variant,
	})
}
