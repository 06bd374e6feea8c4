package api

import (
	"bytes"
	"log"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/airquality.report/internal/monitoring"
	"github.com/banshee-data/airquality.report/internal/pms"
	"github.com/banshee-data/airquality.report/internal/testutil"
	"github.com/banshee-data/airquality.report/internal/units"
)

func ptr[T any](v T) *T { return &v }

func liveReading() pms.Reading {
	return pms.Reading{
		Time:             time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Variant:          "pms5003t",
		PM01:             10,
		PM25:             14,
		PM10:             17,
		PM03:             2100,
		Raw25:            15,
		AQI:              37,
		PM25Compensated:  ptr(9),
		TemperatureC:     ptr(21.5),
		RelativeHumidity: ptr(45.0),
		FirmwareVersion:  0x91,
		Link:             pms.LinkState{LastValidRead: 2500},
		Stats:            pms.Stats{Drains: 3, BytesRead: 96, FramesValid: 3},
	}
}

func failedReading() pms.Reading {
	return pms.Reading{
		Variant: "pms5003",
		PM25:    units.InvalidPM,
		AQI:     units.InvalidPM,
		Link:    pms.LinkState{Failed: true, FailCount: 2},
	}
}

func newTestServer(r pms.Reading, tempUnits string) (*Server, *ReadingStore) {
	store := NewReadingStore(r)
	return NewServer(store, tempUnits, nil), store
}

func TestReadingStore(t *testing.T) {
	store := NewReadingStore(failedReading())
	assert.True(t, store.Reading().Link.Failed)

	store.Set(liveReading())
	assert.Equal(t, liveReading(), store.Reading())
}

func TestShowReading(t *testing.T) {
	s, _ := newTestServer(liveReading(), units.Celsius)
	rec := testutil.Serve(s.ServeMux(), testutil.NewTestRequest(http.MethodGet, "/api/reading"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	got := testutil.DecodeJSON[map[string]any](t, rec)
	assert.Equal(t, float64(14), got["pm25"])
	assert.Equal(t, float64(9), got["pm25_compensated"])
	assert.Equal(t, float64(21.5), got["temperature"])
	assert.Equal(t, "c", got["units"])
	assert.Equal(t, "pms5003t", got["variant"])
}

func TestShowReading_Fahrenheit(t *testing.T) {
	s, _ := newTestServer(liveReading(), units.Fahrenheit)
	rec := testutil.Serve(s.ServeMux(), testutil.NewTestRequest(http.MethodGet, "/api/reading"))

	got := testutil.DecodeJSON[map[string]any](t, rec)
	assert.Equal(t, 70.7, got["temperature"])
	assert.Equal(t, 21.5, got["temperature_c"])
}

func TestShowReading_NoTemperature(t *testing.T) {
	s, _ := newTestServer(failedReading(), units.Celsius)
	rec := testutil.Serve(s.ServeMux(), testutil.NewTestRequest(http.MethodGet, "/api/reading"))

	got := testutil.DecodeJSON[map[string]any](t, rec)
	assert.NotContains(t, got, "temperature")
	assert.Equal(t, float64(-1), got["pm25"])
}

func TestShowReading_FollowsStore(t *testing.T) {
	s, store := newTestServer(failedReading(), units.Celsius)
	mux := s.ServeMux()

	store.Set(liveReading())
	rec := testutil.Serve(mux, testutil.NewTestRequest(http.MethodGet, "/api/reading"))
	got := testutil.DecodeJSON[map[string]any](t, rec)
	assert.Equal(t, float64(14), got["pm25"])
}

func TestShowHealth(t *testing.T) {
	tests := []struct {
		name       string
		reading    pms.Reading
		wantStatus int
		wantBody   string
	}{
		{"live", liveReading(), http.StatusOK, "ok"},
		{"failed", failedReading(), http.StatusServiceUnavailable, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(tt.reading, units.Celsius)
			rec := testutil.Serve(s.ServeMux(), testutil.NewTestRequest(http.MethodGet, "/api/health"))
			testutil.AssertStatusCode(t, rec.Code, tt.wantStatus)

			got := testutil.DecodeJSON[healthResponse](t, rec)
			assert.Equal(t, tt.wantBody, got.Status)
			assert.Equal(t, tt.reading.Link, got.Link)
		})
	}
}

func TestConvertAQI(t *testing.T) {
	tests := []struct {
		query      string
		wantStatus int
		wantAQI    float64
	}{
		{"pm25=12", http.StatusOK, 50},
		{"pm25=35.4", http.StatusOK, 100},
		{"pm25=600", http.StatusOK, 500},
		{"pm25=-1", http.StatusBadRequest, 0},
		{"pm25=x", http.StatusBadRequest, 0},
		{"", http.StatusBadRequest, 0},
	}
	s, _ := newTestServer(liveReading(), units.Celsius)
	mux := s.ServeMux()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := testutil.Serve(mux, testutil.NewTestRequest(http.MethodGet, "/api/aqi?"+tt.query))
			testutil.AssertStatusCode(t, rec.Code, tt.wantStatus)
			got := testutil.DecodeJSON[map[string]any](t, rec)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantAQI, got["aqi"])
			} else {
				assert.Contains(t, got, "error")
			}
		})
	}
}

func TestCompensateHandler(t *testing.T) {
	s, _ := newTestServer(liveReading(), units.Celsius)
	mux := s.ServeMux()

	rec := testutil.Serve(mux, testutil.NewTestRequest(http.MethodGet, "/api/compensate?pm25=100&rh=50"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	got := testutil.DecodeJSON[map[string]any](t, rec)
	assert.Equal(t, float64(80), got["pm25_compensated"])
	assert.Equal(t, float64(pms.PM25ToAQI(80)), got["aqi"])

	for _, q := range []string{"pm25=100", "rh=50", "pm25=1.5&rh=50", "pm25=-3&rh=50", "pm25=10&rh=wet"} {
		rec := testutil.Serve(mux, testutil.NewTestRequest(http.MethodGet, "/api/compensate?"+q))
		testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(liveReading(), units.Celsius)
	mux := s.ServeMux()
	for _, path := range []string{"/api/reading", "/api/health", "/api/aqi?pm25=1", "/api/compensate?pm25=1&rh=1", "/api/config"} {
		rec := testutil.Serve(mux, testutil.NewTestRequest(http.MethodPost, path))
		testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestShowConfig(t *testing.T) {
	s, _ := newTestServer(liveReading(), units.Fahrenheit)
	rec := testutil.Serve(s.ServeMux(), testutil.NewTestRequest(http.MethodGet, "/api/config"))
	got := testutil.DecodeJSON[map[string]string](t, rec)
	assert.Equal(t, map[string]string{"units": "f", "variant": "pms5003t"}, got)
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := monitoring.NewSensorMetrics(reg)
	m.ObserveDrain(32, 1, 0, 0)

	s := NewServer(NewReadingStore(liveReading()), units.Celsius, reg)
	rec := testutil.Serve(s.ServeMux(), testutil.NewTestRequest(http.MethodGet, "/metrics"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "pms_bytes_read_total 32")

	// No registry, no route.
	s, _ = newTestServer(liveReading(), units.Celsius)
	rec = testutil.Serve(s.ServeMux(), testutil.NewTestRequest(http.MethodGet, "/metrics"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := testutil.Serve(h, testutil.NewTestRequest(http.MethodGet, "/api/aqi?pm25=5"))

	testutil.AssertStatusCode(t, rec.Code, http.StatusTeapot)
	out := buf.String()
	assert.Contains(t, out, "418")
	assert.Contains(t, out, "/api/aqi?pm25=5")
	assert.True(t, strings.Contains(out, "GET"))
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"302"+colorReset, statusCodeColor(302))
	assert.Equal(t, colorBoldRed+"404"+colorReset, statusCodeColor(404))
	assert.Equal(t, colorBoldRed+"503"+colorReset, statusCodeColor(503))
	assert.Equal(t, "100", statusCodeColor(100))
}

func TestAttachAdminRoutes(t *testing.T) {
	s, _ := newTestServer(liveReading(), units.Celsius)
	mux := http.NewServeMux()
	s.AttachAdminRoutes(mux)

	rec := testutil.Serve(mux, testutil.LocalhostRequest(http.MethodGet, "/debug/pms", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	body := rec.Body.String()
	assert.Contains(t, body, "frames valid")
	assert.Contains(t, body, "0x91")

	rec = testutil.Serve(mux, testutil.LocalhostRequest(http.MethodGet, "/debug/pms.json", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	got := testutil.DecodeJSON[pms.Reading](t, rec)
	require.NotNil(t, got.PM25Compensated)
	assert.Equal(t, 9, *got.PM25Compensated)
}
