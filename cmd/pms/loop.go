package main

import (
	"context"
	"log"
	"time"

	"github.com/banshee-data/airquality.report/internal/api"
	"github.com/banshee-data/airquality.report/internal/monitoring"
	"github.com/banshee-data/airquality.report/internal/pms"
	"github.com/banshee-data/airquality.report/internal/timeutil"
)

// acquirer owns the sensor. Every tick it polls the sensor and publishes a
// Reading; once per poll interval it applies the recovery policy.
type acquirer struct {
	sensor  *pms.Sensor
	stream  pms.Stream
	store   *api.ReadingStore
	metrics *monitoring.SensorMetrics
	clock   timeutil.Clock
	tick    time.Duration

	lastCheck time.Time
}

func (a *acquirer) run(ctx context.Context) error {
	if !a.sensor.Begin(a.stream) {
		log.Printf("PM sensor did not come up, recovery will retry")
	}
	a.lastCheck = a.clock.Now()
	a.publish()

	ticker := a.clock.NewTicker(a.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.sensor.End()
			return ctx.Err()
		case <-ticker.C():
			a.step()
		}
	}
}

func (a *acquirer) step() {
	a.sensor.Handle()
	if a.clock.Since(a.lastCheck) >= pms.PollInterval {
		a.lastCheck = a.clock.Now()
		a.checkHealth()
	}
	a.publish()
}

// checkHealth counts consecutive failed checks and re-initialises the
// sensor once the counter saturates.
func (a *acquirer) checkHealth() {
	if !a.sensor.IsFailed() {
		a.sensor.ResetFailCount()
		return
	}
	a.sensor.UpdateFailCount()
	log.Printf("PM sensor link failed (%d/%d)", a.sensor.FailCount(), a.sensor.FailCountMax())
	if a.sensor.FailCount() < a.sensor.FailCountMax() {
		return
	}

	log.Printf("restarting PM sensor")
	a.metrics.Restarts.Inc()
	a.sensor.End()
	if a.sensor.Begin(a.stream) {
		log.Printf("PM sensor recovered")
	}
	a.sensor.ResetFailCount()
	a.lastCheck = a.clock.Now()
}

func (a *acquirer) publish() {
	r := a.sensor.Reading()
	a.store.Set(r)
	a.metrics.SetLink(r.Link.Failed, r.Link.FailCount)
	if !r.Valid() {
		return
	}
	adjusted := r.PM25
	if r.PM25Compensated != nil {
		adjusted = *r.PM25Compensated
	}
	a.metrics.SetConcentrations(r.PM01, r.PM25, r.PM10, adjusted, r.AQI)
}
