package pms

import (
	"time"

	"github.com/banshee-data/airquality.report/internal/monitoring"
	"github.com/banshee-data/airquality.report/internal/timeutil"
)

const (
	// PollInterval is the minimum spacing between drain attempts. The sensor
	// pushes a frame roughly every second in active mode; draining every
	// 2.5s yields two or three frames per attempt.
	PollInterval = 2500 * time.Millisecond

	// FailTimeout is how long the link may go without a valid frame before
	// it is reported as failed.
	FailTimeout = 5000 * time.Millisecond

	// BeginTimeout bounds the wait for the first valid frame in Begin.
	BeginTimeout = 4000 * time.Millisecond

	// DefaultFailCountMax caps the caller-managed failure counter.
	DefaultFailCountMax = 3

	beginPollDelay = 10 * time.Millisecond
	yieldEvery     = 32
	yieldDelay     = time.Millisecond
)

// Stream is the byte transport to the sensor. Available and ReadByte must
// only report bytes that are already buffered; neither may block.
type Stream interface {
	Available() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
}

// DrainObserver receives per-drain counters, typically for metrics.
type DrainObserver interface {
	ObserveDrain(bytes, valid, invalid, skipped int)
}

// LinkState is a snapshot of the sensor link health.
type LinkState struct {
	// LastValidRead is milliseconds since the engine epoch of the last
	// validated frame, or 0 if none has been seen.
	LastValidRead uint32 `json:"last_valid_read_ms"`
	FailCount     int    `json:"fail_count"`
	Failed        bool   `json:"failed"`
}

// Stats are cumulative counters over the lifetime of an Engine.
type Stats struct {
	Drains        int `json:"drains"`
	BytesRead     int `json:"bytes_read"`
	FramesValid   int `json:"frames_valid"`
	FramesInvalid int `json:"frames_invalid"`
	FramesSkipped int `json:"frames_skipped"`
}

// Engine owns the acquisition pipeline for one sensor: it schedules drains
// of the stream, frames and validates bytes, keeps the latest Measurement and
// tracks link health. An Engine is not safe for concurrent use; all calls
// must come from the goroutine that owns it.
type Engine struct {
	clock    timeutil.Clock
	epoch    time.Time
	stream   Stream
	observer DrainObserver

	record Measurement

	lastAttempt  uint32 // scheduler stamp, 0 until the first Handle
	lastRead     uint32 // last validated frame, 0 if never
	failed       bool
	failCount    int
	failCountMax int

	stats Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c timeutil.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithObserver registers a DrainObserver.
func WithObserver(o DrainObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// WithFailCountMax overrides DefaultFailCountMax.
func WithFailCountMax(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.failCountMax = n
		}
	}
}

// NewEngine creates an Engine. The engine epoch, against which all
// millisecond timestamps are measured, is the clock time at creation.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:        timeutil.RealClock{},
		failed:       true,
		failCountMax: DefaultFailCountMax,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.epoch = e.clock.Now()
	return e
}

// millis returns milliseconds since the engine epoch, wrapping like a
// free-running 32-bit counter.
func (e *Engine) millis() uint32 {
	return uint32(e.clock.Since(e.epoch).Milliseconds())
}

// stamp maps the reserved value 0 onto 1 so that "never" stays distinct
// from "at time zero".
func stamp(ms uint32) uint32 {
	if ms == 0 {
		return 1
	}
	return ms
}

// Begin attaches the engine to stream and brings the sensor up: stale bytes
// are flushed, the active mode command is sent and the stream is polled for
// up to BeginTimeout waiting for the first valid frame. Begin may be called
// again later to retry a failed bring-up. The failure counter is left
// alone; callers clear it with ResetFailCount.
func (e *Engine) Begin(stream Stream) bool {
	monitoring.Logf("initializing PM sensor")
	e.stream = stream
	e.failed = true
	e.lastAttempt = 0
	e.lastRead = 0

	cleared := 0
	for stream.Available() > 0 {
		if _, err := stream.ReadByte(); err != nil {
			break
		}
		cleared++
	}
	monitoring.Logf("cleared %d byte(s)", cleared)

	n, err := stream.Write(ActiveModeCommand)
	if err != nil {
		monitoring.Logf("failed to set active mode: %v", err)
	} else {
		monitoring.Logf("set active mode, %d byte(s) written", n)
	}

	start := e.millis()
	for {
		e.Handle()
		if !e.failed {
			monitoring.Logf("PM sensor initialized")
			return true
		}
		e.clock.Sleep(beginPollDelay)
		if time.Duration(e.millis()-start)*time.Millisecond >= BeginTimeout {
			break
		}
	}
	monitoring.Logf("PM sensor initialization failed")
	return false
}

// Handle is the periodic poll. It does nothing unless PollInterval has
// passed since the previous drain attempt; otherwise it drains every byte
// currently buffered by the stream and updates the link state.
func (e *Engine) Handle() {
	if e.stream == nil {
		return
	}
	now := e.millis()
	if e.lastAttempt != 0 {
		if time.Duration(now-e.lastAttempt)*time.Millisecond < PollInterval {
			return
		}
	}
	e.lastAttempt = stamp(now)

	if e.drain() {
		e.lastRead = stamp(e.millis())
		e.failed = false
		return
	}
	if e.lastRead != 0 && time.Duration(e.millis()-e.lastRead)*time.Millisecond > FailTimeout {
		if !e.failed {
			monitoring.Logf("PM sensor link failed: no valid frame for %v", FailTimeout)
		}
		e.failed = true
	}
}

// drain runs every available byte through a fresh Framer and reports
// whether at least one frame validated.
func (e *Engine) drain() bool {
	var (
		framer  Framer
		ok      bool
		count   int
		valid   int
		invalid int
	)
	for e.stream.Available() > 0 {
		b, err := e.stream.ReadByte()
		if err != nil {
			break
		}
		if frame, done := framer.Feed(b); done {
			if e.record.Validate(frame) {
				ok = true
				valid++
			} else {
				invalid++
			}
		}
		count++
		if count%yieldEvery == 0 {
			e.clock.Sleep(yieldDelay)
		}
	}

	e.stats.Drains++
	e.stats.BytesRead += count
	e.stats.FramesValid += valid
	e.stats.FramesInvalid += invalid
	e.stats.FramesSkipped += framer.Skipped
	if e.observer != nil {
		e.observer.ObserveDrain(count, valid, invalid, framer.Skipped)
	}
	return ok
}

// IsFailed reports whether the link is down: either no frame has validated
// since Begin, or the last one is older than FailTimeout.
func (e *Engine) IsFailed() bool { return e.failed }

// UpdateFailCount increments the failure counter, saturating at FailCountMax.
// The engine never calls it; recovery policy belongs to the caller.
func (e *Engine) UpdateFailCount() {
	if e.failCount < e.failCountMax {
		e.failCount++
	}
}

// ResetFailCount clears the failure counter.
func (e *Engine) ResetFailCount() { e.failCount = 0 }

func (e *Engine) FailCount() int    { return e.failCount }
func (e *Engine) FailCountMax() int { return e.failCountMax }

// Measurement returns the latest validated measurement. The pointer stays
// owned by the engine and is overwritten by later frames.
func (e *Engine) Measurement() *Measurement { return &e.record }

// LinkState returns a snapshot of the link health.
func (e *Engine) LinkState() LinkState {
	return LinkState{
		LastValidRead: e.lastRead,
		FailCount:     e.failCount,
		Failed:        e.failed,
	}
}

// Stats returns the cumulative counters.
func (e *Engine) Stats() Stats { return e.stats }
