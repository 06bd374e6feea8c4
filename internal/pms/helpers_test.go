package pms

import (
	"errors"
	"time"

	"github.com/banshee-data/airquality.report/internal/timeutil"
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

var defaultFields = Fields{
	11, 15, 18, // CF=1 PM1.0, PM2.5, PM10
	10, 14, 17, // atmospheric PM1.0, PM2.5, PM10
	2100, 620, 110, 12, 3, 1, // counts >0.3, 0.5, 1.0, 2.5, 5.0, 10 µm
}

func makeFrame(fields Fields, firmware, errorCode byte) RawFrame {
	return EncodeFrame(fields, firmware, errorCode)
}

func validFrame() RawFrame { return makeFrame(defaultFields, 0x91, 0) }

func corrupt(f RawFrame) RawFrame {
	f[checksumOffset+1] ^= 0xFF
	return f
}

// fakeStream is an in-memory Stream. OnWrite, if set, runs after each Write.
type fakeStream struct {
	data     []byte
	written  []byte
	writeErr error
	reads    int
	OnWrite  func(s *fakeStream, p []byte)
}

var errEmpty = errors.New("empty")

func (s *fakeStream) Available() int { return len(s.data) }

func (s *fakeStream) ReadByte() (byte, error) {
	if len(s.data) == 0 {
		return 0, errEmpty
	}
	b := s.data[0]
	s.data = s.data[1:]
	s.reads++
	return b, nil
}

func (s *fakeStream) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.written = append(s.written, p...)
	if s.OnWrite != nil {
		s.OnWrite(s, p)
	}
	return len(p), nil
}

func (s *fakeStream) push(frames ...RawFrame) {
	for _, f := range frames {
		s.data = append(s.data, f[:]...)
	}
}

// respondToActiveMode returns an OnWrite hook that queues frames once the
// active mode command has been written.
func respondToActiveMode(frames ...RawFrame) func(*fakeStream, []byte) {
	return func(s *fakeStream, p []byte) {
		if string(p) == string(ActiveModeCommand) {
			s.push(frames...)
		}
	}
}

func newTestEngine(opts ...Option) (*Engine, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(testEpoch)
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewEngine(opts...), clock
}
