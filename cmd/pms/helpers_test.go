package main

import (
	"bytes"
	"errors"
	"sync"

	"github.com/banshee-data/airquality.report/internal/pms"
)

// memStream is an in-memory pms.Stream that can answer the active mode
// command with queued frames.
type memStream struct {
	mu      sync.Mutex
	data    []byte
	written []byte
	reply   []byte
}

func (s *memStream) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *memStream) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return 0, errors.New("empty")
	}
	b := s.data[0]
	s.data = s.data[1:]
	return b, nil
}

func (s *memStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, p...)
	if bytes.Equal(p, pms.ActiveModeCommand) {
		s.data = append(s.data, s.reply...)
	}
	return len(p), nil
}

func (s *memStream) push(f pms.RawFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, f[:]...)
}

func (s *memStream) commandsSent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Count(s.written, pms.ActiveModeCommand)
}

func sampleFrame() pms.RawFrame {
	return pms.EncodeFrame(pms.Fields{11, 15, 18, 10, 14, 17, 2100, 620, 110, 12, 3, 1}, 0x91, 0)
}

func sampleBytes() []byte {
	f := sampleFrame()
	return f[:]
}
