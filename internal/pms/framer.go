package pms

// FramerState is the position of a Framer within the frame grammar.
type FramerState uint8

const (
	SeekFirstSync FramerState = iota
	SeekSecondSync
	ReadLength
	ReadPayload
	SkipMalformed
)

func (s FramerState) String() string {
	switch s {
	case SeekFirstSync:
		return "seek-first-sync"
	case SeekSecondSync:
		return "seek-second-sync"
	case ReadLength:
		return "read-length"
	case ReadPayload:
		return "read-payload"
	case SkipMalformed:
		return "skip-malformed"
	default:
		return "unknown"
	}
}

// Framer recovers candidate frames from a byte stream one byte at a time.
// The zero value is ready to use and starts in SeekFirstSync. A Framer owns
// its scratch buffer, so it can live on the stack of a single drain pass.
type Framer struct {
	state FramerState
	buf   RawFrame
	n     int // bytes counted towards the current candidate
	skip  int // total byte count at which SkipMalformed ends

	// Skipped counts frames whose length field was not PayloadLength.
	Skipped int
}

// State returns the current state.
func (f *Framer) State() FramerState { return f.state }

// Reset drops any partial frame and returns to SeekFirstSync.
func (f *Framer) Reset() {
	f.state = SeekFirstSync
	f.n = 0
	f.skip = 0
}

// Feed advances the state machine by one byte. When b completes a standard
// length frame it returns the frame and true. The returned frame aliases the
// Framer's buffer and is only valid until the next call to Feed.
func (f *Framer) Feed(b byte) (*RawFrame, bool) {
	switch f.state {
	case SeekFirstSync:
		if b == SyncByte1 {
			f.n = 0
			f.buf[f.n] = b
			f.n++
			f.state = SeekSecondSync
		}

	case SeekSecondSync:
		if b != SyncByte2 {
			f.state = SeekFirstSync
			return nil, false
		}
		f.buf[f.n] = b
		f.n++
		f.state = ReadLength

	case ReadLength:
		f.buf[f.n] = b
		f.n++
		if f.n < headerLength {
			return nil, false
		}
		length := int(f.buf.Length())
		if length == PayloadLength {
			f.state = ReadPayload
			return nil, false
		}
		f.skip = length + headerLength
		f.Skipped++
		f.state = SkipMalformed

	case ReadPayload:
		f.buf[f.n] = b
		f.n++
		if f.n >= FrameLength {
			f.state = SeekFirstSync
			return &f.buf, true
		}

	case SkipMalformed:
		f.n++
		if f.n >= f.skip {
			f.state = SeekFirstSync
		}
	}
	return nil, false
}
