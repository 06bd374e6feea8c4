// Package pms reads Plantower PMS5003-family particulate matter sensors over a
// serial link. It recovers fixed-length frames from the byte stream, validates
// their checksums, tracks link health and derives calibrated air quality
// metrics from the raw particle readings.
package pms

import "encoding/binary"

const (
	// FrameLength is the total length of a standard frame, header and
	// checksum trailer included.
	FrameLength = 32

	// PayloadLength is the value carried in the length field of a standard
	// frame. Any other value marks a frame this package does not decode.
	PayloadLength = 28

	// SyncByte1 and SyncByte2 open every frame.
	SyncByte1 byte = 0x42
	SyncByte2 byte = 0x4D

	headerLength   = 4
	checksumOffset = FrameLength - 2
)

// Field offsets within a frame.
const (
	offsetRawPM01   = 4
	offsetRawPM25   = 6
	offsetRawPM10   = 8
	offsetPM01      = 10
	offsetPM25      = 12
	offsetPM10      = 14
	offsetCount03   = 16
	offsetCount05   = 18
	offsetCount10   = 20
	offsetCount25   = 22
	offsetCount50   = 24
	offsetCount100  = 26
	offsetFirmware  = 28
	offsetErrorCode = 29

	// The PMS5003T reuses the >5.0µm and >10µm count slots.
	offsetTemperature = offsetCount50
	offsetHumidity    = offsetCount100
)

// ActiveModeCommand switches the sensor into active (push) mode.
var ActiveModeCommand = []byte{0x42, 0x4D, 0xE1, 0x00, 0x01, 0x01, 0x71}

// RawFrame is one candidate frame as recovered from the byte stream.
type RawFrame [FrameLength]byte

// Checksum returns the unsigned 16-bit sum of every byte before the trailer.
func (f *RawFrame) Checksum() uint16 {
	var sum uint16
	for _, b := range f[:checksumOffset] {
		sum += uint16(b)
	}
	return sum
}

// Trailer returns the checksum carried by the frame itself.
func (f *RawFrame) Trailer() uint16 {
	return binary.BigEndian.Uint16(f[checksumOffset:])
}

// Length returns the payload length field.
func (f *RawFrame) Length() uint16 {
	return binary.BigEndian.Uint16(f[2:headerLength])
}

// Valid reports whether the frame checksum matches its trailer.
func (f *RawFrame) Valid() bool {
	return f.Checksum() == f.Trailer()
}

// Fields are the twelve 16-bit data words of a standard frame in wire order:
// CF=1 PM1.0, PM2.5, PM10, atmospheric PM1.0, PM2.5, PM10, then the six
// particle counts from >0.3µm to >10µm.
type Fields [12]uint16

// EncodeFrame builds a standard frame carrying fields with a correct
// checksum. It is the inverse of Measurement's accessors and is used to
// synthesise sensor traffic.
func EncodeFrame(fields Fields, firmware, errorCode byte) RawFrame {
	var f RawFrame
	f[0], f[1] = SyncByte1, SyncByte2
	binary.BigEndian.PutUint16(f[2:headerLength], PayloadLength)
	for i, v := range fields {
		binary.BigEndian.PutUint16(f[headerLength+2*i:], v)
	}
	f[offsetFirmware] = firmware
	f[offsetErrorCode] = errorCode
	binary.BigEndian.PutUint16(f[checksumOffset:], f.Checksum())
	return f
}

// Measurement is the decoded view over the most recent valid frame. A zero
// Measurement reads as all zeroes until the first successful Validate.
type Measurement struct {
	frame RawFrame
}

// Validate copies f into the measurement if its checksum is correct. Frames
// with a bad checksum are rejected and the previous contents are kept.
func (m *Measurement) Validate(f *RawFrame) bool {
	if f == nil || !f.Valid() {
		return false
	}
	m.frame = *f
	return true
}

// Frame returns a copy of the underlying frame bytes.
func (m *Measurement) Frame() RawFrame { return m.frame }

func (m *Measurement) u16(offset int) uint16 {
	return binary.BigEndian.Uint16(m.frame[offset : offset+2])
}

// RawPM01 is the CF=1 PM1.0 mass concentration.
func (m *Measurement) RawPM01() uint16 { return m.u16(offsetRawPM01) }

// RawPM25 is the CF=1 PM2.5 mass concentration.
func (m *Measurement) RawPM25() uint16 { return m.u16(offsetRawPM25) }

// RawPM10 is the CF=1 PM10 mass concentration.
func (m *Measurement) RawPM10() uint16 { return m.u16(offsetRawPM10) }

// PM01 is the atmospheric PM1.0 mass concentration in µg/m³.
func (m *Measurement) PM01() uint16 { return m.u16(offsetPM01) }

// PM25 is the atmospheric PM2.5 mass concentration in µg/m³.
func (m *Measurement) PM25() uint16 { return m.u16(offsetPM25) }

// PM10 is the atmospheric PM10 mass concentration in µg/m³.
func (m *Measurement) PM10() uint16 { return m.u16(offsetPM10) }

// Particle counts per 0.1L of air above the given diameter.
func (m *Measurement) Count03() uint16  { return m.u16(offsetCount03) }
func (m *Measurement) Count05() uint16  { return m.u16(offsetCount05) }
func (m *Measurement) Count10() uint16  { return m.u16(offsetCount10) }
func (m *Measurement) Count25() uint16  { return m.u16(offsetCount25) }
func (m *Measurement) Count50() uint16  { return m.u16(offsetCount50) }
func (m *Measurement) Count100() uint16 { return m.u16(offsetCount100) }

// Temperature is the PMS5003T temperature in tenths of a degree Celsius.
// Other variants report the >5.0µm count in this slot.
func (m *Measurement) Temperature() int16 { return int16(m.u16(offsetTemperature)) }

// Humidity is the PMS5003T relative humidity in tenths of a percent.
// Other variants report the >10µm count in this slot.
func (m *Measurement) Humidity() uint16 { return m.u16(offsetHumidity) }

func (m *Measurement) FirmwareVersion() uint8 { return m.frame[offsetFirmware] }

func (m *Measurement) ErrorCode() uint8 { return m.frame[offsetErrorCode] }
