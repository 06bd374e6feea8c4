package main

import "github.com/banshee-data/airquality.report/internal/pms"

// devFixture synthesises a loop of sensor traffic for dev mode: a minute of
// frames with drifting concentrations, a burst of line noise and one frame
// with a bad checksum.
func devFixture(variant pms.Variant) []byte {
	const frames = 60
	out := make([]byte, 0, frames*pms.FrameLength+16)
	for i := 0; i < frames; i++ {
		// triangle wave between 5 and 35 µg/m³
		step := i % 30
		if step > 15 {
			step = 30 - step
		}
		pm25 := uint16(5 + 2*step)
		fields := pms.Fields{
			pm25*2/3 + 1, pm25 + 1, pm25*5/4 + 1,
			pm25 * 2 / 3, pm25, pm25 * 5 / 4,
			pm25 * 150, pm25 * 44, pm25 * 8, pm25, pm25 / 4, pm25 / 8,
		}
		if variant.HasTempHum() {
			fields[10] = uint16(200 + step) // 20.0..21.5 °C
			fields[11] = uint16(450 + 4*step)
		}
		frame := pms.EncodeFrame(fields, 0x91, 0)
		if i == 17 {
			frame[pms.FrameLength-1] ^= 0x5A
		}
		out = append(out, frame[:]...)
		if i == 40 {
			out = append(out, 0x00, 0xFF, pms.SyncByte1, 0x13, 0x37, pms.SyncByte1, pms.SyncByte2, 0x00, 0x08)
		}
	}
	return out
}
