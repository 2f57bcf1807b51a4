package dinput

import "encoding/binary"

// State is one poll's decoded snapshot. Axes are normalized: steering in
// [-1, 1], pedals in [0, 1] with 1 meaning fully pressed.
type State struct {
	Steering float64
	Throttle float64
	Brake    float64
	Clutch   float64
	Buttons  uint32
	Hat      int // 0..7 clockwise from up, -1 when centered
}

// Button bit assignments on the 32-bit mask.
const (
	ButtonPaddleLeft  = 4
	ButtonPaddleRight = 5
)

// ButtonPressed reports whether button index i is down in the mask.
func (s State) ButtonPressed(i int) bool {
	if i < 0 || i > 31 {
		return false
	}
	return s.Buttons&(1<<uint(i)) != 0
}

const (
	axisMax = 32767
	axisMin = -32767

	// First payload byte of an input state report.
	reportTypeState = 0x01

	statePayloadLen = 14
	hatCentered     = 0x0F
)

// NormalizeCentered maps a signed 16-bit axis onto [-1, 1].
func NormalizeCentered(v int16) float64 {
	f := float64(v) / axisMax
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}

// NormalizeUnipolar maps a signed 16-bit axis onto [0, 1], treating the
// full signed range as one sweep.
func NormalizeUnipolar(v int16) float64 {
	f := (float64(v) - axisMin) / (axisMax - axisMin)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}

// DenormalizeCentered is the inverse of NormalizeCentered.
func DenormalizeCentered(f float64) int16 {
	if f > 1 {
		f = 1
	}
	if f < -1 {
		f = -1
	}
	return int16(f * axisMax)
}

// decodeState parses an input state payload. Layout:
//
//	[0]     report type (0x01)
//	[1:3]   steering, int16 LE, centered
//	[3:5]   throttle, int16 LE, full range, released = max
//	[5:7]   brake, same convention
//	[7:9]   clutch, same convention
//	[9:13]  button mask, uint32 LE
//	[13]    hat switch, 0x0F = centered
//
// Pedals report released as the maximum raw value, so the decoded value is
// inverted to make 1 mean fully pressed.
func decodeState(payload []byte) (State, bool) {
	if len(payload) < statePayloadLen || payload[0] != reportTypeState {
		return State{}, false
	}

	pedal := func(off int) float64 {
		raw := int16(binary.LittleEndian.Uint16(payload[off:]))
		return 1 - NormalizeUnipolar(raw)
	}

	s := State{
		Steering: NormalizeCentered(int16(binary.LittleEndian.Uint16(payload[1:]))),
		Throttle: pedal(3),
		Brake:    pedal(5),
		Clutch:   pedal(7),
		Buttons:  binary.LittleEndian.Uint32(payload[9:]),
		Hat:      -1,
	}
	if hat := payload[13] & 0x0F; hat != hatCentered {
		s.Hat = int(hat)
	}
	return s, true
}
