package dinput

import (
	"encoding/binary"
	"time"
)

// Output report IDs. The block structure follows the HID PID usage model:
// one report sets the common effect header, separate reports carry the
// type-specific parameter block, and an operation report starts or stops a
// loaded slot.
const (
	reportSetEffect    = 0x01
	reportSetConstant  = 0x02
	reportSetPeriodic  = 0x03
	reportSetCondition = 0x04
	reportSetEnvelope  = 0x05
	reportEffectOp     = 0x0A
	reportDeviceCtl    = 0x0C
	reportDeviceGain   = 0x0D

	featureAxisRange = 0x10
)

// Effect operation codes for reportEffectOp.
const (
	opStart = 0x01
	opStop  = 0x02
)

// Device control codes for reportDeviceCtl.
const (
	ctlEnableActuators  = 0x01
	ctlDisableActuators = 0x02
	ctlStopAll          = 0x03
	ctlReset            = 0x04
	ctlAutoCenterOn     = 0x05
	ctlAutoCenterOff    = 0x06
)

const (
	durationInfinite = 0xFFFF
	magnitudeScale   = 10000
)

// scaleMagnitude converts a normalized value to the wire scale of ±10000.
func scaleMagnitude(f float64) int16 {
	if f > 1 {
		f = 1
	}
	if f < -1 {
		f = -1
	}
	return int16(f * magnitudeScale)
}

func scaleUnsigned(f float64) uint16 {
	if f > 1 {
		f = 1
	}
	if f < 0 {
		f = 0
	}
	return uint16(f * magnitudeScale)
}

// centidegrees wraps an angle in degrees into [0, 36000).
func centidegrees(deg float64) uint16 {
	c := int(deg*100) % 36000
	if c < 0 {
		c += 36000
	}
	return uint16(c)
}

func durationMillis(d time.Duration) uint16 {
	if d <= 0 {
		return durationInfinite
	}
	ms := d.Milliseconds()
	if ms >= durationInfinite {
		return durationInfinite - 1
	}
	return uint16(ms)
}

// encodeSetEffect builds the common header block for a slot.
func encodeSetEffect(slot byte, e Effect) []byte {
	gain := e.Gain
	if gain <= 0 || gain > 1 {
		gain = 1
	}
	var flags byte
	if e.Envelope != nil {
		flags |= 0x01
	}

	buf := make([]byte, 9)
	buf[0] = slot
	buf[1] = byte(e.Kind)
	binary.LittleEndian.PutUint16(buf[2:], durationMillis(e.Duration))
	binary.LittleEndian.PutUint16(buf[4:], centidegrees(e.Direction))
	buf[6] = byte(gain * 255)
	buf[7] = flags
	return buf
}

func encodeConstant(slot byte, p ConstantParams) []byte {
	buf := make([]byte, 3)
	buf[0] = slot
	binary.LittleEndian.PutUint16(buf[1:], uint16(scaleMagnitude(p.Magnitude)))
	return buf
}

func encodePeriodic(slot byte, p PeriodicParams) []byte {
	buf := make([]byte, 11)
	buf[0] = slot
	binary.LittleEndian.PutUint16(buf[1:], scaleUnsigned(p.Magnitude))
	binary.LittleEndian.PutUint16(buf[3:], uint16(scaleMagnitude(p.Offset)))
	binary.LittleEndian.PutUint16(buf[5:], centidegrees(p.Phase))
	var periodUs uint32
	if p.Frequency > 0 {
		periodUs = uint32(1e6 / p.Frequency)
	}
	binary.LittleEndian.PutUint32(buf[7:], periodUs)
	return buf
}

func encodeCondition(slot byte, p ConditionParams) []byte {
	buf := make([]byte, 13)
	buf[0] = slot
	binary.LittleEndian.PutUint16(buf[1:], uint16(scaleMagnitude(p.Offset)))
	binary.LittleEndian.PutUint16(buf[3:], uint16(scaleMagnitude(p.PosCoeff)))
	binary.LittleEndian.PutUint16(buf[5:], uint16(scaleMagnitude(p.NegCoeff)))
	binary.LittleEndian.PutUint16(buf[7:], scaleUnsigned(p.Saturation))
	binary.LittleEndian.PutUint16(buf[9:], scaleUnsigned(p.Saturation))
	binary.LittleEndian.PutUint16(buf[11:], scaleUnsigned(p.Deadband))
	return buf
}

func encodeEnvelope(slot byte, env Envelope) []byte {
	buf := make([]byte, 13)
	buf[0] = slot
	binary.LittleEndian.PutUint16(buf[1:], scaleUnsigned(env.AttackLevel))
	binary.LittleEndian.PutUint16(buf[3:], scaleUnsigned(env.FadeLevel))
	binary.LittleEndian.PutUint32(buf[5:], uint32(env.AttackTime.Microseconds()))
	binary.LittleEndian.PutUint32(buf[9:], uint32(env.FadeTime.Microseconds()))
	return buf
}

func encodeEffectOp(slot, op byte) []byte {
	return []byte{slot, op}
}

func encodeDeviceCtl(code byte) []byte {
	return []byte{code}
}

func encodeDeviceGain(gain float64) []byte {
	if gain > 1 {
		gain = 1
	}
	if gain < 0 {
		gain = 0
	}
	return []byte{byte(gain * 255)}
}

// encodeAxisRange builds the feature payload forcing absolute axis mode
// over a fixed signed range.
func encodeAxisRange(min, max int16) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:], uint16(min))
	binary.LittleEndian.PutUint16(buf[2:], uint16(max))
	return buf
}
