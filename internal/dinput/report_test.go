package dinput

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/seagrayinc/gowheel/pkg/wheeldb"
)

func TestEncodeSetEffectHeader(t *testing.T) {
	e := Effect{
		Kind:      wheeldb.EffectSine,
		Direction: 90,
		Duration:  150 * time.Millisecond,
		Gain:      0.5,
		Envelope:  &Envelope{AttackTime: 10 * time.Millisecond},
	}
	buf := encodeSetEffect(3, e)

	if buf[0] != 3 {
		t.Errorf("slot = %d, want 3", buf[0])
	}
	if buf[1] != byte(wheeldb.EffectSine) {
		t.Errorf("kind = %d, want %d", buf[1], wheeldb.EffectSine)
	}
	if got := binary.LittleEndian.Uint16(buf[2:]); got != 150 {
		t.Errorf("duration = %d ms, want 150", got)
	}
	if got := binary.LittleEndian.Uint16(buf[4:]); got != 9000 {
		t.Errorf("direction = %d centidegrees, want 9000", got)
	}
	if buf[6] != 127 {
		t.Errorf("gain = %d, want 127", buf[6])
	}
	if buf[7]&0x01 == 0 {
		t.Error("envelope flag not set")
	}
}

func TestEncodeSetEffectInfiniteDuration(t *testing.T) {
	buf := encodeSetEffect(0, Effect{Kind: wheeldb.EffectConstant})
	if got := binary.LittleEndian.Uint16(buf[2:]); got != durationInfinite {
		t.Errorf("duration = 0x%04X, want 0x%04X", got, durationInfinite)
	}
}

func TestEncodeConstantMagnitude(t *testing.T) {
	tests := []struct {
		mag  float64
		want int16
	}{
		{1, 10000},
		{-1, -10000},
		{0.5, 5000},
		{2, 10000},  // clamped
		{-3, -10000}, // clamped
	}
	for _, tt := range tests {
		buf := encodeConstant(1, ConstantParams{Magnitude: tt.mag})
		got := int16(binary.LittleEndian.Uint16(buf[1:]))
		if got != tt.want {
			t.Errorf("magnitude %v encoded as %d, want %d", tt.mag, got, tt.want)
		}
	}
}

func TestEncodePeriodicPeriod(t *testing.T) {
	buf := encodePeriodic(2, PeriodicParams{Magnitude: 0.25, Frequency: 40})
	if got := binary.LittleEndian.Uint16(buf[1:]); got != 2500 {
		t.Errorf("magnitude = %d, want 2500", got)
	}
	if got := binary.LittleEndian.Uint32(buf[7:]); got != 25000 {
		t.Errorf("period = %d us, want 25000 for 40 Hz", got)
	}
}

func TestEncodeConditionBlock(t *testing.T) {
	p := ConditionParams{
		Offset:     0,
		PosCoeff:   0.8,
		NegCoeff:   0.8,
		Saturation: 1,
		Deadband:   0.02,
	}
	buf := encodeCondition(5, p)
	if got := int16(binary.LittleEndian.Uint16(buf[3:])); got != 8000 {
		t.Errorf("pos coeff = %d, want 8000", got)
	}
	if got := binary.LittleEndian.Uint16(buf[7:]); got != 10000 {
		t.Errorf("saturation = %d, want 10000", got)
	}
	if got := binary.LittleEndian.Uint16(buf[11:]); got != 200 {
		t.Errorf("deadband = %d, want 200", got)
	}
}

func TestCentidegreesWraps(t *testing.T) {
	tests := []struct {
		deg  float64
		want uint16
	}{
		{0, 0},
		{90, 9000},
		{270, 27000},
		{360, 0},
		{-90, 27000},
	}
	for _, tt := range tests {
		if got := centidegrees(tt.deg); got != tt.want {
			t.Errorf("centidegrees(%v) = %d, want %d", tt.deg, got, tt.want)
		}
	}
}
