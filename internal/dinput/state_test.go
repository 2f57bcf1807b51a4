package dinput

import (
	"encoding/binary"
	"testing"
)

func TestNormalizeCentered(t *testing.T) {
	tests := []struct {
		raw  int16
		want float64
	}{
		{0, 0},
		{32767, 1},
		{-32767, -1},
		{16383, 0.49998},
	}
	for _, tt := range tests {
		got := NormalizeCentered(tt.raw)
		if diff := got - tt.want; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("NormalizeCentered(%d) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestCenteredRoundTrip(t *testing.T) {
	for _, f := range []float64{-1, -0.5, 0, 0.25, 1} {
		back := NormalizeCentered(DenormalizeCentered(f))
		if diff := back - f; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("round trip %v -> %v", f, back)
		}
	}
}

func TestNormalizeCenteredClamps(t *testing.T) {
	if got := NormalizeCentered(-32768); got != -1 {
		t.Errorf("NormalizeCentered(-32768) = %v, want -1", got)
	}
}

func statePayload(steer, throttle, brake, clutch int16, buttons uint32, hat byte) []byte {
	p := make([]byte, statePayloadLen)
	p[0] = reportTypeState
	binary.LittleEndian.PutUint16(p[1:], uint16(steer))
	binary.LittleEndian.PutUint16(p[3:], uint16(throttle))
	binary.LittleEndian.PutUint16(p[5:], uint16(brake))
	binary.LittleEndian.PutUint16(p[7:], uint16(clutch))
	binary.LittleEndian.PutUint32(p[9:], buttons)
	p[13] = hat
	return p
}

func TestDecodeState(t *testing.T) {
	// Pedals report released as max raw, so full press is the minimum.
	payload := statePayload(-32767, -32767, 32767, 0, 1<<ButtonPaddleLeft, 2)

	s, ok := decodeState(payload)
	if !ok {
		t.Fatal("decode failed")
	}
	if s.Steering != -1 {
		t.Errorf("Steering = %v, want -1", s.Steering)
	}
	if s.Throttle != 1 {
		t.Errorf("Throttle = %v, want 1 (fully pressed)", s.Throttle)
	}
	if s.Brake != 0 {
		t.Errorf("Brake = %v, want 0 (released)", s.Brake)
	}
	if s.Clutch < 0.49 || s.Clutch > 0.51 {
		t.Errorf("Clutch = %v, want ~0.5", s.Clutch)
	}
	if !s.ButtonPressed(ButtonPaddleLeft) || s.ButtonPressed(ButtonPaddleRight) {
		t.Errorf("button mask decoded wrong: %032b", s.Buttons)
	}
	if s.Hat != 2 {
		t.Errorf("Hat = %v, want 2", s.Hat)
	}
}

func TestDecodeStateCenteredHat(t *testing.T) {
	s, ok := decodeState(statePayload(0, 32767, 32767, 32767, 0, hatCentered))
	if !ok {
		t.Fatal("decode failed")
	}
	if s.Hat != -1 {
		t.Errorf("Hat = %v, want -1 for centered", s.Hat)
	}
}

func TestDecodeStateRejectsMalformed(t *testing.T) {
	if _, ok := decodeState([]byte{reportTypeState, 1, 2}); ok {
		t.Error("short payload accepted")
	}
	bad := statePayload(0, 0, 0, 0, 0, 0)
	bad[0] = 0x7F
	if _, ok := decodeState(bad); ok {
		t.Error("wrong report type accepted")
	}
}
