// Package dinput implements the hardware backend for force feedback racing
// wheels: enumeration, cooperative acquisition, raw state polling, and the
// effect lifecycle translated into HID output report blocks.
package dinput

import (
	"time"

	"github.com/seagrayinc/gowheel/pkg/wheeldb"
)

// EffectID is an opaque handle for a created effect. Zero is never a valid
// id and is returned when creation fails.
type EffectID uint32

// Effect describes one FFB effect instance. Exactly one parameter block
// should be set, matching the kind's family; the others are ignored.
type Effect struct {
	Kind      wheeldb.EffectKind
	Direction float64       // degrees, 0 = straight ahead, clockwise positive
	Duration  time.Duration // 0 = infinite
	Gain      float64       // 0..1, effect-local gain

	Constant  *ConstantParams
	Periodic  *PeriodicParams
	Condition *ConditionParams
	Envelope  *Envelope
}

// ConstantParams parameterizes a constant force effect.
type ConstantParams struct {
	Magnitude float64 // -1..1, sign follows Direction convention
}

// PeriodicParams parameterizes a waveform effect.
type PeriodicParams struct {
	Magnitude float64 // 0..1 peak amplitude
	Offset    float64 // -1..1 bias
	Phase     float64 // degrees
	Frequency float64 // Hz
}

// ConditionParams parameterizes spring/damper/friction/inertia effects.
type ConditionParams struct {
	Offset     float64 // -1..1 condition center
	PosCoeff   float64 // 0..1 coefficient on the positive side
	NegCoeff   float64 // 0..1 coefficient on the negative side
	Saturation float64 // 0..1 force cap on both sides
	Deadband   float64 // 0..1 region around Offset with no force
}

// Envelope shapes the attack and fade of an effect.
type Envelope struct {
	AttackTime  time.Duration
	AttackLevel float64 // 0..1
	FadeTime    time.Duration
	FadeLevel   float64 // 0..1
}

// DeviceDescriptor is one enumerated physical device. The descriptor list
// is rebuilt wholesale on every enumeration.
type DeviceDescriptor struct {
	Index       int
	Path        string
	VendorID    uint16
	ProductID   uint16
	Name        string
	SupportsFFB bool
	Caps        wheeldb.Capabilities
}
