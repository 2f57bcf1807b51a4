// Package wheeldb holds the identity table of known racing wheels and the
// capability vocabulary shared by the rest of the module.
package wheeldb

// EffectKind enumerates the force feedback effect families a wheel can play.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectConstant
	EffectSpring
	EffectDamper
	EffectFriction
	EffectInertia
	EffectSine
	EffectSquare
	EffectTriangle
	EffectSawtoothUp
	EffectSawtoothDown
)

func (k EffectKind) String() string {
	switch k {
	case EffectConstant:
		return "constant"
	case EffectSpring:
		return "spring"
	case EffectDamper:
		return "damper"
	case EffectFriction:
		return "friction"
	case EffectInertia:
		return "inertia"
	case EffectSine:
		return "sine"
	case EffectSquare:
		return "square"
	case EffectTriangle:
		return "triangle"
	case EffectSawtoothUp:
		return "sawtooth-up"
	case EffectSawtoothDown:
		return "sawtooth-down"
	}
	return "none"
}

// IsCondition reports whether the kind is a condition effect (parameterized
// by coefficients rather than a magnitude waveform).
func (k EffectKind) IsCondition() bool {
	switch k {
	case EffectSpring, EffectDamper, EffectFriction, EffectInertia:
		return true
	}
	return false
}

// IsPeriodic reports whether the kind is a periodic waveform effect.
func (k EffectKind) IsPeriodic() bool {
	switch k {
	case EffectSine, EffectSquare, EffectTriangle, EffectSawtoothUp, EffectSawtoothDown:
		return true
	}
	return false
}

// Capabilities describes what a wheel model can physically do.
type Capabilities struct {
	Name             string
	MaxRotationDeg   float64
	PedalCount       int
	HasClutch        bool
	HasPaddles       bool
	HasHPattern      bool
	ButtonCount      int
	MaxForceNm       float64
	SupportedEffects []EffectKind
}

// Supports reports whether the model is known to play the given effect kind.
func (c Capabilities) Supports(kind EffectKind) bool {
	for _, k := range c.SupportedEffects {
		if k == kind {
			return true
		}
	}
	return false
}

type entry struct {
	vendorID  uint16
	productID uint16
	caps      Capabilities
}

const (
	VendorLogitech     = 0x046D
	VendorThrustmaster = 0x044F
	VendorFanatec      = 0x0EB7
)

var known = []entry{
	{VendorLogitech, 0xC262, Capabilities{
		Name:           "Logitech G920 Driving Force",
		MaxRotationDeg: 900,
		PedalCount:     3,
		HasClutch:      true,
		HasPaddles:     true,
		ButtonCount:    11,
		MaxForceNm:     2.5,
		SupportedEffects: []EffectKind{
			EffectConstant, EffectSpring, EffectDamper, EffectFriction,
			EffectSine, EffectSquare, EffectTriangle, EffectSawtoothUp,
		},
	}},
	{VendorLogitech, 0xC24F, Capabilities{
		Name:           "Logitech G29 Driving Force",
		MaxRotationDeg: 900,
		PedalCount:     3,
		HasClutch:      true,
		HasPaddles:     true,
		ButtonCount:    14,
		MaxForceNm:     2.5,
		SupportedEffects: []EffectKind{
			EffectConstant, EffectSpring, EffectDamper, EffectSine,
		},
	}},
	{VendorLogitech, 0xC266, Capabilities{
		Name:           "Logitech G923 Racing Wheel",
		MaxRotationDeg: 900,
		PedalCount:     3,
		HasClutch:      true,
		HasPaddles:     true,
		ButtonCount:    11,
		MaxForceNm:     3.0,
		SupportedEffects: []EffectKind{
			EffectConstant, EffectSpring, EffectDamper, EffectFriction,
			EffectSine, EffectSquare,
		},
	}},
	{VendorLogitech, 0xC29B, Capabilities{
		Name:           "Logitech G27 Racing Wheel",
		MaxRotationDeg: 900,
		PedalCount:     3,
		HasClutch:      true,
		HasPaddles:     true,
		HasHPattern:    true,
		ButtonCount:    11,
		MaxForceNm:     2.3,
		SupportedEffects: []EffectKind{
			EffectConstant, EffectSpring, EffectDamper,
		},
	}},
	{VendorThrustmaster, 0xB66E, Capabilities{
		Name:           "Thrustmaster T300RS",
		MaxRotationDeg: 1080,
		PedalCount:     2,
		HasPaddles:     true,
		ButtonCount:    12,
		MaxForceNm:     3.9,
		SupportedEffects: []EffectKind{
			EffectConstant, EffectSpring, EffectDamper, EffectFriction,
			EffectSine,
		},
	}},
	{VendorThrustmaster, 0xB669, Capabilities{
		Name:           "Thrustmaster TX Racing Wheel",
		MaxRotationDeg: 900,
		PedalCount:     2,
		HasPaddles:     true,
		ButtonCount:    12,
		MaxForceNm:     3.5,
		SupportedEffects: []EffectKind{
			EffectConstant, EffectSpring, EffectDamper,
		},
	}},
	{VendorThrustmaster, 0xB67F, Capabilities{
		Name:           "Thrustmaster TMX Force Feedback",
		MaxRotationDeg: 900,
		PedalCount:     2,
		HasPaddles:     true,
		ButtonCount:    10,
		MaxForceNm:     2.0,
		SupportedEffects: []EffectKind{
			EffectConstant, EffectSpring, EffectDamper,
		},
	}},
	{VendorFanatec, 0x0020, Capabilities{
		Name:           "Fanatec CSL DD",
		MaxRotationDeg: 1080,
		PedalCount:     2,
		HasPaddles:     true,
		ButtonCount:    12,
		MaxForceNm:     8.0,
		SupportedEffects: []EffectKind{
			EffectConstant, EffectSpring, EffectDamper, EffectFriction,
			EffectSine, EffectSquare,
		},
	}},
}

// Generic returns the conservative capability set assumed for wheels not in
// the table. Only constant force is guaranteed.
func Generic() Capabilities {
	return Capabilities{
		Name:             "Generic Racing Wheel",
		MaxRotationDeg:   900,
		PedalCount:       2,
		HasPaddles:       true,
		ButtonCount:      8,
		MaxForceNm:       2.0,
		SupportedEffects: []EffectKind{EffectConstant, EffectSpring},
	}
}

// Lookup returns the capabilities for a VID/PID pair. The second return is
// false when the device is unknown and the generic profile was returned.
func Lookup(vendorID, productID uint16) (Capabilities, bool) {
	for _, e := range known {
		if e.vendorID == vendorID && e.productID == productID {
			return e.caps, true
		}
	}
	return Generic(), false
}
