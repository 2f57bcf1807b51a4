// Package profile defines per-wheel tuning profiles and their JSON
// persistence. Decoding is tolerant: fields may live in nested Steering /
// Pedals / ForceFeedback objects or flat at the top level, and anything
// absent keeps its default.
package profile

import (
	"encoding/json"
	"fmt"
)

// Profile holds the steering, pedal, and force feedback tuning for one
// wheel setup. Profiles are value objects, copied in and out of the
// service.
type Profile struct {
	Name string

	// TargetVendorID/TargetProductID bind a profile to a wheel model.
	// Zero means the profile applies to any wheel.
	TargetVendorID  uint16
	TargetProductID uint16

	// CenterOffset is the calibrated steering center in normalized units,
	// captured by the calibration flow and applied before shaping.
	CenterOffset float64

	SteeringRotation  float64
	SteeringDeadzone  float64
	SteeringLinearity float64
	InvertSteering    bool

	ThrottleDeadzone float64
	BrakeDeadzone    float64
	ClutchDeadzone   float64
	ThrottleGamma    float64
	BrakeGamma       float64
	CombinedPedals   bool
	InvertClutch     bool

	FFBEnabled              bool
	FFBStrength             float64
	SelfCenteringStrength   float64
	RoadFeelStrength        float64
	CollisionStrength       float64
	CurbStrength            float64
	EngineVibrationStrength float64
	UndersteerStrength      float64
	OversteerStrength       float64
	MinForceThreshold       float64
	DamperStrength          float64
	FrictionStrength        float64
	ShowFFBClipping         bool
}

// Default returns the baseline profile.
func Default() Profile {
	return Profile{
		Name:              "Default",
		SteeringRotation:  900,
		SteeringDeadzone:  0,
		SteeringLinearity: 1,

		ThrottleDeadzone: 0.05,
		BrakeDeadzone:    0.05,
		ClutchDeadzone:   0.1,
		ThrottleGamma:    1,
		BrakeGamma:       1,

		FFBEnabled:              true,
		FFBStrength:             0.7,
		SelfCenteringStrength:   0.5,
		RoadFeelStrength:        0.6,
		CollisionStrength:       0.8,
		CurbStrength:            0.5,
		EngineVibrationStrength: 0.3,
		UndersteerStrength:      0.4,
		OversteerStrength:       0.6,
		MinForceThreshold:       0.02,
		DamperStrength:          0.2,
		FrictionStrength:        0.1,
		ShowFFBClipping:         true,
	}
}

// fields is a partially decoded JSON object.
type fields map[string]json.RawMessage

func (f fields) object(key string) (fields, bool) {
	raw, ok := f[key]
	if !ok {
		return nil, false
	}
	var obj fields
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func (f fields) float(key string, dst *float64) {
	if raw, ok := f[key]; ok {
		var v float64
		if json.Unmarshal(raw, &v) == nil {
			*dst = v
		}
	}
}

func (f fields) boolean(key string, dst *bool) {
	if raw, ok := f[key]; ok {
		var v bool
		if json.Unmarshal(raw, &v) == nil {
			*dst = v
		}
	}
}

func (f fields) str(key string, dst *string) {
	if raw, ok := f[key]; ok {
		var v string
		if json.Unmarshal(raw, &v) == nil {
			*dst = v
		}
	}
}

func (f fields) uint16Field(key string, dst *uint16) {
	if raw, ok := f[key]; ok {
		var v uint16
		if json.Unmarshal(raw, &v) == nil {
			*dst = v
		}
	}
}

// Decode parses a profile document. Nested category objects win over flat
// top-level fields; absent fields keep the defaults.
func Decode(data []byte) (Profile, error) {
	p := Default()

	var top fields
	if err := json.Unmarshal(data, &top); err != nil {
		return p, fmt.Errorf("profile decode: %w", err)
	}

	top.str("ProfileName", &p.Name)
	top.uint16Field("TargetVendorID", &p.TargetVendorID)
	top.uint16Field("TargetProductID", &p.TargetProductID)
	top.float("CenterOffset", &p.CenterOffset)

	if steering, ok := top.object("Steering"); ok {
		steering.float("SteeringRotation", &p.SteeringRotation)
		steering.float("SteeringDeadzone", &p.SteeringDeadzone)
		steering.float("SteeringLinearity", &p.SteeringLinearity)
		steering.boolean("InvertSteering", &p.InvertSteering)
	} else {
		top.float("SteeringRotation", &p.SteeringRotation)
		top.float("SteeringDeadzone", &p.SteeringDeadzone)
		top.float("SteeringLinearity", &p.SteeringLinearity)
		top.boolean("bInvertSteering", &p.InvertSteering)
	}

	if pedals, ok := top.object("Pedals"); ok {
		pedals.float("ThrottleDeadzone", &p.ThrottleDeadzone)
		pedals.float("BrakeDeadzone", &p.BrakeDeadzone)
		pedals.float("ClutchDeadzone", &p.ClutchDeadzone)
		pedals.float("ThrottleGamma", &p.ThrottleGamma)
		pedals.float("BrakeGamma", &p.BrakeGamma)
		pedals.boolean("CombinedPedals", &p.CombinedPedals)
		pedals.boolean("InvertClutch", &p.InvertClutch)
	} else {
		top.float("ThrottleDeadzone", &p.ThrottleDeadzone)
		top.float("BrakeDeadzone", &p.BrakeDeadzone)
		top.float("ClutchDeadzone", &p.ClutchDeadzone)
		top.float("ThrottleGamma", &p.ThrottleGamma)
		top.float("BrakeGamma", &p.BrakeGamma)
		top.boolean("bCombinedPedals", &p.CombinedPedals)
		top.boolean("bInvertClutch", &p.InvertClutch)
	}

	if ffb, ok := top.object("ForceFeedback"); ok {
		ffb.boolean("FFBEnabled", &p.FFBEnabled)
		ffb.float("FFBStrength", &p.FFBStrength)
		ffb.float("SelfCenteringStrength", &p.SelfCenteringStrength)
		ffb.float("RoadFeelStrength", &p.RoadFeelStrength)
		ffb.float("CollisionStrength", &p.CollisionStrength)
		ffb.float("CurbStrength", &p.CurbStrength)
		ffb.float("EngineVibrationStrength", &p.EngineVibrationStrength)
		ffb.float("UndersteerStrength", &p.UndersteerStrength)
		ffb.float("OversteerStrength", &p.OversteerStrength)
		ffb.float("MinForceThreshold", &p.MinForceThreshold)
		ffb.float("DamperStrength", &p.DamperStrength)
		ffb.float("FrictionStrength", &p.FrictionStrength)
		ffb.boolean("ShowFFBClipping", &p.ShowFFBClipping)
	} else {
		top.boolean("bFFBEnabled", &p.FFBEnabled)
		top.float("FFBStrength", &p.FFBStrength)
		top.float("SelfCenteringStrength", &p.SelfCenteringStrength)
		top.float("RoadFeelStrength", &p.RoadFeelStrength)
		top.float("CollisionStrength", &p.CollisionStrength)
		top.float("CurbStrength", &p.CurbStrength)
		top.float("EngineVibrationStrength", &p.EngineVibrationStrength)
		top.float("UndersteerStrength", &p.UndersteerStrength)
		top.float("OversteerStrength", &p.OversteerStrength)
		top.float("MinForceThreshold", &p.MinForceThreshold)
		top.float("DamperStrength", &p.DamperStrength)
		top.float("FrictionStrength", &p.FrictionStrength)
		top.boolean("bShowFFBClipping", &p.ShowFFBClipping)
	}

	return p, nil
}

type steeringJSON struct {
	SteeringRotation  float64 `json:"SteeringRotation"`
	SteeringDeadzone  float64 `json:"SteeringDeadzone"`
	SteeringLinearity float64 `json:"SteeringLinearity"`
	InvertSteering    bool    `json:"InvertSteering"`
}

type pedalsJSON struct {
	ThrottleDeadzone float64 `json:"ThrottleDeadzone"`
	BrakeDeadzone    float64 `json:"BrakeDeadzone"`
	ClutchDeadzone   float64 `json:"ClutchDeadzone"`
	ThrottleGamma    float64 `json:"ThrottleGamma"`
	BrakeGamma       float64 `json:"BrakeGamma"`
	CombinedPedals   bool    `json:"CombinedPedals"`
	InvertClutch     bool    `json:"InvertClutch"`
}

type ffbJSON struct {
	FFBEnabled              bool    `json:"FFBEnabled"`
	FFBStrength             float64 `json:"FFBStrength"`
	SelfCenteringStrength   float64 `json:"SelfCenteringStrength"`
	RoadFeelStrength        float64 `json:"RoadFeelStrength"`
	CollisionStrength       float64 `json:"CollisionStrength"`
	CurbStrength            float64 `json:"CurbStrength"`
	EngineVibrationStrength float64 `json:"EngineVibrationStrength"`
	UndersteerStrength      float64 `json:"UndersteerStrength"`
	OversteerStrength       float64 `json:"OversteerStrength"`
	MinForceThreshold       float64 `json:"MinForceThreshold"`
	DamperStrength          float64 `json:"DamperStrength"`
	FrictionStrength        float64 `json:"FrictionStrength"`
	ShowFFBClipping         bool    `json:"ShowFFBClipping"`
}

type profileJSON struct {
	ProfileName     string       `json:"ProfileName"`
	TargetVendorID  uint16       `json:"TargetVendorID,omitempty"`
	TargetProductID uint16       `json:"TargetProductID,omitempty"`
	CenterOffset    float64      `json:"CenterOffset"`
	Steering        steeringJSON `json:"Steering"`
	Pedals          pedalsJSON   `json:"Pedals"`
	ForceFeedback   ffbJSON      `json:"ForceFeedback"`
}

// Encode serializes a profile with the nested category layout.
func Encode(p Profile) ([]byte, error) {
	doc := profileJSON{
		ProfileName:     p.Name,
		TargetVendorID:  p.TargetVendorID,
		TargetProductID: p.TargetProductID,
		CenterOffset:    p.CenterOffset,
		Steering: steeringJSON{
			SteeringRotation:  p.SteeringRotation,
			SteeringDeadzone:  p.SteeringDeadzone,
			SteeringLinearity: p.SteeringLinearity,
			InvertSteering:    p.InvertSteering,
		},
		Pedals: pedalsJSON{
			ThrottleDeadzone: p.ThrottleDeadzone,
			BrakeDeadzone:    p.BrakeDeadzone,
			ClutchDeadzone:   p.ClutchDeadzone,
			ThrottleGamma:    p.ThrottleGamma,
			BrakeGamma:       p.BrakeGamma,
			CombinedPedals:   p.CombinedPedals,
			InvertClutch:     p.InvertClutch,
		},
		ForceFeedback: ffbJSON{
			FFBEnabled:              p.FFBEnabled,
			FFBStrength:             p.FFBStrength,
			SelfCenteringStrength:   p.SelfCenteringStrength,
			RoadFeelStrength:        p.RoadFeelStrength,
			CollisionStrength:       p.CollisionStrength,
			CurbStrength:            p.CurbStrength,
			EngineVibrationStrength: p.EngineVibrationStrength,
			UndersteerStrength:      p.UndersteerStrength,
			OversteerStrength:       p.OversteerStrength,
			MinForceThreshold:       p.MinForceThreshold,
			DamperStrength:          p.DamperStrength,
			FrictionStrength:        p.FrictionStrength,
			ShowFFBClipping:         p.ShowFFBClipping,
		},
	}
	return json.MarshalIndent(doc, "", "  ")
}
