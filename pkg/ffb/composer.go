// Package ffb composes per-tick vehicle telemetry into force feedback
// commands. Six smoothed force channels plus edge-triggered event textures
// are blended into one constant-force output, a self-centering spring, and
// a damper.
package ffb

import (
	"log/slog"
	"math"
	"time"

	"github.com/seagrayinc/gowheel/internal/dinput"
	"github.com/seagrayinc/gowheel/pkg/profile"
	"github.com/seagrayinc/gowheel/pkg/wheeldb"
)

// TelemetryFrame is one tick's vehicle physics signals.
type TelemetryFrame struct {
	SpeedKmh       float64
	SteeringPos    float64 // normalized wheel position, -1..1
	FrontSlipAngle float64 // degrees
	RearSlipAngle  float64 // degrees
	YawRate        float64 // degrees/second
	LateralG       float64
	LongitudinalG  float64
	FrontTireLoad  float64 // 1 = static load

	OnRumbleStrip bool
	Surface       string
	EngineRPM     float64
	MaxEngineRPM  float64

	// CollisionImpact is a one-shot impulse in 0..1; the frame it appears
	// in fires a collision effect. CollisionLateral picks the direction.
	CollisionImpact  float64
	CollisionLateral float64

	Airborne bool
}

// Sink is where composed forces go. The wheel service implements it on top
// of the hardware backend, applying global gain.
type Sink interface {
	PlayEffect(e dinput.Effect) dinput.EffectID
	UpdateEffect(id dinput.EffectID, e dinput.Effect) bool
	StopEffect(id dinput.EffectID)
	SetSpring(strength, coefficient float64)
	SetDamper(strength float64)
}

// Tuning constants. Slip angles in degrees, speeds in km/h.
const (
	minSpeedForCentering = 5.0
	maxCenteringSpeed    = 180.0
	baseCenteringStrength = 0.4
	centeringSpeedCurve  = 0.7
	centeringSteerCurve  = 0.8

	maxSlipAngle       = 25.0
	gripLossStartAngle = 6.0
	gripLossFullAngle  = 20.0

	maxLateralG      = 1.5
	maxLongitudinalG = 1.2

	understeerReduction      = 0.8
	understeerReductionFloor = 0.2
	yawRateContributionCap   = 0.3

	minConstantOutput = 0.01
)

// Per-channel smoothing time constants in seconds. The staggering is what
// produces the layered, non-synchronous feel.
const (
	selfCenteringSmoothTime  = 0.04
	aligningTorqueSmoothTime = 0.025
	understeerSmoothTime     = 0.06
	oversteerSmoothTime      = 0.02
	weightTransferSmoothTime = 0.08
	lateralGSmoothTime       = 0.05
)

// channel is one smoothed force value.
type channel struct {
	current    float64
	target     float64
	smoothTime float64
}

// advance moves current toward target by a single-pole step.
func (c *channel) advance(dt float64) {
	if c.smoothTime <= 0 || dt <= 0 {
		c.current = c.target
		return
	}
	alpha := dt / c.smoothTime
	if alpha > 1 {
		alpha = 1
	}
	c.current += (c.target - c.current) * alpha
}

// ChannelLevels is a snapshot of the six channels, used by diagnostics and
// tests.
type ChannelLevels struct {
	SelfCentering  float64
	AligningTorque float64
	Understeer     float64
	Oversteer      float64
	WeightTransfer float64
	LateralG       float64
}

// Composer turns telemetry frames into effect commands on a Sink. It is
// single-threaded; all methods run on the host polling thread.
type Composer struct {
	sink Sink
	log  *slog.Logger

	selfCentering  channel
	aligningTorque channel
	understeer     channel
	oversteer      channel
	weightTransfer channel
	lateralG       channel

	constantID dinput.EffectID
	kerbID     dinput.EffectID
	surfaceID  dinput.EffectID
	engineID   dinput.EffectID

	wasOnKerb      bool
	surface        string
	surfaceRumble  float64
	engineVib      float64
	totalOutput    float64
	constantOutput float64
}

// NewComposer builds a composer writing to sink. A nil logger uses
// slog.Default.
func NewComposer(sink Sink, log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	c := &Composer{sink: sink, log: log}
	c.selfCentering.smoothTime = selfCenteringSmoothTime
	c.aligningTorque.smoothTime = aligningTorqueSmoothTime
	c.understeer.smoothTime = understeerSmoothTime
	c.oversteer.smoothTime = oversteerSmoothTime
	c.weightTransfer.smoothTime = weightTransferSmoothTime
	c.lateralG.smoothTime = lateralGSmoothTime
	return c
}

// ProcessFrame computes channel targets from the frame, advances smoothing
// by dt, updates event textures, and applies the blended output.
func (c *Composer) ProcessFrame(frame TelemetryFrame, p profile.Profile, dt float64) {
	if frame.Airborne {
		// No ground contact, no forces. A wheel in the air must not feel
		// like it is gripping.
		c.selfCentering.target = 0
		c.aligningTorque.target = 0
		c.understeer.target = 0
		c.oversteer.target = 0
		c.weightTransfer.target = 0
		c.lateralG.target = 0
	} else {
		c.selfCentering.target = selfCenteringTarget(frame, p)
		c.aligningTorque.target = aligningTorqueTarget(frame, p)
		c.understeer.target = understeerTarget(frame, p)
		c.oversteer.target = oversteerTarget(frame, p)
		c.weightTransfer.target = weightTransferTarget(frame)
		c.lateralG.target = lateralGTarget(frame)
	}

	c.selfCentering.advance(dt)
	c.aligningTorque.advance(dt)
	c.understeer.advance(dt)
	c.oversteer.advance(dt)
	c.weightTransfer.advance(dt)
	c.lateralG.advance(dt)

	c.updateKerb(frame, p)
	c.updateSurface(frame, p)
	c.updateEngine(frame, p)
	c.updateCollision(frame, p)

	c.apply(p)
}

// selfCenteringTarget is the spring strength pulling the wheel to center:
// zero when parking, ramping with speed, scaled down as front grip fades.
func selfCenteringTarget(f TelemetryFrame, p profile.Profile) float64 {
	if f.SpeedKmh < minSpeedForCentering {
		return 0
	}
	ramp := clamp((f.SpeedKmh-minSpeedForCentering)/(maxCenteringSpeed-minSpeedForCentering), 0, 1)
	ramp = math.Pow(ramp, centeringSpeedCurve)
	steer := math.Pow(math.Abs(f.SteeringPos), centeringSteerCurve)
	grip := tireGrip(f.FrontSlipAngle)
	return clamp(steer*ramp*grip*baseCenteringStrength*p.SelfCenteringStrength, 0, 1)
}

// aligningTorqueTarget models self-aligning torque: rises with slip angle,
// peaks, then falls off as the tire slides and the wheel goes light.
func aligningTorqueTarget(f TelemetryFrame, p profile.Profile) float64 {
	s := clamp(math.Abs(f.FrontSlipAngle)/maxSlipAngle, 0, 1)
	torque := s * (1 - 0.5*s*s)
	torque *= clamp(f.FrontTireLoad, 0.3, 1.5)
	torque *= clamp(f.SpeedKmh/100, 0.2, 1)
	torque *= p.RoadFeelStrength
	// Force opposes the slip direction.
	return clamp(-torque*sign(f.FrontSlipAngle), -1, 1)
}

// understeerTarget is the normalized excess of front slip over rear slip.
// It is consumed as a multiplicative reduction on the final force, not
// added in.
func understeerTarget(f TelemetryFrame, p profile.Profile) float64 {
	excess := math.Abs(f.FrontSlipAngle) - math.Abs(f.RearSlipAngle)
	if excess <= 0 {
		return 0
	}
	return clamp(excess/maxSlipAngle, 0, 1) * p.UndersteerStrength
}

// oversteerTarget is the counter-steer cue: rear slip magnitude plus a
// capped yaw-rate term, pushing opposite the slide.
func oversteerTarget(f TelemetryFrame, p profile.Profile) float64 {
	rear := clamp(math.Abs(f.RearSlipAngle)/maxSlipAngle, 0, 1)
	yaw := math.Min(math.Abs(f.YawRate)/120, yawRateContributionCap)
	v := (rear + yaw) * p.OversteerStrength
	return clamp(-v*sign(f.RearSlipAngle), -1, 1)
}

// weightTransferTarget: braking loads the front and stiffens steering,
// acceleration lightens it; cornering shifts weight to the outside tires.
func weightTransferTarget(f TelemetryFrame) float64 {
	long := clamp(f.LongitudinalG, -maxLongitudinalG, maxLongitudinalG)
	lat := clamp(f.LateralG, -maxLateralG, maxLateralG)
	v := -long/maxLongitudinalG*0.15 + lat/maxLateralG*0.1
	return clamp(v, -0.3, 0.3)
}

// lateralGTarget resists the turn in proportion to cornering force.
func lateralGTarget(f TelemetryFrame) float64 {
	return clamp(f.LateralG/maxLateralG, -1, 1) * 0.2
}

// tireGrip: full grip below the loss threshold, fading linearly to a small
// residual so there is always some feedback.
func tireGrip(slipAngle float64) float64 {
	abs := math.Abs(slipAngle)
	if abs <= gripLossStartAngle {
		return 1
	}
	if abs >= gripLossFullAngle {
		return 0.1
	}
	t := (abs - gripLossStartAngle) / (gripLossFullAngle - gripLossStartAngle)
	return 1 + t*(0.1-1)
}

// updateKerb starts a square-wave rumble on the rumble-strip rising edge
// and stops the same effect on the falling edge.
func (c *Composer) updateKerb(f TelemetryFrame, p profile.Profile) {
	switch {
	case f.OnRumbleStrip && !c.wasOnKerb:
		intensity := clamp(f.SpeedKmh/200, 0.3, 1)
		c.kerbID = c.sink.PlayEffect(dinput.Effect{
			Kind: wheeldb.EffectSquare,
			Periodic: &dinput.PeriodicParams{
				Magnitude: intensity * p.CurbStrength,
				Frequency: 40,
			},
		})
	case !f.OnRumbleStrip && c.wasOnKerb:
		if c.kerbID != 0 {
			c.sink.StopEffect(c.kerbID)
			c.kerbID = 0
		}
	}
	c.wasOnKerb = f.OnRumbleStrip
}

// SurfaceTexture returns the sine magnitude and frequency for a surface
// name. Each surface should feel distinct.
func SurfaceTexture(surface string) (magnitude, frequency float64) {
	switch surface {
	case "Gravel":
		return 0.35, 22
	case "Dirt":
		return 0.25, 15
	case "Grass":
		return 0.18, 10
	case "Sand":
		return 0.30, 18
	case "Wet":
		return 0.08, 25
	case "Ice":
		return 0.03, 40
	default: // asphalt
		return 0.02, 35
	}
}

// updateSurface swaps the continuous texture effect when the surface under
// the car changes.
func (c *Composer) updateSurface(f TelemetryFrame, p profile.Profile) {
	if f.Surface == c.surface {
		return
	}
	c.surface = f.Surface

	if c.surfaceID != 0 {
		c.sink.StopEffect(c.surfaceID)
		c.surfaceID = 0
	}
	c.surfaceRumble = 0

	mag, freq := SurfaceTexture(f.Surface)
	mag *= clamp(f.SpeedKmh/120, 0.1, 1)
	if mag <= 0.01 {
		return
	}
	c.surfaceRumble = mag
	c.surfaceID = c.sink.PlayEffect(dinput.Effect{
		Kind: wheeldb.EffectSine,
		Periodic: &dinput.PeriodicParams{
			Magnitude: mag,
			Frequency: freq,
		},
	})
}

// updateEngine vibrates the wheel near redline, 35 Hz at the threshold up
// to 80 Hz at the limiter.
func (c *Composer) updateEngine(f TelemetryFrame, p profile.Profile) {
	if p.EngineVibrationStrength <= 0.01 {
		return
	}
	maxRPM := math.Max(f.MaxEngineRPM, 1000)
	pct := f.EngineRPM / maxRPM
	if pct < 0.85 {
		if c.engineID != 0 {
			c.sink.StopEffect(c.engineID)
			c.engineID = 0
		}
		c.engineVib = 0
		return
	}

	redline := (pct - 0.85) / 0.15
	c.engineVib = redline * p.EngineVibrationStrength * 0.25
	e := dinput.Effect{
		Kind: wheeldb.EffectSine,
		Periodic: &dinput.PeriodicParams{
			Magnitude: c.engineVib,
			Frequency: 35 + redline*45,
		},
	}
	if c.engineID == 0 {
		c.engineID = c.sink.PlayEffect(e)
	} else {
		c.sink.UpdateEffect(c.engineID, e)
	}
}

// updateCollision fires a one-shot sawtooth jolt when an impact impulse is
// present, directed by the lateral component of the hit.
func (c *Composer) updateCollision(f TelemetryFrame, p profile.Profile) {
	if f.CollisionImpact <= 0 {
		return
	}
	direction := 0.0
	if f.CollisionLateral > 0.3 {
		direction = 90
	} else if f.CollisionLateral < -0.3 {
		direction = 270
	}
	c.sink.PlayEffect(dinput.Effect{
		Kind:      wheeldb.EffectSawtoothUp,
		Direction: direction,
		Duration:  150 * time.Millisecond,
		Periodic: &dinput.PeriodicParams{
			Magnitude: clamp(f.CollisionImpact, 0, 1) * p.CollisionStrength,
			Frequency: 60,
		},
	})
}

// apply blends the smoothed channels and pushes the result to the sink.
func (c *Composer) apply(p profile.Profile) {
	constant := c.aligningTorque.current + c.oversteer.current +
		c.weightTransfer.current + c.lateralG.current

	// Understeer lightens the wheel rather than adding force.
	reduction := 1 - c.understeer.current*understeerReduction
	if reduction < understeerReductionFloor {
		reduction = understeerReductionFloor
	}
	constant *= reduction

	if math.Abs(constant) < p.MinForceThreshold {
		constant = 0
	}
	constant = clamp(constant, -1, 1)
	c.constantOutput = constant

	spring := c.selfCentering.current
	c.sink.SetSpring(spring, 0.5+spring*0.3)
	c.sink.SetDamper(p.DamperStrength)

	if math.Abs(constant) > minConstantOutput {
		e := dinput.Effect{
			Kind:     wheeldb.EffectConstant,
			Constant: &dinput.ConstantParams{Magnitude: constant},
		}
		if c.constantID == 0 {
			c.constantID = c.sink.PlayEffect(e)
		} else {
			c.sink.UpdateEffect(c.constantID, e)
		}
	} else if c.constantID != 0 {
		c.sink.StopEffect(c.constantID)
		c.constantID = 0
	}

	c.totalOutput = math.Abs(constant) + spring*0.5 + c.engineVib + c.surfaceRumble
}

// Targets returns the raw per-channel targets of the last frame.
func (c *Composer) Targets() ChannelLevels {
	return ChannelLevels{
		SelfCentering:  c.selfCentering.target,
		AligningTorque: c.aligningTorque.target,
		Understeer:     c.understeer.target,
		Oversteer:      c.oversteer.target,
		WeightTransfer: c.weightTransfer.target,
		LateralG:       c.lateralG.target,
	}
}

// Levels returns the smoothed per-channel values.
func (c *Composer) Levels() ChannelLevels {
	return ChannelLevels{
		SelfCentering:  c.selfCentering.current,
		AligningTorque: c.aligningTorque.current,
		Understeer:     c.understeer.current,
		Oversteer:      c.oversteer.current,
		WeightTransfer: c.weightTransfer.current,
		LateralG:       c.lateralG.current,
	}
}

// ConstantOutput returns the last blended constant force value.
func (c *Composer) ConstantOutput() float64 {
	return c.constantOutput
}

// ClippingAmount reports how far the summed channel magnitudes exceed the
// device's full-scale output. Zero means no clipping.
func (c *Composer) ClippingAmount() float64 {
	if c.totalOutput <= 1 {
		return 0
	}
	return c.totalOutput - 1
}

// Reset zeroes every channel and forgets all owned effect ids. Called when
// the device disconnects; the ids are already dead hardware-side.
func (c *Composer) Reset() {
	for _, ch := range []*channel{
		&c.selfCentering, &c.aligningTorque, &c.understeer,
		&c.oversteer, &c.weightTransfer, &c.lateralG,
	} {
		ch.current = 0
		ch.target = 0
	}
	c.constantID = 0
	c.kerbID = 0
	c.surfaceID = 0
	c.engineID = 0
	c.wasOnKerb = false
	c.surface = ""
	c.surfaceRumble = 0
	c.engineVib = 0
	c.totalOutput = 0
	c.constantOutput = 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sign(v float64) float64 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}
