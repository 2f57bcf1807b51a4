package wheel

import (
	"time"

	"github.com/seagrayinc/gowheel/internal/dinput"
	"github.com/seagrayinc/gowheel/pkg/ffb"
	"github.com/seagrayinc/gowheel/pkg/wheeldb"
)

// ffbReady reports whether effect commands should reach the hardware.
func (s *Service) ffbReady() bool {
	return s.state == Connected && s.desc.SupportsFFB &&
		s.ffbEnabled && s.current.FFBEnabled && !s.calibrating
}

// UpdateFromVehicle is the main per-tick FFB entry: the vehicle physics
// hands over a telemetry frame and the composer turns it into forces.
// Also measures the submit latency for diagnostics.
func (s *Service) UpdateFromVehicle(frame ffb.TelemetryFrame) {
	if !s.ffbReady() {
		return
	}
	now := time.Now()
	dt := 1.0 / 120.0
	if !s.lastFFBTick.IsZero() {
		dt = now.Sub(s.lastFFBTick).Seconds()
	}
	s.lastFFBTick = now

	// Let the composer steer with the shaped wheel position.
	frame.SteeringPos = s.input.Steering

	s.composer.ProcessFrame(frame, s.current, dt)
	s.latencyMs = float64(time.Since(now).Microseconds()) / 1000

	if clip := s.composer.ClippingAmount(); clip > 0 && s.current.ShowFFBClipping {
		for _, fn := range s.onClipping {
			fn(clip)
		}
	}
}

// effectGain is the scale applied to every outgoing effect magnitude.
func (s *Service) effectGain() float64 {
	return s.current.FFBStrength * s.globalGain
}

// scaleEffect applies the master gain to an effect's magnitude fields.
func (s *Service) scaleEffect(e dinput.Effect) dinput.Effect {
	g := s.effectGain()
	if e.Constant != nil {
		c := *e.Constant
		c.Magnitude *= g
		e.Constant = &c
	}
	if e.Periodic != nil {
		p := *e.Periodic
		p.Magnitude *= g
		e.Periodic = &p
	}
	return e
}

// PlayEffect creates and starts a scaled effect, returning its id. Part of
// the composer's sink contract; also usable by game code directly.
func (s *Service) PlayEffect(e dinput.Effect) dinput.EffectID {
	if !s.ffbReady() {
		return 0
	}
	id := s.hw.CreateEffect(s.deviceIndex, s.scaleEffect(e))
	if id == 0 {
		return 0
	}
	s.hw.StartEffect(s.deviceIndex, id)
	return id
}

// UpdateEffect replaces a running effect's parameters, keeping its id.
func (s *Service) UpdateEffect(id dinput.EffectID, e dinput.Effect) bool {
	if !s.ffbReady() || id == 0 {
		return false
	}
	return s.hw.UpdateEffect(s.deviceIndex, id, s.scaleEffect(e))
}

// StopEffect stops a single effect. Unknown or stale ids are a no-op.
func (s *Service) StopEffect(id dinput.EffectID) {
	if s.state != Connected || id == 0 {
		return
	}
	s.hw.StopEffect(s.deviceIndex, id)
}

// StopAllFFB halts everything currently playing.
func (s *Service) StopAllFFB() {
	if s.state != Connected {
		return
	}
	s.hw.StopAllEffects(s.deviceIndex)
	s.springID = 0
	s.damperID = 0
	s.gameEngineID = 0
}

// SetSpring maintains the persistent self-centering spring effect. A
// strength near zero stops it.
func (s *Service) SetSpring(strength, coefficient float64) {
	if !s.ffbReady() {
		return
	}
	if strength <= 0.005 {
		if s.springID != 0 {
			s.hw.StopEffect(s.deviceIndex, s.springID)
			s.springID = 0
		}
		return
	}
	e := dinput.Effect{
		Kind: wheeldb.EffectSpring,
		Condition: &dinput.ConditionParams{
			PosCoeff:   coefficient,
			NegCoeff:   coefficient,
			Saturation: clampUnit(strength * s.effectGain()),
			Deadband:   0.02,
		},
	}
	if s.springID == 0 {
		s.springID = s.hw.CreateEffect(s.deviceIndex, e)
		if s.springID != 0 {
			s.hw.StartEffect(s.deviceIndex, s.springID)
		}
	} else {
		s.hw.UpdateEffect(s.deviceIndex, s.springID, e)
	}
}

// SetSelfCentering is the public alias for gameplay code.
func (s *Service) SetSelfCentering(strength, coefficient float64) {
	s.SetSpring(strength, coefficient)
}

// SetDamper maintains the persistent damper that smooths oscillation.
func (s *Service) SetDamper(strength float64) {
	if !s.ffbReady() {
		return
	}
	if strength <= 0.005 {
		if s.damperID != 0 {
			s.hw.StopEffect(s.deviceIndex, s.damperID)
			s.damperID = 0
		}
		return
	}
	e := dinput.Effect{
		Kind: wheeldb.EffectDamper,
		Condition: &dinput.ConditionParams{
			PosCoeff:   clampUnit(strength),
			NegCoeff:   clampUnit(strength),
			Saturation: 1,
		},
	}
	if s.damperID == 0 {
		s.damperID = s.hw.CreateEffect(s.deviceIndex, e)
		if s.damperID != 0 {
			s.hw.StartEffect(s.deviceIndex, s.damperID)
		}
	} else {
		s.hw.UpdateEffect(s.deviceIndex, s.damperID, e)
	}
}

// SetDamperStrength is the public alias for gameplay code.
func (s *Service) SetDamperStrength(strength float64) {
	s.SetDamper(strength)
}

// TriggerCollisionFFB fires a one-shot impact jolt. The lateral component
// of the hit picks the direction the wheel kicks.
func (s *Service) TriggerCollisionFFB(force, lateral float64) {
	direction := 0.0
	if lateral > 0.3 {
		direction = 90
	} else if lateral < -0.3 {
		direction = 270
	}
	s.PlayEffect(dinput.Effect{
		Kind:      wheeldb.EffectSawtoothUp,
		Direction: direction,
		Duration:  150 * time.Millisecond,
		Periodic: &dinput.PeriodicParams{
			Magnitude: clampUnit(force) * s.current.CollisionStrength,
			Frequency: 60,
		},
	})
}

// TriggerKerbFFB starts a kerb rumble scaled by the profile's curb
// strength. A zero duration plays until stopped.
func (s *Service) TriggerKerbFFB(intensity float64, duration time.Duration) dinput.EffectID {
	return s.PlayEffect(dinput.Effect{
		Kind:     wheeldb.EffectSquare,
		Duration: duration,
		Periodic: &dinput.PeriodicParams{
			Magnitude: clampUnit(intensity) * s.current.CurbStrength,
			Frequency: 40,
		},
	})
}

// TriggerSurfaceFFB starts a continuous surface texture for gameplay code
// that drives textures itself instead of through telemetry.
func (s *Service) TriggerSurfaceFFB(surface string, intensity float64) dinput.EffectID {
	mag, freq := ffb.SurfaceTexture(surface)
	return s.PlayEffect(dinput.Effect{
		Kind: wheeldb.EffectSine,
		Periodic: &dinput.PeriodicParams{
			Magnitude: mag * clampUnit(intensity),
			Frequency: freq,
		},
	})
}

// UpdateEngineFFB drives the redline vibration directly from RPM values,
// for hosts that do not send full telemetry frames.
func (s *Service) UpdateEngineFFB(rpm, maxRPM float64) {
	if !s.ffbReady() || s.current.EngineVibrationStrength <= 0.01 {
		return
	}
	if maxRPM < 1000 {
		maxRPM = 1000
	}
	pct := rpm / maxRPM
	if pct < 0.85 {
		if s.gameEngineID != 0 {
			s.hw.StopEffect(s.deviceIndex, s.gameEngineID)
			s.gameEngineID = 0
		}
		return
	}
	redline := (pct - 0.85) / 0.15
	e := dinput.Effect{
		Kind: wheeldb.EffectSine,
		Periodic: &dinput.PeriodicParams{
			Magnitude: redline * s.current.EngineVibrationStrength * 0.25 * s.effectGain(),
			Frequency: 35 + redline*45,
		},
	}
	if s.gameEngineID == 0 {
		s.gameEngineID = s.hw.CreateEffect(s.deviceIndex, e)
		if s.gameEngineID != 0 {
			s.hw.StartEffect(s.deviceIndex, s.gameEngineID)
		}
	} else {
		s.hw.UpdateEffect(s.deviceIndex, s.gameEngineID, e)
	}
}

// SetFFBEnabled is the global enable switch, on top of the per-profile
// flag.
func (s *Service) SetFFBEnabled(enabled bool) {
	s.ffbEnabled = enabled
	if !enabled && s.state == Connected {
		s.StopAllFFB()
		s.composer.Reset()
	}
}

// IsFFBEnabled reports the effective enable state.
func (s *Service) IsFFBEnabled() bool {
	return s.ffbEnabled && s.current.FFBEnabled
}

// SetGlobalGain scales all effects and the device-wide hardware gain.
func (s *Service) SetGlobalGain(gain float64) {
	s.globalGain = clampUnit(gain)
	if s.state == Connected {
		s.hw.SetGain(s.deviceIndex, s.globalGain)
	}
}

// GetFFBClippingAmount reports how far the last composed output exceeded
// full scale. Zero means headroom remains.
func (s *Service) GetFFBClippingAmount() float64 {
	return s.composer.ClippingAmount()
}

// GetFFBLatencyMs is the time the last telemetry frame took from entry to
// submitted effects.
func (s *Service) GetFFBLatencyMs() float64 {
	return s.latencyMs
}

// ChannelLevels exposes the composer's smoothed channels for diagnostics.
func (s *Service) ChannelLevels() ffb.ChannelLevels {
	return s.composer.Levels()
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
