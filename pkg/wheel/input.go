package wheel

import (
	"log/slog"
	"math"

	"github.com/seagrayinc/gowheel/internal/dinput"
)

// shapeAxisCentered removes the deadzone and applies a power curve to a
// centered axis. Below the deadzone the output is exactly 0; above it the
// remaining range is rescaled so the extremes still reach ±1.
func shapeAxisCentered(v, deadzone, gamma float64) float64 {
	mag := math.Abs(v)
	if mag <= deadzone {
		return 0
	}
	mag = (mag - deadzone) / (1 - deadzone)
	if gamma > 0 && gamma != 1 {
		mag = math.Pow(mag, gamma)
	}
	if mag > 1 {
		mag = 1
	}
	if v < 0 {
		return -mag
	}
	return mag
}

// shapeAxisUnipolar is the pedal variant over [0, 1].
func shapeAxisUnipolar(v, deadzone, gamma float64) float64 {
	if v <= deadzone {
		return 0
	}
	v = (v - deadzone) / (1 - deadzone)
	if gamma > 0 && gamma != 1 {
		v = math.Pow(v, gamma)
	}
	if v > 1 {
		v = 1
	}
	return v
}

// shapeInput derives the processed input from the raw snapshot and the
// active profile. Pure function of (raw state, profile); no hardware I/O.
func (s *Service) shapeInput() {
	p := s.current

	steer := s.raw.Steering - p.CenterOffset
	if steer > 1 {
		steer = 1
	}
	if steer < -1 {
		steer = -1
	}
	steer = shapeAxisCentered(steer, p.SteeringDeadzone, p.SteeringLinearity)
	if p.InvertSteering {
		steer = -steer
	}

	clutch := s.raw.Clutch
	if p.InvertClutch {
		clutch = 1 - clutch
	}

	s.input = ProcessedInput{
		Steering: steer,
		Throttle: shapeAxisUnipolar(s.raw.Throttle, p.ThrottleDeadzone, p.ThrottleGamma),
		Brake:    shapeAxisUnipolar(s.raw.Brake, p.BrakeDeadzone, p.BrakeGamma),
		Clutch:   shapeAxisUnipolar(clutch, p.ClutchDeadzone, 1),
		Buttons:  s.raw.Buttons,
		Hat:      s.raw.Hat,
	}
}

// detectPaddleEdges sets the shift flags only on the released-to-pressed
// transition, exactly once per physical press.
func (s *Service) detectPaddleEdges() {
	left := s.raw.ButtonPressed(dinput.ButtonPaddleLeft)
	right := s.raw.ButtonPressed(dinput.ButtonPaddleRight)

	s.shiftDown = left && !s.prevPaddleLeft
	s.shiftUp = right && !s.prevPaddleRight

	s.prevPaddleLeft = left
	s.prevPaddleRight = right
}

// GetSteeringInput returns the shaped steering position in [-1, 1].
func (s *Service) GetSteeringInput() float64 { return s.input.Steering }

// GetThrottleInput returns the shaped throttle in [0, 1].
func (s *Service) GetThrottleInput() float64 { return s.input.Throttle }

// GetBrakeInput returns the shaped brake in [0, 1].
func (s *Service) GetBrakeInput() float64 { return s.input.Brake }

// GetClutchInput returns the shaped clutch in [0, 1].
func (s *Service) GetClutchInput() float64 { return s.input.Clutch }

// IsButtonPressed reports the level state of button i.
func (s *Service) IsButtonPressed(i int) bool { return s.raw.ButtonPressed(i) }

// WasShiftUpPressed reports whether the right paddle was pressed this
// tick. Edge-triggered, true for exactly one tick per press.
func (s *Service) WasShiftUpPressed() bool { return s.shiftUp }

// WasShiftDownPressed is the left-paddle counterpart.
func (s *Service) WasShiftDownPressed() bool { return s.shiftDown }

// Input returns the full processed snapshot.
func (s *Service) Input() ProcessedInput { return s.input }

// RawAxisValues returns the unshaped snapshot for diagnostics screens.
func (s *Service) RawAxisValues() dinput.State { return s.raw }

// StartCalibration suspends FFB and begins center-point capture.
func (s *Service) StartCalibration() {
	if s.calibrating {
		return
	}
	s.calibrating = true
	if s.state == Connected {
		s.hw.StopAllEffects(s.deviceIndex)
		s.composer.Reset()
		s.springID = 0
		s.damperID = 0
		s.gameEngineID = 0
	}
	s.log.Info("calibration started")
}

// FinishCalibration captures the current raw steering reading as the
// persisted center offset of the active profile.
func (s *Service) FinishCalibration() {
	if !s.calibrating {
		return
	}
	s.calibrating = false
	s.current.CenterOffset = s.raw.Steering
	s.profiles[s.current.Name] = s.current
	if s.store != nil {
		if err := s.store.Save(s.current); err != nil {
			s.log.Warn("calibration save failed", slog.Any("error", err))
		}
	}
	s.log.Info("calibration finished")
}

// CancelCalibration leaves the center offset untouched.
func (s *Service) CancelCalibration() {
	s.calibrating = false
}

// IsCalibrating reports whether calibration is active.
func (s *Service) IsCalibrating() bool { return s.calibrating }
