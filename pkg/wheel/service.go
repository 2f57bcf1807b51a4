// Package wheel is the public racing-wheel subsystem API: connection
// management, input shaping, calibration, profile persistence, and the
// force feedback pipeline. Game code talks to this package only; the
// hardware protocol lives in internal/dinput.
package wheel

import (
	"log/slog"
	"time"

	"github.com/seagrayinc/gowheel/internal/dinput"
	"github.com/seagrayinc/gowheel/pkg/ffb"
	"github.com/seagrayinc/gowheel/pkg/profile"
)

// ConnectionState is the wheel's connection lifecycle state.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	ConnectionError
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ConnectionError:
		return "error"
	}
	return "disconnected"
}

// rescanBackoff is the fixed delay between reconnect scans while no wheel
// is attached.
const rescanBackoff = 2 * time.Second

// maxTickDelta caps dt across host hitches so smoothing never jumps.
const maxTickDelta = 250 * time.Millisecond

// Hardware is the backend contract the service drives. *dinput.Backend
// implements it; tests substitute their own.
type Hardware interface {
	Initialize() error
	Shutdown()
	EnumerateDevices() int
	Descriptor(i int) (dinput.DeviceDescriptor, bool)
	AcquireDevice(i int) bool
	ReleaseDevice(i int)
	PollDevice(i int) bool
	InputState(i int) (dinput.State, bool)
	CreateEffect(i int, e dinput.Effect) dinput.EffectID
	UpdateEffect(i int, id dinput.EffectID, e dinput.Effect) bool
	StartEffect(i int, id dinput.EffectID) bool
	StopEffect(i int, id dinput.EffectID)
	StopAllEffects(i int)
	SetGain(i int, gain float64)
	SetAutoCenter(i int, on bool)
}

// ProcessedInput is one tick's shaped axis and button snapshot.
type ProcessedInput struct {
	Steering float64 // -1..1, deadzone and curve applied
	Throttle float64 // 0..1
	Brake    float64 // 0..1
	Clutch   float64 // 0..1
	Buttons  uint32
	Hat      int
}

// Service orchestrates the wheel subsystem. All methods are called from
// the host's single polling thread.
type Service struct {
	log      *slog.Logger
	hw       Hardware
	composer *ffb.Composer
	store    *profile.Store

	state       ConnectionState
	deviceIndex int
	desc        dinput.DeviceDescriptor

	profiles map[string]profile.Profile
	current  profile.Profile

	raw   dinput.State
	input ProcessedInput

	prevPaddleLeft  bool
	prevPaddleRight bool
	shiftUp         bool
	shiftDown       bool

	calibrating bool

	ffbEnabled bool
	globalGain float64

	springID     dinput.EffectID
	damperID     dinput.EffectID
	gameEngineID dinput.EffectID

	lastScan    time.Time
	lastTick    time.Time
	lastFFBTick time.Time
	latencyMs   float64

	onConnected    []func(dinput.DeviceDescriptor)
	onDisconnected []func()
	onStateUpdated []func(ProcessedInput)
	onClipping     []func(float64)
}

// NewService builds the service over a hardware backend and a profile
// store. A nil logger uses slog.Default.
func NewService(hw Hardware, store *profile.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		log:        log,
		hw:         hw,
		store:      store,
		profiles:   make(map[string]profile.Profile),
		current:    profile.Default(),
		ffbEnabled: true,
		globalGain: 1,
	}
	s.composer = ffb.NewComposer(s, log)
	return s
}

// Initialize brings up the backend and loads saved profiles. Idempotent
// through the backend's own initialize contract.
func (s *Service) Initialize() error {
	if err := s.hw.Initialize(); err != nil {
		return err
	}
	if s.store != nil {
		loaded, err := s.store.LoadAll()
		if err != nil {
			s.log.Warn("profile load failed", slog.Any("error", err))
		} else {
			s.profiles = loaded
		}
	}
	if _, ok := s.profiles["Default"]; !ok {
		s.profiles["Default"] = profile.Default()
	}
	s.current = s.profiles["Default"]
	return nil
}

// Shutdown disconnects and releases the backend.
func (s *Service) Shutdown() {
	if s.state == Connected {
		s.Disconnect()
	}
	s.hw.Shutdown()
}

// State returns the current connection state.
func (s *Service) State() ConnectionState { return s.state }

// Descriptor returns the connected device's descriptor. Meaningless while
// disconnected.
func (s *Service) Descriptor() dinput.DeviceDescriptor { return s.desc }

// Tick runs one iteration of the polling pipeline: connection check, poll,
// input shaping, notifications. The host calls it on a fixed-interval
// timer (~120 Hz).
func (s *Service) Tick(now time.Time) {
	dt := now.Sub(s.lastTick)
	if dt < 0 || dt > maxTickDelta {
		dt = maxTickDelta
	}
	s.lastTick = now

	// Edge flags live for exactly one tick.
	s.shiftUp = false
	s.shiftDown = false

	switch s.state {
	case Disconnected, ConnectionError:
		if now.Sub(s.lastScan) >= rescanBackoff {
			s.lastScan = now
			s.Scan()
		}
	case Connected:
		if !s.hw.PollDevice(s.deviceIndex) {
			s.log.Warn("poll failed, disconnecting", slog.String("name", s.desc.Name))
			s.teardown(true)
			return
		}
		if raw, ok := s.hw.InputState(s.deviceIndex); ok {
			s.raw = raw
		}
		s.shapeInput()
		s.detectPaddleEdges()
		for _, fn := range s.onStateUpdated {
			fn(s.input)
		}
	}
}

// Scan enumerates devices and connects to the first candidate. Returns
// true when a wheel ends up connected.
func (s *Service) Scan() bool {
	if s.state == Connected {
		return true
	}
	s.state = Connecting

	n := s.hw.EnumerateDevices()
	if n == 0 {
		s.state = Disconnected
		return false
	}

	for i := 0; i < n; i++ {
		desc, ok := s.hw.Descriptor(i)
		if !ok {
			continue
		}
		if s.hw.AcquireDevice(i) {
			s.connected(i, desc)
			return true
		}
	}
	s.state = Disconnected
	return false
}

func (s *Service) connected(i int, desc dinput.DeviceDescriptor) {
	s.deviceIndex = i
	s.desc = desc
	s.state = Connected
	s.composer.Reset()
	s.springID = 0
	s.damperID = 0
	s.gameEngineID = 0

	s.selectProfileForModel(desc)
	s.hw.SetGain(i, s.globalGain)

	s.log.Info("wheel connected",
		slog.String("name", desc.Name),
		slog.Bool("ffb", desc.SupportsFFB),
		slog.String("profile", s.current.Name))
	for _, fn := range s.onConnected {
		fn(desc)
	}
}

// Disconnect synchronously stops all effects and releases the device.
func (s *Service) Disconnect() {
	if s.state != Connected {
		return
	}
	s.teardown(true)
}

// teardown transitions to Disconnected exactly once, firing at most one
// disconnect notification.
func (s *Service) teardown(notify bool) {
	s.hw.StopAllEffects(s.deviceIndex)
	s.hw.ReleaseDevice(s.deviceIndex)
	s.composer.Reset()
	s.springID = 0
	s.damperID = 0
	s.gameEngineID = 0
	s.state = Disconnected
	s.lastScan = s.lastTick
	s.raw = dinput.State{}
	s.input = ProcessedInput{}
	s.log.Info("wheel disconnected", slog.String("name", s.desc.Name))
	if notify {
		for _, fn := range s.onDisconnected {
			fn()
		}
	}
}

// OnConnected registers a callback fired when a wheel connects. Callbacks
// run synchronously on the tick thread.
func (s *Service) OnConnected(fn func(dinput.DeviceDescriptor)) {
	s.onConnected = append(s.onConnected, fn)
}

// OnDisconnected registers a callback fired when the wheel is lost or
// disconnected.
func (s *Service) OnDisconnected(fn func()) {
	s.onDisconnected = append(s.onDisconnected, fn)
}

// OnStateUpdated registers a high-frequency callback fired every connected
// tick with the shaped input.
func (s *Service) OnStateUpdated(fn func(ProcessedInput)) {
	s.onStateUpdated = append(s.onStateUpdated, fn)
}

// OnClipping registers a callback fired when FFB output saturates.
func (s *Service) OnClipping(fn func(float64)) {
	s.onClipping = append(s.onClipping, fn)
}
