package wheel

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/seagrayinc/gowheel/internal/dinput"
	"github.com/seagrayinc/gowheel/pkg/ffb"
	"github.com/seagrayinc/gowheel/pkg/profile"
	"github.com/seagrayinc/gowheel/pkg/wheeldb"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type createdEffect struct {
	id dinput.EffectID
	e  dinput.Effect
}

// mockHardware is a scriptable Hardware for service tests.
type mockHardware struct {
	devices   []dinput.DeviceDescriptor
	state     dinput.State
	failPolls int

	acquired     bool
	releases     int
	stopAllCalls int
	gain         float64

	nextID  dinput.EffectID
	created []createdEffect
	started []dinput.EffectID
	stopped []dinput.EffectID
	updated []createdEffect
}

func newMockHardware() *mockHardware {
	caps := wheeldb.Capabilities{
		Name:           "Test Wheel",
		MaxRotationDeg: 900,
		SupportedEffects: []wheeldb.EffectKind{
			wheeldb.EffectConstant, wheeldb.EffectSpring, wheeldb.EffectDamper,
			wheeldb.EffectSine, wheeldb.EffectSquare, wheeldb.EffectSawtoothUp,
		},
	}
	return &mockHardware{
		devices: []dinput.DeviceDescriptor{{
			Index: 0, Path: "test0", VendorID: 0x046D, ProductID: 0xC262,
			Name: "Test Wheel", SupportsFFB: true, Caps: caps,
		}},
	}
}

func (m *mockHardware) Initialize() error { return nil }
func (m *mockHardware) Shutdown()         {}
func (m *mockHardware) EnumerateDevices() int {
	return len(m.devices)
}
func (m *mockHardware) Descriptor(i int) (dinput.DeviceDescriptor, bool) {
	if i < 0 || i >= len(m.devices) {
		return dinput.DeviceDescriptor{}, false
	}
	return m.devices[i], true
}
func (m *mockHardware) AcquireDevice(i int) bool {
	m.acquired = true
	return true
}
func (m *mockHardware) ReleaseDevice(i int) {
	m.acquired = false
	m.releases++
}
func (m *mockHardware) PollDevice(i int) bool {
	if m.failPolls > 0 {
		m.failPolls--
		return false
	}
	return m.acquired
}
func (m *mockHardware) InputState(i int) (dinput.State, bool) {
	return m.state, m.acquired
}
func (m *mockHardware) CreateEffect(i int, e dinput.Effect) dinput.EffectID {
	m.nextID++
	m.created = append(m.created, createdEffect{m.nextID, e})
	return m.nextID
}
func (m *mockHardware) UpdateEffect(i int, id dinput.EffectID, e dinput.Effect) bool {
	m.updated = append(m.updated, createdEffect{id, e})
	return true
}
func (m *mockHardware) StartEffect(i int, id dinput.EffectID) bool {
	m.started = append(m.started, id)
	return true
}
func (m *mockHardware) StopEffect(i int, id dinput.EffectID) {
	m.stopped = append(m.stopped, id)
}
func (m *mockHardware) StopAllEffects(i int) { m.stopAllCalls++ }
func (m *mockHardware) SetGain(i int, gain float64) {
	m.gain = gain
}
func (m *mockHardware) SetAutoCenter(i int, on bool) {}

func (m *mockHardware) createdOfKind(kind wheeldb.EffectKind) []createdEffect {
	var out []createdEffect
	for _, c := range m.created {
		if c.e.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func newConnectedService(t *testing.T) (*Service, *mockHardware, time.Time) {
	t.Helper()
	hw := newMockHardware()
	s := NewService(hw, nil, testLogger())
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	now := time.Unix(1000, 0)
	s.Tick(now)
	if s.State() != Connected {
		t.Fatalf("state after first tick = %v, want connected", s.State())
	}
	return s, hw, now
}

func tickInterval() time.Duration { return 8333 * time.Microsecond }

func TestShapedAxisDeadzoneProperties(t *testing.T) {
	const d = 0.1
	// Inside the deadzone the output is exactly zero.
	for _, x := range []float64{0, 0.05, -0.1, 0.1} {
		if got := shapeAxisCentered(x, d, 1); got != 0 {
			t.Errorf("shaped(%v) = %v, want 0 inside deadzone", x, got)
		}
	}
	// Above it the curve is strictly increasing and hits 1 at the extreme.
	prev := 0.0
	for x := 0.11; x <= 1.0; x += 0.01 {
		got := shapeAxisCentered(x, d, 1)
		if got <= prev {
			t.Fatalf("shaped not strictly increasing at %v: %v <= %v", x, got, prev)
		}
		prev = got
	}
	if got := shapeAxisCentered(1, d, 1); got != 1 {
		t.Errorf("shaped(1) = %v, want exactly 1", got)
	}
	if got := shapeAxisCentered(-1, d, 1); got != -1 {
		t.Errorf("shaped(-1) = %v, want exactly -1", got)
	}
}

func TestShapedAxisGammaCurve(t *testing.T) {
	// gamma > 1 softens the center without moving the endpoints.
	linear := shapeAxisCentered(0.5, 0, 1)
	soft := shapeAxisCentered(0.5, 0, 2)
	if soft >= linear {
		t.Errorf("gamma 2 at mid-travel: %v, want below linear %v", soft, linear)
	}
	if got := shapeAxisCentered(1, 0, 2); got != 1 {
		t.Errorf("gamma must not move the endpoint: %v", got)
	}
}

func TestConnectFiresNotification(t *testing.T) {
	hw := newMockHardware()
	s := NewService(hw, nil, testLogger())
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}

	var connects int
	s.OnConnected(func(d dinput.DeviceDescriptor) {
		connects++
		if d.Name != "Test Wheel" {
			t.Errorf("connected descriptor name = %q", d.Name)
		}
	})

	s.Tick(time.Unix(1000, 0))
	if s.State() != Connected || connects != 1 {
		t.Fatalf("state=%v connects=%d, want connected once", s.State(), connects)
	}
	if hw.gain != 1 {
		t.Errorf("device gain = %v, want 1 applied on connect", hw.gain)
	}
}

func TestPollFailureDisconnectsExactlyOnce(t *testing.T) {
	s, hw, now := newConnectedService(t)

	var disconnects int
	s.OnDisconnected(func() { disconnects++ })

	// Many consecutive failures, but the service tears down on the first
	// failed tick and then sits in backoff.
	hw.failPolls = 10
	for i := 0; i < 6; i++ {
		now = now.Add(tickInterval())
		s.Tick(now)
	}
	if s.State() != Disconnected {
		t.Fatalf("state = %v, want disconnected", s.State())
	}
	if disconnects != 1 {
		t.Fatalf("disconnect notifications = %d, want exactly 1", disconnects)
	}
	if hw.stopAllCalls == 0 || hw.releases != 1 {
		t.Errorf("teardown incomplete: stopAll=%d releases=%d", hw.stopAllCalls, hw.releases)
	}

	// After the backoff the service reconnects on its own.
	hw.failPolls = 0
	now = now.Add(3 * time.Second)
	s.Tick(now)
	if s.State() != Connected {
		t.Errorf("state after backoff = %v, want reconnected", s.State())
	}
}

func TestPaddleEdgesExactlyOncePerPress(t *testing.T) {
	s, hw, now := newConnectedService(t)

	press := func(buttons uint32) {
		hw.state.Buttons = buttons
		now = now.Add(tickInterval())
		s.Tick(now)
	}

	press(1 << dinput.ButtonPaddleRight)
	if !s.WasShiftUpPressed() {
		t.Fatal("shift up not reported on press tick")
	}
	if s.WasShiftDownPressed() {
		t.Fatal("shift down reported for the right paddle")
	}

	// Holding the paddle does not retrigger.
	press(1 << dinput.ButtonPaddleRight)
	if s.WasShiftUpPressed() {
		t.Fatal("shift up reported while paddle held")
	}

	// Release, then a second press triggers again.
	press(0)
	press(1 << dinput.ButtonPaddleRight)
	if !s.WasShiftUpPressed() {
		t.Fatal("shift up not reported on second press")
	}

	press(1 << dinput.ButtonPaddleLeft)
	if !s.WasShiftDownPressed() {
		t.Fatal("shift down not reported for the left paddle")
	}
}

func TestCalibrationCapturesCenterOffset(t *testing.T) {
	dir := t.TempDir()
	hw := newMockHardware()
	s := NewService(hw, profile.NewStore(dir, testLogger()), testLogger())
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}
	now := time.Unix(1000, 0)
	s.Tick(now)

	// The wheel rests slightly off-center.
	hw.state.Steering = 0.04
	now = now.Add(tickInterval())
	s.Tick(now)

	s.StartCalibration()
	if !s.IsCalibrating() {
		t.Fatal("calibration not active")
	}
	if hw.stopAllCalls == 0 {
		t.Error("FFB not suspended for calibration")
	}

	s.FinishCalibration()
	if s.IsCalibrating() {
		t.Fatal("calibration still active after finish")
	}
	if got := s.CurrentProfile().CenterOffset; got != 0.04 {
		t.Fatalf("CenterOffset = %v, want 0.04", got)
	}

	// The offset is persisted with the profile.
	loaded, err := profile.NewStore(dir, testLogger()).LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if got := loaded["Default"].CenterOffset; got != 0.04 {
		t.Errorf("persisted CenterOffset = %v, want 0.04", got)
	}

	// Shaped steering is centered again.
	now = now.Add(tickInterval())
	s.Tick(now)
	if got := s.GetSteeringInput(); got != 0 {
		t.Errorf("steering after calibration = %v, want 0", got)
	}
}

func TestCancelCalibrationKeepsOffset(t *testing.T) {
	s, hw, now := newConnectedService(t)
	hw.state.Steering = 0.2
	now = now.Add(tickInterval())
	s.Tick(now)

	s.StartCalibration()
	s.CancelCalibration()
	if got := s.CurrentProfile().CenterOffset; got != 0 {
		t.Errorf("CenterOffset = %v, want untouched 0 after cancel", got)
	}
}

func TestUpdateFromVehicleScalesByMasterGain(t *testing.T) {
	s, hw, _ := newConnectedService(t)

	frame := ffb.TelemetryFrame{
		SpeedKmh:       100,
		FrontSlipAngle: 10,
		FrontTireLoad:  1,
	}
	s.UpdateFromVehicle(frame)

	constants := hw.createdOfKind(wheeldb.EffectConstant)
	if len(constants) != 1 {
		t.Fatalf("constant effects created = %d, want 1", len(constants))
	}
	want := s.composer.ConstantOutput() * s.CurrentProfile().FFBStrength
	got := constants[0].e.Constant.Magnitude
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("scaled magnitude = %v, want %v", got, want)
	}
	if len(hw.started) == 0 {
		t.Error("constant effect created but never started")
	}
}

func TestFFBSuspendedDuringCalibration(t *testing.T) {
	s, hw, _ := newConnectedService(t)

	s.StartCalibration()
	hw.created = nil
	s.UpdateFromVehicle(ffb.TelemetryFrame{SpeedKmh: 100, FrontSlipAngle: 10, FrontTireLoad: 1})
	if len(hw.created) != 0 {
		t.Errorf("effects created during calibration: %d", len(hw.created))
	}
}

func TestFFBDisabledBlocksEffects(t *testing.T) {
	s, hw, _ := newConnectedService(t)

	s.SetFFBEnabled(false)
	hw.created = nil
	s.UpdateFromVehicle(ffb.TelemetryFrame{SpeedKmh: 100, FrontSlipAngle: 10, FrontTireLoad: 1})
	s.TriggerCollisionFFB(0.8, 0)
	if len(hw.created) != 0 {
		t.Errorf("effects created while FFB disabled: %d", len(hw.created))
	}
}

func TestKerbHelperScalesByCurbStrength(t *testing.T) {
	s, hw, _ := newConnectedService(t)

	id := s.TriggerKerbFFB(0.6, 0)
	if id == 0 {
		t.Fatal("TriggerKerbFFB returned invalid id")
	}
	squares := hw.createdOfKind(wheeldb.EffectSquare)
	if len(squares) != 1 {
		t.Fatalf("square effects = %d, want 1", len(squares))
	}
	// 0.6 x CurbStrength(0.5) x FFBStrength(0.7)
	want := 0.6 * 0.5 * 0.7
	if got := squares[0].e.Periodic.Magnitude; math.Abs(got-want) > 1e-9 {
		t.Errorf("kerb magnitude = %v, want %v", got, want)
	}
}

func TestProfileSwitchAndPersistence(t *testing.T) {
	dir := t.TempDir()
	hw := newMockHardware()
	s := NewService(hw, profile.NewStore(dir, testLogger()), testLogger())
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}

	drift := profile.Default()
	drift.Name = "Drift"
	drift.OversteerStrength = 0.9
	if err := s.SaveProfile(drift); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if err := s.SetActiveProfile("Drift"); err != nil {
		t.Fatalf("SetActiveProfile: %v", err)
	}
	if got := s.CurrentProfile().OversteerStrength; got != 0.9 {
		t.Errorf("active OversteerStrength = %v, want 0.9", got)
	}

	if err := s.SetActiveProfile("nope"); err == nil {
		t.Error("activating a missing profile should fail")
	}

	names := s.ProfileNames()
	if len(names) != 2 || names[0] != "Default" || names[1] != "Drift" {
		t.Errorf("ProfileNames = %v", names)
	}

	if err := s.DeleteProfile("Drift"); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if s.CurrentProfile().Name != "Default" {
		t.Error("active profile should fall back to Default after delete")
	}
	if err := s.DeleteProfile("Default"); err == nil {
		t.Error("Default profile must not be deletable")
	}
}

func TestProfileBoundToModelSelectedOnConnect(t *testing.T) {
	hw := newMockHardware()
	s := NewService(hw, nil, testLogger())
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}

	bound := profile.Default()
	bound.Name = "G920 Race"
	bound.TargetVendorID = 0x046D
	bound.TargetProductID = 0xC262
	bound.FFBStrength = 0.95
	if err := s.SaveProfile(bound); err != nil {
		t.Fatal(err)
	}

	s.Tick(time.Unix(1000, 0))
	if s.State() != Connected {
		t.Fatal("not connected")
	}
	if got := s.CurrentProfile().Name; got != "G920 Race" {
		t.Errorf("active profile = %q, want the model-bound one", got)
	}
}

func TestManualDisconnectIsSynchronous(t *testing.T) {
	s, hw, _ := newConnectedService(t)

	var disconnects int
	s.OnDisconnected(func() { disconnects++ })

	s.Disconnect()
	if s.State() != Disconnected {
		t.Fatalf("state = %v", s.State())
	}
	if hw.releases != 1 || hw.stopAllCalls == 0 {
		t.Error("manual disconnect did not stop effects and release")
	}
	if disconnects != 1 {
		t.Errorf("disconnect notifications = %d, want 1", disconnects)
	}

	// Disconnecting again is a no-op.
	s.Disconnect()
	if disconnects != 1 {
		t.Errorf("second Disconnect fired a notification")
	}
}
