package dinput

import (
	"errors"
	"log/slog"
	"time"

	"github.com/seagrayinc/gowheel/internal/hid"
	"github.com/seagrayinc/gowheel/internal/usbdev"
	"github.com/seagrayinc/gowheel/pkg/wheeldb"
)

// maxEffectSlots is the number of concurrently loaded effects per device.
// Consumer wheels typically advertise 16 or fewer PID effect blocks.
const maxEffectSlots = 16

// Backend owns the HID manager handle, the enumerated device list, and the
// per-device effect sets. All methods are called from the host's single
// polling thread.
type Backend struct {
	log         *slog.Logger
	mgr         hid.Manager
	initialized bool
	devices     []*device
	nextID      uint32
}

type device struct {
	desc     DeviceDescriptor
	info     hid.Info
	handle   hid.Device
	mode     hid.OpenMode
	acquired bool
	state    State
	effects  map[EffectID]*activeEffect
}

type activeEffect struct {
	slot     byte
	effect   Effect
	started  bool
	deadline time.Time // zero for infinite duration
}

// NewBackend builds a backend over the given HID manager. A nil manager
// defers to the OS manager at Initialize; a nil logger uses slog.Default.
func NewBackend(mgr hid.Manager, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{log: log, mgr: mgr}
}

// Initialize acquires the platform input subsystem. Safe to call twice.
func (b *Backend) Initialize() error {
	if b.initialized {
		return nil
	}
	if b.mgr == nil {
		mgr, err := hid.NewManager()
		if err != nil {
			return err
		}
		b.mgr = mgr
	}
	b.initialized = true
	b.log.Info("hardware backend initialized")
	return nil
}

// Shutdown stops all effects, releases every acquired device, and drops the
// device list. Safe to call twice.
func (b *Backend) Shutdown() {
	if !b.initialized {
		return
	}
	for i := range b.devices {
		b.StopAllEffects(i)
		b.ReleaseDevice(i)
	}
	b.devices = nil
	b.initialized = false
	b.log.Info("hardware backend shut down")
}

// EnumerateDevices rescans for wheel-class devices and rebuilds the
// descriptor list from scratch, releasing anything previously acquired.
// Returns the number of candidates found.
func (b *Backend) EnumerateDevices() int {
	if !b.initialized {
		return 0
	}
	for i := range b.devices {
		b.ReleaseDevice(i)
	}
	b.devices = nil

	infos, err := b.mgr.List()
	if err != nil {
		b.log.Warn("HID enumeration failed", slog.Any("error", err))
		return 0
	}
	for _, info := range infos {
		if !isWheelCandidate(info) {
			continue
		}
		caps, known := wheeldb.Lookup(info.VendorID, info.ProductID)
		name := info.Product
		if name == "" || known {
			name = caps.Name
		}
		b.devices = append(b.devices, &device{
			desc: DeviceDescriptor{
				Index:       len(b.devices),
				Path:        info.Path,
				VendorID:    info.VendorID,
				ProductID:   info.ProductID,
				Name:        name,
				SupportsFFB: caps.Supports(wheeldb.EffectConstant),
				Caps:        caps,
			},
			info:    info,
			effects: make(map[EffectID]*activeEffect),
		})
	}

	if len(b.devices) == 0 {
		b.mergeRawUSB()
	}

	b.log.Info("device enumeration complete", slog.Int("count", len(b.devices)))
	return len(b.devices)
}

// mergeRawUSB surfaces wheels hidden behind vendor drivers. These entries
// have no HID path and cannot be acquired, but they show up in listings.
func (b *Backend) mergeRawUSB() {
	raw, err := usbdev.Enumerate()
	if err != nil {
		b.log.Debug("raw USB enumeration failed", slog.Any("error", err))
		return
	}
	for _, r := range raw {
		caps, known := wheeldb.Lookup(r.VendorID, r.ProductID)
		if !known {
			continue
		}
		b.devices = append(b.devices, &device{
			desc: DeviceDescriptor{
				Index:     len(b.devices),
				VendorID:  r.VendorID,
				ProductID: r.ProductID,
				Name:      caps.Name,
				Caps:      caps,
			},
			effects: make(map[EffectID]*activeEffect),
		})
	}
}

// isWheelCandidate filters the HID listing down to game-controller classes.
// Backends that cannot resolve usages report zero, which passes the filter
// so the VID/PID capability lookup can decide.
func isWheelCandidate(info hid.Info) bool {
	if info.UsagePage == 0 && info.Usage == 0 {
		return true
	}
	if info.UsagePage != hid.UsagePageGenericDesktop {
		return false
	}
	switch info.Usage {
	case hid.UsageJoystick, hid.UsageGamepad, hid.UsageMultiAxis:
		return true
	}
	return false
}

func (b *Backend) device(i int) *device {
	if i < 0 || i >= len(b.devices) {
		return nil
	}
	return b.devices[i]
}

// DeviceCount returns the size of the current descriptor list.
func (b *Backend) DeviceCount() int {
	return len(b.devices)
}

// Descriptor returns a copy of the descriptor at index i.
func (b *Backend) Descriptor(i int) (DeviceDescriptor, bool) {
	d := b.device(i)
	if d == nil {
		return DeviceDescriptor{}, false
	}
	return d.desc, true
}

// AcquireDevice negotiates access to device i: exclusive first, shared as
// fallback. A busy device is still marked acquired; the poll path retries
// the open. Returns false only on hard failure.
func (b *Backend) AcquireDevice(i int) bool {
	d := b.device(i)
	if d == nil {
		return false
	}
	if d.acquired && d.handle != nil {
		return true
	}
	if d.desc.Path == "" {
		b.log.Warn("device has no HID interface", slog.String("name", d.desc.Name))
		return false
	}

	h, mode, err := b.open(d)
	if err != nil {
		if errors.Is(err, hid.ErrBusy) {
			// Another process has priority. Keep the claim and let the
			// poll path retry the open.
			d.acquired = true
			d.handle = nil
			b.log.Warn("device busy, will retry on poll", slog.String("name", d.desc.Name))
			return true
		}
		b.log.Warn("device acquire failed", slog.String("name", d.desc.Name), slog.Any("error", err))
		return false
	}

	d.handle = h
	d.mode = mode
	d.acquired = true
	b.configure(d)
	b.log.Info("device acquired",
		slog.String("name", d.desc.Name),
		slog.Bool("exclusive", mode == hid.OpenExclusive),
		slog.Bool("ffb", d.desc.SupportsFFB))
	return true
}

func (b *Backend) open(d *device) (hid.Device, hid.OpenMode, error) {
	h, err := b.mgr.Open(d.info, hid.OpenExclusive)
	if err == nil {
		return h, hid.OpenExclusive, nil
	}
	h, err = b.mgr.Open(d.info, hid.OpenShared)
	if err == nil {
		return h, hid.OpenShared, nil
	}
	return nil, 0, err
}

// configure applies the post-open device setup: absolute axis range,
// refined FFB support, actuator enable, auto-center off.
func (b *Backend) configure(d *device) {
	if err := d.handle.WriteFeature(featureAxisRange, encodeAxisRange(axisMin, axisMax)); err != nil {
		b.log.Debug("axis range feature rejected", slog.Any("error", err))
	}
	_, outLen, _ := d.handle.ReportLens()
	d.desc.SupportsFFB = outLen > 0 && d.desc.Caps.Supports(wheeldb.EffectConstant)
	if d.desc.SupportsFFB {
		d.handle.WriteOutput(reportDeviceCtl, encodeDeviceCtl(ctlAutoCenterOff))
		d.handle.WriteOutput(reportDeviceCtl, encodeDeviceCtl(ctlEnableActuators))
	}
}

// ReleaseDevice stops everything and closes the handle.
func (b *Backend) ReleaseDevice(i int) {
	d := b.device(i)
	if d == nil || !d.acquired {
		return
	}
	b.StopAllEffects(i)
	if d.handle != nil {
		d.handle.Close()
		d.handle = nil
	}
	d.acquired = false
}

// PollDevice reads the device state. On a read failure it reacquires once
// and retries once; false means the device is lost.
func (b *Backend) PollDevice(i int) bool {
	d := b.device(i)
	if d == nil || !d.acquired {
		return false
	}
	if d.handle == nil {
		if !b.reopen(d) {
			return false
		}
	}

	payload, err := d.handle.ReadInput()
	if err != nil {
		d.handle.Close()
		d.handle = nil
		if !b.reopen(d) {
			b.log.Warn("device lost", slog.String("name", d.desc.Name), slog.Any("error", err))
			return false
		}
		payload, err = d.handle.ReadInput()
		if err != nil {
			b.log.Warn("device lost after reacquire", slog.String("name", d.desc.Name), slog.Any("error", err))
			return false
		}
	}

	if len(payload) == 0 {
		return true
	}
	if s, ok := decodeState(payload); ok {
		d.state = s
	}
	return true
}

func (b *Backend) reopen(d *device) bool {
	h, mode, err := b.open(d)
	if err != nil {
		return false
	}
	d.handle = h
	d.mode = mode
	b.configure(d)
	return true
}

// InputState returns a copy of the last successful snapshot. Never touches
// hardware.
func (b *Backend) InputState(i int) (State, bool) {
	d := b.device(i)
	if d == nil || !d.acquired {
		return State{}, false
	}
	return d.state, true
}

// CreateEffect loads an effect into a free slot and returns its id. Zero
// means the device is absent, lacks FFB, does not support the kind, or has
// no free slots. The effect is loaded but not started.
func (b *Backend) CreateEffect(i int, e Effect) EffectID {
	d := b.device(i)
	if d == nil || !d.acquired || d.handle == nil || !d.desc.SupportsFFB {
		return 0
	}
	if !d.desc.Caps.Supports(e.Kind) {
		return 0
	}
	slot, ok := d.allocSlot(time.Now())
	if !ok {
		b.log.Warn("effect slots exhausted", slog.String("name", d.desc.Name))
		return 0
	}
	if err := b.writeEffect(d, slot, e); err != nil {
		b.log.Warn("effect upload failed", slog.Any("error", err))
		return 0
	}
	b.nextID++
	id := EffectID(b.nextID)
	d.effects[id] = &activeEffect{slot: slot, effect: e}
	return id
}

// writeEffect uploads the header and parameter blocks for a slot.
func (b *Backend) writeEffect(d *device, slot byte, e Effect) error {
	if err := d.handle.WriteOutput(reportSetEffect, encodeSetEffect(slot, e)); err != nil {
		return err
	}
	var err error
	switch {
	case e.Kind == wheeldb.EffectConstant:
		p := ConstantParams{}
		if e.Constant != nil {
			p = *e.Constant
		}
		err = d.handle.WriteOutput(reportSetConstant, encodeConstant(slot, p))
	case e.Kind.IsPeriodic():
		p := PeriodicParams{}
		if e.Periodic != nil {
			p = *e.Periodic
		}
		err = d.handle.WriteOutput(reportSetPeriodic, encodePeriodic(slot, p))
	case e.Kind.IsCondition():
		p := ConditionParams{}
		if e.Condition != nil {
			p = *e.Condition
		}
		err = d.handle.WriteOutput(reportSetCondition, encodeCondition(slot, p))
	}
	if err != nil {
		return err
	}
	if e.Envelope != nil {
		return d.handle.WriteOutput(reportSetEnvelope, encodeEnvelope(slot, *e.Envelope))
	}
	return nil
}

// allocSlot reclaims slots whose one-shot effects have expired, then finds
// a free one.
func (d *device) allocSlot(now time.Time) (byte, bool) {
	for id, ae := range d.effects {
		if ae.started && !ae.deadline.IsZero() && now.After(ae.deadline) {
			delete(d.effects, id)
		}
	}
	var used [maxEffectSlots]bool
	for _, ae := range d.effects {
		used[ae.slot] = true
	}
	for s := 0; s < maxEffectSlots; s++ {
		if !used[s] {
			return byte(s), true
		}
	}
	return 0, false
}

// StartEffect begins playback of a loaded effect.
func (b *Backend) StartEffect(i int, id EffectID) bool {
	d := b.device(i)
	if d == nil || d.handle == nil {
		return false
	}
	ae, ok := d.effects[id]
	if !ok {
		return false
	}
	if err := d.handle.WriteOutput(reportEffectOp, encodeEffectOp(ae.slot, opStart)); err != nil {
		return false
	}
	ae.started = true
	if ae.effect.Duration > 0 {
		ae.deadline = time.Now().Add(ae.effect.Duration)
	}
	return true
}

// StopEffect halts an effect and releases its slot. Unknown ids are a
// no-op, so stopping twice is harmless.
func (b *Backend) StopEffect(i int, id EffectID) {
	d := b.device(i)
	if d == nil {
		return
	}
	ae, ok := d.effects[id]
	if !ok {
		return
	}
	if d.handle != nil {
		d.handle.WriteOutput(reportEffectOp, encodeEffectOp(ae.slot, opStop))
	}
	delete(d.effects, id)
}

// UpdateEffect replaces the parameters of an existing effect, keeping its
// id. Implemented as stop, re-upload on the same slot, restart. Returns
// false when the id is not active.
func (b *Backend) UpdateEffect(i int, id EffectID, e Effect) bool {
	d := b.device(i)
	if d == nil || d.handle == nil {
		return false
	}
	ae, ok := d.effects[id]
	if !ok {
		return false
	}
	d.handle.WriteOutput(reportEffectOp, encodeEffectOp(ae.slot, opStop))
	if err := b.writeEffect(d, ae.slot, e); err != nil {
		b.log.Warn("effect update failed", slog.Any("error", err))
		delete(d.effects, id)
		return false
	}
	ae.effect = e
	if ae.started {
		d.handle.WriteOutput(reportEffectOp, encodeEffectOp(ae.slot, opStart))
		if e.Duration > 0 {
			ae.deadline = time.Now().Add(e.Duration)
		} else {
			ae.deadline = time.Time{}
		}
	}
	return true
}

// StopAllEffects halts playback and empties the active set.
func (b *Backend) StopAllEffects(i int) {
	d := b.device(i)
	if d == nil {
		return
	}
	if d.handle != nil && len(d.effects) > 0 {
		d.handle.WriteOutput(reportDeviceCtl, encodeDeviceCtl(ctlStopAll))
	}
	d.effects = make(map[EffectID]*activeEffect)
}

// ActiveEffectCount reports how many effects are loaded on device i.
func (b *Backend) ActiveEffectCount(i int) int {
	d := b.device(i)
	if d == nil {
		return 0
	}
	return len(d.effects)
}

// SetGain sets the device-wide gain in [0, 1].
func (b *Backend) SetGain(i int, gain float64) {
	d := b.device(i)
	if d == nil || d.handle == nil {
		return
	}
	d.handle.WriteOutput(reportDeviceGain, encodeDeviceGain(gain))
}

// SetAutoCenter toggles the hardware auto-centering spring.
func (b *Backend) SetAutoCenter(i int, on bool) {
	d := b.device(i)
	if d == nil || d.handle == nil {
		return
	}
	code := byte(ctlAutoCenterOff)
	if on {
		code = ctlAutoCenterOn
	}
	d.handle.WriteOutput(reportDeviceCtl, encodeDeviceCtl(code))
}
