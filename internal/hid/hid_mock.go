package hid

import (
	"fmt"
	"sync"
)

// MockDevice is an in-memory Device used by tests across the module.
// Input reports are scripted ahead of time; output and feature writes are
// recorded for inspection.
type MockDevice struct {
	mu sync.Mutex

	Info Info

	inputQueue [][]byte
	outputs    []MockReport
	features   map[byte][]byte

	// FailReads makes the next N ReadInput calls fail.
	FailReads int
	closed    bool

	inLen, outLen, featLen int
}

// MockReport is one recorded write, report ID plus payload.
type MockReport struct {
	ID   byte
	Data []byte
}

// NewMockDevice returns a mock with G920-shaped report lengths.
func NewMockDevice(info Info) *MockDevice {
	return &MockDevice{
		Info:     info,
		features: make(map[byte][]byte),
		inLen:    15,
		outLen:   32,
		featLen:  8,
	}
}

// QueueInput appends a scripted input report. ReadInput returns queued
// reports in order; when the queue is empty it repeats the last one.
func (d *MockDevice) QueueInput(report []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputQueue = append(d.inputQueue, report)
}

// Outputs returns a copy of all recorded output reports.
func (d *MockDevice) Outputs() []MockReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]MockReport, len(d.outputs))
	copy(out, d.outputs)
	return out
}

// OutputsByID returns recorded output reports with the given report ID.
func (d *MockDevice) OutputsByID(id byte) []MockReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []MockReport
	for _, r := range d.outputs {
		if r.ID == id {
			out = append(out, r)
		}
	}
	return out
}

// ClearOutputs discards recorded writes.
func (d *MockDevice) ClearOutputs() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs = nil
}

func (d *MockDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *MockDevice) WriteOutput(reportID byte, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("mock: device closed")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	d.outputs = append(d.outputs, MockReport{ID: reportID, Data: cp})
	return nil
}

func (d *MockDevice) ReadInput() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("mock: device closed")
	}
	if d.FailReads > 0 {
		d.FailReads--
		return nil, fmt.Errorf("mock: read failure injected")
	}
	if len(d.inputQueue) == 0 {
		return nil, nil
	}
	report := d.inputQueue[0]
	if len(d.inputQueue) > 1 {
		d.inputQueue = d.inputQueue[1:]
	}
	return report, nil
}

func (d *MockDevice) WriteFeature(reportID byte, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	d.features[reportID] = cp
	return nil
}

func (d *MockDevice) ReadFeature(reportID byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f, ok := d.features[reportID]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("mock: no feature report 0x%02X", reportID)
}

func (d *MockDevice) ReportLens() (int, int, int) {
	return d.inLen, d.outLen, d.featLen
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// MockManager serves a fixed set of mock devices.
type MockManager struct {
	mu      sync.Mutex
	Devices []*MockDevice

	// BusyPaths holds device paths that refuse exclusive opens.
	BusyPaths map[string]bool
	// BusyAllPaths holds device paths that refuse opens in any mode.
	BusyAllPaths map[string]bool
	// FailOpen makes every Open fail.
	FailOpen bool
}

func NewMockManager(devices ...*MockDevice) *MockManager {
	return &MockManager{
		Devices:      devices,
		BusyPaths:    make(map[string]bool),
		BusyAllPaths: make(map[string]bool),
	}
}

func (m *MockManager) List() ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.Devices))
	for _, d := range m.Devices {
		out = append(out, d.Info)
	}
	return out, nil
}

func (m *MockManager) Open(info Info, mode OpenMode) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOpen {
		return nil, fmt.Errorf("mock: open failure injected")
	}
	for _, d := range m.Devices {
		if d.Info.Path == info.Path {
			if m.BusyAllPaths[info.Path] || (mode == OpenExclusive && m.BusyPaths[info.Path]) {
				return nil, fmt.Errorf("open %s: %w", info.Path, ErrBusy)
			}
			d.mu.Lock()
			d.closed = false
			d.mu.Unlock()
			return d, nil
		}
	}
	return nil, fmt.Errorf("open %s: %w", info.Path, ErrNotFound)
}

func (m *MockManager) OpenVIDPID(vendorID, productID uint16, mode OpenMode) (Device, error) {
	m.mu.Lock()
	var match *Info
	for _, d := range m.Devices {
		if d.Info.VendorID == vendorID && d.Info.ProductID == productID {
			info := d.Info
			match = &info
			break
		}
	}
	m.mu.Unlock()
	if match == nil {
		return nil, fmt.Errorf("device VID:0x%04X PID:0x%04X: %w", vendorID, productID, ErrNotFound)
	}
	return m.Open(*match, mode)
}
