package hid

import "errors"

// OpenMode selects the access-sharing mode negotiated when a device is
// opened. Exclusive access is required for force feedback on most wheels;
// shared access still allows input polling.
type OpenMode int

const (
	OpenShared OpenMode = iota
	OpenExclusive
)

// ErrBusy is returned when another process holds the device with higher
// priority. Callers may treat it as transient and retry on the next poll.
var ErrBusy = errors.New("hid: device busy")

// ErrNotFound is returned when no device matches the requested identity.
var ErrNotFound = errors.New("hid: device not found")

// Device represents an opened HID device capable of report I/O.
type Device interface {
	WriteOutput(reportID byte, data []byte) error
	ReadInput() ([]byte, error)
	WriteFeature(reportID byte, data []byte) error
	ReadFeature(reportID byte) ([]byte, error)
	ReportLens() (inLen, outLen, featLen int)
	Close() error
}

// Usage page / usage ids from the HID usage tables that identify game
// controller classes on the generic desktop page.
const (
	UsagePageGenericDesktop uint16 = 0x01

	UsageJoystick  uint16 = 0x04
	UsageGamepad   uint16 = 0x05
	UsageMultiAxis uint16 = 0x08
)

// Info represents a HID device descriptor.
type Info struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Product      string
	Manufacturer string

	// UsagePage/Usage are zero when the backend cannot resolve them
	// without opening the device.
	UsagePage uint16
	Usage     uint16
}

// Manager enumerates and opens HID devices.
type Manager interface {
	List() ([]Info, error)
	Open(info Info, mode OpenMode) (Device, error)
	OpenVIDPID(vendorID, productID uint16, mode OpenMode) (Device, error)
}

// NewManager returns the OS-specific HID manager.
func NewManager() (Manager, error) {
	return newManager()
}
