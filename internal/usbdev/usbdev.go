// Package usbdev enumerates raw USB devices as a fallback for wheels whose
// HID interface is hidden behind a vendor driver. Only identity information
// is read; no report I/O is attempted over raw USB.
package usbdev

import (
	"fmt"

	"github.com/karalabe/usb"
)

// Descriptor identifies one raw USB device.
type Descriptor struct {
	VendorID  uint16
	ProductID uint16
	Product   string
}

// Enumerate lists all raw USB devices visible to the process. Wheels parked
// behind vendor drivers often expose only a vendor interface here.
func Enumerate() ([]Descriptor, error) {
	infos, err := usb.EnumerateRaw(0, 0)
	if err != nil {
		return nil, fmt.Errorf("usb enumerate: %w", err)
	}
	out := make([]Descriptor, 0, len(infos))
	for _, info := range infos {
		out = append(out, Descriptor{
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Product:   info.Product,
		})
	}
	return out, nil
}

// EnumerateVendor lists raw USB devices with the given vendor id.
func EnumerateVendor(vendorID uint16) ([]Descriptor, error) {
	infos, err := usb.EnumerateRaw(vendorID, 0)
	if err != nil {
		return nil, fmt.Errorf("usb enumerate vendor 0x%04X: %w", vendorID, err)
	}
	out := make([]Descriptor, 0, len(infos))
	for _, info := range infos {
		out = append(out, Descriptor{
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Product:   info.Product,
		})
	}
	return out, nil
}
