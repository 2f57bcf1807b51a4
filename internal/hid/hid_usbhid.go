//go:build !windows

package hid

import (
	usbhid "rafaelmartins.com/p/usbhid"
)

type usbManager struct{}

func newManager() (Manager, error) { return &usbManager{}, nil }

func (m *usbManager) List() ([]Info, error) {
	devs, err := usbhid.Enumerate(nil)
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(devs))
	for _, d := range devs {
		out = append(out, Info{
			Path:         d.Path(),
			VendorID:     d.VendorId(),
			ProductID:    d.ProductId(),
			Product:      d.Product(),
			Manufacturer: d.Manufacturer(),
		})
	}
	return out, nil
}

type usbDevice struct{ d *usbhid.Device }

func (m *usbManager) Open(info Info, mode OpenMode) (Device, error) {
	d, err := usbhid.Get(func(dev *usbhid.Device) bool {
		return dev.Path() == info.Path
	}, true, mode == OpenExclusive)
	if err != nil {
		return nil, err
	}
	return &usbDevice{d}, nil
}

func (m *usbManager) OpenVIDPID(vendorID, productID uint16, mode OpenMode) (Device, error) {
	d, err := usbhid.Get(func(dev *usbhid.Device) bool {
		return dev.VendorId() == vendorID && dev.ProductId() == productID
	}, true, mode == OpenExclusive)
	if err != nil {
		return nil, err
	}
	return &usbDevice{d}, nil
}

func (d *usbDevice) WriteOutput(reportID byte, data []byte) error {
	return d.d.SetOutputReport(reportID, data)
}

func (d *usbDevice) ReadInput() ([]byte, error) {
	_, buf, err := d.d.GetInputReport()
	return buf, err
}

func (d *usbDevice) WriteFeature(reportID byte, data []byte) error {
	return d.d.SetFeatureReport(reportID, data)
}

func (d *usbDevice) ReadFeature(reportID byte) ([]byte, error) {
	return d.d.GetFeatureReport(reportID)
}

func (d *usbDevice) ReportLens() (int, int, int) {
	return int(d.d.GetInputReportLength()), int(d.d.GetOutputReportLength()), int(d.d.GetFeatureReportLength())
}

func (d *usbDevice) Close() error { return d.d.Close() }
