//go:build windows

package hid

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows HID implementation using pure Go syscalls (no CGO)
// This directly calls SetupAPI, HID API, and file I/O functions

var (
	hidDLL   = windows.NewLazySystemDLL("hid.dll")
	setupapi = windows.NewLazySystemDLL("setupapi.dll")

	procHidD_GetHidGuid                  = hidDLL.NewProc("HidD_GetHidGuid")
	procHidD_GetAttributes               = hidDLL.NewProc("HidD_GetAttributes")
	procHidD_GetProductString            = hidDLL.NewProc("HidD_GetProductString")
	procHidD_GetManufacturerString       = hidDLL.NewProc("HidD_GetManufacturerString")
	procHidD_GetPreparsedData            = hidDLL.NewProc("HidD_GetPreparsedData")
	procHidD_FreePreparsedData           = hidDLL.NewProc("HidD_FreePreparsedData")
	procHidP_GetCaps                     = hidDLL.NewProc("HidP_GetCaps")
	procHidD_SetFeature                  = hidDLL.NewProc("HidD_SetFeature")
	procHidD_GetFeature                  = hidDLL.NewProc("HidD_GetFeature")
	procSetupDiGetClassDevsW             = setupapi.NewProc("SetupDiGetClassDevsW")
	procSetupDiEnumDeviceInterfaces     = setupapi.NewProc("SetupDiEnumDeviceInterfaces")
	procSetupDiGetDeviceInterfaceDetailW = setupapi.NewProc("SetupDiGetDeviceInterfaceDetailW")
	procSetupDiDestroyDeviceInfoList    = setupapi.NewProc("SetupDiDestroyDeviceInfoList")
)

const (
	DIGCF_PRESENT         = 0x00000002
	DIGCF_DEVICEINTERFACE = 0x00000010
	INVALID_HANDLE_VALUE  = ^uintptr(0)

	HIDP_STATUS_SUCCESS = 0x00110000
)

type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

type HIDD_ATTRIBUTES struct {
	Size          uint32
	VendorID      uint16
	ProductID     uint16
	VersionNumber uint16
}

type SP_DEVICE_INTERFACE_DATA struct {
	CbSize             uint32
	InterfaceClassGuid GUID
	Flags              uint32
	Reserved           uintptr
}

type SP_DEVICE_INTERFACE_DETAIL_DATA struct {
	CbSize     uint32
	DevicePath [1]uint16 // Variable length
}

type HIDP_CAPS struct {
	Usage                     uint16
	UsagePage                 uint16
	InputReportByteLength     uint16
	OutputReportByteLength    uint16
	FeatureReportByteLength   uint16
	Reserved                  [17]uint16
	NumberLinkCollectionNodes uint16
	NumberInputButtonCaps     uint16
	NumberInputValueCaps      uint16
	NumberInputDataIndices    uint16
	NumberOutputButtonCaps    uint16
	NumberOutputValueCaps     uint16
	NumberOutputDataIndices   uint16
	NumberFeatureButtonCaps   uint16
	NumberFeatureValueCaps    uint16
	NumberFeatureDataIndices  uint16
}

type winManager struct{}

func newManager() (Manager, error) {
	return &winManager{}, nil
}

func (m *winManager) List() ([]Info, error) {
	var hidGuid GUID
	procHidD_GetHidGuid.Call(uintptr(unsafe.Pointer(&hidGuid)))

	devInfo, _, err := procSetupDiGetClassDevsW.Call(
		uintptr(unsafe.Pointer(&hidGuid)),
		0,
		0,
		DIGCF_PRESENT|DIGCF_DEVICEINTERFACE,
	)
	if devInfo == 0 || devInfo == INVALID_HANDLE_VALUE {
		return nil, fmt.Errorf("SetupDiGetClassDevsW failed: %v", err)
	}
	defer procSetupDiDestroyDeviceInfoList.Call(devInfo)

	var devices []Info
	var devInterfaceData SP_DEVICE_INTERFACE_DATA
	devInterfaceData.CbSize = uint32(unsafe.Sizeof(devInterfaceData))

	for i := uint32(0); ; i++ {
		r, _, _ := procSetupDiEnumDeviceInterfaces.Call(
			devInfo,
			0,
			uintptr(unsafe.Pointer(&hidGuid)),
			uintptr(i),
			uintptr(unsafe.Pointer(&devInterfaceData)),
		)
		if r == 0 {
			break
		}

		// Get required size
		var requiredSize uint32
		procSetupDiGetDeviceInterfaceDetailW.Call(
			devInfo,
			uintptr(unsafe.Pointer(&devInterfaceData)),
			0,
			0,
			uintptr(unsafe.Pointer(&requiredSize)),
			0,
		)

		detailData := make([]byte, requiredSize)
		detail := (*SP_DEVICE_INTERFACE_DETAIL_DATA)(unsafe.Pointer(&detailData[0]))
		// CbSize must be sizeof(SP_DEVICE_INTERFACE_DETAIL_DATA) which differs on 32/64 bit
		if unsafe.Sizeof(uintptr(0)) == 8 {
			detail.CbSize = 8
		} else {
			detail.CbSize = 6
		}

		r, _, err = procSetupDiGetDeviceInterfaceDetailW.Call(
			devInfo,
			uintptr(unsafe.Pointer(&devInterfaceData)),
			uintptr(unsafe.Pointer(detail)),
			uintptr(requiredSize),
			0,
			0,
		)
		if r == 0 {
			continue
		}

		pathPtr := &detail.DevicePath[0]
		path := windows.UTF16PtrToString(pathPtr)

		// Open with no access rights; enough for attributes and caps.
		h, err := windows.CreateFile(
			pathPtr,
			0,
			windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
			nil,
			windows.OPEN_EXISTING,
			0,
			0,
		)
		if err != nil {
			continue
		}

		var attrs HIDD_ATTRIBUTES
		attrs.Size = uint32(unsafe.Sizeof(attrs))
		r, _, _ = procHidD_GetAttributes.Call(uintptr(h), uintptr(unsafe.Pointer(&attrs)))

		var manufacturer, product string
		var usagePage, usage uint16
		if r != 0 {
			mfr := make([]uint16, 256)
			procHidD_GetManufacturerString.Call(uintptr(h), uintptr(unsafe.Pointer(&mfr[0])), uintptr(len(mfr)*2))
			manufacturer = windows.UTF16ToString(mfr)

			prod := make([]uint16, 256)
			procHidD_GetProductString.Call(uintptr(h), uintptr(unsafe.Pointer(&prod[0])), uintptr(len(prod)*2))
			product = windows.UTF16ToString(prod)

			var preparsed uintptr
			if pr, _, _ := procHidD_GetPreparsedData.Call(uintptr(h), uintptr(unsafe.Pointer(&preparsed))); pr != 0 {
				var caps HIDP_CAPS
				if cr, _, _ := procHidP_GetCaps.Call(preparsed, uintptr(unsafe.Pointer(&caps))); cr == HIDP_STATUS_SUCCESS {
					usagePage = caps.UsagePage
					usage = caps.Usage
				}
				procHidD_FreePreparsedData.Call(preparsed)
			}
		}

		windows.CloseHandle(h)

		if r != 0 {
			devices = append(devices, Info{
				Path:         path,
				VendorID:     attrs.VendorID,
				ProductID:    attrs.ProductID,
				Manufacturer: manufacturer,
				Product:      product,
				UsagePage:    usagePage,
				Usage:        usage,
			})
		}
	}

	return devices, nil
}

func (m *winManager) Open(info Info, mode OpenMode) (Device, error) {
	pathPtr, err := windows.UTF16PtrFromString(info.Path)
	if err != nil {
		return nil, err
	}

	// Exclusive access denies sharing outright; this is the cooperative
	// level negotiation the wheel protocol expects.
	shareMode := uint32(windows.FILE_SHARE_READ | windows.FILE_SHARE_WRITE)
	if mode == OpenExclusive {
		shareMode = 0
	}

	h, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		shareMode,
		nil,
		windows.OPEN_EXISTING,
		0, // Synchronous I/O
		0,
	)
	if err != nil {
		if errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return nil, fmt.Errorf("open %s: %w", info.Path, ErrBusy)
		}
		return nil, fmt.Errorf("CreateFile failed: %v", err)
	}

	var preparsedData uintptr
	r, _, _ := procHidD_GetPreparsedData.Call(uintptr(h), uintptr(unsafe.Pointer(&preparsedData)))
	if r == 0 {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("HidD_GetPreparsedData failed")
	}

	var caps HIDP_CAPS
	r, _, _ = procHidP_GetCaps.Call(preparsedData, uintptr(unsafe.Pointer(&caps)))
	procHidD_FreePreparsedData.Call(preparsedData)

	if r != HIDP_STATUS_SUCCESS {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("HidP_GetCaps failed: 0x%X", r)
	}

	return &winDevice{
		handle:     h,
		path:       info.Path,
		inputLen:   int(caps.InputReportByteLength),
		outputLen:  int(caps.OutputReportByteLength),
		featureLen: int(caps.FeatureReportByteLength),
	}, nil
}

func (m *winManager) OpenVIDPID(vendorID, productID uint16, mode OpenMode) (Device, error) {
	devs, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, d := range devs {
		if d.VendorID == vendorID && d.ProductID == productID {
			return m.Open(d, mode)
		}
	}
	return nil, fmt.Errorf("device VID:0x%04X PID:0x%04X: %w", vendorID, productID, ErrNotFound)
}

type winDevice struct {
	handle     windows.Handle
	path       string
	inputLen   int
	outputLen  int
	featureLen int
}

func (d *winDevice) WriteOutput(reportID byte, data []byte) error {
	report := make([]byte, len(data)+1)
	report[0] = reportID
	copy(report[1:], data)

	// Use WriteFile for interrupt OUT transfers
	var written uint32
	err := windows.WriteFile(d.handle, report, &written, nil)
	if err != nil {
		return fmt.Errorf("WriteFile failed: %v", err)
	}
	return nil
}

func (d *winDevice) ReadInput() ([]byte, error) {
	// Windows HID ReadFile requires the buffer to match the device's
	// input report length.
	report := make([]byte, d.inputLen)
	var read uint32
	err := windows.ReadFile(d.handle, report, &read, nil)
	if err != nil {
		return nil, fmt.Errorf("ReadFile failed: %v", err)
	}
	// Report includes the report ID at byte 0.
	if read > 1 {
		return report[1:read], nil
	}
	return nil, nil
}

func (d *winDevice) WriteFeature(reportID byte, data []byte) error {
	report := make([]byte, d.featureLen)
	report[0] = reportID
	copy(report[1:], data)

	r, _, err := procHidD_SetFeature.Call(
		uintptr(d.handle),
		uintptr(unsafe.Pointer(&report[0])),
		uintptr(len(report)),
	)
	if r == 0 {
		return fmt.Errorf("HidD_SetFeature failed: %v", err)
	}
	return nil
}

func (d *winDevice) ReadFeature(reportID byte) ([]byte, error) {
	report := make([]byte, d.featureLen)
	report[0] = reportID

	r, _, err := procHidD_GetFeature.Call(
		uintptr(d.handle),
		uintptr(unsafe.Pointer(&report[0])),
		uintptr(len(report)),
	)
	if r == 0 {
		return nil, fmt.Errorf("HidD_GetFeature failed: %v", err)
	}
	return report[1:], nil
}

func (d *winDevice) ReportLens() (int, int, int) {
	return d.inputLen, d.outputLen, d.featureLen
}

func (d *winDevice) Close() error {
	return windows.CloseHandle(d.handle)
}
