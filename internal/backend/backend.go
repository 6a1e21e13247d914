// Package backend connects the engine to real keyboards: an evdev input
// device on one side and a uinput virtual keyboard or a USB HID gadget on
// the other.
package backend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Alia5/homerow/device"
	"github.com/Alia5/homerow/device/keyboard"
)

// ErrUnsupportedPlatform is returned by the evdev and uinput constructors on
// systems other than Linux.
var ErrUnsupportedPlatform = errors.New("backend: evdev and uinput require linux")

// VirtualDeviceName is the default name of the uinput keyboard. Devices
// carrying this name are never picked as input.
const VirtualDeviceName = "homerow virtual keyboard"

// DeviceInfo describes an input device node.
type DeviceInfo struct {
	Path     string
	Name     string
	Keyboard bool
}

// Format selects the report layout written to a HID gadget.
type Format string

const (
	FormatBoot Format = "boot"
	FormatNKRO Format = "nkro"
)

// ParseFormat accepts "boot" and "nkro".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatBoot, FormatNKRO:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

type bootReport struct{ keyboard.InputState }

func (r bootReport) BuildReport() []byte { return r.InputState.BuildBootReport() }

// Report returns the builder for st in format f.
func Report(st keyboard.InputState, f Format) device.ReportBuilder {
	if f == FormatBoot {
		return bootReport{st}
	}
	return st
}

// ReportDescriptor returns the HID report descriptor a gadget must be
// configured with to accept reports in format f.
func ReportDescriptor(f Format) []byte {
	if f == FormatBoot {
		return keyboard.BootReportDescriptor()
	}
	return keyboard.ReportDescriptor()
}

// ReportLength is the gadget report_length for format f.
func ReportLength(f Format) int {
	if f == FormatBoot {
		return keyboard.BootReportSize
	}
	return keyboard.InputReportSize
}

// HIDGadget writes keyboard reports to a USB HID gadget function such as
// /dev/hidg0.
type HIDGadget struct {
	w      io.WriteCloser
	format Format
}

// OpenHIDGadget opens a gadget character device for writing.
func OpenHIDGadget(path string, format Format) (*HIDGadget, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open hid gadget %s: %w", path, err)
	}
	return NewHIDGadget(f, format), nil
}

// NewHIDGadget wraps an already open gadget.
func NewHIDGadget(w io.WriteCloser, format Format) *HIDGadget {
	return &HIDGadget{w: w, format: format}
}

func (g *HIDGadget) WriteReport(st keyboard.InputState) error {
	b := Report(st, g.format).BuildReport()
	if _, err := g.w.Write(b); err != nil {
		return fmt.Errorf("write hid report: %w", err)
	}
	return nil
}

func (g *HIDGadget) Close() error {
	return g.w.Close()
}

// diffReports returns the usages released and pressed between two states,
// modifiers first.
func diffReports(prev, next keyboard.InputState) (up, down []uint8) {
	up = append(up, keyboard.ModifierCodes(prev.Modifiers&^next.Modifiers)...)
	down = append(down, keyboard.ModifierCodes(next.Modifiers&^prev.Modifiers)...)
	for i := range prev.KeyBitmap {
		released := prev.KeyBitmap[i] &^ next.KeyBitmap[i]
		pressed := next.KeyBitmap[i] &^ prev.KeyBitmap[i]
		for bit := uint8(0); bit < 8; bit++ {
			code := uint8(i)*8 + bit
			if released&(1<<bit) != 0 {
				up = append(up, code)
			}
			if pressed&(1<<bit) != 0 {
				down = append(down, code)
			}
		}
	}
	return up, down
}
