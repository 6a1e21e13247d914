//go:build linux

package backend

import (
	"fmt"
	"sync"

	"github.com/holoplot/go-evdev"

	"github.com/Alia5/homerow/device/keyboard"
)

// UInput is a virtual keyboard. It turns report deltas into EV_KEY events.
type UInput struct {
	mu   sync.Mutex
	dev  *evdev.InputDevice
	last keyboard.InputState
}

// NewUInput creates a virtual keyboard able to emit every mapped usage.
func NewUInput(name string) (*UInput, error) {
	if name == "" {
		name = VirtualDeviceName
	}
	codes := make([]evdev.EvCode, 0, len(evdevToHID))
	for ev := range evdevToHID {
		codes = append(codes, ev)
	}
	dev, err := evdev.CreateDevice(name, evdev.InputID{
		BusType: evdev.BUS_USB,
		Vendor:  0x1209,
		Product: 0x4852,
		Version: 1,
	}, map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: codes,
	})
	if err != nil {
		return nil, fmt.Errorf("create uinput device (is the uinput module loaded?): %w", err)
	}
	return &UInput{dev: dev}, nil
}

func (u *UInput) write(typ evdev.EvType, code evdev.EvCode, value int32) error {
	return u.dev.WriteOne(&evdev.InputEvent{Type: typ, Code: code, Value: value})
}

// WriteReport emits releases before presses, then a SYN_REPORT.
func (u *UInput) WriteReport(st keyboard.InputState) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	up, down := diffReports(u.last, st)
	if len(up) == 0 && len(down) == 0 {
		return nil
	}
	for _, code := range up {
		if ev, ok := hidToEvdev[code]; ok {
			if err := u.write(evdev.EV_KEY, ev, 0); err != nil {
				return fmt.Errorf("uinput release %s: %w", keyboard.Name(code), err)
			}
		}
	}
	for _, code := range down {
		if ev, ok := hidToEvdev[code]; ok {
			if err := u.write(evdev.EV_KEY, ev, 1); err != nil {
				return fmt.Errorf("uinput press %s: %w", keyboard.Name(code), err)
			}
		}
	}
	if err := u.write(evdev.EV_SYN, evdev.SYN_REPORT, 0); err != nil {
		return fmt.Errorf("uinput sync: %w", err)
	}
	u.last = st
	return nil
}

func (u *UInput) Close() error {
	return u.dev.Close()
}
