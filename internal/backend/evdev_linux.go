//go:build linux

package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/holoplot/go-evdev"

	"github.com/Alia5/homerow/device/keyboard"
)

// isKeyboard reports whether a device can type letters and a space bar.
// Mice, power buttons and media remotes also expose EV_KEY.
func isKeyboard(dev *evdev.InputDevice) bool {
	var letters, space bool
	for _, code := range dev.CapableEvents(evdev.EV_KEY) {
		switch code {
		case evdev.KEY_A:
			letters = true
		case evdev.KEY_SPACE:
			space = true
		}
	}
	return letters && space
}

// ListDevices returns every readable input device, sorted by path.
func ListDevices() ([]DeviceInfo, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	var out []DeviceInfo
	for _, p := range paths {
		info := DeviceInfo{Path: p.Path, Name: p.Name}
		if dev, err := evdev.Open(p.Path); err == nil {
			info.Keyboard = isKeyboard(dev)
			_ = dev.Close()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// FindKeyboard returns the path of the first keyboard that is not a
// homerow virtual device.
func FindKeyboard() (string, error) {
	devices, err := ListDevices()
	if err != nil {
		return "", err
	}
	for _, d := range devices {
		if d.Keyboard && !strings.HasPrefix(d.Name, VirtualDeviceName) {
			return d.Path, nil
		}
	}
	return "", errors.New("no keyboard found in /dev/input")
}

// Source reads key events from an evdev device.
type Source struct {
	dev     *evdev.InputDevice
	logger  *slog.Logger
	grabbed bool
}

// OpenSource opens path. With grab set the device is taken exclusively so
// the original key events no longer reach other readers.
func OpenSource(path string, grab bool, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input device %s: %w", path, err)
	}
	s := &Source{dev: dev, logger: logger}
	if grab {
		if err := dev.Grab(); err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("grab %s: %w", path, err)
		}
		s.grabbed = true
	}
	name, _ := dev.Name()
	logger.Info("opened input device", "path", path, "name", name, "grabbed", grab)
	return s, nil
}

// ReadEvent blocks until a key event arrives. Non-key events and keys
// without a HID usage are skipped.
func (s *Source) ReadEvent() (keyboard.KeyEvent, error) {
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			return keyboard.KeyEvent{}, err
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}
		code, ok := evdevToHID[ev.Code]
		if !ok {
			s.logger.Debug("dropping unmapped key", "code", ev.CodeName())
			continue
		}
		return keyboard.KeyEvent{
			Code:    code,
			Pressed: ev.Value != 0,
			Repeat:  ev.Value == 2,
		}, nil
	}
}

// Close releases the grab and closes the device. A blocked ReadEvent
// returns with an error.
func (s *Source) Close() error {
	if s.grabbed {
		_ = s.dev.Ungrab()
		s.grabbed = false
	}
	return s.dev.Close()
}
