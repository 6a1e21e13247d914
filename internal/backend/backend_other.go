//go:build !linux

package backend

import (
	"log/slog"

	"github.com/Alia5/homerow/device/keyboard"
)

func ListDevices() ([]DeviceInfo, error) { return nil, ErrUnsupportedPlatform }

func FindKeyboard() (string, error) { return "", ErrUnsupportedPlatform }

type Source struct{}

func OpenSource(string, bool, *slog.Logger) (*Source, error) { return nil, ErrUnsupportedPlatform }

func (*Source) ReadEvent() (keyboard.KeyEvent, error) {
	return keyboard.KeyEvent{}, ErrUnsupportedPlatform
}

func (*Source) Close() error { return nil }

type UInput struct{}

func NewUInput(string) (*UInput, error) { return nil, ErrUnsupportedPlatform }

func (*UInput) WriteReport(keyboard.InputState) error { return ErrUnsupportedPlatform }

func (*UInput) Close() error { return nil }
