//go:build linux

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemdUnitContent(t *testing.T) {
	unit := systemdUnitContent("/usr/local/bin/homerow", nil)
	assert.Contains(t, unit, `ExecStart="/usr/local/bin/homerow" run`+"\n")
	assert.Contains(t, unit, "WorkingDirectory=/usr/local/bin\n")

	unit = systemdUnitContent("/opt/homerow", []string{"--device", "/dev/input/by-id/usb-kbd", "--policy=auto-shift"})
	assert.Contains(t, unit, `ExecStart="/opt/homerow" run "--device" "/dev/input/by-id/usb-kbd" "--policy=auto-shift"`)
}
