package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Alia5/homerow/internal/backend"
)

// Devices lists the input devices homerow can read from.
type Devices struct {
	All bool `help:"List every input device, not only keyboards"`

	out io.Writer
}

// Run is called by Kong when the devices command is executed.
func (d *Devices) Run() error {
	devices, err := backend.ListDevices()
	if err != nil {
		return err
	}
	out := d.out
	if out == nil {
		out = os.Stdout
	}
	return printDevices(out, devices, d.All, term.IsTerminal(int(os.Stdout.Fd())))
}

// printDevices writes an aligned table for terminals and one path per line
// otherwise, so the output can be fed to --device.
func printDevices(w io.Writer, devices []backend.DeviceInfo, all, table bool) error {
	if !table {
		for _, dev := range devices {
			if all || dev.Keyboard {
				if _, err := fmt.Fprintln(w, dev.Path); err != nil {
					return err
				}
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tKEYBOARD")
	for _, dev := range devices {
		if !all && !dev.Keyboard {
			continue
		}
		kb := "no"
		if dev.Keyboard {
			kb = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", dev.Path, dev.Name, kb)
	}
	return tw.Flush()
}
