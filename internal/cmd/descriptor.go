package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/Alia5/homerow/internal/backend"
)

// Descriptor prints the HID report descriptor for a USB gadget's
// report_desc attribute.
type Descriptor struct {
	Format string `help:"Report format (nkro, boot)" default:"boot" enum:"nkro,boot"`
	Hex    bool   `help:"Print as hex instead of raw bytes"`

	out io.Writer
}

func (d *Descriptor) Run() error {
	format, err := backend.ParseFormat(d.Format)
	if err != nil {
		return err
	}
	out := d.out
	if out == nil {
		out = os.Stdout
	}

	desc := backend.ReportDescriptor(format)
	if d.Hex {
		_, err = fmt.Fprintf(out, "%s\n# report_length %d\n", hex.EncodeToString(desc), backend.ReportLength(format))
		return err
	}
	_, err = out.Write(desc)
	return err
}
