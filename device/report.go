// Package device holds the report types shared by keyboard outputs.
package device

// ReportBuilder encodes an input state into the bytes a HID host reads.
type ReportBuilder interface {
	BuildReport() []byte
}
