package config

import (
	"github.com/Alia5/homerow/internal/cmd"
)

type LogConfig struct {
	Level   string `help:"Log level (trace, debug, info, warn, error)" default:"info" enum:"trace,debug,info,warn,warning,error" env:"HOMEROW_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" env:"HOMEROW_LOG_FILE"`
	RawFile string `help:"Write raw key events and reports to this file" env:"HOMEROW_LOG_RAW_FILE"`
}

// CLI is the root command tree.
type CLI struct {
	ConfigFile string    `name:"config" help:"Configuration file (json, yaml or toml)" type:"path" env:"HOMEROW_CONFIG"`
	Log        LogConfig `embed:"" prefix:"log."`

	Run        cmd.Run           `cmd:"" help:"Run the home-row modifier daemon"`
	Replay     cmd.Replay        `cmd:"" help:"Replay a key script and print the resulting output"`
	Devices    cmd.Devices       `cmd:"" help:"List input devices"`
	Descriptor cmd.Descriptor    `cmd:"" help:"Print the HID report descriptor for a USB gadget"`
	Config     cmd.ConfigCommand `cmd:"" help:"Configuration helpers"`
	Install    cmd.Install       `cmd:"" help:"Install homerow as a systemd service"`
	Uninstall  cmd.Uninstall     `cmd:"" help:"Remove the homerow systemd service"`
}
