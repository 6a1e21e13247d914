package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/Alia5/homerow/device/keyboard"
	"github.com/Alia5/homerow/internal/replay"
)

// Replay runs a key script through the engine and prints what it would send.
type Replay struct {
	Script string      `arg:"" help:"YAML replay script" type:"existingfile"`
	Engine EngineFlags `embed:""`

	out io.Writer
}

// Run is called by Kong when the replay command is executed. Settings in
// the script override flags.
func (r *Replay) Run(logger *slog.Logger) error {
	s, err := replay.Load(r.Script)
	if err != nil {
		return fmt.Errorf("load replay script: %w", err)
	}
	base, err := r.Engine.Config()
	if err != nil {
		return err
	}
	actions, err := replay.Run(s, base, logger)
	if err != nil {
		return err
	}

	out := r.out
	if out == nil {
		out = os.Stdout
	}
	return printActions(out, actions)
}

func printActions(w io.Writer, actions []replay.Action) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tACTION\tKEY")
	for _, a := range actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.At, a.Kind, keyboard.Name(a.Code))
	}
	return tw.Flush()
}
