package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Alia5/homerow/device/keyboard"
	"github.com/Alia5/homerow/hrm"
	"github.com/Alia5/homerow/internal/backend"
	"github.com/Alia5/homerow/internal/daemon"
	"github.com/Alia5/homerow/internal/log"
	"github.com/Alia5/homerow/internal/metrics"
)

// EngineFlags are the decision engine settings shared by run and replay.
type EngineFlags struct {
	Policy           string        `help:"Decision policy (layer-gated, auto-shift)" default:"layer-gated" enum:"layer-gated,auto-shift" env:"HOMEROW_POLICY"`
	TappingTerm      time.Duration `help:"Time after which a pending home-row key is decided" default:"200ms" env:"HOMEROW_TAPPING_TERM"`
	AutoShiftTimeout time.Duration `help:"Hold time after which a layer-gated tap is shifted, 0 disables" default:"150ms" env:"HOMEROW_AUTO_SHIFT_TIMEOUT"`
	Keys             []string      `help:"Home-row keys as letter=modifier" default:"a=leftctrl,s=leftalt,d=leftgui,f=leftshift,j=leftshift,k=leftgui,l=leftalt,semicolon=leftctrl" env:"HOMEROW_KEYS"`
	ThumbKeys        []string      `help:"Layer-tap keys: held they raise the thumb layer, tapped they send the key" default:"enter,space" env:"HOMEROW_THUMB_KEYS"`
	DualKeys         []string      `help:"Dual-function keys as trigger=tap/hold, e.g. r=leftalt+backspace/leftctrl" env:"HOMEROW_DUAL_KEYS"`
}

func (f EngineFlags) overrides() hrm.Overrides {
	ast := f.AutoShiftTimeout
	return hrm.Overrides{
		Policy:           f.Policy,
		TappingTerm:      f.TappingTerm,
		AutoShiftTimeout: &ast,
		Keys:             f.Keys,
		ThumbKeys:        f.ThumbKeys,
		DualKeys:         f.DualKeys,
	}
}

// Config returns the validated engine config.
func (f EngineFlags) Config() (hrm.Config, error) {
	return f.overrides().Apply(hrm.DefaultConfig())
}

type MetricsConfig struct {
	Addr string `help:"Serve Prometheus metrics on this address, empty disables" env:"HOMEROW_METRICS_ADDR"`
}

type Run struct {
	Engine  EngineFlags   `embed:""`
	Metrics MetricsConfig `embed:"" prefix:"metrics."`

	Device   string `help:"Input device, empty picks the first keyboard" env:"HOMEROW_DEVICE"`
	Grab     bool   `help:"Grab the input device exclusively" default:"true" negatable:"" env:"HOMEROW_GRAB"`
	Wait     bool   `help:"Wait for --device to appear" env:"HOMEROW_WAIT"`
	Output   string `help:"Output device (uinput, hidg)" default:"uinput" enum:"uinput,hidg" env:"HOMEROW_OUTPUT"`
	HidgPath string `help:"HID gadget device for --output=hidg" default:"/dev/hidg0" env:"HOMEROW_HIDG_PATH"`
	Format   string `help:"HID gadget report format (nkro, boot)" default:"boot" enum:"nkro,boot" env:"HOMEROW_FORMAT"`
	Nice     int    `help:"Process niceness, 0 leaves it unchanged" default:"0" env:"HOMEROW_NICE"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.StartDaemon(ctx, logger, rawLogger)
}

func (r *Run) StartDaemon(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	cfg, err := r.Engine.Config()
	if err != nil {
		return err
	}

	if r.Nice != 0 {
		if err := setNice(r.Nice); err != nil {
			logger.Warn("Failed to set process niceness", "nice", r.Nice, "error", err)
		}
	}

	path, err := r.inputPath(ctx, logger)
	if err != nil {
		return err
	}
	src, err := backend.OpenSource(path, r.Grab, logger)
	if err != nil {
		return err
	}

	sink, err := r.openOutput()
	if err != nil {
		_ = src.Close()
		return err
	}
	defer sink.Close()

	opts := []daemon.Option{daemon.WithLogger(logger), daemon.WithRawLogger(rawLogger)}
	var srv *http.Server
	if r.Metrics.Addr != "" {
		rec := metrics.New(prometheus.DefaultRegisterer)
		opts = append(opts, daemon.WithRecorder(rec))

		mux := http.NewServeMux()
		mux.Handle("/metrics", rec.Handler())
		srv = &http.Server{Addr: r.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "addr", r.Metrics.Addr, "error", err)
			}
		}()
		logger.Info("Serving metrics", "addr", r.Metrics.Addr)
	}

	d, err := daemon.New(cfg, src, sink, opts...)
	if err != nil {
		_ = src.Close()
		return err
	}

	logger.Info("Starting homerow", "input", path, "output", r.Output, "policy", cfg.Policy, "tappingTerm", cfg.TappingTerm)
	err = d.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return err
}

func (r *Run) inputPath(ctx context.Context, logger *slog.Logger) (string, error) {
	if r.Device == "" {
		return backend.FindKeyboard()
	}
	if r.Wait {
		logger.Info("Waiting for input device", "device", r.Device)
		if err := backend.WaitForPath(ctx, r.Device); err != nil {
			return "", fmt.Errorf("wait for %s: %w", r.Device, err)
		}
	}
	return r.Device, nil
}

type outputSink interface {
	keyboard.Sink
	io.Closer
}

func (r *Run) openOutput() (outputSink, error) {
	switch r.Output {
	case "hidg":
		format, err := backend.ParseFormat(r.Format)
		if err != nil {
			return nil, err
		}
		return backend.OpenHIDGadget(r.HidgPath, format)
	default:
		return backend.NewUInput(backend.VirtualDeviceName)
	}
}
