package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Alia5/homerow/internal/config"
	"github.com/Alia5/homerow/internal/configpaths"
	"github.com/Alia5/homerow/internal/log"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

const configEnv = "HOMEROW_CONFIG"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(configFlag(args, os.Getenv(configEnv)))

	var cli config.CLI
	parser := kong.Must(&cli,
		kong.Name("homerow"),
		kong.Description("Home-row modifiers for any keyboard"),
		kong.UsageOnError(),
		// later loaders win; flags and env beat every file
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)
	ctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	logger, closers, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "homerow: logger: %v\n", err)
		return 2
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	raw, rawFile, err := openRawLog(cli.Log)
	if err != nil {
		logger.Error("raw log disabled", "file", cli.Log.RawFile, "error", err)
	}
	if rawFile != nil {
		closers = append(closers, rawFile)
	}

	ctx.Bind(logger)
	ctx.BindTo(raw, (*log.RawLogger)(nil))
	if err := ctx.Run(); err != nil {
		logger.Error("command failed", "command", ctx.Command(), "error", err)
		return 1
	}
	return 0
}

// openRawLog picks the raw traffic destination: the configured file,
// stdout at trace level, or nowhere. The returned closer may be nil.
func openRawLog(cfg config.LogConfig) (log.RawLogger, io.Closer, error) {
	switch {
	case cfg.RawFile != "":
		f, err := os.OpenFile(cfg.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return log.NewRaw(nil), nil, err
		}
		return log.NewRaw(f), f, nil
	case strings.EqualFold(cfg.Level, "trace"):
		return log.NewRaw(os.Stdout), nil, nil
	default:
		return log.NewRaw(nil), nil, nil
	}
}

// configFlag finds --config before kong runs, since the loaders need the
// path up front. fallback is used when the flag is absent.
func configFlag(args []string, fallback string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return fallback
}
