package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Alia5/homerow/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit writes a template holding every flag of a command with its
// default value, keyed the way the config loaders read it back.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"run,replay"`
	Format  string `help:"Output format" enum:"json,yaml,yml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to <command>.<ext> in the current directory)"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

// templateCommands are the commands whose flags can live in a config file.
var templateCommands = map[string]reflect.Type{
	"run":    reflect.TypeOf(Run{}),
	"replay": reflect.TypeOf(Replay{}),
}

var templateEncoders = map[string]func(any) ([]byte, error){
	"json": func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
	"yaml": yaml.Marshal,
	"toml": toml.Marshal,
}

var errDestinationExists = errors.New("destination exists; use --force to overwrite")

func (c *ConfigInit) Run() error {
	typ, ok := templateCommands[c.Command]
	if !ok {
		return fmt.Errorf("no config template for command %q", c.Command)
	}
	format := strings.ToLower(c.Format)
	if format == "yml" {
		format = "yaml"
	}
	encode, ok := templateEncoders[format]
	if !ok {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	data, err := encode(buildMapFromStruct(typ))
	if err != nil {
		return fmt.Errorf("encode %s template: %w", format, err)
	}

	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + configpaths.Ext(format)
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%s: %w", dest, errDestinationExists)
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

// configKey returns the key kong's config resolvers look up for a field:
// the flag name with dashes as underscores.
func configKey(f reflect.StructField) string {
	if name := f.Tag.Get("name"); name != "" {
		return strings.ReplaceAll(name, "-", "_")
	}
	var b strings.Builder
	r := []rune(f.Name)
	for i, c := range r {
		if c >= 'A' && c <= 'Z' {
			if i > 0 && (r[i-1] < 'A' || r[i-1] > 'Z' || (i+1 < len(r) && r[i+1] >= 'a' && r[i+1] <= 'z')) {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteRune(c)
	}
	return b.String()
}

// buildMapFromStruct maps the flags of a command struct to their defaults.
// Embedded flag groups with a prefix become nested tables; positional
// arguments are left out since they never come from a file.
func buildMapFromStruct(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		_, isArg := f.Tag.Lookup("arg")
		if !f.IsExported() || isArg || f.Tag.Get("kong") == "-" {
			continue
		}

		if _, ok := f.Tag.Lookup("embed"); ok {
			sub := buildMapFromStruct(f.Type)
			if group := strings.TrimSuffix(f.Tag.Get("prefix"), "."); group != "" {
				out[group] = sub
				continue
			}
			for k, v := range sub {
				out[k] = v
			}
			continue
		}

		if v := defaultValueForField(f.Type, f.Tag.Get("default")); v != nil {
			out[configKey(f)] = v
		}
	}
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

// defaultValueForField converts a default tag into the value a template
// should carry. Durations stay strings so the loaders parse them back.
// Unsupported kinds yield nil and are left out.
func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == durationType {
		if def == "" {
			return "0s"
		}
		return def
	}

	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 10, 64)
		return n
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return nil
		}
		if def == "" {
			return []string{}
		}
		return strings.Split(def, ",")
	case reflect.Struct:
		return buildMapFromStruct(t)
	default:
		return nil
	}
}
