// internal/clibase/common.go
package clibase

import (
	"errors"
	"flag"
	"io"
	"log/slog"

	"github.com/bioswarm/cactus/internal/logging"
)

// Common holds flags shared by every cactus test command.
type Common struct {
	LogLevel  string
	LogFormat string
	Quiet     bool
	Version   bool
	Help      bool
}

// Register wires the shared flags onto fs.
func Register(fs *flag.FlagSet, c *Common) {
	fs.StringVar(&c.LogLevel, "log-level", "info", "log level: debug | info | warn | error [info]")
	fs.StringVar(&c.LogFormat, "log-format", logging.FormatAuto, "log format: text | json | auto [auto]")
	fs.BoolVar(&c.Quiet, "quiet", false, "only log warnings and errors [false]")
	fs.BoolVar(&c.Quiet, "q", false, "alias of --quiet")
	fs.BoolVar(&c.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&c.Version, "v", false, "alias of --version")
	fs.BoolVar(&c.Help, "help", false, "show this help message")
	fs.BoolVar(&c.Help, "h", false, "alias of --help")
}

// Validate applies the shared invariants.
func Validate(c *Common) error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case logging.FormatText, logging.FormatJSON, logging.FormatAuto:
	default:
		return errors.New("--log-format must be text, json or auto")
	}
	return nil
}

// Logger builds the command's logger; --quiet caps the level at warn.
func (c *Common) Logger(w io.Writer) (*slog.Logger, error) {
	level := c.LogLevel
	if c.Quiet {
		if lvl, err := logging.ParseLevel(level); err == nil && lvl < slog.LevelWarn {
			level = "warn"
		}
	}
	return logging.New(level, c.LogFormat, w)
}

// SetFlags returns the names of flags given on the command line.
func SetFlags(fs *flag.FlagSet) map[string]bool {
	m := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { m[f.Name] = true })
	return m
}
