// Package commands implements the trainkit CLI subcommands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/randalmurphal/trainkit/pkg/trainkit/config"
)

// DefaultConfigFile is read when --config is not given and the file exists.
const DefaultConfigFile = "trainkit.yaml"

// Global carries state shared by every subcommand.
type Global struct {
	Out io.Writer
}

// out returns the command output writer.
func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Settings file (YAML or JSON)" default:"${config_file}" placeholder:"FILE"`
	EnvFile string           `name:"env-file" help:"Load environment variables from this .env file" placeholder:"FILE"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Checkpoints CheckpointsCmd `cmd:"" help:"List and inspect checkpoint files"`
	Events      EventsCmd      `cmd:"" help:"Print events from an event log file"`
	Scalars     ScalarsCmd     `cmd:"" help:"Print scalar values stored by the SQLite sink"`

	settings config.Settings `kong:"-"`
}

// AfterApply runs after flag parsing; sets up logging and loads settings once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return c.loadSettings()
}

// loadSettings resolves settings from defaults, the settings file, the
// .env file and the process environment, in increasing priority.
func (c *CLI) loadSettings() error {
	if c.EnvFile != "" {
		if err := godotenv.Load(c.EnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	settings := config.DefaultSettings()
	if c.Config != "" {
		loaded, err := config.LoadSettings(c.Config)
		switch {
		case err == nil:
			settings = loaded
		case errors.Is(err, fs.ErrNotExist) && c.Config == DefaultConfigFile:
			slog.Debug("no settings file, using defaults", "path", c.Config)
		default:
			return fmt.Errorf("load settings: %w", err)
		}
	}

	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	c.settings = settings
	return nil
}

// Settings returns the resolved settings.
func (c *CLI) Settings() config.Settings {
	return c.settings
}

// verboseLogger returns the default logger when --verbose is set.
func (c *CLI) verboseLogger() *slog.Logger {
	if c.Verbose {
		return slog.Default()
	}
	return nil
}
