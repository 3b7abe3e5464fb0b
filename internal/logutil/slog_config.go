package logutil

import (
	"log/slog"

	"github.com/spf13/pflag"
)

// SlogConfig is a slog.Leveler whose level is lowered by a repeatable
// verbosity flag.
type SlogConfig struct {
	verbosity int
}

var _ slog.Leveler = new(SlogConfig)

func (c *SlogConfig) AddFlags(flags *pflag.FlagSet) {
	flags.CountVarP(&c.verbosity, "verbose", "V", "Log verbosity")
}

func (c *SlogConfig) Level() slog.Level {
	return slog.LevelInfo - slog.Level(c.verbosity*4)
}
