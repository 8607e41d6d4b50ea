package cfg

import (
	"log/slog"
	"os"
)

// SetupLogging installs the default slog text logger on stderr.
func (c *Cfg) SetupLogging() {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
