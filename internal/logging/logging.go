// Package logging builds the zerolog loggers shared by every component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// Build collects logger options before Make is called.
type Build struct {
	writer io.Writer
	path   string
	level  zerolog.Level
	pretty bool
}

// New starts a logger build writing to stdout at info level.
func New() *Build {
	return &Build{writer: os.Stdout, level: zerolog.InfoLevel}
}

// FromWriter sends output to w.
func (b *Build) FromWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

// FromPath appends output to the file at path. Takes precedence over FromWriter.
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

// Level sets the minimum level.
func (b *Build) Level(l zerolog.Level) *Build {
	b.level = l
	return b
}

// Pretty switches to the human-readable console writer.
func (b *Build) Pretty(pretty bool) *Build {
	b.pretty = pretty
	return b
}

// Make returns the configured logger. The returned closer is non-nil when a log file was opened.
func (b *Build) Make() (zerolog.Logger, io.Closer, error) {
	w := b.writer
	var closer io.Closer
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		w = zerolog.SyncWriter(f)
		closer = f
	}
	if b.pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	logger := zerolog.New(w).Level(b.level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// ParseLevel maps "debug", "warn" and friends to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
