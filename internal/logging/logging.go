// Package logging builds the slog.Logger used by the commands.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format represents logger output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Option configures logger creation.
type Option func(*config)

type config struct {
	level  slog.Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

func WithFormat(f Format) Option {
	return func(c *config) { c.format = f }
}

// WithOutput sets the destination, ignoring nil writers.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds static attributes to every log record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// New creates a logger writing to stderr at info level in text format
// unless configured otherwise.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		format: FormatText,
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}

	handlerOpts := &slog.HandlerOptions{Level: c.level}
	var handler slog.Handler
	if c.format == FormatJSON {
		handler = slog.NewJSONHandler(c.output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(c.output, handlerOpts)
	}
	if len(c.attrs) > 0 {
		handler = handler.WithAttrs(c.attrs)
	}
	return slog.New(handler)
}

// ParseLevel converts "debug", "info", "warn" or "error" to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// FromStrings builds a logger from textual level and format settings.
// Unknown values fall back to info and text.
func FromStrings(level, format string, w io.Writer) *slog.Logger {
	l, err := ParseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	f := FormatText
	if Format(strings.ToLower(format)) == FormatJSON {
		f = FormatJSON
	}
	return New(WithLevel(l), WithFormat(f), WithOutput(w))
}
