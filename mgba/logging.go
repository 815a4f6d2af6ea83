package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/sirupsen/logrus"
)

// newLogger returns a slog.Logger that writes through logrus to w.
//
// The protocol library only knows *slog.Logger; logrus supplies the
// formatting and level filtering for the CLI.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	return slog.New(newLogrusHandler(logger)), nil
}

// logrusHandler adapts logrus to the slog.Handler interface.
type logrusHandler struct {
	logger *logrus.Logger
	attrs  []slog.Attr
	groups []string
}

func newLogrusHandler(logger *logrus.Logger) slog.Handler {
	return &logrusHandler{logger: logger}
}

// Enabled reports whether the handler handles records at the given level.
func (h *logrusHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.IsLevelEnabled(slogToLogrusLevel(level))
}

// Handle forwards the record to logrus.
func (h *logrusHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make(logrus.Fields, record.NumAttrs()+len(h.attrs))

	for _, attr := range h.attrs {
		fields[attr.Key] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields[h.buildKey(attr.Key)] = attr.Value.Any()
		return true
	})

	h.logger.WithFields(fields).Log(slogToLogrusLevel(record.Level), record.Message)
	return nil
}

// WithAttrs returns a new Handler with the given attributes added.
func (h *logrusHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, attr := range attrs {
		attr.Key = h.buildKey(attr.Key)
		newAttrs = append(newAttrs, attr)
	}

	return &logrusHandler{
		logger: h.logger,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

// WithGroup returns a new Handler that prefixes later keys with name.
func (h *logrusHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name

	return &logrusHandler{
		logger: h.logger,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func (h *logrusHandler) buildKey(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

func slogToLogrusLevel(level slog.Level) logrus.Level {
	switch {
	case level >= slog.LevelError:
		return logrus.ErrorLevel
	case level >= slog.LevelWarn:
		return logrus.WarnLevel
	case level >= slog.LevelInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}
