package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	pfconstants "github.com/turbot/pipe-fittings/constants"
	"github.com/turbot/pipe-fittings/sanitize"
	"github.com/turbot/trail-inspector/constants"
)

// LevelOff disables logging
var LevelOff = pfconstants.LogLevelOff

func Initialize(appName string) {
	slog.SetDefault(NewLogger(appName, os.Stderr, getLogLevel()))
}

// NewLogger returns a JSON logger writing to w which sanitizes log entries
func NewLogger(appName string, w io.Writer, level slog.Leveler) *slog.Logger {
	if level == LevelOff {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	}

	handlerOptions := &slog.HandlerOptions{
		Level: level,

		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			sanitized := sanitize.Instance.SanitizeKeyValue(a.Key, a.Value.Any())

			return slog.Attr{
				Key:   a.Key,
				Value: slog.AnyValue(sanitized),
			}
		},
	}
	return slog.New(slog.NewJSONHandler(w, handlerOptions)).With("source", appName)
}

func getLogLevel() slog.Leveler {
	return ParseLevel(os.Getenv(constants.EnvLogLevel))
}

// ParseLevel converts a level name to a slog level. Unrecognised or empty names give warn,
// so that skipped objects are always reported.
func ParseLevel(name string) slog.Leveler {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "off":
		return LevelOff
	default:
		return slog.LevelWarn
	}
}
