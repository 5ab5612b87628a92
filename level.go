package edgelog

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Level is an ordered log severity. The zero value means "not set" and is
// resolved from the parent logger or Config.
type Level int8

const (
	LevelUnset Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelOff:
		return "off"
	default:
		return emptyString
	}
}

// ParseLevel accepts the zerolog level names plus "off". Trace maps to
// debug and fatal/panic map to error; an empty string yields LevelUnset.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "off" {
		return LevelOff, nil
	}
	zl, err := parseLevel(s)
	if err != nil {
		return LevelUnset, fmt.Errorf("unknown log level %q: %w", s, err)
	}
	switch zl {
	case zerolog.NoLevel:
		return LevelUnset, nil
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return LevelDebug, nil
	case zerolog.InfoLevel:
		return LevelInfo, nil
	case zerolog.WarnLevel:
		return LevelWarn, nil
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return LevelError, nil
	case zerolog.Disabled:
		return LevelOff, nil
	default:
		return LevelUnset, fmt.Errorf("unsupported log level %q", s)
	}
}

func (l Level) zerologLevel() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelOff:
		return zerolog.Disabled
	default:
		return zerolog.NoLevel
	}
}
