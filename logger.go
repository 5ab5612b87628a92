package edgelog

import (
	"context"
	"sync"
	"time"
)

// LoggerConfig is the per-logger configuration. Zero fields inherit from the
// parent when passed to With.
type LoggerConfig struct {
	// Args are default fields added to every event.
	Args Fields
	// Level is the minimum level; LevelUnset falls back to Config.Level.
	Level Level
	// Source tags platform metadata, e.g. "edge" or "lambda".
	Source string
	// Request is attached to every event.
	Request *RequestReport
}

// merge is a shallow merge where set override fields win. Args merge key
// by key. The result shares no maps or pointers with either input.
func (c LoggerConfig) merge(o LoggerConfig) LoggerConfig {
	out := LoggerConfig{
		Args:    c.Args.merge(o.Args),
		Level:   c.Level,
		Source:  c.Source,
		Request: cloneRequest(c.Request),
	}
	if o.Level != LevelUnset {
		out.Level = o.Level
	}
	if o.Source != emptyString {
		out.Source = o.Source
	}
	if o.Request != nil {
		out.Request = cloneRequest(o.Request)
	}
	return out
}

func cloneRequest(r *RequestReport) *RequestReport {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// DeliveryReport is the outcome of a best-effort delivery. Logging never
// fails the caller, so ignoring the report is the normal use; Err is kept
// for callers that want to know what was swallowed.
type DeliveryReport struct {
	Err      error
	Duration time.Duration
}

// OK reports whether delivery succeeded.
func (r DeliveryReport) OK() bool { return r.Err == nil }

// Logger emits events through its Configurator. Loggers are immutable once
// created and safe for concurrent use; derive new ones with With.
type Logger struct {
	cfg  *Configurator
	conf LoggerConfig

	mu       sync.Mutex
	children []*Logger
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{}
}

// Config returns a copy of the logger's configuration.
func (l *Logger) Config() LoggerConfig {
	if l == nil {
		return LoggerConfig{}
	}
	return LoggerConfig{
		Args:    l.conf.Args.clone(),
		Level:   l.conf.Level,
		Source:  l.conf.Source,
		Request: cloneRequest(l.conf.Request),
	}
}

// Children returns the loggers derived from l so far.
func (l *Logger) Children() []*Logger {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Logger(nil), l.children...)
}

// With returns a child logger whose configuration is l's merged with
// overrides. The child keeps its own copy; later changes to either side do
// not leak.
func (l *Logger) With(overrides LoggerConfig) *Logger {
	if l == nil {
		return Nop()
	}
	child := &Logger{cfg: l.cfg, conf: l.conf.merge(overrides)}

	l.mu.Lock()
	l.children = append(l.children, child)
	l.mu.Unlock()
	return child
}

// Fork is With without the Children bookkeeping. Use it for short-lived
// loggers, such as one per HTTP request, that the parent should not retain.
func (l *Logger) Fork(overrides LoggerConfig) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{cfg: l.cfg, conf: l.conf.merge(overrides)}
}

// WithArgs returns a child logger with fields merged into its default args.
func (l *Logger) WithArgs(fields Fields) *Logger {
	return l.With(LoggerConfig{Args: fields})
}

// WithRequest returns a child logger that attaches req to every event.
func (l *Logger) WithRequest(req RequestReport) *Logger {
	return l.With(LoggerConfig{Request: &req})
}

// Enabled reports whether an event at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	if l == nil || l.cfg == nil || !l.cfg.accepting() {
		return false
	}
	if level <= LevelUnset || level >= LevelOff {
		return false
	}
	threshold := l.conf.Level
	if threshold == LevelUnset {
		threshold = l.cfg.minLevel()
	}
	if threshold == LevelUnset {
		threshold = LevelDebug
	}
	return level >= threshold
}

func (l *Logger) Debug(msg string, args ...Arg) { l.log(LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...Arg)  { l.log(LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...Arg)  { l.log(LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...Arg) { l.log(LevelError, msg, args) }

// Log emits msg at level.
func (l *Logger) Log(level Level, msg string, args ...Arg) { l.log(level, msg, args) }

func (l *Logger) log(level Level, msg string, args []Arg) {
	if !l.Enabled(level) {
		return
	}
	ev := newEvent(level, msg, l.conf.Args, args)
	l.cfg.InjectPlatformMetadata(&ev, l.conf.Source)
	ev.attachRequest(l.conf.Request)
	l.cfg.dispatch(ev)
}

// Flush asks the ingestion client to deliver everything queued. It never
// panics or fails the caller; see DeliveryReport.
func (l *Logger) Flush(ctx context.Context) DeliveryReport {
	if l == nil || l.cfg == nil {
		return DeliveryReport{}
	}
	return l.cfg.flush(ctx)
}
