package edgelog

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/Station-Manager/edgelog/ingest"
	"github.com/Station-Manager/edgelog/platform"
	"github.com/Station-Manager/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Configurator is the process wide logging state. Build it once at startup,
// call Initialize, and hand it to every Logger. Loggers only read from it.
//
// The exported fields are optional collaborators; anything left nil is
// derived from Config during Initialize.
type Configurator struct {
	Config *Config

	// Platform supplies deployment metadata. Detected from Lookup when nil.
	Platform platform.Provider
	// Client delivers events when Config enables network delivery.
	// An AxiomClient is built from Config when nil.
	Client ingest.Client
	// Console receives console output. Defaults to stdout.
	Console io.Writer
	// Diagnostics receives the package's own warnings. Defaults to stderr.
	Diagnostics io.Writer
	// Lookup reads environment variables for platform detection.
	Lookup platform.LookupFunc
	// Registerer receives the ingestion metrics of a built client.
	Registerer prometheus.Registerer

	level      Level
	mode       ConsoleMode
	network    bool
	ownsClient bool
	console    io.Writer
	consoleMu  sync.Mutex
	fileWriter *lumberjack.Logger
	diag       zerolog.Logger

	mu            sync.Mutex
	isInitialized atomic.Bool
	// closed is set by Close. Loggers keep writing to the console after it.
	closed atomic.Bool
}

// NewConfigurator builds and initializes a Configurator for cfg.
func NewConfigurator(cfg *Config) (*Configurator, error) {
	c := &Configurator{Config: cfg}
	if err := c.Initialize(); err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize validates Config and wires the sinks. A missing or unusable
// ingestion setup is not an error: output falls back to the console.
// Calling Initialize again after success does nothing.
func (c *Configurator) Initialize() error {
	const op errors.Op = "edgelog.Configurator.Initialize"
	if c == nil {
		return errors.New(op).Msg(errMsgNilService)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isInitialized.Load() {
		return nil
	}
	if err := validateConfig(c.Config); err != nil {
		return err
	}

	level, err := ParseLevel(c.Config.Level)
	if err != nil {
		return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
	}
	c.level = level

	diagOut := c.Diagnostics
	if diagOut == nil {
		diagOut = os.Stderr
	}
	c.diag = zerolog.New(zerolog.ConsoleWriter{Out: diagOut, NoColor: true}).
		With().Timestamp().Str("component", "edgelog").Logger()

	if c.Platform == nil {
		c.Platform = platform.Detect(c.Lookup)
	}

	if c.console, err = c.initializeConsole(); err != nil {
		return err
	}
	c.mode = SelectConsoleMode(c.Config.NoPrettyPrint, c.Config.Browser || runtime.GOOS == "js")

	c.network = c.Config.NetworkEnabled()
	switch {
	case !c.network:
		if c.Config.Token != emptyString || c.Config.Dataset != emptyString {
			c.diag.Warn().Bool("dataset_set", c.Config.Dataset != emptyString).
				Msg("ingestion is partially configured, logging to console")
		}
	case c.Client == nil:
		client, cerr := ingest.NewAxiomClient(ingest.Options{
			Token:         c.Config.Token,
			OrgID:         c.Config.OrgID,
			URL:           c.Config.URL,
			BatchSize:     c.Config.BatchSize,
			FlushInterval: c.Config.FlushInterval,
			Registerer:    c.Registerer,
			Logger:        c.diag,
		})
		if cerr != nil {
			c.diag.Warn().Err(cerr).Msg("ingestion client unavailable, logging to console")
			c.network = false
			break
		}
		client.Start()
		c.Client = client
		c.ownsClient = true
	}

	c.closed.Store(false)
	c.isInitialized.Store(true)
	return nil
}

// Close flushes pending events, bounded by Config.ShutdownTimeout, and
// releases the log file. It's safe to call Close multiple times. Events
// logged after Close are written to the console only.
func (c *Configurator) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isInitialized.Swap(false) {
		return nil
	}
	c.closed.Store(true)

	timeout := c.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if c.network && c.Client != nil {
		err := recoverErr(func() error {
			if closer, ok := c.Client.(interface{ Close(context.Context) error }); ok && c.ownsClient {
				return closer.Close(ctx)
			}
			return c.Client.Flush(ctx)
		})
		if err != nil {
			c.diag.Warn().Err(err).Msg("flush on close failed, events lost")
		}
	}

	c.consoleMu.Lock()
	defer c.consoleMu.Unlock()
	if c.fileWriter != nil {
		fw := c.fileWriter
		c.fileWriter = nil
		if err := fw.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
	}
	return nil
}

// Logger returns a root logger. Source defaults to Config.Source.
func (c *Configurator) Logger(cfg LoggerConfig) *Logger {
	if c == nil {
		return Nop()
	}
	if cfg.Source == emptyString && c.Config != nil {
		cfg.Source = c.Config.Source
	}
	if cfg.Source == emptyString {
		cfg.Source = DefaultSource
	}
	cfg.Args = cfg.Args.clone()
	cfg.Request = cloneRequest(cfg.Request)
	return &Logger{cfg: c, conf: cfg}
}

// InjectPlatformMetadata sets ev.Platform for the active deployment target.
func (c *Configurator) InjectPlatformMetadata(ev *Event, source string) {
	if c == nil || ev == nil || c.Platform == nil {
		return
	}
	ev.Platform = c.Platform.Metadata(source)
}

// NetworkEnabled reports whether events go to the ingestion client.
func (c *Configurator) NetworkEnabled() bool {
	return c != nil && c.isInitialized.Load() && c.network && c.Client != nil
}

// accepting reports whether loggers may emit: after Initialize, and after
// Close through the console fallback.
func (c *Configurator) accepting() bool {
	return c.isInitialized.Load() || c.closed.Load()
}

func (c *Configurator) minLevel() Level {
	return c.level
}

// dispatch hands ev to its sink. Nothing escapes: errors and panics from
// the sink are reported on the diagnostic logger.
func (c *Configurator) dispatch(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.diag.Warn().Interface("panic", r).Msg("log delivery panicked, event lost")
		}
	}()

	if !c.NetworkEnabled() {
		c.writeConsole(ev)
		return
	}
	if err := c.Client.Ingest(c.Config.Dataset, ev.Map()); err != nil {
		c.diag.Warn().Err(err).Str("event_message", ev.Message).Msg("failed to ingest log event")
	}
}

func (c *Configurator) writeConsole(ev Event) {
	line := FormatConsole(ev, c.mode)

	c.consoleMu.Lock()
	defer c.consoleMu.Unlock()
	if err := writeConsoleLine(c.console, line); err != nil {
		c.diag.Warn().Err(err).Msg("console write failed")
	}
	if c.fileWriter == nil {
		return
	}
	if c.mode == ConsoleANSI {
		line = formatANSI(ev, true)
	}
	if err := writeConsoleLine(c.fileWriter, line); err != nil {
		c.diag.Warn().Err(err).Msg("log file write failed")
	}
}

// flush never returns an error to the caller's control flow: the result is
// reported and also returned for inspection.
func (c *Configurator) flush(ctx context.Context) DeliveryReport {
	var report DeliveryReport
	if !c.NetworkEnabled() {
		return report
	}
	start := time.Now()
	report.Err = recoverErr(func() error { return c.Client.Flush(ctx) })
	report.Duration = time.Since(start)
	if report.Err != nil {
		c.diag.Warn().Err(report.Err).Msg("failed to flush logs")
	}
	return report
}

// recoverErr runs fn and turns a panic into an error.
func recoverErr(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
