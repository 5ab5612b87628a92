// Command edgelog sends log events from the command line or from stdin,
// one event per line, through the same pipeline applications use.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Station-Manager/edgelog"
	"github.com/Station-Manager/edgelog/platform"
	"github.com/jessevdk/go-flags"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	Config   string        `long:"config" description:"YAML config file; EDGELOG_* variables override it"`
	Level    string        `long:"level" default:"info" description:"level the events are logged at"`
	Dataset  string        `long:"dataset" description:"ingestion dataset"`
	Source   string        `long:"source" description:"source tag added to platform metadata"`
	Fields   []string      `short:"f" long:"field" value-name:"KEY=VALUE" description:"field added to every event (repeatable)"`
	NoPretty bool          `long:"no-pretty" description:"plain console output"`
	Timeout  time.Duration `long:"timeout" default:"10s" description:"flush timeout"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.LookupEnv))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, lookup platform.LookupFunc) int {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS] [MESSAGE...]"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			_, _ = fmt.Fprintln(stdout, err)
			return exitOK
		}
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}

	level, err := edgelog.ParseLevel(opts.Level)
	if err != nil || level == edgelog.LevelUnset || level == edgelog.LevelOff {
		_, _ = fmt.Fprintf(stderr, "invalid --level %q\n", opts.Level)
		return exitUsage
	}
	fields, err := parseFields(opts.Fields)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if opts.Timeout <= 0 {
		_, _ = fmt.Fprintf(stderr, "invalid --timeout %s\n", opts.Timeout)
		return exitUsage
	}

	cfg, err := loadConfig(opts, lookup)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitError
	}

	c := &edgelog.Configurator{
		Config:      cfg,
		Console:     stdout,
		Diagnostics: stderr,
		Lookup:      lookup,
	}
	if err = c.Initialize(); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitError
	}
	defer func() { _ = c.Close() }()

	logger := c.Logger(edgelog.LoggerConfig{Args: fields})
	if len(rest) > 0 {
		logger.Log(level, strings.Join(rest, " "))
	} else if err = logLines(logger, level, stdin); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitError
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	if report := logger.Flush(ctx); !report.OK() {
		return exitError
	}
	return exitOK
}

func loadConfig(opts options, lookup platform.LookupFunc) (*edgelog.Config, error) {
	var (
		cfg *edgelog.Config
		err error
	)
	if opts.Config != "" {
		cfg, err = edgelog.LoadConfigFile(opts.Config, lookup)
	} else {
		cfg, err = edgelog.LoadConfig(lookup)
	}
	if err != nil {
		return nil, err
	}
	if opts.Dataset != "" {
		cfg.Dataset = opts.Dataset
	}
	if opts.Source != "" {
		cfg.Source = opts.Source
	}
	if opts.NoPretty {
		cfg.NoPrettyPrint = true
	}
	return cfg, nil
}

// logLines logs every non-empty line of r as its own event.
func logLines(logger *edgelog.Logger, level edgelog.Level, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		logger.Log(level, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	return nil
}

func parseFields(pairs []string) (edgelog.Fields, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(edgelog.Fields, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, want KEY=VALUE", pair)
		}
		fields[key] = value
	}
	return fields, nil
}
