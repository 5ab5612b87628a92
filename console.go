package edgelog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ConsoleMode selects how FormatConsole renders an event.
type ConsoleMode int

const (
	// ConsoleANSI renders colored lines for terminals.
	ConsoleANSI ConsoleMode = iota
	// ConsolePlain renders "level - message {fields}".
	ConsolePlain
	// ConsoleBrowser renders %c directives with CSS colors for a browser
	// devtools console.
	ConsoleBrowser
)

const (
	consoleTimeFormat = "15:04:05.000"
	consoleFieldClash = "fields."
	cssDirective      = "%c"
	cssReset          = "color: inherit"
)

var levelCSS = map[Level]string{
	LevelDebug: "color: #6b7280",
	LevelInfo:  "color: #3b82f6",
	LevelWarn:  "color: #f59e0b",
	LevelError: "color: #ef4444",
}

// ConsoleLine is a single console write. Args are the extra values a
// browser console receives next to Text.
type ConsoleLine struct {
	Text string
	Args []any

	// directives is the number of leading %c directives the formatter put
	// in Text, each paired with the CSS arg at the same position.
	directives int
}

// SelectConsoleMode picks the mode for the given flags.
func SelectConsoleMode(noPrettyPrint, browser bool) ConsoleMode {
	switch {
	case noPrettyPrint:
		return ConsolePlain
	case browser:
		return ConsoleBrowser
	default:
		return ConsoleANSI
	}
}

// FormatConsole renders ev without side effects.
func FormatConsole(ev Event, mode ConsoleMode) ConsoleLine {
	switch mode {
	case ConsolePlain:
		return formatPlain(ev)
	case ConsoleBrowser:
		return formatBrowser(ev)
	default:
		return formatANSI(ev, false)
	}
}

func formatPlain(ev Event) ConsoleLine {
	text := ev.Level.String() + " - " + ev.Message
	if fields := sanitizeFields(ev.Fields); fields != nil {
		if b, err := json.Marshal(fields); err == nil {
			text += " " + string(b)
		}
	}
	return ConsoleLine{Text: text}
}

func formatBrowser(ev Event) ConsoleLine {
	css, ok := levelCSS[ev.Level]
	if !ok {
		css = cssReset
	}
	line := ConsoleLine{
		Text:       cssDirective + strings.ToUpper(ev.Level.String()) + cssDirective + " " + ev.Message,
		Args:       []any{css, cssReset},
		directives: 2,
	}
	if fields := sanitizeFields(ev.Fields); fields != nil {
		line.Args = append(line.Args, fields)
	}
	return line
}

// formatANSI feeds the event through zerolog's ConsoleWriter so terminal
// output looks the same as the rest of a zerolog based service. noColor
// renders the same layout without escape codes, for files.
func formatANSI(ev Event, noColor bool) ConsoleLine {
	entry := map[string]any{
		zerolog.LevelFieldName:     ev.Level.zerologLevel().String(),
		zerolog.TimestampFieldName: ev.Timestamp.Format(time.RFC3339Nano),
		zerolog.MessageFieldName:   ev.Message,
	}
	for k, v := range sanitizeFields(ev.Fields) {
		if _, clash := entry[k]; clash || k == zerolog.CallerFieldName {
			k = consoleFieldClash + k
		}
		entry[k] = v
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return formatPlain(ev)
	}

	var buf bytes.Buffer
	w := zerolog.ConsoleWriter{Out: &buf, NoColor: noColor, TimeFormat: consoleTimeFormat}
	if _, err = w.Write(raw); err != nil {
		return formatPlain(ev)
	}
	return ConsoleLine{Text: strings.TrimRight(buf.String(), "\n")}
}

// writeConsoleLine prints line to w. Outside a browser the CSS arguments
// have no meaning, so the formatter's %c directives and their styles are
// dropped and the remaining args are appended as JSON. A %c in the message
// itself is printed as is.
func writeConsoleLine(w io.Writer, line ConsoleLine) error {
	text := line.Text
	args := line.Args
	if n := line.directives; n > 0 {
		text = strings.Replace(text, cssDirective, emptyString, n)
		args = args[min(n, len(args)):]
	}

	var b strings.Builder
	b.WriteString(text)
	for _, a := range args {
		enc, err := json.Marshal(a)
		if err != nil {
			fmt.Fprintf(&b, " %v", a)
			continue
		}
		b.WriteByte(' ')
		b.Write(enc)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}
