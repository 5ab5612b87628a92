package edgelog

import (
	"time"

	"github.com/Station-Manager/edgelog/ingest"
	"github.com/Station-Manager/edgelog/platform"
)

// RequestReport describes the HTTP request an event was logged under.
type RequestReport struct {
	ID         string    `json:"id,omitempty"`
	StartTime  time.Time `json:"startTime,omitzero"`
	EndTime    time.Time `json:"endTime,omitzero"`
	Method     string    `json:"method,omitempty"`
	Path       string    `json:"path,omitempty"`
	Route      string    `json:"route,omitempty"`
	Host       string    `json:"host,omitempty"`
	Scheme     string    `json:"scheme,omitempty"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Status     int       `json:"statusCode,omitempty"`
	DurationMS int64     `json:"durationMs,omitempty"`
}

// Event is a single log entry. Loggers build a fresh Event per call and do
// not touch it after handing it to a sink.
type Event struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Request   *RequestReport
	Platform  *platform.Info
}

// Map returns the wire form handed to the ingestion client.
func (e Event) Map() ingest.Event {
	m := ingest.Event{
		keyTime:    e.Timestamp.UTC(),
		keyLevel:   e.Level.String(),
		keyMessage: e.Message,
	}
	if fields := sanitizeFields(e.Fields); fields != nil {
		m[keyFields] = fields
	}
	if e.Request != nil {
		req := *e.Request
		m[keyRequest] = req
	}
	if e.Platform != nil {
		info := *e.Platform
		m[keyPlatform] = info
	}
	return m
}

// newEvent merges defaults with the call-site args in order. Raw values
// collect under fields["args"]; reserved keys are dropped.
func newEvent(level Level, msg string, defaults Fields, args []Arg) Event {
	fields := defaults.clone()
	if fields == nil {
		fields = Fields{}
	}

	var raws []any
	for _, arg := range args {
		switch a := arg.(type) {
		case Fields:
			for k, v := range a {
				fields[k] = v
			}
		case ErrorValue:
			if a.Err == nil {
				continue
			}
			for k, v := range errorFields(a.Err) {
				fields[k] = v
			}
		case RawValue:
			raws = append(raws, a.Value)
		case nil:
		}
	}

	switch len(raws) {
	case 0:
	case 1:
		fields[keyArgs] = raws[0]
	default:
		fields[keyArgs] = raws
	}

	for k := range fields {
		if reservedFieldKeys[k] {
			delete(fields, k)
		}
	}

	return Event{
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Timestamp: time.Now(),
	}
}

// attachRequest copies req into the event. When platform metadata is
// present the request route is reported there too.
func (e *Event) attachRequest(req *RequestReport) {
	if req == nil {
		return
	}
	r := *req
	e.Request = &r
	if e.Platform == nil {
		return
	}
	if r.Route != emptyString {
		e.Platform.Route = r.Route
	} else {
		e.Platform.Route = r.Path
	}
	if e.Platform.Host == emptyString {
		e.Platform.Host = r.Host
	}
}
