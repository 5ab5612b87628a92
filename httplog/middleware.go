// Package httplog attaches a request scoped edgelog.Logger to every HTTP
// request and logs one summary event when the response is written.
package httplog

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Station-Manager/edgelog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	HeaderRequestID     = "X-Request-Id"
	HeaderForwardedFor  = "X-Forwarded-For"
	HeaderRealIP        = "X-Real-Ip"
	defaultFlushTimeout = 2 * time.Second
)

type options struct {
	flush        bool
	flushTimeout time.Duration
	idHeader     string
	now          func() time.Time
}

// Option changes the middleware's behaviour.
type Option func(*options)

// WithoutFlush leaves delivery to the ingestion client's background loop
// instead of flushing when each request ends.
func WithoutFlush() Option {
	return func(o *options) { o.flush = false }
}

// WithFlushTimeout bounds the end of request flush.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flushTimeout = d
		}
	}
}

// WithRequestIDHeader reads and echoes the request id using header instead
// of X-Request-Id.
func WithRequestIDHeader(header string) Option {
	return func(o *options) {
		if header != "" {
			o.idHeader = header
		}
	}
}

// Middleware returns a chi compatible middleware. Handlers reach their
// request logger through edgelog.FromContext(r.Context()).
func Middleware(root *edgelog.Logger, opts ...Option) func(http.Handler) http.Handler {
	o := options{
		flush:        true,
		flushTimeout: defaultFlushTimeout,
		idHeader:     HeaderRequestID,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := newRequestReport(r, o.idHeader, o.now())
			w.Header().Set(o.idHeader, req.ID)

			logger := root.Fork(edgelog.LoggerConfig{Request: &req})
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				req.EndTime = o.now()
				req.Status = ww.Status()
				if req.Status == 0 {
					req.Status = http.StatusOK
				}
				req.DurationMS = req.EndTime.Sub(req.StartTime).Milliseconds()
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					req.Route = rctx.RoutePattern()
				}

				done := root.Fork(edgelog.LoggerConfig{Request: &req})
				done.Log(levelFor(req.Status), fmt.Sprintf("%s %s %d", req.Method, req.Path, req.Status),
					edgelog.Fields{"bytes": ww.BytesWritten()})

				if o.flush {
					ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), o.flushTimeout)
					defer cancel()
					done.Flush(ctx)
				}
			}()

			next.ServeHTTP(ww, r.WithContext(edgelog.NewContext(r.Context(), logger)))
		})
	}
}

func levelFor(status int) edgelog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return edgelog.LevelError
	case status >= http.StatusBadRequest:
		return edgelog.LevelWarn
	default:
		return edgelog.LevelInfo
	}
}

func newRequestReport(r *http.Request, idHeader string, start time.Time) edgelog.RequestReport {
	id := r.Header.Get(idHeader)
	if id == "" {
		id = uuid.NewString()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return edgelog.RequestReport{
		ID:        id,
		StartTime: start,
		Method:    r.Method,
		Path:      r.URL.Path,
		Host:      r.Host,
		Scheme:    scheme,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-Ip, then the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get(HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get(HeaderRealIP)); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
