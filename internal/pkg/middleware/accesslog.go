package middleware

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ricesearch/rice-accesslog/internal/accesslog"
	"github.com/ricesearch/rice-accesslog/internal/pkg/logger"
	"github.com/ricesearch/rice-accesslog/internal/pkg/security"
)

// AccessLoggerConfig configures the access log middleware.
type AccessLoggerConfig struct {
	// Writer receives every completed entry.
	Writer *accesslog.Writer
	// TrustForwarded takes the client ip from forwarding headers.
	TrustForwarded bool
	// Headers lists request headers recorded as entry attributes.
	Headers []string
	// Logger reports write failures. Defaults to a discarding logger.
	Logger *logger.Logger
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// AccessLogger records one access log entry per request.
type AccessLogger struct {
	cfg AccessLoggerConfig
}

// NewAccessLogger creates an access log middleware.
func NewAccessLogger(cfg AccessLoggerConfig) *AccessLogger {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AccessLogger{cfg: cfg}
}

// Middleware returns an HTTP middleware that fills an entry for each
// request and writes it when the handler returns. Handlers reach the
// entry through accesslog.FromContext.
//
// Each request gets an id, taken from X-Request-ID when the client sent a
// usable one. The id is echoed in the response, recorded as the request_id
// attribute and stored in the context under logger.RequestIDKey.
func (al *AccessLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := al.cfg.Now()
		id := requestID(r)
		entry := al.newEntry(r, start)
		entry.AddKeyValue("request_id", id)

		ctx := context.WithValue(r.Context(), logger.RequestIDKey, id)
		ctx = accesslog.NewContext(ctx, entry)
		r = r.WithContext(ctx)

		w.Header().Set(RequestIDHeader, id)
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		entry.SetStatusCode(wrapped.status)
		entry.SetReturnedContentSize(wrapped.size)
		entry.SetDurationMillis(al.cfg.Now().Sub(start).Milliseconds())

		if err := al.cfg.Writer.Write(entry); err != nil {
			al.cfg.Logger.WithContext(r.Context()).WithError(err).Error("Failed to write access log entry",
				"path", r.URL.Path,
			)
		}
	})
}

func (al *AccessLogger) newEntry(r *http.Request, start time.Time) *accesslog.Entry {
	e := accesslog.NewEntry()
	e.SetTimestampMillis(start.UnixMilli())
	e.SetIPAddress(clientIP(r, al.cfg.TrustForwarded))

	remoteHost, remotePort := splitHostPort(r.RemoteAddr)
	e.SetRemoteAddress(remoteHost)
	e.SetRemotePort(remotePort)

	e.SetHTTPMethod(r.Method)
	e.SetRawPath(r.URL.EscapedPath())
	e.SetRawQuery(r.URL.RawQuery)
	e.SetHTTPVersion(r.Proto)
	e.SetUserAgent(r.UserAgent())
	e.SetHostString(r.Host)
	if r.TLS != nil {
		e.SetScheme("https")
	} else {
		e.SetScheme("http")
	}
	e.SetLocalPort(localPort(r))

	for _, h := range al.cfg.Headers {
		values := r.Header.Values(h)
		if len(values) == 0 {
			continue
		}
		if security.IsSensitiveHeader(h) {
			e.AddKeyValue(h, security.Redacted)
			continue
		}
		for _, v := range values {
			e.AddKeyValue(h, v)
		}
	}
	return e
}

// responseWriter captures the status code and the number of bytes written.
type responseWriter struct {
	http.ResponseWriter
	status      int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code and calls the underlying WriteHeader.
func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write counts the bytes written.
func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.status)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (w *responseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker if the underlying ResponseWriter supports it.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
